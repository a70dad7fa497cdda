package sqlite

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tollgate/contractor"
	"github.com/xraph/tollgate/customer"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/types"
)

// ==================== Contractor models ====================

type contractorModel struct {
	grove.BaseModel `grove:"table:tollgate_contractors"`

	Address   string            `grove:"address,pk"`
	PerCycle  int64             `grove:"per_cycle"`
	Balance   int64             `grove:"balance"`
	Metadata  map[string]string `grove:"metadata,type:json"`
	CreatedAt time.Time         `grove:"created_at"`
	UpdatedAt time.Time         `grove:"updated_at"`
}

func toContractorModel(c *contractor.Contractor) *contractorModel {
	return &contractorModel{
		Address:   c.Address,
		PerCycle:  c.PerCycle.Int64(),
		Balance:   c.Balance.Int64(),
		Metadata:  c.Metadata,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func fromContractorModel(m *contractorModel) *contractor.Contractor {
	return &contractor.Contractor{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		Address:  m.Address,
		PerCycle: types.Amount(m.PerCycle),
		Balance:  types.Amount(m.Balance),
		Metadata: m.Metadata,
	}
}

// ==================== Subscription models ====================

type subscriptionModel struct {
	grove.BaseModel `grove:"table:tollgate_subscriptions"`

	ID            string    `grove:"id,pk"`
	Customer      string    `grove:"customer"`
	Contractor    string    `grove:"contractor"`
	CredentialID  string    `grove:"credential_id"`
	Status        string    `grove:"status"`
	NextPaymentAt time.Time `grove:"next_payment_at"`
	CycleNanos    int64     `grove:"cycle_nanos"`
	CreatedAt     time.Time `grove:"created_at"`
	UpdatedAt     time.Time `grove:"updated_at"`
}

func toSubscriptionModel(s *customer.Subscription) *subscriptionModel {
	credID := ""
	if !s.CredentialID.IsNil() {
		credID = s.CredentialID.String()
	}
	return &subscriptionModel{
		ID:            s.ID.String(),
		Customer:      s.Customer,
		Contractor:    s.Contractor,
		CredentialID:  credID,
		Status:        string(s.Status),
		NextPaymentAt: s.NextPaymentAt,
		CycleNanos:    int64(s.CycleDuration),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*customer.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, err
	}
	credID := id.Nil
	if m.CredentialID != "" {
		credID, err = id.ParseCredentialID(m.CredentialID)
		if err != nil {
			return nil, err
		}
	}

	return &customer.Subscription{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            subID,
		Customer:      m.Customer,
		Contractor:    m.Contractor,
		CredentialID:  credID,
		Status:        customer.Status(m.Status),
		NextPaymentAt: m.NextPaymentAt,
		CycleDuration: time.Duration(m.CycleNanos),
	}, nil
}

// ==================== Receipt models ====================

type receiptModel struct {
	grove.BaseModel `grove:"table:tollgate_receipts"`

	ID         string    `grove:"id,pk"`
	Kind       string    `grove:"kind"`
	Customer   string    `grove:"customer"`
	Contractor string    `grove:"contractor"`
	Amount     int64     `grove:"amount"`
	Fee        int64     `grove:"fee"`
	Net        int64     `grove:"net"`
	OccurredAt time.Time `grove:"occurred_at"`
}

func toReceiptModel(r *payment.Receipt) *receiptModel {
	return &receiptModel{
		ID:         r.ID.String(),
		Kind:       string(r.Kind),
		Customer:   r.Customer,
		Contractor: r.Contractor,
		Amount:     r.Amount.Int64(),
		Fee:        r.Fee.Int64(),
		Net:        r.Net.Int64(),
		OccurredAt: r.OccurredAt,
	}
}

func fromReceiptModel(m *receiptModel) (*payment.Receipt, error) {
	rcptID, err := id.ParseReceiptID(m.ID)
	if err != nil {
		return nil, err
	}

	return &payment.Receipt{
		ID:         rcptID,
		Kind:       payment.Kind(m.Kind),
		Customer:   m.Customer,
		Contractor: m.Contractor,
		Amount:     types.Amount(m.Amount),
		Fee:        types.Amount(m.Fee),
		Net:        types.Amount(m.Net),
		OccurredAt: m.OccurredAt,
	}, nil
}

// ==================== Fee pool models ====================

// feePoolModel is a single-row accumulator; the migration seeds row 1.
type feePoolModel struct {
	grove.BaseModel `grove:"table:tollgate_fee_pool"`

	ID     int   `grove:"id,pk"`
	Amount int64 `grove:"amount"`
}
