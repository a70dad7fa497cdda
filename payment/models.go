// Package payment records the value-collecting side of the engine:
// one receipt per successful charge, split into fee and net.
package payment

import (
	"time"

	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/types"
)

// Kind classifies why a charge was collected.
type Kind string

const (
	// KindGrant is the first payment of a new subscription.
	KindGrant Kind = "grant"
	// KindRenewal extends an existing granted subscription.
	KindRenewal Kind = "renewal"
	// KindReactivation recovers a suspended subscription.
	KindReactivation Kind = "reactivation"
)

// Receipt is the immutable record of one collected charge.
// Amount = Fee + Net always holds; Fee went to the platform pool and
// Net to the contractor's balance at the moment OccurredAt.
type Receipt struct {
	ID         id.ReceiptID `json:"id"`
	Kind       Kind         `json:"kind"`
	Customer   string       `json:"customer"`
	Contractor string       `json:"contractor"`
	Amount     types.Amount `json:"amount"`
	Fee        types.Amount `json:"fee"`
	Net        types.Amount `json:"net"`
	OccurredAt time.Time    `json:"occurred_at"`
	Position   int64        `json:"-"`
}

// New builds a receipt for a charge collected at the given instant.
func New(kind Kind, customer, contractor string, amount, fee, net types.Amount, at time.Time) *Receipt {
	return &Receipt{
		ID:         id.NewReceiptID(),
		Kind:       kind,
		Customer:   customer,
		Contractor: contractor,
		Amount:     amount,
		Fee:        fee,
		Net:        net,
		OccurredAt: at.UTC(),
	}
}
