package store

import (
	"context"

	"github.com/xraph/tollgate/contractor"
	"github.com/xraph/tollgate/customer"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/types"
)

// Store is the unified storage interface for all Tollgate entities.
// Instead of embedding the sub-interfaces, we explicitly declare all methods
// to avoid naming conflicts.
//
// Registries are insertion-ordered: List methods return records in the
// order they were created, using a position assigned by the store.
type Store interface {
	// Contractor methods
	CreateContractor(ctx context.Context, c *contractor.Contractor) error
	GetContractor(ctx context.Context, address string) (*contractor.Contractor, error)
	ListContractors(ctx context.Context, opts contractor.ListOpts) ([]*contractor.Contractor, error)
	CountContractors(ctx context.Context) (int64, error)
	UpdateContractor(ctx context.Context, c *contractor.Contractor) error
	DeleteContractor(ctx context.Context, address string) error

	// Subscription methods
	CreateSubscription(ctx context.Context, s *customer.Subscription) error
	GetSubscription(ctx context.Context, subID id.SubscriptionID) (*customer.Subscription, error)
	GetSubscriptionByPair(ctx context.Context, cust, contr string) (*customer.Subscription, error)
	ListSubscriptionsByCustomer(ctx context.Context, cust string) ([]*customer.Subscription, error)
	ListSubscriptions(ctx context.Context, opts customer.ListOpts) ([]*customer.Subscription, error)
	CountCustomers(ctx context.Context) (int64, error)
	UpdateSubscription(ctx context.Context, s *customer.Subscription) error
	DeleteSubscription(ctx context.Context, subID id.SubscriptionID) error

	// Fee pool methods
	AddFees(ctx context.Context, amount types.Amount) error
	Fees(ctx context.Context) (types.Amount, error)
	ResetFees(ctx context.Context) (types.Amount, error)

	// Receipt methods
	RecordReceipt(ctx context.Context, r *payment.Receipt) error
	ListReceipts(ctx context.Context, opts payment.ListOpts) ([]*payment.Receipt, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
