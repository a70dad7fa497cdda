package customer

import (
	"context"

	"github.com/xraph/tollgate/id"
)

// Store persists the subscription registry. List returns
// subscriptions in first-seen order of the customer; Position is
// assigned by the store on Create and never reused.
type Store interface {
	Create(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, subID id.SubscriptionID) (*Subscription, error)
	GetByPair(ctx context.Context, customer, contractor string) (*Subscription, error)
	ListByCustomer(ctx context.Context, customer string) ([]*Subscription, error)
	List(ctx context.Context, opts ListOpts) ([]*Subscription, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, s *Subscription) error
	Delete(ctx context.Context, subID id.SubscriptionID) error
}

// ListOpts controls pagination. Limit <= 0 means no limit; an Offset
// at or past the end yields an empty page, not an error. Status
// narrows to one entitlement state when set.
type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
