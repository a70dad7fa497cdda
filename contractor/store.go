package contractor

import (
	"context"
)

// Store persists the contractor registry. List returns contractors in
// registration order; Position is assigned by the store on Create and
// never reused.
type Store interface {
	Create(ctx context.Context, c *Contractor) error
	Get(ctx context.Context, address string) (*Contractor, error)
	List(ctx context.Context, opts ListOpts) ([]*Contractor, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, c *Contractor) error
	Delete(ctx context.Context, address string) error
}

// ListOpts controls pagination. Limit <= 0 means no limit; an Offset
// at or past the end yields an empty page, not an error.
type ListOpts struct {
	Limit  int
	Offset int
}
