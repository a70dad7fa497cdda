package payment

import (
	"context"
)

// Store persists the receipt journal. Receipts are append-only;
// List returns them in collection order.
type Store interface {
	Record(ctx context.Context, r *Receipt) error
	List(ctx context.Context, opts ListOpts) ([]*Receipt, error)
}

// ListOpts controls filtering and pagination. Empty Customer or
// Contractor matches all. Limit <= 0 means no limit.
type ListOpts struct {
	Customer   string
	Contractor string
	Limit      int
	Offset     int
}
