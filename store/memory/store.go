// Package memory provides the in-memory reference Store. It is the
// default backend and the conformance target the SQL and Mongo
// backends are tested against.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/tollgate"
	"github.com/xraph/tollgate/contractor"
	"github.com/xraph/tollgate/customer"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/types"
)

type Store struct {
	mu sync.RWMutex

	// Contractor registry, insertion-ordered
	contractors     map[string]*contractor.Contractor
	contractorOrder []string

	// Subscription registry, insertion-ordered
	subscriptions map[string]*customer.Subscription
	subOrder      []string

	// Fee pool
	fees types.Amount

	// Receipt journal, append-only
	receipts []*payment.Receipt

	nextPos int64
}

func New() *Store {
	return &Store{
		contractors:   make(map[string]*contractor.Contractor),
		subscriptions: make(map[string]*customer.Subscription),
	}
}

// Contractor Store implementation

func (s *Store) CreateContractor(_ context.Context, c *contractor.Contractor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contractors[c.Address]; exists {
		return tollgate.ErrContractorExists
	}

	s.nextPos++
	c.Position = s.nextPos
	s.contractors[c.Address] = c
	s.contractorOrder = append(s.contractorOrder, c.Address)
	return nil
}

func (s *Store) GetContractor(_ context.Context, address string) (*contractor.Contractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if c, ok := s.contractors[address]; ok {
		return c, nil
	}
	return nil, tollgate.ErrContractorNotFound
}

func (s *Store) ListContractors(_ context.Context, opts contractor.ListOpts) ([]*contractor.Contractor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*contractor.Contractor, 0, len(s.contractorOrder))
	for _, addr := range s.contractorOrder {
		result = append(result, s.contractors[addr])
	}

	return page(result, opts.Limit, opts.Offset), nil
}

func (s *Store) CountContractors(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.contractors)), nil
}

func (s *Store) UpdateContractor(_ context.Context, c *contractor.Contractor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contractors[c.Address]; !exists {
		return tollgate.ErrContractorNotFound
	}
	s.contractors[c.Address] = c
	return nil
}

func (s *Store) DeleteContractor(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contractors[address]; !exists {
		return tollgate.ErrContractorNotFound
	}

	delete(s.contractors, address)
	for i, addr := range s.contractorOrder {
		if addr == address {
			s.contractorOrder = append(s.contractorOrder[:i], s.contractorOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Subscription Store implementation

func (s *Store) CreateSubscription(_ context.Context, sub *customer.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sub.ID.String()
	if _, exists := s.subscriptions[key]; exists {
		return tollgate.ErrAlreadyExists
	}

	s.nextPos++
	sub.Position = s.nextPos
	s.subscriptions[key] = sub
	s.subOrder = append(s.subOrder, key)
	return nil
}

func (s *Store) GetSubscription(_ context.Context, subID id.SubscriptionID) (*customer.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subscriptions[subID.String()]; ok {
		return sub, nil
	}
	return nil, tollgate.ErrNotFound
}

func (s *Store) GetSubscriptionByPair(_ context.Context, cust, contr string) (*customer.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range s.subOrder {
		sub := s.subscriptions[key]
		if sub.Customer == cust && sub.Contractor == contr {
			return sub, nil
		}
	}
	return nil, tollgate.ErrNotFound
}

func (s *Store) ListSubscriptionsByCustomer(_ context.Context, cust string) ([]*customer.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*customer.Subscription, 0)
	for _, key := range s.subOrder {
		sub := s.subscriptions[key]
		if sub.Customer == cust {
			result = append(result, sub)
		}
	}
	return result, nil
}

func (s *Store) ListSubscriptions(_ context.Context, opts customer.ListOpts) ([]*customer.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*customer.Subscription, 0, len(s.subOrder))
	for _, key := range s.subOrder {
		sub := s.subscriptions[key]
		if opts.Status == "" || sub.Status == opts.Status {
			result = append(result, sub)
		}
	}

	return page(result, opts.Limit, opts.Offset), nil
}

func (s *Store) CountCustomers(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, sub := range s.subscriptions {
		seen[sub.Customer] = struct{}{}
	}
	return int64(len(seen)), nil
}

func (s *Store) UpdateSubscription(_ context.Context, sub *customer.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := sub.ID.String()
	if _, exists := s.subscriptions[key]; !exists {
		return tollgate.ErrNotFound
	}
	s.subscriptions[key] = sub
	return nil
}

func (s *Store) DeleteSubscription(_ context.Context, subID id.SubscriptionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := subID.String()
	if _, exists := s.subscriptions[key]; !exists {
		return tollgate.ErrNotFound
	}

	delete(s.subscriptions, key)
	for i, k := range s.subOrder {
		if k == key {
			s.subOrder = append(s.subOrder[:i], s.subOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Fee pool implementation

func (s *Store) AddFees(_ context.Context, amount types.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fees += amount
	return nil
}

func (s *Store) Fees(_ context.Context) (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.fees, nil
}

func (s *Store) ResetFees(_ context.Context) (types.Amount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drained := s.fees
	s.fees = 0
	return drained, nil
}

// Receipt journal implementation

func (s *Store) RecordReceipt(_ context.Context, r *payment.Receipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPos++
	r.Position = s.nextPos
	s.receipts = append(s.receipts, r)
	return nil
}

func (s *Store) ListReceipts(_ context.Context, opts payment.ListOpts) ([]*payment.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*payment.Receipt, 0, len(s.receipts))
	for _, r := range s.receipts {
		if opts.Customer != "" && r.Customer != opts.Customer {
			continue
		}
		if opts.Contractor != "" && r.Contractor != opts.Contractor {
			continue
		}
		result = append(result, r)
	}

	return page(result, opts.Limit, opts.Offset), nil
}

// Store management

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// page applies the shared pagination contract: limit <= 0 means no
// limit, an offset past the end yields an empty slice.
func page[T any](items []T, limit, offset int) []T {
	start := offset
	if start < 0 {
		start = 0
	}
	if start > len(items) {
		start = len(items)
	}

	end := len(items)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	return items[start:end]
}
