package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	tollgate "github.com/xraph/tollgate"
	"github.com/xraph/tollgate/contractor"
	"github.com/xraph/tollgate/customer"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/payment"
	tollgatestore "github.com/xraph/tollgate/store"
	"github.com/xraph/tollgate/types"
)

// compile-time interface check
var _ tollgatestore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
//
// Enumeration order follows creation time, tie-broken by TypeID, so
// paginated reads reconstruct the registration order.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("tollgate/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tollgate/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Contractor registry ====================

func (s *Store) CreateContractor(ctx context.Context, c *contractor.Contractor) error {
	existing := new(contractorModel)
	err := s.pg.NewSelect(existing).
		Where("address = $1", c.Address).
		Scan(ctx)
	if err == nil {
		return tollgate.ErrContractorExists
	}
	if !isNoRows(err) {
		return err
	}

	m := toContractorModel(c)
	_, err = s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetContractor(ctx context.Context, address string) (*contractor.Contractor, error) {
	m := new(contractorModel)
	err := s.pg.NewSelect(m).
		Where("address = $1", address).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tollgate.ErrContractorNotFound
		}
		return nil, err
	}
	return fromContractorModel(m), nil
}

func (s *Store) ListContractors(ctx context.Context, opts contractor.ListOpts) ([]*contractor.Contractor, error) {
	var models []contractorModel
	q := s.pg.NewSelect(&models)

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, address ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*contractor.Contractor, len(models))
	for i := range models {
		result[i] = fromContractorModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountContractors(ctx context.Context) (int64, error) {
	var total int64
	err := s.pg.NewRaw(`SELECT COUNT(*) FROM tollgate_contractors`).Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) UpdateContractor(ctx context.Context, c *contractor.Contractor) error {
	m := toContractorModel(c)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tollgate.ErrContractorNotFound
	}
	return nil
}

func (s *Store) DeleteContractor(ctx context.Context, address string) error {
	res, err := s.pg.NewDelete((*contractorModel)(nil)).
		Where("address = $1", address).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tollgate.ErrContractorNotFound
	}
	return nil
}

// ==================== Subscription registry ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *customer.Subscription) error {
	existing := new(subscriptionModel)
	err := s.pg.NewSelect(existing).
		Where("customer = $1", sub.Customer).
		Where("contractor = $2", sub.Contractor).
		Scan(ctx)
	if err == nil {
		return tollgate.ErrAlreadyExists
	}
	if !isNoRows(err) {
		return err
	}

	m := toSubscriptionModel(sub)
	_, err = s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*customer.Subscription, error) {
	m := new(subscriptionModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", subID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tollgate.ErrNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) GetSubscriptionByPair(ctx context.Context, cust, contr string) (*customer.Subscription, error) {
	m := new(subscriptionModel)
	err := s.pg.NewSelect(m).
		Where("customer = $1", cust).
		Where("contractor = $2", contr).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tollgate.ErrNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) ListSubscriptionsByCustomer(ctx context.Context, cust string) ([]*customer.Subscription, error) {
	var models []subscriptionModel
	err := s.pg.NewSelect(&models).
		Where("customer = $1", cust).
		OrderExpr("created_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*customer.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

func (s *Store) ListSubscriptions(ctx context.Context, opts customer.ListOpts) ([]*customer.Subscription, error) {
	var models []subscriptionModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Status != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("status = $%d", argIdx), string(opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*customer.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

func (s *Store) CountCustomers(ctx context.Context) (int64, error) {
	var total int64
	err := s.pg.NewRaw(`SELECT COUNT(DISTINCT customer) FROM tollgate_subscriptions`).Scan(ctx, &total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *customer.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tollgate.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, subID id.SubscriptionID) error {
	res, err := s.pg.NewDelete((*subscriptionModel)(nil)).
		Where("id = $1", subID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tollgate.ErrNotFound
	}
	return nil
}

// ==================== Fee pool ====================

func (s *Store) AddFees(ctx context.Context, amount types.Amount) error {
	_, err := s.pg.NewUpdate((*feePoolModel)(nil)).
		Set("amount = amount + $1", amount.Int64()).
		Where("id = $2", feePoolRow).
		Exec(ctx)
	return err
}

func (s *Store) Fees(ctx context.Context) (types.Amount, error) {
	m := new(feePoolModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", feePoolRow).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return 0, nil
		}
		return 0, err
	}
	return types.Amount(m.Amount), nil
}

func (s *Store) ResetFees(ctx context.Context) (types.Amount, error) {
	total, err := s.Fees(ctx)
	if err != nil {
		return 0, err
	}
	_, err = s.pg.NewUpdate((*feePoolModel)(nil)).
		Set("amount = $1", int64(0)).
		Where("id = $2", feePoolRow).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ==================== Receipt journal ====================

func (s *Store) RecordReceipt(ctx context.Context, r *payment.Receipt) error {
	m := toReceiptModel(r)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListReceipts(ctx context.Context, opts payment.ListOpts) ([]*payment.Receipt, error) {
	var models []receiptModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Customer != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("customer = $%d", argIdx), opts.Customer)
	}
	if opts.Contractor != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("contractor = $%d", argIdx), opts.Contractor)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("occurred_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*payment.Receipt, len(models))
	for i := range models {
		r, err := fromReceiptModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

// ==================== Helpers ====================

// feePoolRow is the id of the single accumulator row the migration seeds.
const feePoolRow = 1

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
