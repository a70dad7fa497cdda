package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	tollgate "github.com/xraph/tollgate"
	"github.com/xraph/tollgate/contractor"
	"github.com/xraph/tollgate/customer"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/payment"
	tollgatestore "github.com/xraph/tollgate/store"
	"github.com/xraph/tollgate/types"
)

// Collection name constants.
const (
	colContractors   = "tollgate_contractors"
	colSubscriptions = "tollgate_subscriptions"
	colReceipts      = "tollgate_receipts"
	colFeePool       = "tollgate_fee_pool"
)

// compile-time interface check
var _ tollgatestore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all tollgate collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tollgate/mongo: migrate %s indexes: %w", col, err)
		}
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
	var existing contractorModel
	err := s.mdb.NewFind(&existing).
		Filter(bson.M{"_id": c.Address}).
		Scan(ctx)
	if err == nil {
		return tollgate.ErrContractorExists
	}
	if !isNoDocuments(err) {
		return fmt.Errorf("tollgate/mongo: check contractor: %w", err)
	}

	m := toContractorModel(c)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("tollgate/mongo: create contractor: %w", err)
	}
	return nil
}

func (s *Store) GetContractor(ctx context.Context, address string) (*contractor.Contractor, error) {
	var m contractorModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": address}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tollgate.ErrContractorNotFound
		}
		return nil, fmt.Errorf("tollgate/mongo: get contractor: %w", err)
	}
	return fromContractorModel(&m), nil
}

func (s *Store) ListContractors(ctx context.Context, opts contractor.ListOpts) ([]*contractor.Contractor, error) {
	var models []contractorModel

	q := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tollgate/mongo: list contractors: %w", err)
	}

	result := make([]*contractor.Contractor, len(models))
	for i := range models {
		result[i] = fromContractorModel(&models[i])
	}
	return result, nil
}

func (s *Store) CountContractors(ctx context.Context) (int64, error) {
	total, err := s.mdb.Collection(colContractors).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("tollgate/mongo: count contractors: %w", err)
	}
	return total, nil
}

func (s *Store) UpdateContractor(ctx context.Context, c *contractor.Contractor) error {
	m := toContractorModel(c)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.Address}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tollgate/mongo: update contractor: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tollgate.ErrContractorNotFound
	}
	return nil
}

func (s *Store) DeleteContractor(ctx context.Context, address string) error {
	res, err := s.mdb.NewDelete((*contractorModel)(nil)).
		Filter(bson.M{"_id": address}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tollgate/mongo: delete contractor: %w", err)
	}
	if res.DeletedCount() == 0 {
		return tollgate.ErrContractorNotFound
	}
	return nil
}

// ==================== Subscription registry ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *customer.Subscription) error {
	var existing subscriptionModel
	err := s.mdb.NewFind(&existing).
		Filter(bson.M{"customer": sub.Customer, "contractor": sub.Contractor}).
		Scan(ctx)
	if err == nil {
		return tollgate.ErrAlreadyExists
	}
	if !isNoDocuments(err) {
		return fmt.Errorf("tollgate/mongo: check subscription: %w", err)
	}

	m := toSubscriptionModel(sub)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("tollgate/mongo: create subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, subID id.SubscriptionID) (*customer.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": subID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tollgate.ErrNotFound
		}
		return nil, fmt.Errorf("tollgate/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) GetSubscriptionByPair(ctx context.Context, cust, contr string) (*customer.Subscription, error) {
	var m subscriptionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"customer": cust, "contractor": contr}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tollgate.ErrNotFound
		}
		return nil, fmt.Errorf("tollgate/mongo: get subscription by pair: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) ListSubscriptionsByCustomer(ctx context.Context, cust string) ([]*customer.Subscription, error) {
	var models []subscriptionModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"customer": cust}).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tollgate/mongo: list customer subscriptions: %w", err)
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

	filter := bson.M{}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tollgate/mongo: list subscriptions: %w", err)
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
	pipeline := bson.A{
		bson.M{"$group": bson.M{"_id": "$customer"}},
		bson.M{"$count": "total"},
	}

	cursor, err := s.mdb.Collection(colSubscriptions).Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("tollgate/mongo: count customers: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("tollgate/mongo: count customers decode: %w", err)
	}

	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *customer.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tollgate/mongo: update subscription: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tollgate.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, subID id.SubscriptionID) error {
	res, err := s.mdb.NewDelete((*subscriptionModel)(nil)).
		Filter(bson.M{"_id": subID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tollgate/mongo: delete subscription: %w", err)
	}
	if res.DeletedCount() == 0 {
		return tollgate.ErrNotFound
	}
	return nil
}

// ==================== Fee pool ====================

func (s *Store) AddFees(ctx context.Context, amount types.Amount) error {
	_, err := s.mdb.NewUpdate((*feePoolModel)(nil)).
		Filter(bson.M{"_id": feePoolRow}).
		SetUpdate(bson.M{"$inc": bson.M{"amount": amount.Int64()}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tollgate/mongo: add fees: %w", err)
	}
	return nil
}

func (s *Store) Fees(ctx context.Context) (types.Amount, error) {
	var m feePoolModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": feePoolRow}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("tollgate/mongo: get fees: %w", err)
	}
	return types.Amount(m.Amount), nil
}

func (s *Store) ResetFees(ctx context.Context) (types.Amount, error) {
	total, err := s.Fees(ctx)
	if err != nil {
		return 0, err
	}

	_, err = s.mdb.NewUpdate((*feePoolModel)(nil)).
		Filter(bson.M{"_id": feePoolRow}).
		SetUpdate(bson.M{"$set": bson.M{"amount": int64(0)}}).
		Upsert().
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("tollgate/mongo: reset fees: %w", err)
	}
	return total, nil
}

// ==================== Receipt journal ====================

func (s *Store) RecordReceipt(ctx context.Context, r *payment.Receipt) error {
	m := toReceiptModel(r)
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		return fmt.Errorf("tollgate/mongo: record receipt: %w", err)
	}
	return nil
}

func (s *Store) ListReceipts(ctx context.Context, opts payment.ListOpts) ([]*payment.Receipt, error) {
	var models []receiptModel

	filter := bson.M{}
	if opts.Customer != "" {
		filter["customer"] = opts.Customer
	}
	if opts.Contractor != "" {
		filter["contractor"] = opts.Contractor
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "occurred_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tollgate/mongo: list receipts: %w", err)
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

// feePoolRow is the id of the single accumulator document.
const feePoolRow = 1

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all tollgate collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colContractors: {
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colSubscriptions: {
			{
				Keys:    bson.D{{Key: "customer", Value: 1}, {Key: "contractor", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "customer", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		colReceipts: {
			{Keys: bson.D{{Key: "customer", Value: 1}, {Key: "occurred_at", Value: 1}}},
			{Keys: bson.D{{Key: "contractor", Value: 1}, {Key: "occurred_at", Value: 1}}},
		},
		colFeePool: {},
	}
}
