package tollgate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/tollgate/contractor"
	"github.com/xraph/tollgate/credential"
	"github.com/xraph/tollgate/customer"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/plugin"
	"github.com/xraph/tollgate/policy"
	"github.com/xraph/tollgate/store"
	"github.com/xraph/tollgate/token"
	"github.com/xraph/tollgate/types"
)

// DefaultFeeBasisPoints is the platform fee the engine starts with: 5%.
const DefaultFeeBasisPoints = 500

// Engine is the subscription and entitlement engine. All state
// transitions are strictly serialized behind a single mutex; reads go
// straight to the store.
type Engine struct {
	mu      sync.Mutex
	store   store.Store
	tokens  token.Transferor
	creds   credential.Provider
	plugins *plugin.Registry
	logger  *slog.Logger

	// Configuration
	owner   string
	custody string
	feeBps  int
	terms   policy.TermsResolver
	binding policy.Binding
	renewal policy.RenewalRule
	now     func() time.Time
}

// New creates a new Engine instance.
func New(s store.Store, tokens token.Transferor, creds credential.Provider, opts ...Option) *Engine {
	e := &Engine{
		store:   s,
		tokens:  tokens,
		creds:   creds,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		custody: "tollgate",
		feeBps:  DefaultFeeBasisPoints,
		terms:   policy.ExplicitTerms{},
		binding: policy.BindingExclusive,
		renewal: policy.RenewalAdditive,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithOwner sets the owner identity for owner-only operations.
func WithOwner(owner string) Option {
	return func(e *Engine) {
		e.owner = owner
	}
}

// WithCustodyAccount sets the identity that holds revoked credentials.
func WithCustodyAccount(account string) Option {
	return func(e *Engine) {
		e.custody = account
	}
}

// WithFeeBasisPoints sets the initial platform fee rate.
// Out-of-range values are ignored; use SetFeeBasisPoints for a
// validated change.
func WithFeeBasisPoints(bps int) Option {
	return func(e *Engine) {
		if types.ValidBasisPoints(bps) {
			e.feeBps = bps
		}
	}
}

// WithTermsResolver sets the charge-terms policy.
func WithTermsResolver(r policy.TermsResolver) Option {
	return func(e *Engine) {
		e.terms = r
	}
}

// WithBinding sets the customer-contractor binding policy.
func WithBinding(b policy.Binding) Option {
	return func(e *Engine) {
		e.binding = b
	}
}

// WithRenewalRule sets the late-renewal accrual policy.
func WithRenewalRule(r policy.RenewalRule) Option {
	return func(e *Engine) {
		e.renewal = r
	}
}

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("tollgate started",
		"fee_bps", e.feeBps,
		"binding", e.binding,
		"renewal", e.renewal,
	)

	return nil
}

// Stop shuts down the engine.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// ──────────────────────────────────────────────────
// Payment
// ──────────────────────────────────────────────────

// Outcome names the transition a payment produced, mirroring the
// emitted event.
type Outcome string

const (
	// OutcomeGranted means the customer gained the entitlement: first
	// grant or reactivation out of suspension.
	OutcomeGranted Outcome = "granted"
	// OutcomePaid means an already-granted subscription renewed.
	OutcomePaid Outcome = "paid"
	// OutcomeRevoked means an expired subscription could not be
	// renewed and the entitlement is suspended.
	OutcomeRevoked Outcome = "revoked"
)

// Result reports what a payment did. Amount, Fee and Net are zero
// when Outcome is OutcomeRevoked: nothing was collected.
type Result struct {
	Outcome      Outcome
	Subscription *customer.Subscription
	Amount       types.Amount
	Fee          types.Amount
	Net          types.Amount
}

// Pay drives the entitlement state machine for one customer and
// contractor. Depending on current state it grants, renews, revokes,
// or reactivates; the Result's Outcome says which.
//
// A customer with no subscription hard-fails on insufficient funds:
// nothing is granted that was never paid for. A customer whose paid
// cycle has lapsed is suspended instead, with the credential moved
// into engine custody.
func (e *Engine) Pay(ctx context.Context, cust, contr string, req policy.Request) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.store.GetContractor(ctx, contr)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}

	terms, err := e.terms.Resolve(req, c)
	if err != nil {
		if errors.Is(err, policy.ErrNeedContractor) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownContractor, contr)
		}
		return nil, err
	}

	// Validation order is part of the contract: amount, duration,
	// contractor, binding. Nothing below mutates state until every
	// check has passed.
	if !terms.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, terms.Amount)
	}
	if terms.Duration <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDuration, terms.Duration)
	}
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContractor, contr)
	}

	sub, err := e.store.GetSubscriptionByPair(ctx, cust, contr)
	if err != nil && !IsNotFound(err) {
		return nil, err
	}

	if sub == nil && e.binding == policy.BindingExclusive {
		others, listErr := e.store.ListSubscriptionsByCustomer(ctx, cust)
		if listErr != nil {
			return nil, listErr
		}
		if len(others) > 0 {
			return nil, fmt.Errorf("%w: %s holds %s", ErrContractorMismatch, cust, others[0].Contractor)
		}
	}

	switch {
	case sub == nil:
		return e.grant(ctx, cust, c, terms)
	case sub.Status == customer.StatusGranted:
		return e.renew(ctx, sub, c, terms)
	default:
		return e.reactivate(ctx, sub, c, terms)
	}
}

// grant handles the Absent state: first payment, credential issue.
func (e *Engine) grant(ctx context.Context, cust string, c *contractor.Contractor, terms policy.Terms) (*Result, error) {
	if err := e.tokens.TransferFrom(ctx, cust, terms.Amount); err != nil {
		if errors.Is(err, token.ErrInsufficientFunds) {
			return nil, fmt.Errorf("%w: customer %s", ErrInsufficientFunds, cust)
		}
		return nil, err
	}

	col, err := e.creds.CollectionFor(ctx, c.Address)
	if err != nil {
		return nil, e.refund(ctx, cust, terms.Amount, err)
	}

	credID, err := col.Issue(ctx, cust)
	if err != nil {
		return nil, e.refund(ctx, cust, terms.Amount, err)
	}

	now := e.now()
	sub := &customer.Subscription{
		Entity:        types.NewEntity(),
		ID:            id.NewSubscriptionID(),
		Customer:      cust,
		Contractor:    c.Address,
		CredentialID:  credID,
		Status:        customer.StatusGranted,
		NextPaymentAt: now.Add(terms.Duration),
		CycleDuration: terms.Duration,
	}
	if err := e.store.CreateSubscription(ctx, sub); err != nil {
		e.discard(ctx, col, credID)
		return nil, e.refund(ctx, cust, terms.Amount, err)
	}

	rcpt, err := e.settle(ctx, payment.KindGrant, sub, c, terms.Amount)
	if err != nil {
		if derr := e.store.DeleteSubscription(ctx, sub.ID); derr != nil {
			e.logger.Error("aborted grant left a subscription record",
				"subscription", sub.ID.String(),
				"error", derr,
			)
		}
		e.discard(ctx, col, credID)
		return nil, e.refund(ctx, cust, terms.Amount, err)
	}

	e.logger.Debug("entitlement granted",
		"customer", cust,
		"contractor", c.Address,
		"credential", credID.String(),
	)

	e.plugins.EmitGranted(ctx, sub)
	e.plugins.EmitPaid(ctx, rcpt)

	return &Result{
		Outcome:      OutcomeGranted,
		Subscription: sub,
		Amount:       rcpt.Amount,
		Fee:          rcpt.Fee,
		Net:          rcpt.Net,
	}, nil
}

// renew handles the Granted state: collect, extend; or, if the cycle
// has already lapsed and the customer cannot pay, suspend.
func (e *Engine) renew(ctx context.Context, sub *customer.Subscription, c *contractor.Contractor, terms policy.Terms) (*Result, error) {
	now := e.now()

	if err := e.tokens.TransferFrom(ctx, sub.Customer, terms.Amount); err != nil {
		if !errors.Is(err, token.ErrInsufficientFunds) {
			return nil, err
		}
		if !sub.Due(now) {
			// The running cycle is already paid for; a failed early
			// renewal changes nothing.
			return nil, fmt.Errorf("%w: customer %s", ErrInsufficientFunds, sub.Customer)
		}
		return e.suspend(ctx, sub, c)
	}

	prior, priorCycle := sub.NextPaymentAt, sub.CycleDuration
	sub.NextPaymentAt = e.renewal.Next(sub.NextPaymentAt, now, terms.Duration)
	sub.CycleDuration = terms.Duration
	sub.Touch()
	if err := e.store.UpdateSubscription(ctx, sub); err != nil {
		sub.NextPaymentAt, sub.CycleDuration = prior, priorCycle
		return nil, e.refund(ctx, sub.Customer, terms.Amount, err)
	}

	rcpt, err := e.settle(ctx, payment.KindRenewal, sub, c, terms.Amount)
	if err != nil {
		sub.NextPaymentAt, sub.CycleDuration = prior, priorCycle
		sub.Touch()
		if uerr := e.store.UpdateSubscription(ctx, sub); uerr != nil {
			e.logger.Error("aborted renewal left an extended window",
				"subscription", sub.ID.String(),
				"error", uerr,
			)
		}
		return nil, e.refund(ctx, sub.Customer, terms.Amount, err)
	}

	e.logger.Debug("subscription renewed",
		"customer", sub.Customer,
		"contractor", sub.Contractor,
		"next_payment_at", sub.NextPaymentAt,
	)

	e.plugins.EmitPaid(ctx, rcpt)

	return &Result{
		Outcome:      OutcomePaid,
		Subscription: sub,
		Amount:       rcpt.Amount,
		Fee:          rcpt.Fee,
		Net:          rcpt.Net,
	}, nil
}

// suspend moves a lapsed, unpayable subscription into custody.
func (e *Engine) suspend(ctx context.Context, sub *customer.Subscription, c *contractor.Contractor) (*Result, error) {
	col, err := e.creds.CollectionFor(ctx, c.Address)
	if err != nil {
		return nil, err
	}
	if err := col.Transfer(ctx, sub.CredentialID, sub.Customer, e.custody); err != nil {
		return nil, err
	}

	sub.Status = customer.StatusSuspended
	sub.Touch()
	if err := e.store.UpdateSubscription(ctx, sub); err != nil {
		sub.Status = customer.StatusGranted
		if terr := col.Transfer(ctx, sub.CredentialID, e.custody, sub.Customer); terr != nil {
			e.logger.Error("aborted suspension left the credential in custody",
				"credential", sub.CredentialID.String(),
				"error", terr,
			)
		}
		return nil, err
	}

	e.logger.Info("entitlement revoked",
		"customer", sub.Customer,
		"contractor", sub.Contractor,
	)

	e.plugins.EmitRevoked(ctx, sub)

	return &Result{Outcome: OutcomeRevoked, Subscription: sub}, nil
}

// reactivate handles the Suspended state: a successful payment buys
// the credential back out of custody; a declined one changes nothing.
func (e *Engine) reactivate(ctx context.Context, sub *customer.Subscription, c *contractor.Contractor, terms policy.Terms) (*Result, error) {
	if err := e.tokens.TransferFrom(ctx, sub.Customer, terms.Amount); err != nil {
		if errors.Is(err, token.ErrInsufficientFunds) {
			// Already suspended; nothing transitions and no event
			// fires again.
			return &Result{Outcome: OutcomeRevoked, Subscription: sub}, nil
		}
		return nil, err
	}

	col, err := e.creds.CollectionFor(ctx, c.Address)
	if err != nil {
		return nil, e.refund(ctx, sub.Customer, terms.Amount, err)
	}
	if err := col.Transfer(ctx, sub.CredentialID, e.custody, sub.Customer); err != nil {
		return nil, e.refund(ctx, sub.Customer, terms.Amount, err)
	}

	// The suspension may have lasted any length of time; the bought
	// window starts at the payment instant, not at the stale expiry.
	now := e.now()
	prior, priorCycle := sub.NextPaymentAt, sub.CycleDuration
	sub.Status = customer.StatusGranted
	sub.NextPaymentAt = now.Add(terms.Duration)
	sub.CycleDuration = terms.Duration
	sub.Touch()
	if err := e.store.UpdateSubscription(ctx, sub); err != nil {
		e.repark(ctx, col, sub, prior, priorCycle, false)
		return nil, e.refund(ctx, sub.Customer, terms.Amount, err)
	}

	rcpt, err := e.settle(ctx, payment.KindReactivation, sub, c, terms.Amount)
	if err != nil {
		e.repark(ctx, col, sub, prior, priorCycle, true)
		return nil, e.refund(ctx, sub.Customer, terms.Amount, err)
	}

	e.logger.Info("entitlement reactivated",
		"customer", sub.Customer,
		"contractor", sub.Contractor,
	)

	e.plugins.EmitGranted(ctx, sub)
	e.plugins.EmitPaid(ctx, rcpt)

	return &Result{
		Outcome:      OutcomeGranted,
		Subscription: sub,
		Amount:       rcpt.Amount,
		Fee:          rcpt.Fee,
		Net:          rcpt.Net,
	}, nil
}

// settle splits a collected amount, credits the contractor and the
// fee pool, and journals the receipt. A failed step is compensated
// before returning, so a settle error means nothing was booked.
func (e *Engine) settle(ctx context.Context, kind payment.Kind, sub *customer.Subscription, c *contractor.Contractor, amount types.Amount) (*payment.Receipt, error) {
	fee, net := amount.SplitFee(e.feeBps)

	c.Balance += net
	c.Touch()
	if err := e.store.UpdateContractor(ctx, c); err != nil {
		c.Balance -= net
		return nil, err
	}
	if err := e.store.AddFees(ctx, fee); err != nil {
		c.Balance -= net
		c.Touch()
		if uerr := e.store.UpdateContractor(ctx, c); uerr != nil {
			return nil, errors.Join(err, uerr)
		}
		return nil, err
	}

	rcpt := payment.New(kind, sub.Customer, sub.Contractor, amount, fee, net, e.now())
	if err := e.store.RecordReceipt(ctx, rcpt); err != nil {
		c.Balance -= net
		c.Touch()
		uerr := e.store.UpdateContractor(ctx, c)
		ferr := e.store.AddFees(ctx, -fee)
		if uerr != nil || ferr != nil {
			return nil, errors.Join(err, uerr, ferr)
		}
		return nil, err
	}

	return rcpt, nil
}

// refund returns a pulled charge after a later step failed, so no
// value is kept for a grant that was never recorded.
func (e *Engine) refund(ctx context.Context, cust string, amount types.Amount, cause error) error {
	if rerr := e.tokens.Transfer(ctx, cust, amount); rerr != nil {
		e.logger.Error("refund failed after aborted grant",
			"customer", cust,
			"amount", amount,
			"error", rerr,
		)
		return fmt.Errorf("tollgate: aborted payment not refunded: %w", errors.Join(cause, rerr))
	}

	return cause
}

// discard burns a credential issued by a grant that later aborted.
func (e *Engine) discard(ctx context.Context, col credential.Collection, credID id.CredentialID) {
	if err := col.Burn(ctx, credID); err != nil {
		e.logger.Error("aborted grant left a live credential",
			"credential", credID.String(),
			"error", err,
		)
	}
}

// repark restores a suspended subscription after a reactivation
// aborted mid-way: the prior window is put back and the credential
// returns to custody when it had already been handed out.
func (e *Engine) repark(ctx context.Context, col credential.Collection, sub *customer.Subscription, prior time.Time, priorCycle time.Duration, stored bool) {
	sub.Status = customer.StatusSuspended
	sub.NextPaymentAt, sub.CycleDuration = prior, priorCycle
	if stored {
		sub.Touch()
		if err := e.store.UpdateSubscription(ctx, sub); err != nil {
			e.logger.Error("aborted reactivation left an active record",
				"subscription", sub.ID.String(),
				"error", err,
			)
		}
	}
	if err := col.Transfer(ctx, sub.CredentialID, sub.Customer, e.custody); err != nil {
		e.logger.Error("aborted reactivation left the credential with the customer",
			"credential", sub.CredentialID.String(),
			"error", err,
		)
	}
}

// ──────────────────────────────────────────────────
// Contractor Management
// ──────────────────────────────────────────────────

// AddContractor registers a contractor. Owner only.
func (e *Engine) AddContractor(ctx context.Context, caller, address string, cfg contractor.Config) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if address == "" {
		return fmt.Errorf("%w: empty contractor address", ErrInvalidInput)
	}
	if cfg.PerCycle.IsNegative() {
		return fmt.Errorf("%w: per-cycle %s", ErrInvalidTerms, cfg.PerCycle)
	}

	c := contractor.New(address, cfg)
	if err := e.store.CreateContractor(ctx, c); err != nil {
		return err
	}

	e.logger.Info("contractor registered", "address", address)
	e.plugins.EmitContractorAdded(ctx, c)

	return nil
}

// RemoveContractor deregisters a contractor. Owner only; fails while
// the contractor still has an undrawn balance.
func (e *Engine) RemoveContractor(ctx context.Context, caller, address string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return err
	}

	c, err := e.store.GetContractor(ctx, address)
	if err != nil {
		return err
	}
	if c.Balance.IsPositive() {
		return fmt.Errorf("%w: %s holds %s", ErrNonZeroBalance, address, c.Balance)
	}

	if err := e.store.DeleteContractor(ctx, address); err != nil {
		return err
	}

	e.logger.Info("contractor removed", "address", address)
	e.plugins.EmitContractorRemoved(ctx, address)

	return nil
}

// SetContractorTerms updates a contractor's per-cycle amount. Owner
// only: under preset terms the per-cycle amount is the price charged
// against customers' standing authorizations.
func (e *Engine) SetContractorTerms(ctx context.Context, caller, address string, perCycle types.Amount) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if perCycle.IsNegative() {
		return fmt.Errorf("%w: per-cycle %s", ErrInvalidTerms, perCycle)
	}

	c, err := e.store.GetContractor(ctx, address)
	if err != nil {
		return err
	}

	c.PerCycle = perCycle
	c.Touch()
	if err := e.store.UpdateContractor(ctx, c); err != nil {
		return err
	}

	e.plugins.EmitContractorTermsUpdated(ctx, c)

	return nil
}

// ──────────────────────────────────────────────────
// Treasury
// ──────────────────────────────────────────────────

// SetFeeBasisPoints changes the platform fee rate. Owner only. The
// new rate applies to payments collected after the change; balances
// already split are untouched.
func (e *Engine) SetFeeBasisPoints(ctx context.Context, caller string, bps int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return err
	}
	if !types.ValidBasisPoints(bps) {
		return fmt.Errorf("%w: %d", ErrInvalidFee, bps)
	}

	old := e.feeBps
	e.feeBps = bps

	e.logger.Info("fee rate changed", "old_bps", old, "new_bps", bps)
	e.plugins.EmitFeeChanged(ctx, old, bps)

	return nil
}

// FeeBasisPoints returns the current platform fee rate.
func (e *Engine) FeeBasisPoints() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.feeBps
}

// WithdrawContractorBalance drains the caller's accrued balance.
func (e *Engine) WithdrawContractorBalance(ctx context.Context, caller string) (types.Amount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.store.GetContractor(ctx, caller)
	if err != nil {
		if IsNotFound(err) {
			return 0, fmt.Errorf("%w: %s", ErrNotContractor, caller)
		}
		return 0, err
	}
	if c.Balance.IsZero() {
		return 0, fmt.Errorf("%w: contractor %s", ErrZeroBalance, caller)
	}

	amount := c.Balance
	if err := e.tokens.Transfer(ctx, caller, amount); err != nil {
		return 0, err
	}

	c.Balance = 0
	c.Touch()
	if err := e.store.UpdateContractor(ctx, c); err != nil {
		return 0, err
	}

	e.logger.Info("contractor balance withdrawn", "address", caller, "amount", amount)
	e.plugins.EmitContractorBalanceWithdrawn(ctx, caller, amount.Int64())

	return amount, nil
}

// WithdrawFees drains the accumulated platform fee pool. Owner only.
func (e *Engine) WithdrawFees(ctx context.Context, caller string) (types.Amount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return 0, err
	}

	fees, err := e.store.Fees(ctx)
	if err != nil {
		return 0, err
	}
	if fees.IsZero() {
		return 0, fmt.Errorf("%w: fee pool", ErrZeroBalance)
	}

	if err := e.tokens.Transfer(ctx, caller, fees); err != nil {
		return 0, err
	}
	if _, err := e.store.ResetFees(ctx); err != nil {
		return 0, err
	}

	e.logger.Info("fees withdrawn", "amount", fees)
	e.plugins.EmitFeesWithdrawn(ctx, fees.Int64())

	return fees, nil
}

// AccruedFees returns the undrawn platform fee pool.
func (e *Engine) AccruedFees(ctx context.Context) (types.Amount, error) {
	return e.store.Fees(ctx)
}

// ──────────────────────────────────────────────────
// Customer Management
// ──────────────────────────────────────────────────

// RemoveCustomer purges all of a customer's subscriptions and burns
// their credentials. Owner only; fails while any subscription still
// grants access.
func (e *Engine) RemoveCustomer(ctx context.Context, caller, cust string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return err
	}

	subs, err := e.store.ListSubscriptionsByCustomer(ctx, cust)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return fmt.Errorf("%w: %s", ErrCustomerNotFound, cust)
	}
	for _, sub := range subs {
		if sub.Active() {
			return fmt.Errorf("%w: %s with %s", ErrActiveEntitlement, cust, sub.Contractor)
		}
	}

	for _, sub := range subs {
		if err := e.dropSubscription(ctx, sub); err != nil {
			return err
		}
	}

	e.logger.Info("customer removed", "customer", cust, "subscriptions", len(subs))
	e.plugins.EmitCustomerRemoved(ctx, cust)

	return nil
}

// RemoveSubscription purges one customer-contractor subscription.
// Owner only; fails while the subscription still grants access.
func (e *Engine) RemoveSubscription(ctx context.Context, caller, cust, contr string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireOwner(caller); err != nil {
		return err
	}

	sub, err := e.store.GetSubscriptionByPair(ctx, cust, contr)
	if err != nil {
		return err
	}
	if sub.Active() {
		return fmt.Errorf("%w: %s with %s", ErrActiveEntitlement, cust, contr)
	}

	if err := e.dropSubscription(ctx, sub); err != nil {
		return err
	}

	remaining, err := e.store.ListSubscriptionsByCustomer(ctx, cust)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		e.plugins.EmitCustomerRemoved(ctx, cust)
	}

	return nil
}

// dropSubscription burns the credential out of custody and deletes
// the record. Callers have already verified the subscription is not
// granted, so the credential is held by the custody account.
func (e *Engine) dropSubscription(ctx context.Context, sub *customer.Subscription) error {
	if !sub.CredentialID.IsNil() {
		col, err := e.creds.CollectionFor(ctx, sub.Contractor)
		if err != nil {
			return err
		}
		if err := col.Burn(ctx, sub.CredentialID); err != nil {
			return err
		}
	}

	return e.store.DeleteSubscription(ctx, sub.ID)
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// Contractors returns a page of the contractor registry in
// registration order.
func (e *Engine) Contractors(ctx context.Context, limit, offset int) ([]*contractor.Contractor, error) {
	return e.store.ListContractors(ctx, contractor.ListOpts{Limit: limit, Offset: offset})
}

// Customers returns a page of the subscription registry in grant
// order.
func (e *Engine) Customers(ctx context.Context, limit, offset int) ([]*customer.Subscription, error) {
	return e.store.ListSubscriptions(ctx, customer.ListOpts{Limit: limit, Offset: offset})
}

// Customer returns all subscriptions held by one customer.
func (e *Engine) Customer(ctx context.Context, cust string) ([]*customer.Subscription, error) {
	subs, err := e.store.ListSubscriptionsByCustomer(ctx, cust)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, cust)
	}

	return subs, nil
}

// ContractorBalance returns a contractor's undrawn balance.
func (e *Engine) ContractorBalance(ctx context.Context, address string) (types.Amount, error) {
	c, err := e.store.GetContractor(ctx, address)
	if err != nil {
		return 0, err
	}

	return c.Balance, nil
}

// TotalContractors returns the size of the contractor registry.
func (e *Engine) TotalContractors(ctx context.Context) (int64, error) {
	return e.store.CountContractors(ctx)
}

// TotalCustomers returns how many distinct customers hold
// subscriptions.
func (e *Engine) TotalCustomers(ctx context.Context) (int64, error) {
	return e.store.CountCustomers(ctx)
}

// Receipts returns a page of the charge journal, optionally filtered
// by customer and contractor (empty matches all).
func (e *Engine) Receipts(ctx context.Context, cust, contr string, limit, offset int) ([]*payment.Receipt, error) {
	return e.store.ListReceipts(ctx, payment.ListOpts{
		Customer:   cust,
		Contractor: contr,
		Limit:      limit,
		Offset:     offset,
	})
}

// ContractorCollection returns the credential collection serving a
// registered contractor.
func (e *Engine) ContractorCollection(ctx context.Context, address string) (credential.Collection, error) {
	if _, err := e.store.GetContractor(ctx, address); err != nil {
		return nil, err
	}

	return e.creds.CollectionFor(ctx, address)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (e *Engine) requireOwner(caller string) error {
	if caller != e.owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller)
	}

	return nil
}
