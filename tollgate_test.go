package tollgate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/tollgate"
	"github.com/xraph/tollgate/contractor"
	"github.com/xraph/tollgate/credential"
	"github.com/xraph/tollgate/customer"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/policy"
	"github.com/xraph/tollgate/store"
	"github.com/xraph/tollgate/store/memory"
	"github.com/xraph/tollgate/token"
	"github.com/xraph/tollgate/types"
)

const (
	owner    = "admin"
	treasury = "treasury"
	acme     = "acme"
	globex   = "globex"
	alice    = "alice"
	bob      = "bob"

	cycle = 30 * 24 * time.Hour
)

type fixture struct {
	engine *tollgate.Engine
	ledger *token.MemoryLedger
	creds  *credential.MemoryCollection
	events *eventRecorder
	clock  *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type eventRecorder struct {
	mu      sync.Mutex
	granted int
	paid    int
	revoked int
}

func (r *eventRecorder) Name() string { return "event-recorder" }

func (r *eventRecorder) OnGranted(_ context.Context, _ interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.granted++
	return nil
}

func (r *eventRecorder) OnPaid(_ context.Context, _ interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paid++
	return nil
}

func (r *eventRecorder) OnRevoked(_ context.Context, _ interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked++
	return nil
}

func (r *eventRecorder) counts() (granted, paid, revoked int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.granted, r.paid, r.revoked
}

func newFixture(t *testing.T, opts ...tollgate.Option) *fixture {
	t.Helper()
	return newFixtureWith(t, memory.New(), opts...)
}

func newFixtureWith(t *testing.T, s store.Store, opts ...tollgate.Option) *fixture {
	t.Helper()

	f := &fixture{
		ledger: token.NewMemoryLedger(),
		creds:  credential.NewMemoryCollection(),
		events: &eventRecorder{},
		clock:  &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	base := []tollgate.Option{
		tollgate.WithOwner(owner),
		tollgate.WithCustodyAccount(treasury),
		tollgate.WithClock(f.clock.Now),
		tollgate.WithPlugin(f.events),
	}
	f.engine = tollgate.New(
		s,
		f.ledger.Account(treasury),
		credential.Shared(f.creds),
		append(base, opts...)...,
	)

	if err := f.engine.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = f.engine.Stop() })

	return f
}

func (f *fixture) fund(account string, amount int64) {
	f.ledger.Mint(account, types.Tokens(amount))
	f.ledger.Approve(account, treasury, types.Tokens(amount))
}

func (f *fixture) addContractor(t *testing.T, addr string, perCycle int64) {
	t.Helper()
	cfg := contractor.Config{PerCycle: types.Tokens(perCycle)}
	if err := f.engine.AddContractor(context.Background(), owner, addr, cfg); err != nil {
		t.Fatalf("AddContractor(%s) failed: %v", addr, err)
	}
}

func pay(t *testing.T, f *fixture, cust, contr string, amount int64) *tollgate.Result {
	t.Helper()
	res, err := f.engine.Pay(context.Background(), cust, contr, policy.Request{
		Amount:   types.Tokens(amount),
		Duration: cycle,
	})
	if err != nil {
		t.Fatalf("Pay(%s, %s, %d) failed: %v", cust, contr, amount, err)
	}
	return res
}

// faultyStore passes through to the wrapped store until a method's
// failure flag is armed.
type faultyStore struct {
	store.Store
	failCreateSubscription bool
	failUpdateSubscription bool
	failRecordReceipt      bool
}

var errStoreDown = errors.New("store down")

func (s *faultyStore) CreateSubscription(ctx context.Context, sub *customer.Subscription) error {
	if s.failCreateSubscription {
		return errStoreDown
	}
	return s.Store.CreateSubscription(ctx, sub)
}

func (s *faultyStore) UpdateSubscription(ctx context.Context, sub *customer.Subscription) error {
	if s.failUpdateSubscription {
		return errStoreDown
	}
	return s.Store.UpdateSubscription(ctx, sub)
}

func (s *faultyStore) RecordReceipt(ctx context.Context, r *payment.Receipt) error {
	if s.failRecordReceipt {
		return errStoreDown
	}
	return s.Store.RecordReceipt(ctx, r)
}

// ──────────────────────────────────────────────────
// Grant
// ──────────────────────────────────────────────────

func TestFirstPaymentGrants(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addContractor(t, acme, 100)
	f.fund(alice, 100)

	res := pay(t, f, alice, acme, 100)

	if res.Outcome != tollgate.OutcomeGranted {
		t.Fatalf("Outcome: got %v, want Granted", res.Outcome)
	}
	if res.Amount != 100 || res.Fee != 5 || res.Net != 95 {
		t.Errorf("split: amount=%v fee=%v net=%v, want 100/5/95", res.Amount, res.Fee, res.Net)
	}

	sub := res.Subscription
	if sub.Status != customer.StatusGranted {
		t.Errorf("status: got %v", sub.Status)
	}
	wantNext := f.clock.Now().Add(cycle)
	if !sub.NextPaymentAt.Equal(wantNext) {
		t.Errorf("NextPaymentAt: got %v, want %v", sub.NextPaymentAt, wantNext)
	}

	holder, err := f.creds.OwnerOf(ctx, sub.CredentialID)
	if err != nil {
		t.Fatalf("OwnerOf failed: %v", err)
	}
	if holder != alice {
		t.Errorf("credential holder: got %q, want %q", holder, alice)
	}

	bal, err := f.engine.ContractorBalance(ctx, acme)
	if err != nil {
		t.Fatal(err)
	}
	if bal != 95 {
		t.Errorf("contractor balance: got %v, want 95", bal)
	}
	fees, _ := f.engine.AccruedFees(ctx)
	if fees != 5 {
		t.Errorf("fee pool: got %v, want 5", fees)
	}
	if got := f.ledger.BalanceOf(alice); got != 0 {
		t.Errorf("customer balance: got %v, want 0", got)
	}
	if got := f.ledger.BalanceOf(treasury); got != 100 {
		t.Errorf("treasury balance: got %v, want 100", got)
	}

	granted, paid, revoked := f.events.counts()
	if granted != 1 || paid != 1 || revoked != 0 {
		t.Errorf("events: granted=%d paid=%d revoked=%d", granted, paid, revoked)
	}
}

func TestFirstPaymentInsufficientFundsHardFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addContractor(t, acme, 100)
	f.fund(alice, 40)

	_, err := f.engine.Pay(ctx, alice, acme, policy.Request{
		Amount: types.Tokens(100), Duration: cycle,
	})
	if !errors.Is(err, tollgate.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// Nothing may have been recorded or issued.
	if _, err := f.engine.Customer(ctx, alice); !errors.Is(err, tollgate.ErrCustomerNotFound) {
		t.Errorf("subscription created on failed grant: %v", err)
	}
	if f.creds.Size() != 0 {
		t.Errorf("credential issued on failed grant")
	}
	if got := f.ledger.BalanceOf(alice); got != 40 {
		t.Errorf("customer balance mutated: got %v, want 40", got)
	}
}

// ──────────────────────────────────────────────────
// Validation
// ──────────────────────────────────────────────────

func TestPayValidationOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addContractor(t, acme, 100)
	f.fund(alice, 1000)
	pay(t, f, alice, acme, 100)
	f.addContractor(t, globex, 100)

	tests := []struct {
		name     string
		cust     string
		contr    string
		amount   int64
		duration time.Duration
		wantErr  error
	}{
		{"zero amount", alice, acme, 0, cycle, tollgate.ErrInvalidAmount},
		{"negative amount", alice, acme, -5, cycle, tollgate.ErrInvalidAmount},
		{"zero duration", alice, acme, 100, 0, tollgate.ErrInvalidDuration},
		// Amount is checked before duration even when both are bad.
		{"amount before duration", alice, acme, 0, 0, tollgate.ErrInvalidAmount},
		// Duration is checked before the contractor lookup.
		{"duration before contractor", alice, "nobody", 100, 0, tollgate.ErrInvalidDuration},
		{"unknown contractor", alice, "nobody", 100, cycle, tollgate.ErrUnknownContractor},
		// Exclusive binding: alice already holds acme.
		{"contractor mismatch", alice, globex, 100, cycle, tollgate.ErrContractorMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.Pay(ctx, tt.cust, tt.contr, policy.Request{
				Amount:   types.Tokens(tt.amount),
				Duration: tt.duration,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Rejected requests must not have collected anything.
	fees, _ := f.engine.AccruedFees(ctx)
	if fees != 5 {
		t.Errorf("fee pool mutated by rejected requests: %v", fees)
	}
}

func TestPerContractorBindingAllowsSecondSubscription(t *testing.T) {
	f := newFixture(t, tollgate.WithBinding(policy.BindingPerContractor))
	f.addContractor(t, acme, 100)
	f.addContractor(t, globex, 50)
	f.fund(alice, 150)

	pay(t, f, alice, acme, 100)
	res := pay(t, f, alice, globex, 50)
	if res.Outcome != tollgate.OutcomeGranted {
		t.Errorf("second grant outcome: got %v", res.Outcome)
	}

	subs, err := f.engine.Customer(context.Background(), alice)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 2 {
		t.Errorf("subscriptions: got %d, want 2", len(subs))
	}
}

// ──────────────────────────────────────────────────
// Renewal
// ──────────────────────────────────────────────────

func TestEarlyRenewalStacksAdditively(t *testing.T) {
	f := newFixture(t)
	f.addContractor(t, acme, 100)
	f.fund(alice, 300)

	first := pay(t, f, alice, acme, 100)
	firstExpiry := first.Subscription.NextPaymentAt

	// Renew well before expiry; the new window stacks on the old one.
	f.clock.Advance(24 * time.Hour)
	res := pay(t, f, alice, acme, 100)

	if res.Outcome != tollgate.OutcomePaid {
		t.Fatalf("Outcome: got %v, want Paid", res.Outcome)
	}
	want := firstExpiry.Add(cycle)
	if !res.Subscription.NextPaymentAt.Equal(want) {
		t.Errorf("NextPaymentAt: got %v, want %v", res.Subscription.NextPaymentAt, want)
	}
}

func TestRenewalFromNowPolicy(t *testing.T) {
	f := newFixture(t, tollgate.WithRenewalRule(policy.RenewalFromNow))
	f.addContractor(t, acme, 100)
	f.fund(alice, 300)

	pay(t, f, alice, acme, 100)
	f.clock.Advance(24 * time.Hour)
	res := pay(t, f, alice, acme, 100)

	want := f.clock.Now().Add(cycle)
	if !res.Subscription.NextPaymentAt.Equal(want) {
		t.Errorf("NextPaymentAt: got %v, want %v", res.Subscription.NextPaymentAt, want)
	}
}

func TestEarlyRenewalInsufficientFundsIsHardFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addContractor(t, acme, 100)
	f.fund(alice, 100)

	res := pay(t, f, alice, acme, 100)
	expiry := res.Subscription.NextPaymentAt

	// Still inside the paid window: a declined charge must not revoke.
	f.clock.Advance(time.Hour)
	_, err := f.engine.Pay(ctx, alice, acme, policy.Request{
		Amount: types.Tokens(100), Duration: cycle,
	})
	if !errors.Is(err, tollgate.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	subs, _ := f.engine.Customer(ctx, alice)
	if subs[0].Status != customer.StatusGranted {
		t.Errorf("status changed: %v", subs[0].Status)
	}
	if !subs[0].NextPaymentAt.Equal(expiry) {
		t.Errorf("expiry changed: %v", subs[0].NextPaymentAt)
	}
}

// ──────────────────────────────────────────────────
// Revocation and reactivation
// ──────────────────────────────────────────────────

func TestLapsedRenewalWithoutFundsSuspends(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addContractor(t, acme, 100)
	f.fund(alice, 100)

	grant := pay(t, f, alice, acme, 100)
	credID := grant.Subscription.CredentialID

	f.clock.Advance(cycle + time.Hour)
	res := pay(t, f, alice, acme, 100)

	if res.Outcome != tollgate.OutcomeRevoked {
		t.Fatalf("Outcome: got %v, want Revoked", res.Outcome)
	}
	if res.Amount != 0 || res.Fee != 0 || res.Net != 0 {
		t.Errorf("revocation collected value: %+v", res)
	}
	if res.Subscription.Status != customer.StatusSuspended {
		t.Errorf("status: got %v, want suspended", res.Subscription.Status)
	}

	holder, err := f.creds.OwnerOf(ctx, credID)
	if err != nil {
		t.Fatal(err)
	}
	if holder != treasury {
		t.Errorf("credential holder: got %q, want custody %q", holder, treasury)
	}

	// A second attempt while suspended reports Revoked again but
	// fires no second event.
	res2 := pay(t, f, alice, acme, 100)
	if res2.Outcome != tollgate.OutcomeRevoked {
		t.Errorf("second attempt outcome: got %v", res2.Outcome)
	}
	_, _, revoked := f.events.counts()
	if revoked != 1 {
		t.Errorf("revoked events: got %d, want 1", revoked)
	}
}

func TestReactivationReturnsCredential(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addContractor(t, acme, 100)
	f.fund(alice, 100)

	grant := pay(t, f, alice, acme, 100)
	credID := grant.Subscription.CredentialID

	f.clock.Advance(cycle + time.Hour)
	pay(t, f, alice, acme, 100) // suspends

	// A long suspension must not eat into the newly bought window:
	// the cycle runs from the payment instant, not the stale expiry.
	f.clock.Advance(90 * 24 * time.Hour)
	f.fund(alice, 100)
	res := pay(t, f, alice, acme, 100)

	if res.Outcome != tollgate.OutcomeGranted {
		t.Fatalf("Outcome: got %v, want Granted", res.Outcome)
	}
	if res.Subscription.Status != customer.StatusGranted {
		t.Errorf("status: got %v", res.Subscription.Status)
	}
	wantNext := f.clock.Now().Add(cycle)
	if !res.Subscription.NextPaymentAt.Equal(wantNext) {
		t.Errorf("NextPaymentAt: got %v, want %v", res.Subscription.NextPaymentAt, wantNext)
	}
	if res.Subscription.CredentialID != credID {
		t.Errorf("reactivation minted a new credential")
	}

	holder, err := f.creds.OwnerOf(ctx, credID)
	if err != nil {
		t.Fatal(err)
	}
	if holder != alice {
		t.Errorf("credential holder: got %q, want %q", holder, alice)
	}

	granted, paid, _ := f.events.counts()
	if granted != 2 {
		t.Errorf("granted events: got %d, want 2 (grant + reactivation)", granted)
	}
	if paid != 2 {
		t.Errorf("paid events: got %d, want 2", paid)
	}
}

// ──────────────────────────────────────────────────
// Fees and withdrawals
// ──────────────────────────────────────────────────

func TestFeeChangeAppliesToLaterPaymentsOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addContractor(t, acme, 100)
	f.fund(alice, 100)
	f.fund(bob, 100)

	res1 := pay(t, f, alice, acme, 100)
	if res1.Fee != 5 {
		t.Errorf("fee at 5%%: got %v, want 5", res1.Fee)
	}

	if err := f.engine.SetFeeBasisPoints(ctx, owner, 1000); err != nil {
		t.Fatalf("SetFeeBasisPoints failed: %v", err)
	}

	res2 := pay(t, f, bob, acme, 100)
	if res2.Fee != 10 || res2.Net != 90 {
		t.Errorf("fee at 10%%: got fee=%v net=%v, want 10/90", res2.Fee, res2.Net)
	}

	bal, _ := f.engine.ContractorBalance(ctx, acme)
	if bal != 95+90 {
		t.Errorf("contractor balance: got %v, want 185", bal)
	}
	fees, _ := f.engine.AccruedFees(ctx)
	if fees != 5+10 {
		t.Errorf("fee pool: got %v, want 15", fees)
	}
}

func TestSetFeeBasisPointsValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if err := f.engine.SetFeeBasisPoints(ctx, "mallory", 100); !errors.Is(err, tollgate.ErrNotOwner) {
		t.Errorf("non-owner: got %v, want ErrNotOwner", err)
	}
	if err := f.engine.SetFeeBasisPoints(ctx, owner, 10001); !errors.Is(err, tollgate.ErrInvalidFee) {
		t.Errorf("out of range: got %v, want ErrInvalidFee", err)
	}
	if got := f.engine.FeeBasisPoints(); got != tollgate.DefaultFeeBasisPoints {
		t.Errorf("fee changed by rejected calls: %d", got)
	}
}

func TestWithdrawContractorBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addContractor(t, acme, 100)
	f.fund(alice, 100)
	pay(t, f, alice, acme, 100)

	amount, err := f.engine.WithdrawContractorBalance(ctx, acme)
	if err != nil {
		t.Fatalf("WithdrawContractorBalance failed: %v", err)
	}
	if amount != 95 {
		t.Errorf("withdrawn: got %v, want 95", amount)
	}
	if got := f.ledger.BalanceOf(acme); got != 95 {
		t.Errorf("contractor token balance: got %v, want 95", got)
	}

	bal, _ := f.engine.ContractorBalance(ctx, acme)
	if bal != 0 {
		t.Errorf("balance after withdrawal: got %v, want 0", bal)
	}

	if _, err := f.engine.WithdrawContractorBalance(ctx, acme); !errors.Is(err, tollgate.ErrZeroBalance) {
		t.Errorf("second withdrawal: got %v, want ErrZeroBalance", err)
	}
	if _, err := f.engine.WithdrawContractorBalance(ctx, "nobody"); !errors.Is(err, tollgate.ErrNotContractor) {
		t.Errorf("unknown caller: got %v, want ErrNotContractor", err)
	}
}

func TestWithdrawFees(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addContractor(t, acme, 100)
	f.fund(alice, 100)
	pay(t, f, alice, acme, 100)

	if _, err := f.engine.WithdrawFees(ctx, acme); !errors.Is(err, tollgate.ErrNotOwner) {
		t.Errorf("non-owner: got %v, want ErrNotOwner", err)
	}

	fees, err := f.engine.WithdrawFees(ctx, owner)
	if err != nil {
		t.Fatalf("WithdrawFees failed: %v", err)
	}
	if fees != 5 {
		t.Errorf("withdrawn fees: got %v, want 5", fees)
	}
	if got := f.ledger.BalanceOf(owner); got != 5 {
		t.Errorf("owner token balance: got %v, want 5", got)
	}

	if _, err := f.engine.WithdrawFees(ctx, owner); !errors.Is(err, tollgate.ErrZeroBalance) {
		t.Errorf("empty pool: got %v, want ErrZeroBalance", err)
	}
}

// ──────────────────────────────────────────────────
// Registry management
// ──────────────────────────────────────────────────

func TestAddContractor(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	cfg := contractor.Config{PerCycle: types.Tokens(100)}
	if err := f.engine.AddContractor(ctx, "mallory", acme, cfg); !errors.Is(err, tollgate.ErrNotOwner) {
		t.Errorf("non-owner: got %v, want ErrNotOwner", err)
	}

	f.addContractor(t, acme, 100)
	if err := f.engine.AddContractor(ctx, owner, acme, cfg); !errors.Is(err, tollgate.ErrContractorExists) {
		t.Errorf("duplicate: got %v, want ErrContractorExists", err)
	}

	n, _ := f.engine.TotalContractors(ctx)
	if n != 1 {
		t.Errorf("TotalContractors: got %d, want 1", n)
	}
}

func TestRemoveContractorRequiresDrainedBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addContractor(t, acme, 100)
	f.fund(alice, 100)
	pay(t, f, alice, acme, 100)

	if err := f.engine.RemoveContractor(ctx, owner, acme); !errors.Is(err, tollgate.ErrNonZeroBalance) {
		t.Fatalf("undrained: got %v, want ErrNonZeroBalance", err)
	}

	if _, err := f.engine.WithdrawContractorBalance(ctx, acme); err != nil {
		t.Fatal(err)
	}
	if err := f.engine.RemoveContractor(ctx, owner, acme); err != nil {
		t.Fatalf("RemoveContractor failed: %v", err)
	}
	if err := f.engine.RemoveContractor(ctx, owner, acme); !errors.Is(err, tollgate.ErrContractorNotFound) {
		t.Errorf("double remove: got %v, want ErrContractorNotFound", err)
	}
}

func TestSetContractorTerms(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addContractor(t, acme, 100)

	if err := f.engine.SetContractorTerms(ctx, owner, acme, types.Tokens(300)); err != nil {
		t.Fatalf("owner update failed: %v", err)
	}
	// Not even the contractor itself may reprice its cycle; under
	// preset terms that would change what standing authorizations pay.
	if err := f.engine.SetContractorTerms(ctx, acme, acme, types.Tokens(999)); !errors.Is(err, tollgate.ErrNotOwner) {
		t.Errorf("self update: got %v, want ErrNotOwner", err)
	}
	if err := f.engine.SetContractorTerms(ctx, bob, acme, types.Tokens(1)); !errors.Is(err, tollgate.ErrNotOwner) {
		t.Errorf("third party: got %v, want ErrNotOwner", err)
	}

	cs, _ := f.engine.Contractors(ctx, 0, 0)
	if cs[0].PerCycle != 300 {
		t.Errorf("PerCycle: got %v, want 300", cs[0].PerCycle)
	}
}

func TestRemoveCustomer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addContractor(t, acme, 100)
	f.fund(alice, 100)

	grant := pay(t, f, alice, acme, 100)
	credID := grant.Subscription.CredentialID

	if err := f.engine.RemoveCustomer(ctx, owner, alice); !errors.Is(err, tollgate.ErrActiveEntitlement) {
		t.Fatalf("active customer: got %v, want ErrActiveEntitlement", err)
	}

	// Suspend, then removal succeeds and burns the credential.
	f.clock.Advance(cycle + time.Hour)
	pay(t, f, alice, acme, 100)

	if err := f.engine.RemoveCustomer(ctx, owner, alice); err != nil {
		t.Fatalf("RemoveCustomer failed: %v", err)
	}
	if _, err := f.creds.OwnerOf(ctx, credID); !errors.Is(err, credential.ErrUnknownCredential) {
		t.Errorf("credential not burned: %v", err)
	}
	if _, err := f.engine.Customer(ctx, alice); !errors.Is(err, tollgate.ErrCustomerNotFound) {
		t.Errorf("customer still present: %v", err)
	}
	if err := f.engine.RemoveCustomer(ctx, owner, alice); !errors.Is(err, tollgate.ErrCustomerNotFound) {
		t.Errorf("double remove: got %v, want ErrCustomerNotFound", err)
	}
}

func TestRemovedCustomerCanBeGrantedAgain(t *testing.T) {
	f := newFixture(t)
	f.addContractor(t, acme, 100)
	f.fund(alice, 200)

	pay(t, f, alice, acme, 100)
	f.clock.Advance(cycle + time.Hour)

	// Drain alice so the lapsed renewal suspends.
	f.ledger.Approve(alice, treasury, 0)
	pay(t, f, alice, acme, 100)
	if err := f.engine.RemoveCustomer(context.Background(), owner, alice); err != nil {
		t.Fatal(err)
	}

	f.fund(alice, 100)
	res := pay(t, f, alice, acme, 100)
	if res.Outcome != tollgate.OutcomeGranted {
		t.Errorf("re-grant outcome: got %v, want Granted", res.Outcome)
	}
}

// ──────────────────────────────────────────────────
// Store failure compensation
// ──────────────────────────────────────────────────

func TestGrantStoreFailureRefundsAndBurns(t *testing.T) {
	ctx := context.Background()
	fs := &faultyStore{Store: memory.New(), failCreateSubscription: true}
	f := newFixtureWith(t, fs)
	f.addContractor(t, acme, 100)
	f.fund(alice, 100)

	_, err := f.engine.Pay(ctx, alice, acme, policy.Request{
		Amount: types.Tokens(100), Duration: cycle,
	})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected the store failure to surface, got %v", err)
	}

	// The pulled charge comes back and the issued credential is burned.
	if got := f.ledger.BalanceOf(alice); got != 100 {
		t.Errorf("customer balance: got %v, want 100", got)
	}
	if f.creds.Size() != 0 {
		t.Errorf("credential survived the aborted grant")
	}
	granted, paid, _ := f.events.counts()
	if granted != 0 || paid != 0 {
		t.Errorf("events fired for aborted grant: granted=%d paid=%d", granted, paid)
	}
}

func TestSettleFailureUnwindsGrant(t *testing.T) {
	ctx := context.Background()
	fs := &faultyStore{Store: memory.New(), failRecordReceipt: true}
	f := newFixtureWith(t, fs)
	f.addContractor(t, acme, 100)
	f.fund(alice, 100)

	_, err := f.engine.Pay(ctx, alice, acme, policy.Request{
		Amount: types.Tokens(100), Duration: cycle,
	})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected the store failure to surface, got %v", err)
	}

	if got := f.ledger.BalanceOf(alice); got != 100 {
		t.Errorf("customer balance: got %v, want 100", got)
	}
	if f.creds.Size() != 0 {
		t.Errorf("credential survived the aborted grant")
	}
	if _, err := f.engine.Customer(ctx, alice); !errors.Is(err, tollgate.ErrCustomerNotFound) {
		t.Errorf("subscription record survived: %v", err)
	}
	bal, _ := f.engine.ContractorBalance(ctx, acme)
	if bal != 0 {
		t.Errorf("contractor credited by aborted grant: %v", bal)
	}
	fees, _ := f.engine.AccruedFees(ctx)
	if fees != 0 {
		t.Errorf("fee pool credited by aborted grant: %v", fees)
	}
}

func TestRenewalStoreFailureRefunds(t *testing.T) {
	ctx := context.Background()
	fs := &faultyStore{Store: memory.New()}
	f := newFixtureWith(t, fs)
	f.addContractor(t, acme, 100)
	f.fund(alice, 200)

	res := pay(t, f, alice, acme, 100)
	expiry := res.Subscription.NextPaymentAt

	fs.failUpdateSubscription = true
	f.clock.Advance(24 * time.Hour)
	_, err := f.engine.Pay(ctx, alice, acme, policy.Request{
		Amount: types.Tokens(100), Duration: cycle,
	})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected the store failure to surface, got %v", err)
	}

	if got := f.ledger.BalanceOf(alice); got != 100 {
		t.Errorf("customer balance: got %v, want 100", got)
	}
	subs, lerr := f.engine.Customer(ctx, alice)
	if lerr != nil {
		t.Fatal(lerr)
	}
	if !subs[0].NextPaymentAt.Equal(expiry) {
		t.Errorf("window moved by aborted renewal: got %v, want %v", subs[0].NextPaymentAt, expiry)
	}
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

func TestEnumerationAndTotals(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, tollgate.WithBinding(policy.BindingPerContractor))
	f.addContractor(t, acme, 100)
	f.addContractor(t, globex, 50)
	f.fund(alice, 150)
	f.fund(bob, 100)

	pay(t, f, alice, acme, 100)
	pay(t, f, bob, acme, 100)
	pay(t, f, alice, globex, 50)

	subs, err := f.engine.Customers(ctx, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 3 {
		t.Fatalf("Customers: got %d, want 3", len(subs))
	}
	// Grant order is preserved.
	if subs[0].Customer != alice || subs[1].Customer != bob || subs[2].Customer != alice {
		t.Errorf("order: %s, %s, %s", subs[0].Customer, subs[1].Customer, subs[2].Customer)
	}

	// Width-1 pages reconstruct the full enumeration.
	var collected []string
	for offset := 0; ; offset++ {
		pg, err := f.engine.Customers(ctx, 1, offset)
		if err != nil {
			t.Fatal(err)
		}
		if len(pg) == 0 {
			break
		}
		collected = append(collected, pg[0].Customer+"/"+pg[0].Contractor)
	}
	want := []string{"alice/acme", "bob/acme", "alice/globex"}
	if len(collected) != len(want) {
		t.Fatalf("pages: got %v", collected)
	}
	for i := range want {
		if collected[i] != want[i] {
			t.Errorf("page %d: got %q, want %q", i, collected[i], want[i])
		}
	}

	nc, _ := f.engine.TotalContractors(ctx)
	nu, _ := f.engine.TotalCustomers(ctx)
	if nc != 2 || nu != 2 {
		t.Errorf("totals: contractors=%d customers=%d, want 2/2", nc, nu)
	}
}

func TestReceiptJournal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addContractor(t, acme, 100)
	f.fund(alice, 300)

	pay(t, f, alice, acme, 100)
	f.clock.Advance(24 * time.Hour)
	pay(t, f, alice, acme, 100)

	receipts, err := f.engine.Receipts(ctx, alice, acme, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(receipts) != 2 {
		t.Fatalf("receipts: got %d, want 2", len(receipts))
	}
	for _, r := range receipts {
		if r.Fee+r.Net != r.Amount {
			t.Errorf("receipt %s: fee %v + net %v != amount %v", r.ID, r.Fee, r.Net, r.Amount)
		}
	}
	// Receipts are stamped by the engine clock, not the wall clock.
	if !receipts[1].OccurredAt.Equal(f.clock.Now()) {
		t.Errorf("OccurredAt: got %v, want %v", receipts[1].OccurredAt, f.clock.Now())
	}
}

func TestContractorCollection(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addContractor(t, acme, 100)

	col, err := f.engine.ContractorCollection(ctx, acme)
	if err != nil {
		t.Fatalf("ContractorCollection failed: %v", err)
	}
	if col == nil {
		t.Fatal("nil collection")
	}

	if _, err := f.engine.ContractorCollection(ctx, "nobody"); !errors.Is(err, tollgate.ErrContractorNotFound) {
		t.Errorf("unknown contractor: got %v, want ErrContractorNotFound", err)
	}
}

// ──────────────────────────────────────────────────
// Policies
// ──────────────────────────────────────────────────

func TestPresetTermsPolicy(t *testing.T) {
	f := newFixture(t, tollgate.WithTermsResolver(policy.PresetTerms{Cycle: cycle}))
	f.addContractor(t, acme, 100)
	f.fund(alice, 100)

	// The request's terms are ignored; the contractor's preset is
	// charged.
	res, err := f.engine.Pay(context.Background(), alice, acme, policy.Request{})
	if err != nil {
		t.Fatalf("Pay failed: %v", err)
	}
	if res.Amount != 100 {
		t.Errorf("amount: got %v, want 100", res.Amount)
	}
	if res.Subscription.CycleDuration != cycle {
		t.Errorf("cycle: got %v, want %v", res.Subscription.CycleDuration, cycle)
	}

	// Unknown contractor surfaces even though terms come from the
	// contractor record.
	_, err = f.engine.Pay(context.Background(), alice, "nobody", policy.Request{})
	if !errors.Is(err, tollgate.ErrUnknownContractor) {
		t.Errorf("unknown contractor: got %v, want ErrUnknownContractor", err)
	}
}
