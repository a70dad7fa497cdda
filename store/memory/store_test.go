package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/tollgate"
	"github.com/xraph/tollgate/contractor"
	"github.com/xraph/tollgate/customer"
	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/types"
)

func newContractor(addr string, perCycle int64) *contractor.Contractor {
	return contractor.New(addr, contractor.Config{PerCycle: types.Tokens(perCycle)})
}

func newSubscription(cust, contr string) *customer.Subscription {
	return &customer.Subscription{
		Entity:        types.NewEntity(),
		ID:            id.NewSubscriptionID(),
		Customer:      cust,
		Contractor:    contr,
		Status:        customer.StatusGranted,
		NextPaymentAt: time.Now().Add(time.Hour),
		CycleDuration: time.Hour,
	}
}

func TestContractorRegistry(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.CreateContractor(ctx, newContractor("a", 100)); err != nil {
		t.Fatalf("CreateContractor failed: %v", err)
	}
	if err := s.CreateContractor(ctx, newContractor("a", 200)); !errors.Is(err, tollgate.ErrContractorExists) {
		t.Errorf("duplicate create: got %v, want ErrContractorExists", err)
	}

	c, err := s.GetContractor(ctx, "a")
	if err != nil {
		t.Fatalf("GetContractor failed: %v", err)
	}
	if c.PerCycle != 100 {
		t.Errorf("PerCycle: got %v, want 100", c.PerCycle)
	}

	if _, err := s.GetContractor(ctx, "missing"); !errors.Is(err, tollgate.ErrContractorNotFound) {
		t.Errorf("missing get: got %v, want ErrContractorNotFound", err)
	}

	c.Balance = 42
	if err := s.UpdateContractor(ctx, c); err != nil {
		t.Fatalf("UpdateContractor failed: %v", err)
	}
	c2, _ := s.GetContractor(ctx, "a")
	if c2.Balance != 42 {
		t.Errorf("Balance after update: got %v, want 42", c2.Balance)
	}

	if err := s.DeleteContractor(ctx, "a"); err != nil {
		t.Fatalf("DeleteContractor failed: %v", err)
	}
	if err := s.DeleteContractor(ctx, "a"); !errors.Is(err, tollgate.ErrContractorNotFound) {
		t.Errorf("double delete: got %v, want ErrContractorNotFound", err)
	}
}

func TestContractorListOrderAndPagination(t *testing.T) {
	ctx := context.Background()
	s := New()

	addrs := []string{"c1", "c2", "c3", "c4", "c5"}
	for _, a := range addrs {
		if err := s.CreateContractor(ctx, newContractor(a, 10)); err != nil {
			t.Fatal(err)
		}
	}
	// Removal must not disturb the order of the rest.
	if err := s.DeleteContractor(ctx, "c3"); err != nil {
		t.Fatal(err)
	}
	want := []string{"c1", "c2", "c4", "c5"}

	t.Run("unbounded", func(t *testing.T) {
		got, err := s.ListContractors(ctx, contractor.ListOpts{})
		if err != nil {
			t.Fatal(err)
		}
		checkOrder(t, got, want)
	})

	t.Run("width-1 pages reconstruct the registry", func(t *testing.T) {
		var collected []string
		for offset := 0; ; offset++ {
			pg, err := s.ListContractors(ctx, contractor.ListOpts{Limit: 1, Offset: offset})
			if err != nil {
				t.Fatal(err)
			}
			if len(pg) == 0 {
				break
			}
			collected = append(collected, pg[0].Address)
		}
		if len(collected) != len(want) {
			t.Fatalf("collected %d, want %d", len(collected), len(want))
		}
		for i := range want {
			if collected[i] != want[i] {
				t.Errorf("pos %d: got %q, want %q", i, collected[i], want[i])
			}
		}
	})

	t.Run("offset past end", func(t *testing.T) {
		got, err := s.ListContractors(ctx, contractor.ListOpts{Limit: 10, Offset: 100})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 0 {
			t.Errorf("got %d items, want empty page", len(got))
		}
	})
}

func checkOrder(t *testing.T, got []*contractor.Contractor, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d items, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Address != want[i] {
			t.Errorf("pos %d: got %q, want %q", i, got[i].Address, want[i])
		}
	}
}

func TestSubscriptionRegistry(t *testing.T) {
	ctx := context.Background()
	s := New()

	sub := newSubscription("alice", "acme")
	if err := s.CreateSubscription(ctx, sub); err != nil {
		t.Fatalf("CreateSubscription failed: %v", err)
	}

	got, err := s.GetSubscriptionByPair(ctx, "alice", "acme")
	if err != nil {
		t.Fatalf("GetSubscriptionByPair failed: %v", err)
	}
	if got.ID != sub.ID {
		t.Errorf("ID mismatch")
	}

	if _, err := s.GetSubscriptionByPair(ctx, "alice", "other"); !errors.Is(err, tollgate.ErrNotFound) {
		t.Errorf("missing pair: got %v, want ErrNotFound", err)
	}

	sub2 := newSubscription("alice", "globex")
	if err := s.CreateSubscription(ctx, sub2); err != nil {
		t.Fatal(err)
	}

	byCust, err := s.ListSubscriptionsByCustomer(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(byCust) != 2 {
		t.Errorf("ListSubscriptionsByCustomer: got %d, want 2", len(byCust))
	}

	n, err := s.CountCustomers(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("CountCustomers: got %d, want 1", n)
	}

	if err := s.DeleteSubscription(ctx, sub.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetSubscription(ctx, sub.ID); !errors.Is(err, tollgate.ErrNotFound) {
		t.Errorf("get after delete: got %v, want ErrNotFound", err)
	}
}

func TestSubscriptionStatusFilter(t *testing.T) {
	ctx := context.Background()
	s := New()

	granted := newSubscription("a", "x")
	suspended := newSubscription("b", "x")
	suspended.Status = customer.StatusSuspended
	_ = s.CreateSubscription(ctx, granted)
	_ = s.CreateSubscription(ctx, suspended)

	got, err := s.ListSubscriptions(ctx, customer.ListOpts{Status: customer.StatusSuspended})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Customer != "b" {
		t.Errorf("status filter: got %d items", len(got))
	}
}

func TestFeePool(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.AddFees(ctx, 5); err != nil {
		t.Fatal(err)
	}
	if err := s.AddFees(ctx, 7); err != nil {
		t.Fatal(err)
	}

	fees, err := s.Fees(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if fees != 12 {
		t.Errorf("Fees: got %v, want 12", fees)
	}

	drained, err := s.ResetFees(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if drained != 12 {
		t.Errorf("ResetFees: got %v, want 12", drained)
	}
	fees, _ = s.Fees(ctx)
	if fees != 0 {
		t.Errorf("Fees after reset: got %v, want 0", fees)
	}
}

func TestReceiptJournal(t *testing.T) {
	ctx := context.Background()
	s := New()

	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	_ = s.RecordReceipt(ctx, payment.New(payment.KindGrant, "alice", "acme", 100, 5, 95, at))
	_ = s.RecordReceipt(ctx, payment.New(payment.KindRenewal, "alice", "acme", 100, 5, 95, at))
	_ = s.RecordReceipt(ctx, payment.New(payment.KindGrant, "bob", "acme", 100, 5, 95, at))

	all, err := s.ListReceipts(ctx, payment.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d receipts, want 3", len(all))
	}
	if all[0].Kind != payment.KindGrant || all[1].Kind != payment.KindRenewal {
		t.Error("receipts out of collection order")
	}

	alice, err := s.ListReceipts(ctx, payment.ListOpts{Customer: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(alice) != 2 {
		t.Errorf("customer filter: got %d, want 2", len(alice))
	}

	limited, err := s.ListReceipts(ctx, payment.ListOpts{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].Customer != "bob" {
		t.Errorf("pagination: got %d items", len(limited))
	}
}
