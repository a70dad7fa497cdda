// Package customer defines subscriptions: the per-customer
// entitlement records the pay state machine transitions.
package customer

import (
	"time"

	"github.com/xraph/tollgate/id"
	"github.com/xraph/tollgate/types"
)

// Status is the entitlement state of a subscription. A customer with
// no subscription record at all is absent, which is not a Status.
type Status string

const (
	// StatusGranted means the credential is held by the customer and
	// access is live (possibly past due, pending the next payment).
	StatusGranted Status = "granted"
	// StatusSuspended means a renewal failed after expiry; the
	// credential is in engine custody until a payment reactivates it.
	StatusSuspended Status = "suspended"
)

// Subscription binds a customer to a contractor with the cycle terms
// agreed at grant time. CredentialID is Nil until a credential has
// been issued.
type Subscription struct {
	types.Entity
	ID            id.SubscriptionID `json:"id"`
	Customer      string            `json:"customer"`
	Contractor    string            `json:"contractor"`
	CredentialID  id.CredentialID   `json:"credential_id"`
	Status        Status            `json:"status"`
	NextPaymentAt time.Time         `json:"next_payment_at"`
	CycleDuration time.Duration     `json:"cycle_duration"`
	Position      int64             `json:"-"`
}

// Due reports whether the paid-for cycle has lapsed at the given
// instant. Expiry is evaluated lazily; nothing transitions until the
// next payment attempt observes it.
func (s *Subscription) Due(now time.Time) bool {
	return !now.Before(s.NextPaymentAt)
}

// Active reports whether the subscription grants access right now.
func (s *Subscription) Active() bool {
	return s.Status == StatusGranted
}
