// Package policy parameterizes the payment state machine: where
// cycle terms come from, how many contractors a customer may hold
// subscriptions with, and how a late renewal accrues.
package policy

import (
	"errors"
	"time"

	"github.com/xraph/tollgate/contractor"
	"github.com/xraph/tollgate/types"
)

// DefaultCycle is the entitlement duration PresetTerms falls back to.
const DefaultCycle = 30 * 24 * time.Hour

// ErrNeedContractor is returned by a resolver whose terms live on the
// contractor record when the contractor is not registered.
var ErrNeedContractor = errors.New("policy: terms require a registered contractor")

// Request carries the caller-specified side of a payment.
type Request struct {
	Amount   types.Amount
	Duration time.Duration
}

// Terms are the resolved charge for one entitlement cycle.
type Terms struct {
	Amount   types.Amount
	Duration time.Duration
}

// TermsResolver decides the charge terms for a payment. The
// contractor is nil when the payment names an unregistered one;
// resolvers that do not need the record must still resolve so the
// engine can report validation failures in a stable order.
type TermsResolver interface {
	Resolve(req Request, c *contractor.Contractor) (Terms, error)
}

// ExplicitTerms takes amount and duration verbatim from the request.
// This is the default resolver.
type ExplicitTerms struct{}

var _ TermsResolver = ExplicitTerms{}

// Resolve returns the request's own terms.
func (ExplicitTerms) Resolve(req Request, _ *contractor.Contractor) (Terms, error) {
	return Terms{Amount: req.Amount, Duration: req.Duration}, nil
}

// PresetTerms charges the contractor's registered per-cycle amount
// for a fixed cycle, ignoring the request's terms.
type PresetTerms struct {
	// Cycle is the entitlement duration; DefaultCycle when zero.
	Cycle time.Duration
}

var _ TermsResolver = PresetTerms{}

// Resolve returns the contractor's registered terms.
func (p PresetTerms) Resolve(_ Request, c *contractor.Contractor) (Terms, error) {
	if c == nil {
		return Terms{}, ErrNeedContractor
	}

	cycle := p.Cycle
	if cycle == 0 {
		cycle = DefaultCycle
	}

	return Terms{Amount: c.PerCycle, Duration: cycle}, nil
}

// Binding limits how many contractors one customer may subscribe to.
type Binding string

const (
	// BindingExclusive allows one subscription per customer; paying
	// toward a second contractor is a mismatch.
	BindingExclusive Binding = "exclusive"
	// BindingPerContractor allows one subscription per
	// customer-contractor pair.
	BindingPerContractor Binding = "per_contractor"
)

// RenewalRule decides where a renewed entitlement window starts.
type RenewalRule string

const (
	// RenewalAdditive extends from the prior expiry, even if it is in
	// the past. Early payments stack; late reactivations backdate.
	RenewalAdditive RenewalRule = "additive"
	// RenewalFromNow starts the new window at the payment instant.
	RenewalFromNow RenewalRule = "from_now"
)

// Next returns the expiry of the window bought by a renewal at now.
func (r RenewalRule) Next(prior, now time.Time, cycle time.Duration) time.Time {
	if r == RenewalFromNow {
		return now.Add(cycle)
	}

	return prior.Add(cycle)
}
