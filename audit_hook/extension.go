// Package audithook bridges Tollgate lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/tollgate/contractor"
	"github.com/xraph/tollgate/customer"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                       = (*Extension)(nil)
	_ plugin.OnGranted                    = (*Extension)(nil)
	_ plugin.OnPaid                       = (*Extension)(nil)
	_ plugin.OnRevoked                    = (*Extension)(nil)
	_ plugin.OnContractorAdded            = (*Extension)(nil)
	_ plugin.OnContractorRemoved          = (*Extension)(nil)
	_ plugin.OnContractorTermsUpdated     = (*Extension)(nil)
	_ plugin.OnCustomerRemoved            = (*Extension)(nil)
	_ plugin.OnFeeChanged                 = (*Extension)(nil)
	_ plugin.OnContractorBalanceWithdrawn = (*Extension)(nil)
	_ plugin.OnFeesWithdrawn              = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Tollgate lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Entitlement lifecycle hooks
// ──────────────────────────────────────────────────

// OnGranted implements plugin.OnGranted.
func (e *Extension) OnGranted(ctx context.Context, sub interface{}) error {
	var resourceID string
	meta := []any{"event", "entitlement_granted"}
	if s, ok := sub.(*customer.Subscription); ok {
		resourceID = s.ID.String()
		meta = append(meta,
			"customer", s.Customer,
			"contractor", s.Contractor,
			"credential_id", s.CredentialID.String(),
		)
	}
	return e.record(ctx, ActionGranted, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, resourceID, CategoryEntitlement, nil, meta...)
}

// OnPaid implements plugin.OnPaid.
func (e *Extension) OnPaid(ctx context.Context, receipt interface{}) error {
	var resourceID string
	meta := []any{"event", "payment_collected"}
	if r, ok := receipt.(*payment.Receipt); ok {
		resourceID = r.ID.String()
		meta = append(meta,
			"customer", r.Customer,
			"contractor", r.Contractor,
			"kind", string(r.Kind),
			"amount", r.Amount.Int64(),
			"fee", r.Fee.Int64(),
			"net", r.Net.Int64(),
		)
	}
	return e.record(ctx, ActionPaid, SeverityInfo, OutcomeSuccess,
		ResourceReceipt, resourceID, CategoryPayment, nil, meta...)
}

// OnRevoked implements plugin.OnRevoked.
func (e *Extension) OnRevoked(ctx context.Context, sub interface{}) error {
	var resourceID string
	meta := []any{"event", "entitlement_revoked"}
	if s, ok := sub.(*customer.Subscription); ok {
		resourceID = s.ID.String()
		meta = append(meta,
			"customer", s.Customer,
			"contractor", s.Contractor,
		)
	}
	return e.record(ctx, ActionRevoked, SeverityWarning, OutcomeSuccess,
		ResourceSubscription, resourceID, CategoryEntitlement, nil, meta...)
}

// ──────────────────────────────────────────────────
// Registry lifecycle hooks
// ──────────────────────────────────────────────────

// OnContractorAdded implements plugin.OnContractorAdded.
func (e *Extension) OnContractorAdded(ctx context.Context, c interface{}) error {
	var resourceID string
	meta := []any{"event", "contractor_added"}
	if contr, ok := c.(*contractor.Contractor); ok {
		resourceID = contr.Address
		meta = append(meta, "per_cycle", contr.PerCycle.Int64())
	}
	return e.record(ctx, ActionContractorAdded, SeverityInfo, OutcomeSuccess,
		ResourceContractor, resourceID, CategoryRegistry, nil, meta...)
}

// OnContractorRemoved implements plugin.OnContractorRemoved.
func (e *Extension) OnContractorRemoved(ctx context.Context, address string) error {
	return e.record(ctx, ActionContractorRemoved, SeverityInfo, OutcomeSuccess,
		ResourceContractor, address, CategoryRegistry, nil,
		"contractor", address,
	)
}

// OnContractorTermsUpdated implements plugin.OnContractorTermsUpdated.
func (e *Extension) OnContractorTermsUpdated(ctx context.Context, c interface{}) error {
	var resourceID string
	meta := []any{"event", "contractor_terms_updated"}
	if contr, ok := c.(*contractor.Contractor); ok {
		resourceID = contr.Address
		meta = append(meta, "per_cycle", contr.PerCycle.Int64())
	}
	return e.record(ctx, ActionContractorTermsUpdated, SeverityInfo, OutcomeSuccess,
		ResourceContractor, resourceID, CategoryRegistry, nil, meta...)
}

// OnCustomerRemoved implements plugin.OnCustomerRemoved.
func (e *Extension) OnCustomerRemoved(ctx context.Context, cust string) error {
	return e.record(ctx, ActionCustomerRemoved, SeverityInfo, OutcomeSuccess,
		ResourceCustomer, cust, CategoryRegistry, nil,
		"customer", cust,
	)
}

// ──────────────────────────────────────────────────
// Treasury hooks
// ──────────────────────────────────────────────────

// OnFeeChanged implements plugin.OnFeeChanged.
func (e *Extension) OnFeeChanged(ctx context.Context, oldBps, newBps int) error {
	return e.record(ctx, ActionFeeChanged, SeverityWarning, OutcomeSuccess,
		ResourceTreasury, "", CategoryTreasury, nil,
		"old_basis_points", oldBps,
		"new_basis_points", newBps,
	)
}

// OnContractorBalanceWithdrawn implements plugin.OnContractorBalanceWithdrawn.
func (e *Extension) OnContractorBalanceWithdrawn(ctx context.Context, address string, amount int64) error {
	return e.record(ctx, ActionContractorWithdrawal, SeverityInfo, OutcomeSuccess,
		ResourceTreasury, address, CategoryTreasury, nil,
		"contractor", address,
		"amount", amount,
	)
}

// OnFeesWithdrawn implements plugin.OnFeesWithdrawn.
func (e *Extension) OnFeesWithdrawn(ctx context.Context, amount int64) error {
	return e.record(ctx, ActionFeesWithdrawal, SeverityInfo, OutcomeSuccess,
		ResourceTreasury, "", CategoryTreasury, nil,
		"amount", amount,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
