// Package observability provides a metrics extension for Tollgate that
// records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/tollgate/customer"
	"github.com/xraph/tollgate/payment"
	"github.com/xraph/tollgate/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                       = (*MetricsExtension)(nil)
	_ plugin.OnInit                       = (*MetricsExtension)(nil)
	_ plugin.OnGranted                    = (*MetricsExtension)(nil)
	_ plugin.OnPaid                       = (*MetricsExtension)(nil)
	_ plugin.OnRevoked                    = (*MetricsExtension)(nil)
	_ plugin.OnContractorAdded            = (*MetricsExtension)(nil)
	_ plugin.OnContractorRemoved          = (*MetricsExtension)(nil)
	_ plugin.OnCustomerRemoved            = (*MetricsExtension)(nil)
	_ plugin.OnFeeChanged                 = (*MetricsExtension)(nil)
	_ plugin.OnContractorBalanceWithdrawn = (*MetricsExtension)(nil)
	_ plugin.OnFeesWithdrawn              = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Tollgate plugin to automatically track entitlement
// and treasury metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Entitlement metrics
	Granted       Counter
	Reactivated   Counter
	Revoked       Counter
	PaymentsTotal Counter
	ChargeAmount  Histogram
	FeeAmount     Histogram

	// Registry metrics
	ContractorsAdded   Counter
	ContractorsRemoved Counter
	CustomersRemoved   Counter

	// Treasury metrics
	FeeChanges           Counter
	ContractorWithdrawal Histogram
	FeeWithdrawal        Histogram

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Entitlement metrics
		Granted:       factory.Counter("tollgate.entitlement.granted"),
		Reactivated:   factory.Counter("tollgate.entitlement.reactivated"),
		Revoked:       factory.Counter("tollgate.entitlement.revoked"),
		PaymentsTotal: factory.Counter("tollgate.payment.collected"),
		ChargeAmount:  factory.Histogram("tollgate.payment.amount"),
		FeeAmount:     factory.Histogram("tollgate.payment.fee"),

		// Registry metrics
		ContractorsAdded:   factory.Counter("tollgate.contractor.added"),
		ContractorsRemoved: factory.Counter("tollgate.contractor.removed"),
		CustomersRemoved:   factory.Counter("tollgate.customer.removed"),

		// Treasury metrics
		FeeChanges:           factory.Counter("tollgate.fee.changes"),
		ContractorWithdrawal: factory.Histogram("tollgate.withdrawal.contractor"),
		FeeWithdrawal:        factory.Histogram("tollgate.withdrawal.fees"),

		// Error metrics
		StoreErrors:  factory.Counter("tollgate.store.errors"),
		PluginErrors: factory.Counter("tollgate.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Entitlement lifecycle hooks
// ──────────────────────────────────────────────────

// OnGranted implements plugin.OnGranted. Reactivations out of
// suspension are counted separately from first grants.
func (m *MetricsExtension) OnGranted(_ context.Context, sub interface{}) error {
	if s, ok := sub.(*customer.Subscription); ok && s.UpdatedAt.After(s.CreatedAt) {
		m.Reactivated.Inc()
		return nil
	}
	m.Granted.Inc()
	return nil
}

// OnPaid implements plugin.OnPaid.
func (m *MetricsExtension) OnPaid(_ context.Context, receipt interface{}) error {
	m.PaymentsTotal.Inc()
	if r, ok := receipt.(*payment.Receipt); ok {
		m.ChargeAmount.Observe(float64(r.Amount.Int64()))
		m.FeeAmount.Observe(float64(r.Fee.Int64()))
	}
	return nil
}

// OnRevoked implements plugin.OnRevoked.
func (m *MetricsExtension) OnRevoked(_ context.Context, _ interface{}) error {
	m.Revoked.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Registry lifecycle hooks
// ──────────────────────────────────────────────────

// OnContractorAdded implements plugin.OnContractorAdded.
func (m *MetricsExtension) OnContractorAdded(_ context.Context, _ interface{}) error {
	m.ContractorsAdded.Inc()
	return nil
}

// OnContractorRemoved implements plugin.OnContractorRemoved.
func (m *MetricsExtension) OnContractorRemoved(_ context.Context, _ string) error {
	m.ContractorsRemoved.Inc()
	return nil
}

// OnCustomerRemoved implements plugin.OnCustomerRemoved.
func (m *MetricsExtension) OnCustomerRemoved(_ context.Context, _ string) error {
	m.CustomersRemoved.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Treasury hooks
// ──────────────────────────────────────────────────

// OnFeeChanged implements plugin.OnFeeChanged.
func (m *MetricsExtension) OnFeeChanged(_ context.Context, _, _ int) error {
	m.FeeChanges.Inc()
	return nil
}

// OnContractorBalanceWithdrawn implements plugin.OnContractorBalanceWithdrawn.
func (m *MetricsExtension) OnContractorBalanceWithdrawn(_ context.Context, _ string, amount int64) error {
	m.ContractorWithdrawal.Observe(float64(amount))
	return nil
}

// OnFeesWithdrawn implements plugin.OnFeesWithdrawn.
func (m *MetricsExtension) OnFeesWithdrawn(_ context.Context, amount int64) error {
	m.FeeWithdrawal.Observe(float64(amount))
	return nil
}
