// Package plugin provides an extensible plugin system for Tollgate.
// Plugins can hook into engine lifecycle and entitlement events to
// extend functionality.
package plugin

import (
	"context"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Entitlement hooks
// ──────────────────────────────────────────────────

// OnGranted is called when a customer gains an entitlement: first
// grant or reactivation out of suspension.
type OnGranted interface {
	Plugin
	OnGranted(ctx context.Context, sub interface{}) error
}

// OnPaid is called on every successful charge, including the one
// that accompanies a grant or reactivation.
type OnPaid interface {
	Plugin
	OnPaid(ctx context.Context, receipt interface{}) error
}

// OnRevoked is called when an expired subscription's renewal fails
// and the entitlement is suspended.
type OnRevoked interface {
	Plugin
	OnRevoked(ctx context.Context, sub interface{}) error
}

// ──────────────────────────────────────────────────
// Registry hooks
// ──────────────────────────────────────────────────

// OnContractorAdded is called when a contractor is registered.
type OnContractorAdded interface {
	Plugin
	OnContractorAdded(ctx context.Context, c interface{}) error
}

// OnContractorRemoved is called when a contractor is deregistered.
type OnContractorRemoved interface {
	Plugin
	OnContractorRemoved(ctx context.Context, address string) error
}

// OnContractorTermsUpdated is called when a contractor's per-cycle
// terms change.
type OnContractorTermsUpdated interface {
	Plugin
	OnContractorTermsUpdated(ctx context.Context, c interface{}) error
}

// OnCustomerRemoved is called when a customer's subscriptions are
// purged and their credentials burned.
type OnCustomerRemoved interface {
	Plugin
	OnCustomerRemoved(ctx context.Context, customer string) error
}

// ──────────────────────────────────────────────────
// Treasury hooks
// ──────────────────────────────────────────────────

// OnFeeChanged is called when the platform fee rate is updated.
type OnFeeChanged interface {
	Plugin
	OnFeeChanged(ctx context.Context, oldBps, newBps int) error
}

// OnContractorBalanceWithdrawn is called when a contractor drains
// their accrued balance.
type OnContractorBalanceWithdrawn interface {
	Plugin
	OnContractorBalanceWithdrawn(ctx context.Context, address string, amount int64) error
}

// OnFeesWithdrawn is called when the owner drains the fee pool.
type OnFeesWithdrawn interface {
	Plugin
	OnFeesWithdrawn(ctx context.Context, amount int64) error
}
