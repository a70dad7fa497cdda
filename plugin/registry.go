package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                       []OnInit
	onShutdown                   []OnShutdown
	onGranted                    []OnGranted
	onPaid                       []OnPaid
	onRevoked                    []OnRevoked
	onContractorAdded            []OnContractorAdded
	onContractorRemoved          []OnContractorRemoved
	onContractorTermsUpdated     []OnContractorTermsUpdated
	onCustomerRemoved            []OnCustomerRemoved
	onFeeChanged                 []OnFeeChanged
	onContractorBalanceWithdrawn []OnContractorBalanceWithdrawn
	onFeesWithdrawn              []OnFeesWithdrawn
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnGranted); ok {
		r.onGranted = append(r.onGranted, v)
	}
	if v, ok := p.(OnPaid); ok {
		r.onPaid = append(r.onPaid, v)
	}
	if v, ok := p.(OnRevoked); ok {
		r.onRevoked = append(r.onRevoked, v)
	}
	if v, ok := p.(OnContractorAdded); ok {
		r.onContractorAdded = append(r.onContractorAdded, v)
	}
	if v, ok := p.(OnContractorRemoved); ok {
		r.onContractorRemoved = append(r.onContractorRemoved, v)
	}
	if v, ok := p.(OnContractorTermsUpdated); ok {
		r.onContractorTermsUpdated = append(r.onContractorTermsUpdated, v)
	}
	if v, ok := p.(OnCustomerRemoved); ok {
		r.onCustomerRemoved = append(r.onCustomerRemoved, v)
	}
	if v, ok := p.(OnFeeChanged); ok {
		r.onFeeChanged = append(r.onFeeChanged, v)
	}
	if v, ok := p.(OnContractorBalanceWithdrawn); ok {
		r.onContractorBalanceWithdrawn = append(r.onContractorBalanceWithdrawn, v)
	}
	if v, ok := p.(OnFeesWithdrawn); ok {
		r.onFeesWithdrawn = append(r.onFeesWithdrawn, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnGranted)(nil)).Elem(), "OnGranted")
	checkInterface(reflect.TypeOf((*OnPaid)(nil)).Elem(), "OnPaid")
	checkInterface(reflect.TypeOf((*OnRevoked)(nil)).Elem(), "OnRevoked")
	checkInterface(reflect.TypeOf((*OnContractorAdded)(nil)).Elem(), "OnContractorAdded")
	checkInterface(reflect.TypeOf((*OnContractorRemoved)(nil)).Elem(), "OnContractorRemoved")
	checkInterface(reflect.TypeOf((*OnFeeChanged)(nil)).Elem(), "OnFeeChanged")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitGranted emits an entitlement granted event.
func (r *Registry) EmitGranted(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onGranted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnGranted(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnGranted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPaid emits a charge collected event.
func (r *Registry) EmitPaid(ctx context.Context, receipt interface{}) {
	r.mu.RLock()
	plugins := r.onPaid
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaid(ctx, receipt)
		}); err != nil {
			r.logger.Warn("plugin OnPaid failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRevoked emits an entitlement revoked event.
func (r *Registry) EmitRevoked(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onRevoked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRevoked(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnRevoked failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitContractorAdded emits a contractor registered event.
func (r *Registry) EmitContractorAdded(ctx context.Context, c interface{}) {
	r.mu.RLock()
	plugins := r.onContractorAdded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnContractorAdded(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnContractorAdded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitContractorRemoved emits a contractor deregistered event.
func (r *Registry) EmitContractorRemoved(ctx context.Context, address string) {
	r.mu.RLock()
	plugins := r.onContractorRemoved
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnContractorRemoved(ctx, address)
		}); err != nil {
			r.logger.Warn("plugin OnContractorRemoved failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitContractorTermsUpdated emits a terms change event.
func (r *Registry) EmitContractorTermsUpdated(ctx context.Context, c interface{}) {
	r.mu.RLock()
	plugins := r.onContractorTermsUpdated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnContractorTermsUpdated(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnContractorTermsUpdated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCustomerRemoved emits a customer purged event.
func (r *Registry) EmitCustomerRemoved(ctx context.Context, customer string) {
	r.mu.RLock()
	plugins := r.onCustomerRemoved
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCustomerRemoved(ctx, customer)
		}); err != nil {
			r.logger.Warn("plugin OnCustomerRemoved failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitFeeChanged emits a fee rate change event.
func (r *Registry) EmitFeeChanged(ctx context.Context, oldBps, newBps int) {
	r.mu.RLock()
	plugins := r.onFeeChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFeeChanged(ctx, oldBps, newBps)
		}); err != nil {
			r.logger.Warn("plugin OnFeeChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitContractorBalanceWithdrawn emits a balance withdrawal event.
func (r *Registry) EmitContractorBalanceWithdrawn(ctx context.Context, address string, amount int64) {
	r.mu.RLock()
	plugins := r.onContractorBalanceWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnContractorBalanceWithdrawn(ctx, address, amount)
		}); err != nil {
			r.logger.Warn("plugin OnContractorBalanceWithdrawn failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitFeesWithdrawn emits a fee pool withdrawal event.
func (r *Registry) EmitFeesWithdrawn(ctx context.Context, amount int64) {
	r.mu.RLock()
	plugins := r.onFeesWithdrawn
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnFeesWithdrawn(ctx, amount)
		}); err != nil {
			r.logger.Warn("plugin OnFeesWithdrawn failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the payment pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
