package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/storefront/entitlement"
	"github.com/xraph/storefront/product"
	"github.com/xraph/storefront/transaction"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                  []OnInit
	onShutdown              []OnShutdown
	onProductsLoaded        []OnProductsLoaded
	onEligibilityRefreshed  []OnEligibilityRefreshed
	onPurchaseCompleted     []OnPurchaseCompleted
	onCoinsGranted          []OnCoinsGranted
	onTransactionApplied    []OnTransactionApplied
	onEntitlementsRefreshed []OnEntitlementsRefreshed
	onVerificationFailed    []OnVerificationFailed
	onRestoreCompleted      []OnRestoreCompleted
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
	if v, ok := p.(OnProductsLoaded); ok {
		r.onProductsLoaded = append(r.onProductsLoaded, v)
	}
	if v, ok := p.(OnEligibilityRefreshed); ok {
		r.onEligibilityRefreshed = append(r.onEligibilityRefreshed, v)
	}
	if v, ok := p.(OnPurchaseCompleted); ok {
		r.onPurchaseCompleted = append(r.onPurchaseCompleted, v)
	}
	if v, ok := p.(OnCoinsGranted); ok {
		r.onCoinsGranted = append(r.onCoinsGranted, v)
	}
	if v, ok := p.(OnTransactionApplied); ok {
		r.onTransactionApplied = append(r.onTransactionApplied, v)
	}
	if v, ok := p.(OnEntitlementsRefreshed); ok {
		r.onEntitlementsRefreshed = append(r.onEntitlementsRefreshed, v)
	}
	if v, ok := p.(OnVerificationFailed); ok {
		r.onVerificationFailed = append(r.onVerificationFailed, v)
	}
	if v, ok := p.(OnRestoreCompleted); ok {
		r.onRestoreCompleted = append(r.onRestoreCompleted, v)
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

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnProductsLoaded)(nil)).Elem(), "OnProductsLoaded")
	checkInterface(reflect.TypeOf((*OnEligibilityRefreshed)(nil)).Elem(), "OnEligibilityRefreshed")
	checkInterface(reflect.TypeOf((*OnPurchaseCompleted)(nil)).Elem(), "OnPurchaseCompleted")
	checkInterface(reflect.TypeOf((*OnCoinsGranted)(nil)).Elem(), "OnCoinsGranted")
	checkInterface(reflect.TypeOf((*OnTransactionApplied)(nil)).Elem(), "OnTransactionApplied")
	checkInterface(reflect.TypeOf((*OnEntitlementsRefreshed)(nil)).Elem(), "OnEntitlementsRefreshed")
	checkInterface(reflect.TypeOf((*OnVerificationFailed)(nil)).Elem(), "OnVerificationFailed")
	checkInterface(reflect.TypeOf((*OnRestoreCompleted)(nil)).Elem(), "OnRestoreCompleted")

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

// EmitProductsLoaded calls OnProductsLoaded for all plugins that implement it.
func (r *Registry) EmitProductsLoaded(ctx context.Context, products []product.Product) {
	r.mu.RLock()
	plugins := r.onProductsLoaded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnProductsLoaded(ctx, products)
		}); err != nil {
			r.logger.Warn("plugin OnProductsLoaded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitEligibilityRefreshed calls OnEligibilityRefreshed for all plugins that implement it.
func (r *Registry) EmitEligibilityRefreshed(ctx context.Context, productID string, eligible bool) {
	r.mu.RLock()
	plugins := r.onEligibilityRefreshed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEligibilityRefreshed(ctx, productID, eligible)
		}); err != nil {
			r.logger.Warn("plugin OnEligibilityRefreshed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPurchaseCompleted calls OnPurchaseCompleted for all plugins that implement it.
func (r *Registry) EmitPurchaseCompleted(ctx context.Context, productID, outcome string) {
	r.mu.RLock()
	plugins := r.onPurchaseCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPurchaseCompleted(ctx, productID, outcome)
		}); err != nil {
			r.logger.Warn("plugin OnPurchaseCompleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCoinsGranted calls OnCoinsGranted for all plugins that implement it.
func (r *Registry) EmitCoinsGranted(ctx context.Context, tx *transaction.Transaction, amount, balance int64) {
	r.mu.RLock()
	plugins := r.onCoinsGranted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCoinsGranted(ctx, tx, amount, balance)
		}); err != nil {
			r.logger.Warn("plugin OnCoinsGranted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTransactionApplied calls OnTransactionApplied for all plugins that implement it.
func (r *Registry) EmitTransactionApplied(ctx context.Context, tx *transaction.Transaction) {
	r.mu.RLock()
	plugins := r.onTransactionApplied
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransactionApplied(ctx, tx)
		}); err != nil {
			r.logger.Warn("plugin OnTransactionApplied failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitEntitlementsRefreshed calls OnEntitlementsRefreshed for all plugins that implement it.
func (r *Registry) EmitEntitlementsRefreshed(ctx context.Context, snap entitlement.Snapshot, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onEntitlementsRefreshed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEntitlementsRefreshed(ctx, snap, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnEntitlementsRefreshed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitVerificationFailed calls OnVerificationFailed for all plugins that implement it.
func (r *Registry) EmitVerificationFailed(ctx context.Context, source string, failure error) {
	r.mu.RLock()
	plugins := r.onVerificationFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnVerificationFailed(ctx, source, failure)
		}); err != nil {
			r.logger.Warn("plugin OnVerificationFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRestoreCompleted calls OnRestoreCompleted for all plugins that implement it.
func (r *Registry) EmitRestoreCompleted(ctx context.Context, snap entitlement.Snapshot) {
	r.mu.RLock()
	plugins := r.onRestoreCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRestoreCompleted(ctx, snap)
		}); err != nil {
			r.logger.Warn("plugin OnRestoreCompleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the purchase pipeline.
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
