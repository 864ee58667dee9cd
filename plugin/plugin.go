// Package plugin provides an extensible plugin system for Storefront.
// Plugins can hook into purchase and reconciliation lifecycle events to
// extend functionality (metrics, audit, custom side effects).
package plugin

import (
	"context"
	"time"

	"github.com/xraph/storefront/entitlement"
	"github.com/xraph/storefront/product"
	"github.com/xraph/storefront/transaction"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized. The engine is passed
// as interface{} to avoid an import cycle with the root package.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Catalog hooks
// ──────────────────────────────────────────────────

// OnProductsLoaded is called after a catalog load completes.
type OnProductsLoaded interface {
	Plugin
	OnProductsLoaded(ctx context.Context, products []product.Product) error
}

// OnEligibilityRefreshed is called per product after an intro-offer
// eligibility query.
type OnEligibilityRefreshed interface {
	Plugin
	OnEligibilityRefreshed(ctx context.Context, productID string, eligible bool) error
}

// ──────────────────────────────────────────────────
// Purchase flow hooks
// ──────────────────────────────────────────────────

// OnPurchaseCompleted is called when a purchase flow resolves, whatever
// the outcome tag.
type OnPurchaseCompleted interface {
	Plugin
	OnPurchaseCompleted(ctx context.Context, productID, outcome string) error
}

// OnCoinsGranted is called when a consumable transaction increments the
// coin balance.
type OnCoinsGranted interface {
	Plugin
	OnCoinsGranted(ctx context.Context, tx *transaction.Transaction, amount, balance int64) error
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnTransactionApplied is called after any verified transaction has been
// applied, from either the purchase flow or the listener.
type OnTransactionApplied interface {
	Plugin
	OnTransactionApplied(ctx context.Context, tx *transaction.Transaction) error
}

// OnEntitlementsRefreshed is called after a full reconciliation pass has
// published a fresh snapshot.
type OnEntitlementsRefreshed interface {
	Plugin
	OnEntitlementsRefreshed(ctx context.Context, snap entitlement.Snapshot, elapsed time.Duration) error
}

// OnVerificationFailed is called when an envelope fails the verification
// gate. The source names the path that saw it ("listener", "purchase",
// "refresh").
type OnVerificationFailed interface {
	Plugin
	OnVerificationFailed(ctx context.Context, source string, err error) error
}

// OnRestoreCompleted is called after a restore (forced sync + refresh)
// finishes successfully.
type OnRestoreCompleted interface {
	Plugin
	OnRestoreCompleted(ctx context.Context, snap entitlement.Snapshot) error
}
