// Package observability provides a metrics extension for Storefront that
// records purchase and reconciliation event counts via a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/storefront/entitlement"
	"github.com/xraph/storefront/plugin"
	"github.com/xraph/storefront/product"
	"github.com/xraph/storefront/transaction"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                  = (*MetricsExtension)(nil)
	_ plugin.OnInit                  = (*MetricsExtension)(nil)
	_ plugin.OnProductsLoaded        = (*MetricsExtension)(nil)
	_ plugin.OnEligibilityRefreshed  = (*MetricsExtension)(nil)
	_ plugin.OnPurchaseCompleted     = (*MetricsExtension)(nil)
	_ plugin.OnCoinsGranted          = (*MetricsExtension)(nil)
	_ plugin.OnTransactionApplied    = (*MetricsExtension)(nil)
	_ plugin.OnEntitlementsRefreshed = (*MetricsExtension)(nil)
	_ plugin.OnVerificationFailed    = (*MetricsExtension)(nil)
	_ plugin.OnRestoreCompleted      = (*MetricsExtension)(nil)
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

// MetricsExtension records purchase lifecycle metrics.
// Register it as a Storefront plugin to automatically track IAP metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Catalog metrics
	CatalogLoads        Counter
	CatalogSize         Histogram
	EligibilityRefreshs Counter

	// Purchase metrics
	PurchaseSuccess   Counter
	PurchaseCancelled Counter
	PurchasePending   Counter
	PurchaseFailure   Counter

	// Reconciliation metrics
	CoinsGranted        Counter
	TransactionsApplied Counter
	Refreshes           Counter
	RefreshLatency      Histogram
	EntitledProducts    Histogram
	RestoreCompleted    Counter

	// Trust metrics
	VerificationFailures Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Catalog metrics
		CatalogLoads:        factory.Counter("storefront.catalog.loads"),
		CatalogSize:         factory.Histogram("storefront.catalog.size"),
		EligibilityRefreshs: factory.Counter("storefront.eligibility.refreshes"),

		// Purchase metrics
		PurchaseSuccess:   factory.Counter("storefront.purchase.success"),
		PurchaseCancelled: factory.Counter("storefront.purchase.cancelled"),
		PurchasePending:   factory.Counter("storefront.purchase.pending"),
		PurchaseFailure:   factory.Counter("storefront.purchase.failure"),

		// Reconciliation metrics
		CoinsGranted:        factory.Counter("storefront.coins.granted"),
		TransactionsApplied: factory.Counter("storefront.transactions.applied"),
		Refreshes:           factory.Counter("storefront.entitlements.refreshes"),
		RefreshLatency:      factory.Histogram("storefront.entitlements.refresh.latency_ms"),
		EntitledProducts:    factory.Histogram("storefront.entitlements.products"),
		RestoreCompleted:    factory.Counter("storefront.restore.completed"),

		// Trust metrics
		VerificationFailures: factory.Counter("storefront.verification.failures"),
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
// Catalog hooks
// ──────────────────────────────────────────────────

// OnProductsLoaded implements plugin.OnProductsLoaded.
func (m *MetricsExtension) OnProductsLoaded(_ context.Context, products []product.Product) error {
	m.CatalogLoads.Inc()
	m.CatalogSize.Observe(float64(len(products)))
	return nil
}

// OnEligibilityRefreshed implements plugin.OnEligibilityRefreshed.
func (m *MetricsExtension) OnEligibilityRefreshed(_ context.Context, _ string, _ bool) error {
	m.EligibilityRefreshs.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Purchase flow hooks
// ──────────────────────────────────────────────────

// OnPurchaseCompleted implements plugin.OnPurchaseCompleted.
func (m *MetricsExtension) OnPurchaseCompleted(_ context.Context, _ string, outcome string) error {
	switch outcome {
	case "success":
		m.PurchaseSuccess.Inc()
	case "cancelled":
		m.PurchaseCancelled.Inc()
	case "pending":
		m.PurchasePending.Inc()
	default:
		m.PurchaseFailure.Inc()
	}
	return nil
}

// OnCoinsGranted implements plugin.OnCoinsGranted.
func (m *MetricsExtension) OnCoinsGranted(_ context.Context, _ *transaction.Transaction, amount, _ int64) error {
	m.CoinsGranted.Add(float64(amount))
	return nil
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnTransactionApplied implements plugin.OnTransactionApplied.
func (m *MetricsExtension) OnTransactionApplied(_ context.Context, _ *transaction.Transaction) error {
	m.TransactionsApplied.Inc()
	return nil
}

// OnEntitlementsRefreshed implements plugin.OnEntitlementsRefreshed.
func (m *MetricsExtension) OnEntitlementsRefreshed(_ context.Context, snap entitlement.Snapshot, elapsed time.Duration) error {
	m.Refreshes.Inc()
	m.RefreshLatency.Observe(float64(elapsed.Milliseconds()))
	m.EntitledProducts.Observe(float64(len(snap.Products)))
	return nil
}

// OnVerificationFailed implements plugin.OnVerificationFailed.
func (m *MetricsExtension) OnVerificationFailed(_ context.Context, _ string, _ error) error {
	m.VerificationFailures.Inc()
	return nil
}

// OnRestoreCompleted implements plugin.OnRestoreCompleted.
func (m *MetricsExtension) OnRestoreCompleted(_ context.Context, _ entitlement.Snapshot) error {
	m.RestoreCompleted.Inc()
	return nil
}
