// Package audithook bridges Storefront lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import an
// audit backend directly. Callers inject a RecorderFunc adapter that bridges
// to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/storefront/entitlement"
	"github.com/xraph/storefront/plugin"
	"github.com/xraph/storefront/product"
	"github.com/xraph/storefront/transaction"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                  = (*Extension)(nil)
	_ plugin.OnProductsLoaded        = (*Extension)(nil)
	_ plugin.OnEligibilityRefreshed  = (*Extension)(nil)
	_ plugin.OnPurchaseCompleted     = (*Extension)(nil)
	_ plugin.OnCoinsGranted          = (*Extension)(nil)
	_ plugin.OnTransactionApplied    = (*Extension)(nil)
	_ plugin.OnEntitlementsRefreshed = (*Extension)(nil)
	_ plugin.OnVerificationFailed    = (*Extension)(nil)
	_ plugin.OnRestoreCompleted      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// It is defined locally so that callers inject their concrete backend at
// wiring time without adding a module dependency here.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
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

// Extension bridges Storefront lifecycle events to an audit trail backend.
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
// Catalog hooks
// ──────────────────────────────────────────────────

// OnProductsLoaded implements plugin.OnProductsLoaded.
func (e *Extension) OnProductsLoaded(ctx context.Context, products []product.Product) error {
	return e.record(ctx, ActionProductsLoaded, SeverityInfo, OutcomeSuccess,
		ResourceCatalog, "", CategoryCommerce, nil,
		"count", len(products),
	)
}

// OnEligibilityRefreshed implements plugin.OnEligibilityRefreshed.
func (e *Extension) OnEligibilityRefreshed(ctx context.Context, productID string, eligible bool) error {
	return e.record(ctx, ActionEligibilityRefreshed, SeverityInfo, OutcomeSuccess,
		ResourceCatalog, productID, CategoryCommerce, nil,
		"product_id", productID,
		"eligible", eligible,
	)
}

// ──────────────────────────────────────────────────
// Purchase flow hooks
// ──────────────────────────────────────────────────

// OnPurchaseCompleted implements plugin.OnPurchaseCompleted.
func (e *Extension) OnPurchaseCompleted(ctx context.Context, productID, outcome string) error {
	severity := SeverityInfo
	result := OutcomeSuccess
	if outcome == "failure" {
		severity = SeverityWarning
		result = OutcomeFailure
	}

	return e.record(ctx, ActionPurchaseCompleted, severity, result,
		ResourcePurchase, productID, CategoryCommerce, nil,
		"product_id", productID,
		"purchase_outcome", outcome,
	)
}

// OnCoinsGranted implements plugin.OnCoinsGranted.
func (e *Extension) OnCoinsGranted(ctx context.Context, tx *transaction.Transaction, amount, balance int64) error {
	return e.record(ctx, ActionCoinsGranted, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, tx.ID, CategoryCommerce, nil,
		"transaction_id", tx.ID,
		"product_id", tx.ProductID,
		"amount", amount,
		"balance", balance,
	)
}

// ──────────────────────────────────────────────────
// Reconciliation hooks
// ──────────────────────────────────────────────────

// OnTransactionApplied implements plugin.OnTransactionApplied.
func (e *Extension) OnTransactionApplied(ctx context.Context, tx *transaction.Transaction) error {
	return e.record(ctx, ActionTransactionApplied, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, tx.ID, CategoryAccess, nil,
		"transaction_id", tx.ID,
		"product_id", tx.ProductID,
		"kind", string(tx.Kind),
	)
}

// OnEntitlementsRefreshed implements plugin.OnEntitlementsRefreshed.
func (e *Extension) OnEntitlementsRefreshed(ctx context.Context, snap entitlement.Snapshot, elapsed time.Duration) error {
	return e.record(ctx, ActionEntitlementsRefreshed, SeverityInfo, OutcomeSuccess,
		ResourceEntitlement, "", CategoryAccess, nil,
		"products", len(snap.Products),
		"subscription_status", snap.SubscriptionStatus,
		"elapsed_ms", elapsed.Milliseconds(),
	)
}

// OnRestoreCompleted implements plugin.OnRestoreCompleted.
func (e *Extension) OnRestoreCompleted(ctx context.Context, snap entitlement.Snapshot) error {
	return e.record(ctx, ActionRestoreCompleted, SeverityInfo, OutcomeSuccess,
		ResourceEntitlement, "", CategoryAccess, nil,
		"products", len(snap.Products),
	)
}

// ──────────────────────────────────────────────────
// Trust hooks
// ──────────────────────────────────────────────────

// OnVerificationFailed implements plugin.OnVerificationFailed.
func (e *Extension) OnVerificationFailed(ctx context.Context, source string, err error) error {
	return e.record(ctx, ActionVerificationFailed, SeverityWarning, OutcomeFailure,
		ResourceEnvelope, "", CategorySecurity, err,
		"source", source,
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
