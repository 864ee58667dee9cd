package audithook

// Action constants for audit events.
const (
	// Catalog actions
	ActionProductsLoaded       = "products.loaded"
	ActionEligibilityRefreshed = "eligibility.refreshed"

	// Purchase actions
	ActionPurchaseCompleted = "purchase.completed"
	ActionCoinsGranted      = "coins.granted"

	// Reconciliation actions
	ActionTransactionApplied    = "transaction.applied"
	ActionEntitlementsRefreshed = "entitlements.refreshed"
	ActionRestoreCompleted      = "restore.completed"

	// Trust actions
	ActionVerificationFailed = "verification.failed"
)

// Resource constants for audit events.
const (
	ResourceCatalog     = "catalog"
	ResourcePurchase    = "purchase"
	ResourceTransaction = "transaction"
	ResourceEntitlement = "entitlement"
	ResourceEnvelope    = "envelope"
)

// Category constants for audit events.
const (
	CategoryCommerce = "commerce"
	CategoryAccess   = "access"
	CategorySecurity = "security"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
