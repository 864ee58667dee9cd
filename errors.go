package storefront

import (
	"errors"

	"github.com/xraph/storefront/verify"
)

// Sentinel errors for common failure scenarios.
var (
	// Catalog errors
	ErrCatalogFetch     = errors.New("storefront: catalog fetch failed")
	ErrProductNotFound  = errors.New("storefront: product not found")
	ErrEligibilityQuery = errors.New("storefront: intro offer eligibility query failed")

	// Verification errors
	ErrUnverified = verify.ErrUnverified

	// Purchase errors
	ErrPurchaseFailed = errors.New("storefront: purchase failed")
	ErrUnknownOutcome = errors.New("storefront: unknown purchase outcome")

	// Restore errors
	ErrRestoreSync = errors.New("storefront: restore sync failed")

	// Lifecycle errors
	ErrListenerRunning = errors.New("storefront: transaction listener already running")
	ErrNotStarted      = errors.New("storefront: engine not started")

	// Store errors
	ErrStoreNotReady = errors.New("storefront: store not ready")
	ErrStoreClosed   = errors.New("storefront: store is closed")
)

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound)
}

// IsUnverified returns true if the error indicates an envelope that
// failed the verification gate.
func IsUnverified(err error) bool {
	return errors.Is(err, ErrUnverified)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrCatalogFetch) ||
		errors.Is(err, ErrEligibilityQuery) ||
		errors.Is(err, ErrRestoreSync) ||
		errors.Is(err, ErrStoreNotReady)
}
