// Package store declares the platform-store collaborator interface the
// engine depends on: catalog lookup, the purchase sheet, the transaction
// ledger (live stream plus current-entitlements snapshot), acknowledgment,
// and offer eligibility. Implementations wrap a real platform SDK;
// store/memory provides a full in-memory simulator.
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/xraph/storefront/product"
	"github.com/xraph/storefront/transaction"
)

// PurchaseState tags the outcome of a purchase sheet invocation.
type PurchaseState string

const (
	// PurchaseApproved means the user paid and a signed envelope is
	// available.
	PurchaseApproved PurchaseState = "approved"
	// PurchaseCancelled means the user dismissed the payment sheet.
	PurchaseCancelled PurchaseState = "cancelled"
	// PurchasePending means payment needs external approval (e.g.
	// ask-to-buy); resolution arrives later on the update stream.
	PurchasePending PurchaseState = "pending"
	// PurchaseUnknown is any outcome this client version does not
	// recognize.
	PurchaseUnknown PurchaseState = "unknown"
)

// PurchaseOutcome is the tagged result of a purchase invocation.
// Envelope is populated only when State is PurchaseApproved.
type PurchaseOutcome struct {
	State    PurchaseState
	Envelope transaction.Envelope
}

// PurchaseOptions carries per-attempt purchase parameters.
type PurchaseOptions struct {
	// AppAccountToken ties the transaction to an app-side account.
	AppAccountToken uuid.UUID
	// OfferID selects a promotional offer, if any.
	OfferID string
	// Quantity defaults to 1 when zero.
	Quantity int
}

// Store is the unified platform-store interface. All calls may block on
// network I/O and honor ctx cancellation.
type Store interface {
	// FetchProducts returns catalog metadata for the given product IDs.
	// Unknown IDs are omitted from the result, not an error.
	FetchProducts(ctx context.Context, ids []string) ([]product.Product, error)

	// Purchase presents the payment sheet for the product and reports
	// the tagged outcome.
	Purchase(ctx context.Context, p product.Product, opts PurchaseOptions) (PurchaseOutcome, error)

	// CurrentEntitlements returns the signed envelopes for every
	// transaction the ledger currently considers entitling. Consumables
	// never appear here.
	CurrentEntitlements(ctx context.Context) ([]transaction.Envelope, error)

	// TransactionUpdates returns the live event stream: renewals,
	// refunds, out-of-app purchases, and resolutions of pending
	// purchases. The channel is closed when the store shuts down or ctx
	// is cancelled.
	TransactionUpdates(ctx context.Context) <-chan transaction.Envelope

	// Acknowledge marks a transaction as finished so the ledger stops
	// redelivering it. Idempotent.
	Acknowledge(ctx context.Context, transactionID string) error

	// Sync forces a refresh of the ledger state from the platform
	// (restore purchases). May prompt re-authentication and fail.
	Sync(ctx context.Context) error

	// IntroOfferEligibility reports whether this user can still redeem
	// the product's introductory offer.
	IntroOfferEligibility(ctx context.Context, productID string) (bool, error)

	// Ping checks connectivity to the platform store.
	Ping(ctx context.Context) error

	// Close releases the store's resources and closes update streams.
	Close() error
}
