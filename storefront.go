package storefront

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/storefront/entitlement"
	"github.com/xraph/storefront/id"
	"github.com/xraph/storefront/plugin"
	"github.com/xraph/storefront/product"
	"github.com/xraph/storefront/store"
	"github.com/xraph/storefront/transaction"
	"github.com/xraph/storefront/verify"
)

// Engine is the client-side entitlement manager. It loads the catalog,
// drives purchase flows through the platform store, verifies every signed
// envelope before it touches state, and keeps the published entitlement
// snapshot reconciled against the platform's purchase ledger.
type Engine struct {
	store    store.Store
	verifier verify.Verifier
	plugins  *plugin.Registry
	logger   *slog.Logger

	// Configuration
	productIDs      []string
	coinGrant       int64
	appAccountToken uuid.UUID
	sessionID       id.ID

	// Mutable session state. mu guards everything below.
	mu                 sync.Mutex
	products           []product.Product
	entitled           map[string]struct{}
	coins              int64
	subscriptionStatus string
	grantedTxns        map[string]struct{}
	eligibility        map[string]bool

	// refreshMu serializes full ledger pulls end to end. The fetch runs
	// inside the critical section so whichever refresh enters last also
	// publishes last.
	refreshMu sync.Mutex

	// Background listener
	stopChan chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
}

// New creates a new Engine instance. The verifier is the trust boundary:
// every envelope from the store passes through it before any state change.
func New(s store.Store, v verify.Verifier, opts ...Option) *Engine {
	e := &Engine{
		store:              s,
		verifier:           v,
		plugins:            plugin.NewRegistry(),
		logger:             slog.Default(),
		coinGrant:          100,
		appAccountToken:    uuid.New(),
		sessionID:          id.NewSessionID(),
		entitled:           make(map[string]struct{}),
		subscriptionStatus: entitlement.StatusNone,
		grantedTxns:        make(map[string]struct{}),
		eligibility:        make(map[string]bool),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithProductIDs sets the catalog product IDs LoadProducts requests.
func WithProductIDs(ids ...string) Option {
	return func(e *Engine) {
		e.productIDs = ids
	}
}

// WithCoinGrant sets the coin amount granted per unique consumable
// transaction.
func WithCoinGrant(amount int64) Option {
	return func(e *Engine) {
		e.coinGrant = amount
	}
}

// WithAppAccountToken ties purchases to an app-side account identity.
func WithAppAccountToken(token uuid.UUID) Option {
	return func(e *Engine) {
		e.appAccountToken = token
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Start initializes plugins and launches the transaction listener. The
// listener consumes the store's live update stream until Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return ErrListenerRunning
	}
	e.started = true
	// A fresh stop channel per launch keeps Start/Stop cycles safe.
	e.stopChan = make(chan struct{})
	stop := e.stopChan
	e.mu.Unlock()

	if err := e.store.Ping(ctx); err != nil {
		e.mu.Lock()
		e.started = false
		e.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrStoreNotReady, err)
	}

	e.plugins.EmitInit(ctx, e)

	listenCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	updates := e.store.TransactionUpdates(listenCtx)

	e.wg.Add(1)
	go e.listenWorker(listenCtx, stop, updates)

	e.logger.Info("storefront started",
		"session_id", e.sessionID.String(),
		"coin_grant", e.coinGrant,
		"product_ids", len(e.productIDs),
	)

	return nil
}

// Stop shuts down the listener and releases the store.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if !e.started {
		e.mu.Unlock()
		return ErrNotStarted
	}
	e.started = false
	stop := e.stopChan
	e.mu.Unlock()

	close(stop)
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()

	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// listenWorker drains the live transaction stream. Every event passes the
// verification gate; failures are logged and skipped so one bad envelope
// never stalls the stream.
func (e *Engine) listenWorker(ctx context.Context, stop <-chan struct{}, updates <-chan transaction.Envelope) {
	defer e.wg.Done()

	for {
		select {
		case <-stop:
			return

		case env, ok := <-updates:
			if !ok {
				e.logger.Info("transaction stream closed")
				return
			}

			tx, err := e.verifier.Verify(ctx, env)
			if err != nil {
				e.logger.Warn("unverified transaction on update stream",
					"error", err,
				)
				e.plugins.EmitVerificationFailed(ctx, "listener", err)
				continue
			}

			if err := e.ApplyTransaction(ctx, tx); err != nil {
				e.logger.Error("failed to apply streamed transaction",
					"transaction_id", tx.ID,
					"product_id", tx.ProductID,
					"error", err,
				)
				continue
			}

			if err := e.store.Acknowledge(ctx, tx.ID); err != nil {
				// The ledger redelivers unacknowledged transactions and
				// ApplyTransaction is idempotent, so this is safe to drop.
				e.logger.Warn("failed to acknowledge transaction",
					"transaction_id", tx.ID,
					"error", err,
				)
			}
		}
	}
}

// ──────────────────────────────────────────────────
// Catalog
// ──────────────────────────────────────────────────

// LoadProducts fetches catalog metadata for the configured product IDs,
// sorted ascending by price, and refreshes intro-offer eligibility.
func (e *Engine) LoadProducts(ctx context.Context) ([]product.Product, error) {
	products, err := e.store.FetchProducts(ctx, e.productIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCatalogFetch, err)
	}

	product.SortByPrice(products)

	e.mu.Lock()
	e.products = products
	e.mu.Unlock()

	e.plugins.EmitProductsLoaded(ctx, products)
	e.refreshEligibility(ctx, products)

	e.logger.Debug("catalog loaded", "count", len(products))
	return products, nil
}

// refreshEligibility queries intro-offer eligibility for every subscription
// product that carries one. A failed query counts as eligible; the store
// rejects an actually ineligible redemption at purchase time.
func (e *Engine) refreshEligibility(ctx context.Context, products []product.Product) {
	for _, p := range products {
		if !p.IsSubscription() || !p.HasIntroOffer() {
			continue
		}

		eligible, err := e.store.IntroOfferEligibility(ctx, p.ID)
		if err != nil {
			e.logger.Warn("intro offer eligibility query failed",
				"product_id", p.ID,
				"error", fmt.Errorf("%w: %v", ErrEligibilityQuery, err),
			)
			eligible = true
		}

		e.mu.Lock()
		e.eligibility[p.ID] = eligible
		e.mu.Unlock()

		e.plugins.EmitEligibilityRefreshed(ctx, p.ID, eligible)
	}
}

// ──────────────────────────────────────────────────
// Purchase flow
// ──────────────────────────────────────────────────

// PurchaseStatus tags the result of a purchase flow.
type PurchaseStatus string

const (
	// PurchaseSuccess means the transaction was verified, applied, and
	// acknowledged.
	PurchaseSuccess PurchaseStatus = "success"
	// PurchaseCancelled means the user dismissed the payment sheet. Not
	// an error.
	PurchaseCancelled PurchaseStatus = "cancelled"
	// PurchasePending means payment awaits external approval; the
	// transaction arrives later on the update stream.
	PurchasePending PurchaseStatus = "pending"
	// PurchaseFailure covers store errors, verification failures, and
	// outcomes this client version does not recognize.
	PurchaseFailure PurchaseStatus = "failure"
)

// PurchaseResult is the outcome of a purchase flow, with a message
// suitable for display.
type PurchaseResult struct {
	Status      PurchaseStatus
	AttemptID   id.ID
	ProductID   string
	Message     string
	Transaction *transaction.Transaction
	Err         error
}

// Purchase drives the full purchase flow for a product: payment sheet,
// verification gate, entitlement reconciliation, then acknowledgment.
// The transaction is acknowledged only after it has been applied, so a
// crash in between leaves it on the ledger for redelivery.
func (e *Engine) Purchase(ctx context.Context, p product.Product) PurchaseResult {
	attemptID := id.NewPurchaseID()
	result := PurchaseResult{
		AttemptID: attemptID,
		ProductID: p.ID,
	}

	outcome, err := e.store.Purchase(ctx, p, store.PurchaseOptions{
		AppAccountToken: e.appAccountToken,
	})
	if err != nil {
		e.logger.Error("purchase failed",
			"attempt_id", attemptID.String(),
			"product_id", p.ID,
			"error", err,
		)
		result.Status = PurchaseFailure
		result.Message = "Purchase failed. Please try again."
		result.Err = fmt.Errorf("%w: %v", ErrPurchaseFailed, err)
		e.plugins.EmitPurchaseCompleted(ctx, p.ID, string(result.Status))
		return result
	}

	switch outcome.State {
	case store.PurchaseApproved:
		tx, err := e.verifier.Verify(ctx, outcome.Envelope)
		if err != nil {
			e.logger.Warn("purchase returned unverified envelope",
				"attempt_id", attemptID.String(),
				"product_id", p.ID,
				"error", err,
			)
			e.plugins.EmitVerificationFailed(ctx, "purchase", err)
			result.Status = PurchaseFailure
			result.Message = "Purchase could not be verified."
			result.Err = err
			break
		}

		if err := e.ApplyTransaction(ctx, tx); err != nil {
			result.Status = PurchaseFailure
			result.Message = "Purchase could not be applied."
			result.Err = err
			break
		}

		if err := e.store.Acknowledge(ctx, tx.ID); err != nil {
			e.logger.Warn("failed to acknowledge purchase",
				"transaction_id", tx.ID,
				"error", err,
			)
		}

		result.Status = PurchaseSuccess
		result.Message = "Purchase complete."
		result.Transaction = tx

	case store.PurchaseCancelled:
		result.Status = PurchaseCancelled
		result.Message = "Purchase cancelled."

	case store.PurchasePending:
		result.Status = PurchasePending
		result.Message = "Purchase is pending approval."

	default:
		result.Status = PurchaseFailure
		result.Message = "Purchase returned an unrecognized outcome."
		result.Err = fmt.Errorf("%w: %q", ErrUnknownOutcome, outcome.State)
	}

	e.plugins.EmitPurchaseCompleted(ctx, p.ID, string(result.Status))

	e.logger.Info("purchase completed",
		"attempt_id", attemptID.String(),
		"product_id", p.ID,
		"status", result.Status,
	)

	return result
}

// ──────────────────────────────────────────────────
// Reconciliation
// ──────────────────────────────────────────────────

// ApplyTransaction folds one verified transaction into session state.
// Consumables grant coins exactly once per transaction ID. Everything
// else triggers a full entitlement refresh, since only a complete ledger
// pull can decide what the user owns now.
func (e *Engine) ApplyTransaction(ctx context.Context, tx *transaction.Transaction) error {
	if tx.Kind == product.KindConsumable {
		e.mu.Lock()
		if _, granted := e.grantedTxns[tx.ID]; granted {
			e.mu.Unlock()
			e.logger.Debug("skipping replayed consumable",
				"transaction_id", tx.ID,
			)
			return nil
		}
		e.grantedTxns[tx.ID] = struct{}{}
		e.coins += e.coinGrant
		balance := e.coins
		e.mu.Unlock()

		e.plugins.EmitCoinsGranted(ctx, tx, e.coinGrant, balance)
		e.plugins.EmitTransactionApplied(ctx, tx)

		e.logger.Info("coins granted",
			"transaction_id", tx.ID,
			"amount", e.coinGrant,
			"balance", balance,
		)
		return nil
	}

	if err := e.Refresh(ctx); err != nil {
		return err
	}

	e.plugins.EmitTransactionApplied(ctx, tx)
	return nil
}

// Refresh rebuilds the entitlement set from a full ledger pull. Refreshes
// are serialized end to end, fetch included, so concurrent callers queue
// and the last pull to run is the last to publish.
func (e *Engine) Refresh(ctx context.Context) error {
	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	start := time.Now()

	envelopes, err := e.store.CurrentEntitlements(ctx)
	if err != nil {
		return fmt.Errorf("storefront: entitlement pull failed: %w", err)
	}

	fresh := make(map[string]struct{}, len(envelopes))
	var active *transaction.Transaction
	now := time.Now()

	for _, env := range envelopes {
		tx, err := e.verifier.Verify(ctx, env)
		if err != nil {
			e.logger.Warn("skipping unverified ledger entry",
				"error", err,
			)
			e.plugins.EmitVerificationFailed(ctx, "refresh", err)
			continue
		}

		if tx.Kind == product.KindConsumable {
			continue
		}
		if tx.IsUpgraded() {
			continue
		}
		if tx.IsRevoked(now) {
			continue
		}

		fresh[tx.ProductID] = struct{}{}

		if tx.Kind == product.KindAutoRenewable {
			if active == nil || tx.PurchaseDate.After(active.PurchaseDate) {
				active = tx
			}
		}
	}

	status := entitlement.StatusNone
	if active != nil {
		status = transaction.StatusText(active.RenewalState, active.AutoRenewEnabled)
	}

	e.mu.Lock()
	e.entitled = fresh
	e.subscriptionStatus = status
	snap := e.snapshotLocked()
	e.mu.Unlock()

	elapsed := time.Since(start)
	e.plugins.EmitEntitlementsRefreshed(ctx, snap, elapsed)

	e.logger.Debug("entitlements refreshed",
		"products", len(snap.Products),
		"status", snap.SubscriptionStatus,
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return nil
}

// Restore forces a ledger sync with the platform, then refreshes. Owned
// products reappear; consumables are never re-granted because they never
// appear in the entitlement pull.
func (e *Engine) Restore(ctx context.Context) error {
	if err := e.store.Sync(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRestoreSync, err)
	}

	if err := e.Refresh(ctx); err != nil {
		return err
	}

	snap := e.Entitlements()
	e.plugins.EmitRestoreCompleted(ctx, snap)

	e.logger.Info("restore completed",
		"products", len(snap.Products),
	)
	return nil
}

// ──────────────────────────────────────────────────
// Published state
// ──────────────────────────────────────────────────

// Entitlements returns an immutable snapshot of the current session state.
func (e *Engine) Entitlements() entitlement.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// snapshotLocked builds a Snapshot. Caller holds e.mu.
func (e *Engine) snapshotLocked() entitlement.Snapshot {
	products := make([]string, 0, len(e.entitled))
	for pid := range e.entitled {
		products = append(products, pid)
	}
	sort.Strings(products)

	return entitlement.Snapshot{
		Products:           products,
		Coins:              e.coins,
		SubscriptionStatus: e.subscriptionStatus,
	}
}

// Owns reports whether the user currently owns the product.
func (e *Engine) Owns(productID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.entitled[productID]
	return ok
}

// Coins returns the session coin balance.
func (e *Engine) Coins() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.coins
}

// SubscriptionStatus returns the display string for the active
// subscription, or the neutral value when there is none.
func (e *Engine) SubscriptionStatus() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.subscriptionStatus
}

// Eligible reports whether the user can redeem the product's introductory
// offer. Unknown products default to eligible.
func (e *Engine) Eligible(productID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	eligible, ok := e.eligibility[productID]
	if !ok {
		return true
	}
	return eligible
}

// Products returns the last loaded catalog, sorted ascending by price.
func (e *Engine) Products() []product.Product {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]product.Product, len(e.products))
	copy(out, e.products)
	return out
}

// Product returns a loaded product by ID.
func (e *Engine) Product(productID string) (product.Product, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p := product.FindByID(e.products, productID); p != nil {
		return *p, nil
	}
	return product.Product{}, ErrProductNotFound
}

// SessionID returns this engine session's identifier.
func (e *Engine) SessionID() id.ID {
	return e.sessionID
}

// Plugins exposes the plugin registry.
func (e *Engine) Plugins() *plugin.Registry {
	return e.plugins
}
