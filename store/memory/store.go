// Package memory implements store.Store as a fully in-memory simulated
// platform store. It holds a seeded catalog, signs transaction envelopes
// with an ephemeral ECDSA key, supports scripted purchase outcomes, and
// exposes admin helpers (revoke, expire, resolve pending) that push
// signed events onto the update stream the way the real platform would.
//
// It backs the test suite and demos; nothing here persists beyond the
// process.
package memory

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	storefront "github.com/xraph/storefront"
	"github.com/xraph/storefront/product"
	"github.com/xraph/storefront/store"
	"github.com/xraph/storefront/transaction"
	"github.com/xraph/storefront/types"
	"github.com/xraph/storefront/verify"
)

// Issuer is the "iss" claim the simulator signs envelopes with.
const Issuer = "storefront-sim"

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store is the in-memory simulated platform store.
type Store struct {
	mu sync.RWMutex

	key      *ecdsa.PrivateKey
	products map[string]product.Product

	// Ledger entries by transaction ID. Superseded (upgraded) entries
	// stay in the collection with their flag set, as the platform's
	// current-entitlements view reports them.
	entitled map[string]*verify.Claims
	order    []string // insertion order of entitled transaction IDs

	acked          map[string]bool
	pending        map[string]pendingPurchase // by product ID
	outcomes       map[string]store.PurchaseState
	redeemedIntro  map[string]bool // subscription group -> intro offer used
	eligibilityErr map[string]error
	syncErr        error

	subscribers map[int]chan transaction.Envelope
	nextSub     int

	seq    int64
	closed bool
}

type pendingPurchase struct {
	product product.Product
	opts    store.PurchaseOptions
}

// Option configures a simulated store.
type Option func(*Store)

// WithProducts seeds the catalog.
func WithProducts(products ...product.Product) Option {
	return func(s *Store) {
		for _, p := range products {
			s.products[p.ID] = p
		}
	}
}

// New creates a simulated platform store with a fresh signing key.
func New(opts ...Option) *Store {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("memory: generate signing key: %v", err))
	}

	s := &Store{
		key:            key,
		products:       make(map[string]product.Product),
		entitled:       make(map[string]*verify.Claims),
		acked:          make(map[string]bool),
		pending:        make(map[string]pendingPurchase),
		outcomes:       make(map[string]store.PurchaseState),
		redeemedIntro:  make(map[string]bool),
		eligibilityErr: make(map[string]error),
		subscribers:    make(map[int]chan transaction.Envelope),
		seq:            2000000000,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// PublicKey returns the key envelopes are verified against.
func (s *Store) PublicKey() *ecdsa.PublicKey {
	return &s.key.PublicKey
}

// Verifier returns a JWS verifier trusting this store's signing key.
func (s *Store) Verifier() *verify.JWS {
	return verify.NewJWS(s.PublicKey(), verify.WithIssuer(Issuer))
}

// ──────────────────────────────────────────────────
// store.Store implementation
// ──────────────────────────────────────────────────

// FetchProducts returns catalog entries for the known IDs.
func (s *Store) FetchProducts(ctx context.Context, ids []string) ([]product.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storefront.ErrStoreClosed
	}

	result := make([]product.Product, 0, len(ids))
	for _, pid := range ids {
		if p, ok := s.products[pid]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

// Purchase simulates the payment sheet. The default outcome is approval;
// ScriptOutcome overrides the next outcome for a product.
func (s *Store) Purchase(ctx context.Context, p product.Product, opts store.PurchaseOptions) (store.PurchaseOutcome, error) {
	if err := ctx.Err(); err != nil {
		return store.PurchaseOutcome{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.PurchaseOutcome{}, storefront.ErrStoreClosed
	}
	if _, ok := s.products[p.ID]; !ok {
		return store.PurchaseOutcome{}, fmt.Errorf("memory: unknown product %q", p.ID)
	}

	state, scripted := s.outcomes[p.ID]
	if scripted {
		delete(s.outcomes, p.ID)
	} else {
		state = store.PurchaseApproved
	}

	switch state {
	case store.PurchaseApproved:
		claims := s.recordPurchaseLocked(p, opts)
		return store.PurchaseOutcome{State: state, Envelope: s.signLocked(claims)}, nil
	case store.PurchasePending:
		s.pending[p.ID] = pendingPurchase{product: p, opts: opts}
		return store.PurchaseOutcome{State: state}, nil
	default:
		return store.PurchaseOutcome{State: state}, nil
	}
}

// CurrentEntitlements signs and returns every ledger entry, including
// superseded ones the reconciler is expected to filter out.
func (s *Store) CurrentEntitlements(ctx context.Context) ([]transaction.Envelope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storefront.ErrStoreClosed
	}

	envs := make([]transaction.Envelope, 0, len(s.order))
	for _, txID := range s.order {
		envs = append(envs, s.signLocked(s.entitled[txID]))
	}
	return envs, nil
}

// TransactionUpdates registers a subscriber for live events.
func (s *Store) TransactionUpdates(ctx context.Context) <-chan transaction.Envelope {
	s.mu.Lock()
	ch := make(chan transaction.Envelope, 16)
	if s.closed {
		close(ch)
		s.mu.Unlock()
		return ch
	}
	subID := s.nextSub
	s.nextSub++
	s.subscribers[subID] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if sub, ok := s.subscribers[subID]; ok {
			delete(s.subscribers, subID)
			close(sub)
		}
		s.mu.Unlock()
	}()

	return ch
}

// Acknowledge marks the transaction finished. Idempotent.
func (s *Store) Acknowledge(ctx context.Context, transactionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storefront.ErrStoreClosed
	}
	s.acked[transactionID] = true
	return nil
}

// Sync simulates a forced ledger refresh; FailSync scripts a failure.
func (s *Store) Sync(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return storefront.ErrStoreClosed
	}
	return s.syncErr
}

// IntroOfferEligibility reports whether the intro offer is still
// redeemable: the product must carry one and its subscription group must
// not have redeemed one before.
func (s *Store) IntroOfferEligibility(ctx context.Context, productID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, storefront.ErrStoreClosed
	}
	if err, ok := s.eligibilityErr[productID]; ok {
		return false, err
	}

	p, ok := s.products[productID]
	if !ok || !p.HasIntroOffer() {
		return false, nil
	}
	return !s.redeemedIntro[p.SubscriptionGroupID], nil
}

// Ping reports whether the store is usable.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return storefront.ErrStoreClosed
	}
	return nil
}

// Close shuts the store and closes all update streams.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for subID, ch := range s.subscribers {
		delete(s.subscribers, subID)
		close(ch)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Admin / scripting helpers (test surface)
// ──────────────────────────────────────────────────

// ScriptOutcome sets the outcome of the next Purchase call for the product.
func (s *Store) ScriptOutcome(productID string, state store.PurchaseState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[productID] = state
}

// FailEligibility makes IntroOfferEligibility fail for the product.
func (s *Store) FailEligibility(productID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eligibilityErr[productID] = err
}

// FailSync makes Sync return err (nil restores success).
func (s *Store) FailSync(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncErr = err
}

// ResolvePending approves a previously pending purchase and pushes the
// resulting transaction onto the update stream, the way an ask-to-buy
// approval arrives.
func (s *Store) ResolvePending(productID string) error {
	s.mu.Lock()
	pp, ok := s.pending[productID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("memory: no pending purchase for %q", productID)
	}
	delete(s.pending, productID)
	claims := s.recordPurchaseLocked(pp.product, pp.opts)
	env := s.signLocked(claims)
	s.mu.Unlock()

	s.broadcast(env)
	return nil
}

// RevokeTransaction marks a ledger entry revoked at the given time and
// pushes the updated transaction onto the update stream.
func (s *Store) RevokeTransaction(transactionID string, at time.Time) error {
	s.mu.Lock()
	claims, ok := s.entitled[transactionID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("memory: unknown transaction %q", transactionID)
	}
	claims.RevocationDateMS = at.UnixMilli()
	if claims.RenewalState != "" {
		claims.RenewalState = string(transaction.RenewalRevoked)
	}
	env := s.signLocked(claims)
	s.mu.Unlock()

	s.broadcast(env)
	return nil
}

// ExpireSubscription flips a subscription entry to the expired renewal
// state, drops it from the entitlement view, and pushes the update.
func (s *Store) ExpireSubscription(transactionID string) error {
	s.mu.Lock()
	claims, ok := s.entitled[transactionID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("memory: unknown transaction %q", transactionID)
	}
	claims.RenewalState = string(transaction.RenewalExpired)
	claims.AutoRenewEnabled = false
	s.removeLocked(transactionID)
	env := s.signLocked(claims)
	s.mu.Unlock()

	s.broadcast(env)
	return nil
}

// PushUpdate delivers an arbitrary envelope to all subscribers. Useful
// for injecting malformed or foreign-signed events.
func (s *Store) PushUpdate(env transaction.Envelope) {
	s.broadcast(env)
}

// SignClaims signs a claim set with the store's key. Test helper for
// crafting custom envelopes.
func (s *Store) SignClaims(claims *verify.Claims) transaction.Envelope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signLocked(claims)
}

// Acknowledged reports whether the transaction was finished by a client.
func (s *Store) Acknowledged(transactionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.acked[transactionID]
}

// EntitledTransactionIDs returns the IDs currently in the ledger view,
// in insertion order.
func (s *Store) EntitledTransactionIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// ──────────────────────────────────────────────────
// Internals
// ──────────────────────────────────────────────────

// recordPurchaseLocked creates the claim set for an approved purchase and,
// for entitling kinds, inserts it into the ledger view. A new tier in a
// subscription group supersedes the group's previous entry immediately.
func (s *Store) recordPurchaseLocked(p product.Product, opts store.PurchaseOptions) *verify.Claims {
	s.seq++
	now := time.Now().UTC()

	claims := &verify.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   Issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
		TransactionID:         fmt.Sprintf("%d", s.seq),
		OriginalTransactionID: fmt.Sprintf("%d", s.seq),
		ProductID:             p.ID,
		ProductKind:           string(p.Kind),
		SubscriptionGroupID:   p.SubscriptionGroupID,
		PurchaseDateMS:        now.UnixMilli(),
	}
	if opts.AppAccountToken != uuid.Nil {
		claims.AppAccountToken = opts.AppAccountToken.String()
	}

	if p.Kind == product.KindConsumable {
		return claims
	}

	if p.IsSubscription() {
		claims.RenewalState = string(transaction.RenewalSubscribed)
		claims.AutoRenewEnabled = true
		expires := now.AddDate(0, 1, 0)
		if p.SubscriptionPeriod == product.PeriodYearly {
			expires = now.AddDate(1, 0, 0)
		}
		claims.ExpiresDateMS = expires.UnixMilli()

		// A new tier supersedes the group's previous live entry.
		for _, txID := range s.order {
			prev := s.entitled[txID]
			if prev.SubscriptionGroupID == p.SubscriptionGroupID && !prev.IsUpgraded && prev.TransactionID != claims.TransactionID {
				prev.IsUpgraded = true
			}
		}
		if p.HasIntroOffer() {
			s.redeemedIntro[p.SubscriptionGroupID] = true
		}
	}

	s.entitled[claims.TransactionID] = claims
	s.order = append(s.order, claims.TransactionID)
	return claims
}

func (s *Store) removeLocked(transactionID string) {
	delete(s.entitled, transactionID)
	for i, txID := range s.order {
		if txID == transactionID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Store) signLocked(claims *verify.Claims) transaction.Envelope {
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	jws, err := token.SignedString(s.key)
	if err != nil {
		panic(fmt.Sprintf("memory: sign envelope: %v", err))
	}
	return transaction.Envelope{JWS: jws}
}

func (s *Store) broadcast(env transaction.Envelope) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- env:
		default:
			// Slow subscriber: drop rather than block the ledger.
		}
	}
}

// ──────────────────────────────────────────────────
// Demo catalog
// ──────────────────────────────────────────────────

// DemoProducts returns the four-product demo catalog: a consumable coin
// pack, a lifetime unlock, and two mutually-exclusive subscription tiers
// sharing the "premium" group.
func DemoProducts() []product.Product {
	weekTrial := &product.Offer{
		Type:        product.OfferIntroductory,
		PaymentMode: product.PaymentFreeTrial,
		PeriodDays:  7,
	}

	return []product.Product{
		{
			ID:          "coins.100",
			DisplayName: "100 Coins",
			Kind:        product.KindConsumable,
			Price:       types.USD(99),
		},
		{
			ID:          "premium.lifetime",
			DisplayName: "Premium Lifetime",
			Kind:        product.KindNonConsumable,
			Price:       types.USD(2499),
		},
		{
			ID:                  "premium.monthly",
			DisplayName:         "Premium Monthly",
			Kind:                product.KindAutoRenewable,
			Price:               types.USD(599),
			SubscriptionGroupID: "premium",
			SubscriptionPeriod:  product.PeriodMonthly,
			IntroductoryOffer:   weekTrial,
		},
		{
			ID:                  "premium.yearly",
			DisplayName:         "Premium Yearly",
			Kind:                product.KindAutoRenewable,
			Price:               types.USD(4999),
			SubscriptionGroupID: "premium",
			SubscriptionPeriod:  product.PeriodYearly,
			IntroductoryOffer:   weekTrial,
		},
	}
}
