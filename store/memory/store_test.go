package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	storefront "github.com/xraph/storefront"
	"github.com/xraph/storefront/product"
	"github.com/xraph/storefront/store"
	"github.com/xraph/storefront/transaction"
)

func newDemoStore() *Store {
	return New(WithProducts(DemoProducts()...))
}

func TestFetchProducts(t *testing.T) {
	s := newDemoStore()
	defer s.Close()
	ctx := context.Background()

	products, err := s.FetchProducts(ctx, []string{"coins.100", "premium.lifetime", "does.not.exist"})
	if err != nil {
		t.Fatalf("FetchProducts failed: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products (unknown IDs omitted), got %d", len(products))
	}
}

func TestPurchaseApprovedSignsVerifiableEnvelope(t *testing.T) {
	s := newDemoStore()
	defer s.Close()
	ctx := context.Background()

	p, _ := s.FetchProducts(ctx, []string{"premium.lifetime"})
	outcome, err := s.Purchase(ctx, p[0], store.PurchaseOptions{})
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}
	if outcome.State != store.PurchaseApproved {
		t.Fatalf("expected approved, got %s", outcome.State)
	}

	tx, err := s.Verifier().Verify(ctx, outcome.Envelope)
	if err != nil {
		t.Fatalf("envelope should verify against the store's own key: %v", err)
	}
	if tx.ProductID != "premium.lifetime" {
		t.Errorf("ProductID = %q, want premium.lifetime", tx.ProductID)
	}
	if tx.Kind != product.KindNonConsumable {
		t.Errorf("Kind = %q, want non_consumable", tx.Kind)
	}
}

func TestConsumablePurchaseLeavesNoLedgerEntry(t *testing.T) {
	s := newDemoStore()
	defer s.Close()
	ctx := context.Background()

	p, _ := s.FetchProducts(ctx, []string{"coins.100"})
	if _, err := s.Purchase(ctx, p[0], store.PurchaseOptions{}); err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}

	envs, err := s.CurrentEntitlements(ctx)
	if err != nil {
		t.Fatalf("CurrentEntitlements failed: %v", err)
	}
	if len(envs) != 0 {
		t.Fatalf("consumables must never appear in the entitlement view, got %d entries", len(envs))
	}
}

func TestSubscriptionUpgradeSupersedesGroupSibling(t *testing.T) {
	s := newDemoStore()
	defer s.Close()
	ctx := context.Background()

	products, _ := s.FetchProducts(ctx, []string{"premium.monthly", "premium.yearly"})
	monthly, yearly := products[0], products[1]

	if _, err := s.Purchase(ctx, monthly, store.PurchaseOptions{}); err != nil {
		t.Fatalf("monthly purchase failed: %v", err)
	}
	if _, err := s.Purchase(ctx, yearly, store.PurchaseOptions{}); err != nil {
		t.Fatalf("yearly purchase failed: %v", err)
	}

	envs, _ := s.CurrentEntitlements(ctx)
	if len(envs) != 2 {
		t.Fatalf("superseded entries stay in the view, got %d entries", len(envs))
	}

	var upgraded, live int
	for _, env := range envs {
		tx, err := s.Verifier().Verify(ctx, env)
		if err != nil {
			t.Fatalf("verify ledger entry: %v", err)
		}
		if tx.IsUpgraded() {
			upgraded++
			if tx.ProductID != "premium.monthly" {
				t.Errorf("superseded entry is %q, want premium.monthly", tx.ProductID)
			}
		} else {
			live++
			if tx.ProductID != "premium.yearly" {
				t.Errorf("live entry is %q, want premium.yearly", tx.ProductID)
			}
		}
	}
	if upgraded != 1 || live != 1 {
		t.Errorf("want 1 upgraded + 1 live entry, got %d + %d", upgraded, live)
	}
}

func TestScriptedOutcomes(t *testing.T) {
	s := newDemoStore()
	defer s.Close()
	ctx := context.Background()

	p, _ := s.FetchProducts(ctx, []string{"premium.lifetime"})

	s.ScriptOutcome("premium.lifetime", store.PurchaseCancelled)
	outcome, err := s.Purchase(ctx, p[0], store.PurchaseOptions{})
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}
	if outcome.State != store.PurchaseCancelled {
		t.Errorf("scripted outcome = %s, want cancelled", outcome.State)
	}
	if !outcome.Envelope.IsZero() {
		t.Error("cancelled outcome must not carry an envelope")
	}

	// Scripts are one-shot; the next purchase approves.
	outcome, _ = s.Purchase(ctx, p[0], store.PurchaseOptions{})
	if outcome.State != store.PurchaseApproved {
		t.Errorf("follow-up outcome = %s, want approved", outcome.State)
	}
}

func TestPendingPurchaseResolvesOntoStream(t *testing.T) {
	s := newDemoStore()
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := s.TransactionUpdates(ctx)

	p, _ := s.FetchProducts(ctx, []string{"premium.lifetime"})
	s.ScriptOutcome("premium.lifetime", store.PurchasePending)

	outcome, err := s.Purchase(ctx, p[0], store.PurchaseOptions{})
	if err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}
	if outcome.State != store.PurchasePending {
		t.Fatalf("outcome = %s, want pending", outcome.State)
	}

	if err := s.ResolvePending("premium.lifetime"); err != nil {
		t.Fatalf("ResolvePending failed: %v", err)
	}

	select {
	case env := <-updates:
		tx, err := s.Verifier().Verify(ctx, env)
		if err != nil {
			t.Fatalf("verify resolved transaction: %v", err)
		}
		if tx.ProductID != "premium.lifetime" {
			t.Errorf("resolved ProductID = %q", tx.ProductID)
		}
	case <-time.After(time.Second):
		t.Fatal("no update delivered for resolved pending purchase")
	}

	if err := s.ResolvePending("premium.lifetime"); err == nil {
		t.Error("resolving twice should fail")
	}
}

func TestRevokeTransaction(t *testing.T) {
	s := newDemoStore()
	defer s.Close()
	ctx := context.Background()

	p, _ := s.FetchProducts(ctx, []string{"premium.lifetime"})
	outcome, _ := s.Purchase(ctx, p[0], store.PurchaseOptions{})
	tx, _ := s.Verifier().Verify(ctx, outcome.Envelope)

	at := time.Now().Add(-time.Minute)
	if err := s.RevokeTransaction(tx.ID, at); err != nil {
		t.Fatalf("RevokeTransaction failed: %v", err)
	}

	envs, _ := s.CurrentEntitlements(ctx)
	if len(envs) != 1 {
		t.Fatalf("revoked entry should stay in the view, got %d", len(envs))
	}
	got, err := s.Verifier().Verify(ctx, envs[0])
	if err != nil {
		t.Fatalf("verify revoked entry: %v", err)
	}
	if !got.IsRevoked(time.Now()) {
		t.Error("ledger entry should report revoked")
	}
}

func TestExpireSubscriptionDropsFromView(t *testing.T) {
	s := newDemoStore()
	defer s.Close()
	ctx := context.Background()

	p, _ := s.FetchProducts(ctx, []string{"premium.monthly"})
	outcome, _ := s.Purchase(ctx, p[0], store.PurchaseOptions{})
	tx, _ := s.Verifier().Verify(ctx, outcome.Envelope)

	if err := s.ExpireSubscription(tx.ID); err != nil {
		t.Fatalf("ExpireSubscription failed: %v", err)
	}

	envs, _ := s.CurrentEntitlements(ctx)
	if len(envs) != 0 {
		t.Fatalf("expired subscription should leave the view, got %d entries", len(envs))
	}
}

func TestIntroOfferEligibility(t *testing.T) {
	s := newDemoStore()
	defer s.Close()
	ctx := context.Background()

	eligible, err := s.IntroOfferEligibility(ctx, "premium.monthly")
	if err != nil {
		t.Fatalf("IntroOfferEligibility failed: %v", err)
	}
	if !eligible {
		t.Error("fresh user should be eligible")
	}

	// No intro offer on the lifetime unlock.
	eligible, _ = s.IntroOfferEligibility(ctx, "premium.lifetime")
	if eligible {
		t.Error("product without an intro offer is never eligible")
	}

	// Redeeming one offer burns the whole group.
	p, _ := s.FetchProducts(ctx, []string{"premium.monthly"})
	if _, err := s.Purchase(ctx, p[0], store.PurchaseOptions{}); err != nil {
		t.Fatalf("Purchase failed: %v", err)
	}
	eligible, _ = s.IntroOfferEligibility(ctx, "premium.yearly")
	if eligible {
		t.Error("group sibling should be ineligible after redemption")
	}

	// Scripted failure.
	boom := errors.New("network down")
	s.FailEligibility("premium.yearly", boom)
	if _, err := s.IntroOfferEligibility(ctx, "premium.yearly"); !errors.Is(err, boom) {
		t.Errorf("expected scripted error, got %v", err)
	}
}

func TestAcknowledgeIsIdempotent(t *testing.T) {
	s := newDemoStore()
	defer s.Close()
	ctx := context.Background()

	if err := s.Acknowledge(ctx, "12345"); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}
	if err := s.Acknowledge(ctx, "12345"); err != nil {
		t.Fatalf("second Acknowledge failed: %v", err)
	}
	if !s.Acknowledged("12345") {
		t.Error("transaction should be marked acknowledged")
	}
}

func TestClosedStoreRejectsCalls(t *testing.T) {
	s := newDemoStore()
	ctx := context.Background()

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if _, err := s.FetchProducts(ctx, []string{"coins.100"}); !errors.Is(err, storefront.ErrStoreClosed) {
		t.Errorf("FetchProducts after Close = %v, want ErrStoreClosed", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, storefront.ErrStoreClosed) {
		t.Errorf("Ping after Close = %v, want ErrStoreClosed", err)
	}

	ch := s.TransactionUpdates(ctx)
	if _, ok := <-ch; ok {
		t.Error("update stream from a closed store should be closed")
	}
}

func TestCloseShutsDownSubscribers(t *testing.T) {
	s := newDemoStore()
	ctx := context.Background()

	updates := s.TransactionUpdates(ctx)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case _, ok := <-updates:
		if ok {
			t.Error("expected closed channel, got an event")
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber channel not closed on store Close")
	}
}

func TestPushUpdateDeliversRawEnvelope(t *testing.T) {
	s := newDemoStore()
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := s.TransactionUpdates(ctx)
	s.PushUpdate(transaction.Envelope{JWS: "not-a-jws"})

	select {
	case env := <-updates:
		if env.JWS != "not-a-jws" {
			t.Errorf("got %q", env.JWS)
		}
	case <-time.After(time.Second):
		t.Fatal("pushed update not delivered")
	}
}
