// Package storefront provides a client-side in-app-purchase entitlement
// engine for Go applications.
//
// Storefront is designed as a library, not a service. Import it directly into
// your application to load a product catalog, drive purchase flows, and keep a
// local entitlement view reconciled against the platform store's purchase
// ledger. It provides:
//
//   - A verification gate: every signed transaction envelope is checked
//     (ES256 JWS) before it can affect any state
//   - An entitlement reconciler that is idempotent under replay, tolerant of
//     out-of-order delivery, and correct under subscription-group mutual
//     exclusivity
//   - A purchase flow controller with tagged outcomes (success, cancelled,
//     pending, failure) and acknowledge-after-reconcile ordering
//   - A supervised transaction listener for renewals, refunds, and
//     out-of-app purchases
//   - Intro-offer eligibility caching per catalog load
//
// # Quick Start
//
// Create an engine with a platform store and a verifier:
//
//	import (
//	    "github.com/xraph/storefront"
//	    "github.com/xraph/storefront/store/memory"
//	)
//
//	// The in-memory simulator signs its own envelopes; production stores
//	// wrap a real platform SDK.
//	sim := memory.New(memory.WithProducts(memory.DemoProducts()...))
//
//	engine := storefront.New(sim, sim.Verifier(),
//	    storefront.WithProductIDs("coins.100", "premium.lifetime",
//	        "premium.monthly", "premium.yearly"),
//	)
//
//	// Start the engine (launches the transaction listener)
//	if err := engine.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Stop()
//
// # Core Concepts
//
// Load the catalog and present products, cheapest first:
//
//	products, err := engine.LoadProducts(ctx)
//
// Drive a purchase and branch on the tagged result:
//
//	result := engine.Purchase(ctx, products[0])
//	switch result.Status {
//	case storefront.PurchaseSuccess:
//	    // entitlements already reflect the purchase
//	case storefront.PurchasePending:
//	    // resolution arrives later on the update stream
//	}
//
// Read the published entitlement view at any time:
//
//	snap := engine.Entitlements()
//	if snap.Owns("premium.lifetime") {
//	    // unlock premium
//	}
//
// # Trust Model
//
// The engine never trusts raw envelopes. The store hands back opaque JWS
// payloads; the configured verify.Verifier is the only component that turns
// them into transactions, and anything that fails the gate is logged and
// dropped. Entitlements are derived exclusively from full pulls of the
// platform ledger, so a forged or replayed event can at worst trigger a
// harmless refresh.
//
// All monetary values use integer arithmetic via the Money type, which
// represents amounts in the smallest currency unit (cents for USD, yen for
// JPY).
package storefront
