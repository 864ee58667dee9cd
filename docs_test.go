package storefront_test

import (
	"context"
	"log"
	"log/slog"
	"testing"

	storefront "github.com/xraph/storefront"
	"github.com/xraph/storefront/store/memory"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from the package docs
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create a store (the in-memory simulator for demos; wrap a real
		// platform SDK in production)
		sim := memory.New(memory.WithProducts(memory.DemoProducts()...))

		// Initialize the engine
		engine := storefront.New(sim, sim.Verifier(),
			storefront.WithLogger(slog.Default()),
			storefront.WithProductIDs("coins.100", "premium.lifetime",
				"premium.monthly", "premium.yearly"),
		)

		// Start the engine (launches the transaction listener)
		ctx := context.Background()
		if err := engine.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer engine.Stop()

		// Load the catalog, cheapest first
		products, err := engine.LoadProducts(ctx)
		if err != nil {
			t.Fatal(err)
		}
		for _, p := range products {
			log.Printf("%s: %s\n", p.DisplayName, p.DisplayPrice())
		}

		// Drive a purchase and branch on the tagged result
		result := engine.Purchase(ctx, products[0])
		switch result.Status {
		case storefront.PurchaseSuccess:
			log.Printf("purchased %s\n", result.ProductID)
		case storefront.PurchaseCancelled, storefront.PurchasePending:
			log.Printf("%s\n", result.Message)
		case storefront.PurchaseFailure:
			t.Fatalf("purchase failed: %v", result.Err)
		}

		// Read the published entitlement view
		snap := engine.Entitlements()
		log.Printf("coins=%d status=%q owned=%v\n",
			snap.Coins, snap.SubscriptionStatus, snap.Products)

		// Restore purchases on a reinstalled device
		if err := engine.Restore(ctx); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("MoneyExample", func(t *testing.T) {
		price := storefront.USD(599) // $5.99
		if price.String() != "$5.99" {
			t.Fatalf("unexpected display price: %s", price.String())
		}

		yearly := storefront.USD(4999)
		if !price.LessThan(yearly) {
			t.Fatal("monthly should be cheaper than yearly")
		}
	})
}
