package entitlement

import "slices"

// StatusNone is the neutral subscription status published when the
// entitlement set is empty.
const StatusNone = "No active subscription"

// Snapshot is the immutable published view of what the user currently
// owns. The engine owns the mutable state; every reader gets a copy.
type Snapshot struct {
	// Products holds the owned non-consumable and active subscription
	// product IDs, sorted ascending.
	Products []string `json:"products"`
	// Coins is the consumable currency balance for the session.
	Coins int64 `json:"coins"`
	// SubscriptionStatus is the display string for the active
	// subscription, or StatusNone.
	SubscriptionStatus string `json:"subscription_status"`
}

// Owns reports whether the snapshot contains the product.
func (s Snapshot) Owns(productID string) bool {
	_, found := slices.BinarySearch(s.Products, productID)
	return found
}

// IsEmpty reports whether no products are owned.
func (s Snapshot) IsEmpty() bool {
	return len(s.Products) == 0
}
