package storefront

import (
	"github.com/xraph/storefront/entitlement"
	"github.com/xraph/storefront/types"
)

// Re-export common types for convenience so users don't have to import types package.

// Money is re-exported from types package.
type Money = types.Money

// Snapshot is re-exported from entitlement package.
type Snapshot = entitlement.Snapshot

// Re-export Money constructors
var (
	USD  = types.USD
	EUR  = types.EUR
	GBP  = types.GBP
	JPY  = types.JPY
	CNY  = types.CNY
	Zero = types.Zero
)
