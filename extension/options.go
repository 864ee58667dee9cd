package extension

import (
	storefront "github.com/xraph/storefront"
	"github.com/xraph/storefront/plugin"
	"github.com/xraph/storefront/store"
	"github.com/xraph/storefront/verify"
)

// Option configures the Storefront Forge extension.
type Option func(*Extension)

// WithStore sets the platform store for the engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithVerifier sets the verification gate for the engine.
func WithVerifier(v verify.Verifier) Option {
	return func(e *Extension) {
		e.verifier = v
	}
}

// WithEngineOption passes a storefront.Option through to the underlying engine.
func WithEngineOption(opt storefront.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a storefront plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, storefront.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithProductIDs sets the catalog product IDs loaded on start.
func WithProductIDs(ids ...string) Option {
	return func(e *Extension) { e.config.ProductIDs = ids }
}

// WithCoinGrant sets the coin amount granted per unique consumable
// transaction.
func WithCoinGrant(amount int64) Option {
	return func(e *Extension) { e.config.CoinGrant = amount }
}

// WithDisableAutoload prevents the catalog load and entitlement refresh
// on start.
func WithDisableAutoload() Option {
	return func(e *Extension) { e.config.DisableAutoload = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
