// Package extension provides the Forge extension adapter for Storefront.
//
// It implements the forge.Extension interface to integrate Storefront
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.storefront" or
// "storefront" keys.
package extension

import (
	"context"
	"errors"
	"strings"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	storefront "github.com/xraph/storefront"
	"github.com/xraph/storefront/store"
	"github.com/xraph/storefront/store/memory"
	"github.com/xraph/storefront/verify"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "storefront"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Client-side in-app-purchase entitlement engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Storefront as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *storefront.Engine
	store      store.Store
	verifier   verify.Verifier
	engineOpts []storefront.Option
}

// New creates a new Storefront Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Storefront instance.
// This is nil until Register is called.
func (e *Extension) Engine() *storefront.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use the in-memory simulator if no store was provided
	// programmatically. It signs its own envelopes, so it also supplies
	// the verifier.
	if e.store == nil {
		sim := memory.New(memory.WithProducts(memory.DemoProducts()...))
		e.store = sim
		if e.verifier == nil {
			e.verifier = sim.Verifier()
		}
	}
	if e.verifier == nil {
		return errors.New("storefront: a verifier is required when providing a custom store")
	}

	eng := storefront.New(e.store, e.verifier, e.buildEngineOpts()...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*storefront.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("storefront: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	if !e.config.DisableAutoload {
		if _, err := e.engine.LoadProducts(ctx); err != nil {
			return err
		}
		if err := e.engine.Refresh(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("storefront: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs storefront.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []storefront.Option {
	opts := make([]storefront.Option, 0, len(e.engineOpts)+2)

	if len(e.config.ProductIDs) > 0 {
		opts = append(opts, storefront.WithProductIDs(e.config.ProductIDs...))
	}
	if e.config.CoinGrant > 0 {
		opts = append(opts, storefront.WithCoinGrant(e.config.CoinGrant))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("storefront: configuration is required but not found in config files; " +
				"ensure 'extensions.storefront' or 'storefront' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("storefront: configuration loaded",
		forge.F("product_ids", strings.Join(e.config.ProductIDs, ",")),
		forge.F("coin_grant", e.config.CoinGrant),
		forge.F("disable_autoload", e.config.DisableAutoload),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.storefront" first (namespaced pattern).
	if cm.IsSet("extensions.storefront") {
		if err := cm.Bind("extensions.storefront", &cfg); err == nil {
			e.Logger().Debug("storefront: loaded config from file",
				forge.F("key", "extensions.storefront"),
			)
			return cfg, true
		}
		e.Logger().Warn("storefront: failed to bind extensions.storefront config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "storefront" key.
	if cm.IsSet("storefront") {
		if err := cm.Bind("storefront", &cfg); err == nil {
			e.Logger().Debug("storefront: loaded config from file",
				forge.F("key", "storefront"),
			)
			return cfg, true
		}
		e.Logger().Warn("storefront: failed to bind storefront config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.CoinGrant == 0 {
		cfg.CoinGrant = defaults.CoinGrant
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableAutoload {
		yamlConfig.DisableAutoload = true
	}

	// Slice/int fields: YAML takes precedence, programmatic fills gaps.
	if len(yamlConfig.ProductIDs) == 0 && len(programmaticConfig.ProductIDs) > 0 {
		yamlConfig.ProductIDs = programmaticConfig.ProductIDs
	}
	if yamlConfig.CoinGrant == 0 && programmaticConfig.CoinGrant != 0 {
		yamlConfig.CoinGrant = programmaticConfig.CoinGrant
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
