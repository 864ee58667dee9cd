package extension

// Config holds the Storefront extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.storefront" or "storefront" keys).
type Config struct {
	// ProductIDs is the catalog the engine loads on start.
	ProductIDs []string `json:"product_ids" mapstructure:"product_ids" yaml:"product_ids"`

	// CoinGrant is the coin amount granted per unique consumable
	// transaction (default: 100).
	CoinGrant int64 `json:"coin_grant" mapstructure:"coin_grant" yaml:"coin_grant"`

	// DisableAutoload prevents the catalog load and entitlement refresh
	// on start.
	DisableAutoload bool `json:"disable_autoload" mapstructure:"disable_autoload" yaml:"disable_autoload"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CoinGrant: 100,
	}
}
