// Package config defines all configuration for the trading pipeline.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive or deployment-specific fields overridable via GB_* environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Sports   SportsConfig   `mapstructure:"sports"`
	Trading  TradingConfig  `mapstructure:"trading"`
	Risk     RiskConfig     `mapstructure:"risk"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Status   StatusConfig   `mapstructure:"status"`
}

// demoBaseURL and demoWSURL are used when Demo is set and BaseURL/WSURL are
// left blank, mirroring the original settings loader's demo-flag branch.
const (
	demoBaseURL = "https://demo-api.exchange.example/trade-api/v2"
	demoWSURL   = "wss://demo-api.exchange.example/trade-api/ws/v2"
	prodBaseURL = "https://api.exchange.example/trade-api/v2"
	prodWSURL   = "wss://api.exchange.example/trade-api/ws/v2"
)

// ExchangeConfig holds the signed-header identity and connection settings
// for the exchange REST/WS surface.
type ExchangeConfig struct {
	AccessKeyID         string  `mapstructure:"access_key_id"`
	PrivateKeyPath      string  `mapstructure:"private_key_path"`
	BaseURL             string  `mapstructure:"base_url"`
	WSURL               string  `mapstructure:"ws_url"`
	Demo                bool    `mapstructure:"demo"`
	KeepaliveIntervalS  float64 `mapstructure:"keepalive_interval_s"`
}

// SportsConfig holds per-provider credentials and polling cadence for the
// sports feed clients.
type SportsConfig struct {
	SportsDataAPIKeyNCAA    string  `mapstructure:"sportsdata_api_key_ncaa"`
	SportsDataAPIKeySoccer  string  `mapstructure:"sportsdata_api_key_soccer"`
	SportsDataBaseURLNCAA   string  `mapstructure:"sportsdata_base_url_ncaa"`
	SportsDataBaseURLSoccer string  `mapstructure:"sportsdata_base_url_soccer"`
	PollIntervalS           float64 `mapstructure:"poll_interval_s"`
}

// TradingConfig tunes Brain's edge/signal sizing arithmetic.
type TradingConfig struct {
	MinEdgeCents          int `mapstructure:"min_edge_cents"`
	MaxSlippageCents      int `mapstructure:"max_slippage_cents"`
	MaxSpendPerTradeCents int `mapstructure:"max_spend_per_trade_cents"`
	DefaultQuantity       int `mapstructure:"default_quantity"`
	MaxQuantity           int `mapstructure:"max_quantity"`
}

// RiskConfig sets the hard limits Shield enforces.
type RiskConfig struct {
	MaxDailyLossCents    int64 `mapstructure:"max_daily_loss_cents"`
	MaxOpenExposureCents int64 `mapstructure:"max_open_exposure_cents"`
	MaxTradesPerGame     int   `mapstructure:"max_trades_per_game"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuditConfig points at the fill-report audit log directory.
type AuditConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// StatusConfig controls the optional read-only status HTTP surface.
type StatusConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("exchange.keepalive_interval_s", 30.0)
	v.SetDefault("sports.poll_interval_s", 0.75)
	v.SetDefault("trading.min_edge_cents", 3)
	v.SetDefault("trading.max_slippage_cents", 2)
	v.SetDefault("trading.max_spend_per_trade_cents", 2000)
	v.SetDefault("trading.default_quantity", 10)
	v.SetDefault("trading.max_quantity", 50)
	v.SetDefault("risk.max_daily_loss_cents", 10000)
	v.SetDefault("risk.max_open_exposure_cents", 50000)
	v.SetDefault("risk.max_trades_per_game", 5)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("audit.data_dir", "data/audit")
	v.SetDefault("status.enabled", true)
	v.SetDefault("status.port", 8090)
}

// Load reads config from a YAML file with GB_*-prefixed env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("GB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	defaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Promote sensitive/deployment-specific fields from the environment
	// explicitly: nested-struct env overrides aren't always picked up by
	// viper's automatic binding without an explicit key registration.
	if v := os.Getenv("GB_ACCESS_KEY_ID"); v != "" {
		cfg.Exchange.AccessKeyID = v
	}
	if v := os.Getenv("GB_PRIVATE_KEY_PATH"); v != "" {
		cfg.Exchange.PrivateKeyPath = v
	}
	if v := os.Getenv("GB_SPORTSDATA_API_KEY_NCAA"); v != "" {
		cfg.Sports.SportsDataAPIKeyNCAA = v
	}
	if v := os.Getenv("GB_SPORTSDATA_API_KEY_SOCCER"); v != "" {
		cfg.Sports.SportsDataAPIKeySoccer = v
	}
	if v := os.Getenv("GB_DEMO"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Exchange.Demo = b
		}
	}

	if cfg.Exchange.BaseURL == "" {
		if cfg.Exchange.Demo {
			cfg.Exchange.BaseURL = demoBaseURL
		} else {
			cfg.Exchange.BaseURL = prodBaseURL
		}
	}
	if cfg.Exchange.WSURL == "" {
		if cfg.Exchange.Demo {
			cfg.Exchange.WSURL = demoWSURL
		} else {
			cfg.Exchange.WSURL = prodWSURL
		}
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Exchange.AccessKeyID == "" {
		return fmt.Errorf("exchange.access_key_id is required (set GB_ACCESS_KEY_ID)")
	}
	if c.Exchange.PrivateKeyPath == "" {
		return fmt.Errorf("exchange.private_key_path is required (set GB_PRIVATE_KEY_PATH)")
	}
	if c.Exchange.BaseURL == "" {
		return fmt.Errorf("exchange.base_url is required")
	}
	if c.Exchange.WSURL == "" {
		return fmt.Errorf("exchange.ws_url is required")
	}
	if c.Trading.MinEdgeCents < 0 {
		return fmt.Errorf("trading.min_edge_cents must be >= 0")
	}
	if c.Trading.MaxQuantity <= 0 {
		return fmt.Errorf("trading.max_quantity must be > 0")
	}
	if c.Trading.MaxSpendPerTradeCents <= 0 {
		return fmt.Errorf("trading.max_spend_per_trade_cents must be > 0")
	}
	if c.Risk.MaxDailyLossCents <= 0 {
		return fmt.Errorf("risk.max_daily_loss_cents must be > 0")
	}
	if c.Risk.MaxOpenExposureCents <= 0 {
		return fmt.Errorf("risk.max_open_exposure_cents must be > 0")
	}
	if c.Risk.MaxTradesPerGame <= 0 {
		return fmt.Errorf("risk.max_trades_per_game must be > 0")
	}
	return nil
}
