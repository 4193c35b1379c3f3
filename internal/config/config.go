package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"sonic-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App             AppConfig          `mapstructure:"app"`
	Logging         logging.Config     `mapstructure:"logging"`
	Database        DatabaseConfig     `mapstructure:"database"`
	Monitor         MonitorConfig      `mapstructure:"monitor"`
	AlertRanges     AlertRangesConfig  `mapstructure:"alert_ranges"`
	Notification    NotificationConfig `mapstructure:"notification_config"`
	System          SystemConfig       `mapstructure:"system_config"`
	APIs            APIConfig          `mapstructure:"api_config"`
	Prices          PriceConfig        `mapstructure:"price_config"`
	CooldownSeconds int                `mapstructure:"alert_cooldown_seconds"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// MonitorConfig governs the two periodic loops.
type MonitorConfig struct {
	CheckInterval   time.Duration `mapstructure:"check_interval"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	AlignToInterval bool          `mapstructure:"align_to_interval"`
}

// AlertRangesConfig holds zone boundaries per alert family.
type AlertRangesConfig struct {
	TravelPercentLiquidRanges TravelRanges `mapstructure:"travel_percent_liquid_ranges"`
}

// TravelRanges are negative boundaries; High is the most severe (most
// negative). A nil boundary leaves that tier unconfigured.
type TravelRanges struct {
	Low    *float64 `mapstructure:"low"`
	Medium *float64 `mapstructure:"medium"`
	High   *float64 `mapstructure:"high"`
}

// NotificationConfig routes alert delivery.
type NotificationConfig struct {
	Email EmailConfig `mapstructure:"email"`
	SMS   SMSConfig   `mapstructure:"sms"`
}

// EmailConfig describes the SMTP account used for all outbound mail.
type EmailConfig struct {
	SMTPServer     string `mapstructure:"smtp_server"`
	SMTPPort       int    `mapstructure:"smtp_port"`
	SMTPUser       string `mapstructure:"smtp_user"`
	SMTPPassword   string `mapstructure:"smtp_password"`
	RecipientEmail string `mapstructure:"recipient_email"`
}

// SMSConfig describes the email-to-SMS gateway target.
type SMSConfig struct {
	CarrierGateway  string `mapstructure:"carrier_gateway"`
	RecipientNumber string `mapstructure:"recipient_number"`
}

// SystemConfig holds process-wide toggles.
type SystemConfig struct {
	AlertMonitorEnabled bool `mapstructure:"alert_monitor_enabled"`
}

// APIConfig enables price sources. Values are "ENABLE" or "DISABLE".
type APIConfig struct {
	CoinGeckoEnabled     string `mapstructure:"coingecko_enabled"`
	CoinPaprikaEnabled   string `mapstructure:"coinpaprika_enabled"`
	BinanceEnabled       string `mapstructure:"binance_enabled"`
	CoinMarketCapEnabled string `mapstructure:"coinmarketcap_enabled"`
	ChainlinkEnabled     string `mapstructure:"chainlink_enabled"`
}

// Enabled reports whether a source flag is set to ENABLE.
func Enabled(flag string) bool {
	return strings.EqualFold(strings.TrimSpace(flag), "ENABLE")
}

// PriceConfig parameterises the aggregation cycle.
type PriceConfig struct {
	Assets          []string          `mapstructure:"assets"`
	Currency        string            `mapstructure:"currency"`
	CMCAPIKey       string            `mapstructure:"cmc_api_key"`
	RequestTimeout  time.Duration     `mapstructure:"request_timeout"`
	ChainlinkRPCURL string            `mapstructure:"chainlink_rpc_url"`
	ChainlinkFeeds  map[string]string `mapstructure:"chainlink_feeds"`
}

// Cooldown returns the alert cooldown as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SONICWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "sonicwatch")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("monitor.check_interval", "60s")
	v.SetDefault("monitor.refresh_interval", "2m")
	v.SetDefault("monitor.startup_delay", "0s")
	v.SetDefault("monitor.align_to_interval", false)

	v.SetDefault("alert_cooldown_seconds", 900)
	v.SetDefault("system_config.alert_monitor_enabled", true)

	v.SetDefault("api_config.coingecko_enabled", "ENABLE")
	v.SetDefault("api_config.coinpaprika_enabled", "DISABLE")
	v.SetDefault("api_config.binance_enabled", "DISABLE")
	v.SetDefault("api_config.coinmarketcap_enabled", "DISABLE")
	v.SetDefault("api_config.chainlink_enabled", "DISABLE")

	v.SetDefault("price_config.assets", []string{"BTC", "ETH"})
	v.SetDefault("price_config.currency", "USD")
	v.SetDefault("price_config.request_timeout", "10s")

	v.SetDefault("notification_config.email.smtp_port", 587)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.migrations_path", "migrations")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Monitor.CheckInterval <= 0 {
		return fmt.Errorf("monitor.check_interval must be greater than zero")
	}
	if c.Monitor.RefreshInterval <= 0 {
		return fmt.Errorf("monitor.refresh_interval must be greater than zero")
	}
	if c.CooldownSeconds < 0 {
		return fmt.Errorf("alert_cooldown_seconds cannot be negative")
	}
	if len(c.Prices.Assets) == 0 {
		return fmt.Errorf("price_config.assets must list at least one symbol")
	}
	if err := c.AlertRanges.TravelPercentLiquidRanges.validate(); err != nil {
		return err
	}
	if Enabled(c.APIs.CoinMarketCapEnabled) && c.Prices.CMCAPIKey == "" {
		return fmt.Errorf("price_config.cmc_api_key required when coinmarketcap is enabled")
	}
	if Enabled(c.APIs.ChainlinkEnabled) {
		if c.Prices.ChainlinkRPCURL == "" {
			return fmt.Errorf("price_config.chainlink_rpc_url required when chainlink is enabled")
		}
		if len(c.Prices.ChainlinkFeeds) == 0 {
			return fmt.Errorf("price_config.chainlink_feeds required when chainlink is enabled")
		}
	}
	if c.Notification.Email.SMTPServer != "" && c.Notification.Email.SMTPPort <= 0 {
		return fmt.Errorf("notification_config.email.smtp_port must be greater than zero")
	}
	return nil
}

func (r TravelRanges) validate() error {
	check := func(name string, v *float64) error {
		if v != nil && *v >= 0 {
			return fmt.Errorf("alert_ranges.travel_percent_liquid_ranges.%s must be negative", name)
		}
		return nil
	}
	if err := check("low", r.Low); err != nil {
		return err
	}
	if err := check("medium", r.Medium); err != nil {
		return err
	}
	if err := check("high", r.High); err != nil {
		return err
	}
	if r.Medium != nil && r.Low != nil && *r.Medium > *r.Low {
		return fmt.Errorf("alert_ranges: medium boundary must not be above low")
	}
	if r.High != nil && r.Medium != nil && *r.High > *r.Medium {
		return fmt.Errorf("alert_ranges: high boundary must not be above medium")
	}
	if r.High != nil && r.Low != nil && *r.High > *r.Low {
		return fmt.Errorf("alert_ranges: high boundary must not be above low")
	}
	return nil
}
