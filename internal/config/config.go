package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/efreitasn/escrowauction/internal/domain"
	"github.com/efreitasn/escrowauction/internal/engine"
	"github.com/efreitasn/escrowauction/internal/service"
)

// FileEnv names the environment variable pointing at an optional config
// file. Keys in the file use the lowercase form of the variable names
// below (port, log_level, sweep_interval, ...). Environment variables
// override file values.
const FileEnv = "AUCTIOND_CONFIG"

// Config holds all runtime configuration for the auction daemon.
type Config struct {
	Port            int
	LogLevel        string
	SweepInterval   time.Duration
	WebhookTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// MarketplaceAddress is the account that holds escrowed assets.
	MarketplaceAddress domain.Address
	// FeeRecipient receives the platform fee on every settlement.
	FeeRecipient   domain.Address
	PlatformFeeBps int64

	MinReserve         domain.Amount
	MinIncrement       domain.Amount
	MinIncrementBps    int64
	AntiSnipeWindow    time.Duration
	AntiSnipeExtension time.Duration
}

var defaults = map[string]string{
	"port":                 "8080",
	"log_level":            "info",
	"sweep_interval":       "1s",
	"webhook_timeout":      "5s",
	"read_timeout":         "5s",
	"write_timeout":        "10s",
	"idle_timeout":         "60s",
	"shutdown_timeout":     "10s",
	"marketplace_address":  "0x000000000000000000000000000000000000a0c7",
	"fee_recipient":        "0x000000000000000000000000000000000000fee0",
	"platform_fee_bps":     "250",
	"min_reserve":          "1000",
	"min_increment":        "1",
	"min_increment_bps":    "500",
	"anti_snipe_window":    "15m",
	"anti_snipe_extension": "15m",
}

// Load reads configuration from defaults, the optional file named by
// AUCTIOND_CONFIG and environment variables, then validates values. It
// returns an error for any invalid value.
func Load() (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	if path := os.Getenv(FileEnv); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", FileEnv, err)
		}
	}
	v.AutomaticEnv()

	var (
		cfg Config
		err error
	)

	if cfg.Port, err = getInt(v, "port"); err != nil {
		return nil, err
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d is out of range", cfg.Port)
	}

	cfg.LogLevel = v.GetString("log_level")
	if !isValidLogLevel(cfg.LogLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", cfg.LogLevel)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"sweep_interval", &cfg.SweepInterval},
		{"webhook_timeout", &cfg.WebhookTimeout},
		{"read_timeout", &cfg.ReadTimeout},
		{"write_timeout", &cfg.WriteTimeout},
		{"idle_timeout", &cfg.IdleTimeout},
		{"shutdown_timeout", &cfg.ShutdownTimeout},
		{"anti_snipe_window", &cfg.AntiSnipeWindow},
		{"anti_snipe_extension", &cfg.AntiSnipeExtension},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(v, d.key); err != nil {
			return nil, err
		}
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("invalid SWEEP_INTERVAL: must be > 0")
	}

	if cfg.MarketplaceAddress, err = getAddress(v, "marketplace_address"); err != nil {
		return nil, err
	}
	if cfg.FeeRecipient, err = getAddress(v, "fee_recipient"); err != nil {
		return nil, err
	}

	if cfg.PlatformFeeBps, err = getInt64(v, "platform_fee_bps"); err != nil {
		return nil, err
	}
	if cfg.PlatformFeeBps < 0 || cfg.PlatformFeeBps > 10_000 {
		return nil, fmt.Errorf("invalid PLATFORM_FEE_BPS: %d is outside [0, 10000]", cfg.PlatformFeeBps)
	}
	if cfg.MinIncrementBps, err = getInt64(v, "min_increment_bps"); err != nil {
		return nil, err
	}
	if cfg.MinReserve, err = getWei(v, "min_reserve"); err != nil {
		return nil, err
	}
	if cfg.MinIncrement, err = getWei(v, "min_increment"); err != nil {
		return nil, err
	}

	if err := cfg.Rules().Validate(); err != nil {
		return nil, fmt.Errorf("invalid auction rules: %w", err)
	}

	return &cfg, nil
}

// Rules returns the auction parameters carried by the config.
func (c *Config) Rules() engine.Rules {
	return engine.Rules{
		MinReserve:         c.MinReserve,
		MinIncrement:       c.MinIncrement,
		MinIncrementBps:    c.MinIncrementBps,
		AntiSnipeWindow:    c.AntiSnipeWindow,
		AntiSnipeExtension: c.AntiSnipeExtension,
	}
}

func envName(key string) string {
	return strings.ToUpper(key)
}

func getInt(v *viper.Viper, key string) (int, error) {
	n, err := strconv.Atoi(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", envName(key), err)
	}
	return n, nil
}

func getInt64(v *viper.Viper, key string) (int64, error) {
	n, err := strconv.ParseInt(v.GetString(key), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", envName(key), err)
	}
	return n, nil
}

func getDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", envName(key), err)
	}
	return d, nil
}

func getWei(v *viper.Viper, key string) (domain.Amount, error) {
	a, err := domain.ParseWei(v.GetString(key))
	if err != nil {
		return domain.Zero, fmt.Errorf("invalid %s: %w", envName(key), err)
	}
	return a, nil
}

func getAddress(v *viper.Viper, key string) (domain.Address, error) {
	a, err := service.ParseAddress(key, v.GetString(key))
	if err != nil {
		return domain.NoAddress, fmt.Errorf("invalid %s: %w", envName(key), err)
	}
	return a, nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
