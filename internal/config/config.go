package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	AuthSigningKey string   `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string   `mapstructure:"AUTH_ISSUER"`

	// Faturamento
	NonChargeableTag        string        `mapstructure:"NON_CHARGEABLE_TAG"`
	PricingConcurrency      int           `mapstructure:"PRICING_CONCURRENCY"`
	PricingRPS              float64       `mapstructure:"PRICING_RPS"`
	PricingStrictVolumeRule bool          `mapstructure:"PRICING_STRICT_VOLUME_RULE"`
	StatementPollAttempts   int           `mapstructure:"STATEMENT_POLL_ATTEMPTS"`
	StatementPollInterval   time.Duration `mapstructure:"STATEMENT_POLL_INTERVAL"`

	// Invoicing system sync
	InvoicingBaseURL      string        `mapstructure:"INVOICING_BASE_URL"`
	InvoicingAPIKey       string        `mapstructure:"INVOICING_API_KEY"`
	InvoicingMaxRetries   int           `mapstructure:"INVOICING_MAX_RETRIES"`
	InvoicingBaseDelay    time.Duration `mapstructure:"INVOICING_BASE_DELAY"`
	InvoicingPollInterval time.Duration `mapstructure:"INVOICING_POLL_INTERVAL"`
	InvoicingRPS          float64       `mapstructure:"INVOICING_RPS"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"AUTH_SIGNING_KEY", "AUTH_ISSUER",
	"NON_CHARGEABLE_TAG", "PRICING_CONCURRENCY", "PRICING_RPS",
	"PRICING_STRICT_VOLUME_RULE", "STATEMENT_POLL_ATTEMPTS", "STATEMENT_POLL_INTERVAL",
	"INVOICING_BASE_URL", "INVOICING_API_KEY", "INVOICING_MAX_RETRIES",
	"INVOICING_BASE_DELAY", "INVOICING_POLL_INTERVAL", "INVOICING_RPS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("NON_CHARGEABLE_TAG", "NAO_FATURAR")
	v.SetDefault("PRICING_CONCURRENCY", 1)
	v.SetDefault("PRICING_RPS", 10)
	v.SetDefault("PRICING_STRICT_VOLUME_RULE", false)
	v.SetDefault("STATEMENT_POLL_ATTEMPTS", 30)
	v.SetDefault("STATEMENT_POLL_INTERVAL", "2s")
	v.SetDefault("INVOICING_MAX_RETRIES", 5)
	v.SetDefault("INVOICING_BASE_DELAY", "1s")
	v.SetDefault("INVOICING_POLL_INTERVAL", "1m")
	v.SetDefault("INVOICING_RPS", 2)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() {
		log.Println("WARNING: running in DEVELOPMENT mode (ENV=development), every request is treated as admin.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
		return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 characters, got %d", len(c.AuthSigningKey))
	}
	if strings.TrimSpace(c.NonChargeableTag) == "" {
		return fmt.Errorf("NON_CHARGEABLE_TAG must not be empty")
	}
	if c.PricingConcurrency < 1 {
		return fmt.Errorf("PRICING_CONCURRENCY must be >= 1, got %d", c.PricingConcurrency)
	}
	if c.StatementPollAttempts < 1 {
		return fmt.Errorf("STATEMENT_POLL_ATTEMPTS must be >= 1, got %d", c.StatementPollAttempts)
	}
	if c.StatementPollInterval <= 0 {
		return fmt.Errorf("STATEMENT_POLL_INTERVAL must be positive")
	}
	if c.InvoicingBaseURL != "" && c.InvoicingAPIKey == "" {
		return fmt.Errorf("INVOICING_API_KEY is required when INVOICING_BASE_URL is set")
	}
	return nil
}
