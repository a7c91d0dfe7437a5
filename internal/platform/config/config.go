package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends accepted by STORE_BACKEND.
const (
	StoreBackendMemory   = "memory"
	StoreBackendPostgres = "postgres"
)

// Config holds application configuration.
type Config struct {
	Port          string
	IsProduction  bool
	StoreBackend  string
	DatabaseURL   string
	EnableDBCheck bool

	// Ledger engine
	LedgerMaxAttempts          int
	LedgerRetryInitialInterval time.Duration
	LedgerRetryMaxInterval     time.Duration
	BalanceCacheSize           int

	// Reconciliation
	ReconcileSchedule    string
	ReconcileConcurrency int
	ReconcileRecheck     time.Duration

	// Events. No brokers means events are only logged.
	KafkaBrokers []string
	KafkaTopic   string

	RateLimit          string
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("STORE_BACKEND", StoreBackendMemory)
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("LEDGER_MAX_ATTEMPTS", 10)
	v.SetDefault("LEDGER_RETRY_INITIAL_INTERVAL", "5ms")
	v.SetDefault("LEDGER_RETRY_MAX_INTERVAL", "200ms")
	v.SetDefault("BALANCE_CACHE_SIZE", 10000)
	v.SetDefault("RECONCILE_SCHEDULE", "")
	v.SetDefault("RECONCILE_CONCURRENCY", 8)
	v.SetDefault("RECONCILE_RECHECK_DELAY", "250ms")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "wallet_ledger_events")
	v.SetDefault("RATE_LIMIT", "100-M")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.AutomaticEnv()

	cfg := &Config{
		Port:                 v.GetString("PORT"),
		IsProduction:         v.GetBool("IS_PRODUCTION"),
		StoreBackend:         strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		DatabaseURL:          v.GetString("PGSQL_URL"),
		EnableDBCheck:        v.GetBool("ENABLE_DB_CHECK"),
		LedgerMaxAttempts:    v.GetInt("LEDGER_MAX_ATTEMPTS"),
		BalanceCacheSize:     v.GetInt("BALANCE_CACHE_SIZE"),
		ReconcileSchedule:    strings.TrimSpace(v.GetString("RECONCILE_SCHEDULE")),
		ReconcileConcurrency: v.GetInt("RECONCILE_CONCURRENCY"),
		KafkaBrokers:         splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:           v.GetString("KAFKA_TOPIC"),
		RateLimit:            v.GetString("RATE_LIMIT"),
		CORSAllowedOrigins:   splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	var err error
	if cfg.LedgerRetryInitialInterval, err = parseDuration(v, "LEDGER_RETRY_INITIAL_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.LedgerRetryMaxInterval, err = parseDuration(v, "LEDGER_RETRY_MAX_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.ReconcileRecheck, err = parseDuration(v, "RECONCILE_RECHECK_DELAY"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks combinations LoadConfig cannot default its way out of.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreBackendMemory:
	case StoreBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("PGSQL_URL is required when STORE_BACKEND=%s", StoreBackendPostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want %s or %s)", c.StoreBackend, StoreBackendMemory, StoreBackendPostgres)
	}
	if c.LedgerMaxAttempts < 1 {
		return fmt.Errorf("LEDGER_MAX_ATTEMPTS must be at least 1, got %d", c.LedgerMaxAttempts)
	}
	if c.LedgerRetryMaxInterval < c.LedgerRetryInitialInterval {
		return fmt.Errorf("LEDGER_RETRY_MAX_INTERVAL (%s) is below LEDGER_RETRY_INITIAL_INTERVAL (%s)",
			c.LedgerRetryMaxInterval, c.LedgerRetryInitialInterval)
	}
	return nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s (%q): %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, d)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
