package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration. Everything the journal needs is
// injected from here at construction time; there is no ambient process state.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Broker API configuration
	Broker BrokerConfig

	// Synchronization configuration
	Sync SyncConfig

	// HTTP configuration
	HTTP HTTPConfig
}

// DatabaseConfig holds position store configuration. Driver selects between
// the embedded sqlite store and Postgres.
type DatabaseConfig struct {
	Driver string // "sqlite" or "postgres"
	URL    string // Postgres connection string
	Path   string // sqlite database file
}

// BrokerConfig holds brokerage API configuration
type BrokerConfig struct {
	Token       string
	BaseURL     string
	AccountName string
}

// SyncConfig holds synchronization driver configuration
type SyncConfig struct {
	BatchDays      int // size of one fetch window in days
	TimeoutSeconds int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr               string
	CORSAllowedOrigins string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Driver: getEnvString("DATABASE_DRIVER", "sqlite"),
			URL:    os.Getenv("DATABASE_URL"),
			Path:   getEnvString("DATABASE_PATH", "journal.db"),
		},
		Broker: BrokerConfig{
			Token:       os.Getenv("BROKER_TOKEN"),
			BaseURL:     getEnvString("BROKER_BASE_URL", "https://invest-public-api.tbank.ru/rest/tinkoff.public.invest.api.contract.v1"),
			AccountName: getEnvString("BROKER_ACCOUNT_NAME", "Trading"),
		},
		Sync: SyncConfig{
			BatchDays:      getEnvInt("SYNC_BATCH_DAYS", 30),
			TimeoutSeconds: getEnvInt("SYNC_TIMEOUT_SECONDS", 300),
		},
		HTTP: HTTPConfig{
			Addr:               getEnvString("HTTP_ADDR", ":8080"),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "*"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("DATABASE_PATH must be set for the sqlite driver")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL must be set for the postgres driver")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.Database.Driver)
	}

	if c.Sync.BatchDays <= 0 {
		return fmt.Errorf("SYNC_BATCH_DAYS must be positive, got %d", c.Sync.BatchDays)
	}
	if c.Sync.TimeoutSeconds <= 0 {
		return fmt.Errorf("SYNC_TIMEOUT_SECONDS must be positive, got %d", c.Sync.TimeoutSeconds)
	}

	return nil
}

// HasBroker returns true if broker API configuration is available
func (c *Config) HasBroker() bool {
	return c.Broker.Token != ""
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "journal_test.db",
		},
		Broker: BrokerConfig{
			Token:       "",
			BaseURL:     "https://invest-public-api.tbank.ru/rest/tinkoff.public.invest.api.contract.v1",
			AccountName: "Trading",
		},
		Sync: SyncConfig{
			BatchDays:      30,
			TimeoutSeconds: 300,
		},
		HTTP: HTTPConfig{
			Addr:               ":8080",
			CORSAllowedOrigins: "*",
		},
	}
}
