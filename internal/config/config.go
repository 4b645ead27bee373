// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir string // Base directory for the databases (always absolute)

	EODHDToken   string // API token for the EOD price history provider
	EODHDBaseURL string

	// MarketIndexSymbol is the reference index used for trading-day detection.
	// A day counts as a trading day when the index has a price bar for it.
	MarketIndexSymbol string

	// RefreshIntervalMinutes controls the periodic market-data refresh.
	// 0 disables the background job (manual refresh stays available).
	RefreshIntervalMinutes int

	// CheckIntervalMinutes controls the periodic trading-opportunity check.
	// 0 disables the background job.
	CheckIntervalMinutes int

	LogLevel string
	Port     int
	DevMode  bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory, resolve to absolute path and ensure it exists
	dataDir := getEnv("REBALANCER_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:                absDataDir,
		Port:                   getEnvAsInt("PORT", 8080),
		DevMode:                getEnvAsBool("DEV_MODE", false),
		EODHDToken:             getEnv("EODHD_API_TOKEN", ""),
		EODHDBaseURL:           getEnv("EODHD_BASE_URL", "https://eodhd.com"),
		MarketIndexSymbol:      getEnv("MARKET_INDEX_SYMBOL", "GSPC.INDX"),
		RefreshIntervalMinutes: getEnvAsInt("REFRESH_INTERVAL_MINUTES", 60),
		CheckIntervalMinutes:   getEnvAsInt("CHECK_INTERVAL_MINUTES", 30),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.RefreshIntervalMinutes < 0 {
		return fmt.Errorf("REFRESH_INTERVAL_MINUTES must be >= 0, got %d", c.RefreshIntervalMinutes)
	}
	if c.CheckIntervalMinutes < 0 {
		return fmt.Errorf("CHECK_INTERVAL_MINUTES must be >= 0, got %d", c.CheckIntervalMinutes)
	}

	// Note: EODHD token optional; without it the engine degrades to cached
	// price history only and marks refreshes as failed.

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
