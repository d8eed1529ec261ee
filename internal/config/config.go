package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port     int
	APIToken string
	LogLevel string

	DatabaseConnStr string

	CoincapBaseURL string

	BinanceAPIKey     string
	BinanceAPISecret  string
	BinanceTestOrders bool

	// Cron spec for the periodic valuation snapshot. Empty disables it.
	ValuationSchedule string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnvAsInt("PORT", 8080),
		APIToken:          getEnv("API_TOKEN", "dev-token"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DatabaseConnStr:   databaseConnStr(),
		CoincapBaseURL:    getEnv("COINCAP_BASE_URL", ""),
		BinanceAPIKey:     getEnv("BINANCE_API_KEY", ""),
		BinanceAPISecret:  getEnv("BINANCE_API_SECRET", ""),
		BinanceTestOrders: getEnvAsBool("BINANCE_TEST_ORDERS", true),
		ValuationSchedule: getEnv("VALUATION_SCHEDULE", "0 0 * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be a valid TCP port, got %d", c.Port)
	}
	if c.APIToken == "" {
		return fmt.Errorf("API_TOKEN is required")
	}
	return nil
}

// databaseConnStr prefers an explicit connection string and falls back to
// assembling one from individual vars (Docker friendly)
func databaseConnStr() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}

	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	dbname := getEnv("DB_NAME", "rebalancer")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
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
