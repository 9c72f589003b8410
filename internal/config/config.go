package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the inventory connector service
type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	DatabaseURL string

	// Vendor config documents
	ConfigBaseURL string // base URL or directory holding per-vendor connector configs

	// File handling
	DataFileDir string // download target for CSV/FTP vendor exports
	StagingDir  string // normalized item staging files

	// Sync Settings
	SyncMaxRetries int
	SyncRetryDelay time.Duration
	SyncTimeout    time.Duration

	// HTTP client
	RequestTimeout time.Duration
	// Rate Limiting
	DefaultRateLimit int // requests per second against vendor APIs
}

// Load loads configuration from environment variables
func Load() *Config {
	databaseURL := getEnv("DATABASE_URL", "")
	if databaseURL == "" {
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "postgres")
		dbPassword := getEnv("DB_PASSWORD", "postgres")
		dbName := getEnv("DB_NAME", "live_inventory")
		dbSSLMode := getEnv("DB_SSLMODE", "disable")

		databaseURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPassword, dbHost, dbPort, dbName, dbSSLMode)
	}

	config := &Config{
		Port:        getEnv("PORT", "8099"),
		Environment: getEnv("ENVIRONMENT", "development"),
		DatabaseURL: databaseURL,

		ConfigBaseURL: getEnv("VENDOR_CONFIG_BASE_URL", ""),

		DataFileDir: getEnv("DATA_FILE_DIR", os.TempDir()),
		StagingDir:  getEnv("STAGING_DIR", "staging"),

		SyncMaxRetries: getEnvAsInt("SYNC_MAX_RETRIES", 3),
		SyncRetryDelay: getEnvAsDuration("SYNC_RETRY_DELAY", 5*time.Second),
		SyncTimeout:    getEnvAsDuration("SYNC_TIMEOUT", 30*time.Minute),

		RequestTimeout:   getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second),
		DefaultRateLimit: getEnvAsInt("DEFAULT_RATE_LIMIT", 10),
	}

	if config.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	return config
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

// getEnvAsDuration gets an environment variable as a duration with a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
