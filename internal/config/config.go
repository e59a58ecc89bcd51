// Package config loads process configuration from the environment, the
// same env-var-driven Load() pattern Alex110709-obsidian-core's
// config/config.go uses (the teacher itself carries no config package).
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for a shieldpool process: the
// cmd/shieldpoold daemon's logging, event-bus and database settings, plus
// page-size and poll-interval settings for a client scanner.
type Config struct {
	// Logging
	LogLevel string
	LogFile  string

	// P2P event bus
	P2PListenAddr  string
	ConnectTimeout time.Duration

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	DBMaxConns int32

	// Scanner
	ScanPageSize    int
	ScanPollInterval time.Duration
}

// Load loads configuration from environment variables, falling back to the
// defaults below for anything unset.
func Load() *Config {
	return &Config{
		LogLevel: getEnv("SHIELDPOOL_LOG_LEVEL", "info"),
		LogFile:  getEnv("SHIELDPOOL_LOG_FILE", ""),

		P2PListenAddr:  getEnv("SHIELDPOOL_P2P_ADDR", "/ip4/0.0.0.0/tcp/0"),
		ConnectTimeout: getEnvDuration("SHIELDPOOL_CONNECT_TIMEOUT", 30*time.Second),

		DBHost:     getEnv("SHIELDPOOL_DB_HOST", "localhost"),
		DBPort:     getEnvInt("SHIELDPOOL_DB_PORT", 5432),
		DBUser:     getEnv("SHIELDPOOL_DB_USER", "shieldpool"),
		DBPassword: getEnv("SHIELDPOOL_DB_PASSWORD", ""),
		DBName:     getEnv("SHIELDPOOL_DB_NAME", "shieldpool"),
		DBSSLMode:  getEnv("SHIELDPOOL_DB_SSLMODE", "disable"),
		DBMaxConns: int32(getEnvInt("SHIELDPOOL_DB_MAX_CONNS", 20)),

		ScanPageSize:     getEnvInt("SHIELDPOOL_SCAN_PAGE_SIZE", 256),
		ScanPollInterval: getEnvDuration("SHIELDPOOL_SCAN_POLL_INTERVAL", 5*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
