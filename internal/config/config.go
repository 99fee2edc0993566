// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strings"
)

// History backend selectors.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string

	// HistoryBackend selects the durable poll archive: memory, sqlite,
	// or redis. The in-memory fallback is always present regardless.
	HistoryBackend string
	DBPath         string
	RedisURL       string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "5001"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		HistoryBackend: strings.ToLower(getEnv("HISTORY_BACKEND", BackendMemory)),
		DBPath:         getEnv("DB_PATH", "./data/polls.db"),
		RedisURL:       getEnv("REDIS_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	switch c.HistoryBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty with HISTORY_BACKEND=sqlite")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL cannot be empty with HISTORY_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown HISTORY_BACKEND %q", c.HistoryBackend)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
