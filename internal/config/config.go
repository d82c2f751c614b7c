package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

// Config holds all configuration for the sync engine
type Config struct {
	// Database
	DatabaseURL string

	// Remote mail service
	APIBaseURL  string
	HTTPTimeout int // seconds

	// Trigger server
	APIPort int

	// Session token (static fallback; the real app injects a provider)
	SessionToken string

	// Logging
	LogLevel string

	AppEnv string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	// Required: DATABASE_URL
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required but not set")
	}

	// API_BASE_URL (default: local dev server)
	cfg.APIBaseURL = os.Getenv("API_BASE_URL")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:3000"
	}

	// HTTP_TIMEOUT_SECONDS (default: 15)
	timeout := os.Getenv("HTTP_TIMEOUT_SECONDS")
	if timeout == "" {
		cfg.HTTPTimeout = 15
	} else {
		v, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("HTTP_TIMEOUT_SECONDS must be a valid integer: %w", err)
		}
		cfg.HTTPTimeout = v
	}

	// API_PORT (default: 8080)
	apiPort := os.Getenv("API_PORT")
	if apiPort == "" {
		cfg.APIPort = 8080
	} else {
		port, err := strconv.Atoi(apiPort)
		if err != nil {
			return nil, fmt.Errorf("API_PORT must be a valid integer: %w", err)
		}
		cfg.APIPort = port
	}

	cfg.SessionToken = os.Getenv("SESSION_TOKEN")

	// LOG_LEVEL (default: info)
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.AppEnv = os.Getenv("APP_ENV")
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}

	return cfg, nil
}

// SlogLevel converts the configured log level string to a slog.Level
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
