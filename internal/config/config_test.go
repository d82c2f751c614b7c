package config

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiredDatabaseURL(t *testing.T) {
	os.Unsetenv("DATABASE_URL")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL is required")
}

func TestLoad_DefaultValues(t *testing.T) {
	os.Setenv("DATABASE_URL", "file::memory:?cache=shared")
	defer os.Unsetenv("DATABASE_URL")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.APIBaseURL)
	assert.Equal(t, 15, cfg.HTTPTimeout)
	assert.Equal(t, 8080, cfg.APIPort)
	assert.Empty(t, cfg.SessionToken)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.AppEnv)
}

func TestLoad_OverridesFromEnvironment(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("API_BASE_URL", "https://mail.example.com")
	os.Setenv("HTTP_TIMEOUT_SECONDS", "30")
	os.Setenv("API_PORT", "9090")
	os.Setenv("SESSION_TOKEN", "tok")
	defer func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("API_BASE_URL")
		os.Unsetenv("HTTP_TIMEOUT_SECONDS")
		os.Unsetenv("API_PORT")
		os.Unsetenv("SESSION_TOKEN")
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://mail.example.com", cfg.APIBaseURL)
	assert.Equal(t, 30, cfg.HTTPTimeout)
	assert.Equal(t, 9090, cfg.APIPort)
	assert.Equal(t, "tok", cfg.SessionToken)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/test")
	os.Setenv("HTTP_TIMEOUT_SECONDS", "soon")
	defer func() {
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("HTTP_TIMEOUT_SECONDS")
	}()

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP_TIMEOUT_SECONDS")
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&Config{LogLevel: "debug"}).SlogLevel())
	assert.Equal(t, slog.LevelWarn, (&Config{LogLevel: "warn"}).SlogLevel())
	assert.Equal(t, slog.LevelError, (&Config{LogLevel: "error"}).SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "info"}).SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: "verbose"}).SlogLevel())
}
