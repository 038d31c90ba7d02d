package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Site and store
	assert.Equal(t, "https://safebooru.donmai.us", cfg.Site.BaseURL)
	assert.Equal(t, "tag_data.json", cfg.Store.Path)

	// Fetcher politeness
	assert.Equal(t, 15*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 2, cfg.HTTP.Attempts)
	assert.Equal(t, 2*time.Second, cfg.HTTP.Delay)
	assert.Equal(t, 3*time.Second, cfg.HTTP.RetryWait)

	// Browser
	assert.Equal(t, 60*time.Second, cfg.Browser.Timeout)
	assert.Empty(t, cfg.Browser.Path)

	// Server
	assert.Equal(t, "127.0.0.1:8700", cfg.Server.Addr())

	// Logging
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"DANWIKI_SITE":          "https://danbooru.donmai.us",
		"DANWIKI_STORE":         "/tmp/tags.json",
		"DANWIKI_HTTP_TIMEOUT":  "5s",
		"DANWIKI_HTTP_ATTEMPTS": "4",
		"DANWIKI_BROWSER_PATH":  "/usr/bin/chromium",
		"PORT":                  "9000",
		"LOG_LEVEL":             "debug",
		"LOG_DEV":               "true",
		"RATE_LIMIT_ENABLED":    "false",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://danbooru.donmai.us", cfg.Site.BaseURL)
	assert.Equal(t, "/tmp/tags.json", cfg.Store.Path)
	assert.Equal(t, 5*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, 4, cfg.HTTP.Attempts)
	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.Path)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("DANWIKI_HTTP_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, 15*time.Second, cfg.HTTP.Timeout)
}
