package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Site      SiteConfig
	Store     StoreConfig
	HTTP      HTTPConfig
	Browser   BrowserConfig
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// SiteConfig selects the booru mirror wiki pages are fetched from.
type SiteConfig struct {
	BaseURL string `envconfig:"DANWIKI_SITE" default:"https://safebooru.donmai.us"`
}

// StoreConfig locates the persisted tag records.
type StoreConfig struct {
	Path string `envconfig:"DANWIKI_STORE" default:"tag_data.json"`
}

// HTTPConfig controls the polite page fetcher.
type HTTPConfig struct {
	Timeout   time.Duration `envconfig:"DANWIKI_HTTP_TIMEOUT" default:"15s"`
	Attempts  int           `envconfig:"DANWIKI_HTTP_ATTEMPTS" default:"2"`
	Delay     time.Duration `envconfig:"DANWIKI_HTTP_DELAY" default:"2s"`
	Jitter    time.Duration `envconfig:"DANWIKI_HTTP_JITTER" default:"1s"`
	RetryWait time.Duration `envconfig:"DANWIKI_HTTP_RETRY_WAIT" default:"3s"`
	UserAgent string        `envconfig:"DANWIKI_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"`
}

// BrowserConfig controls credential harvesting through a local browser.
type BrowserConfig struct {
	Path    string        `envconfig:"DANWIKI_BROWSER_PATH"`
	Timeout time.Duration `envconfig:"DANWIKI_BROWSER_TIMEOUT" default:"60s"`
}

// ServerConfig holds the local API server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8700"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration for the local API.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL: "https://safebooru.donmai.us",
		},
		Store: StoreConfig{
			Path: "tag_data.json",
		},
		HTTP: HTTPConfig{
			Timeout:   15 * time.Second,
			Attempts:  2,
			Delay:     2 * time.Second,
			Jitter:    time.Second,
			RetryWait: 3 * time.Second,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		},
		Browser: BrowserConfig{
			Timeout: 60 * time.Second,
		},
		Server: ServerConfig{
			Port: "8700",
			Host: "127.0.0.1",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}

// Addr returns the listen address for the API server.
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
