package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Marketplace API configuration
	MarketplaceAPIURL  string
	MarketplaceAPIKey  string
	MarketplaceTimeout time.Duration

	// Solana configuration
	SolanaRPCURLs []string

	// Optional sinks for action events. Empty disables the sink.
	DatabaseURL string
	NATSURL     string
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Marketplace configuration
	cfg.MarketplaceAPIURL = os.Getenv("MARKETPLACE_API_URL")
	if cfg.MarketplaceAPIURL == "" {
		errs = append(errs, fmt.Errorf("MARKETPLACE_API_URL is required"))
	} else if err := validateURL(cfg.MarketplaceAPIURL); err != nil {
		errs = append(errs, fmt.Errorf("MARKETPLACE_API_URL: %w", err))
	}
	cfg.MarketplaceAPIKey = os.Getenv("MARKETPLACE_API_KEY")

	timeout, err := parseDuration("MARKETPLACE_TIMEOUT", "10s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MarketplaceTimeout = timeout
	}

	// Solana configuration
	cfg.SolanaRPCURLs = splitList(os.Getenv("SOLANA_RPC_URLS"))
	if len(cfg.SolanaRPCURLs) == 0 {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URLS is required"))
	}
	for _, u := range cfg.SolanaRPCURLs {
		if err := validateURL(u); err != nil {
			errs = append(errs, fmt.Errorf("SOLANA_RPC_URLS: %w", err))
		}
	}

	// Event sinks
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.MarketplaceAPIURL == "" {
		errs = append(errs, fmt.Errorf("MarketplaceAPIURL is required"))
	}

	if len(c.SolanaRPCURLs) == 0 {
		errs = append(errs, fmt.Errorf("SolanaRPCURLs is required"))
	}

	if c.MarketplaceTimeout <= 0 {
		errs = append(errs, fmt.Errorf("MarketplaceTimeout must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%s: duration must be positive, got %v", key, duration)
	}
	return duration, nil
}

// splitList splits a comma separated list, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return nil
}
