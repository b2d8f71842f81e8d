package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("MARKETPLACE_API_URL", "https://api.marketplace.example.com")
	t.Setenv("SOLANA_RPC_URLS", "https://api.mainnet-beta.solana.com")
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SERVER_ADDR", "LOG_LEVEL", "MARKETPLACE_API_URL", "MARKETPLACE_API_KEY",
		"MARKETPLACE_TIMEOUT", "SOLANA_RPC_URLS", "DATABASE_URL", "NATS_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	clearEnv(t)
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "https://api.marketplace.example.com", cfg.MarketplaceAPIURL)
	assert.Equal(t, []string{"https://api.mainnet-beta.solana.com"}, cfg.SolanaRPCURLs)
	assert.Equal(t, ":8080", cfg.ServerAddr) // Default
	assert.Equal(t, "info", cfg.LogLevel)    // Default
	assert.Equal(t, 10*time.Second, cfg.MarketplaceTimeout)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.NATSURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingRequired(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "MARKETPLACE_API_URL is required")
	assert.Contains(t, err.Error(), "SOLANA_RPC_URLS is required")
}

func TestLoad_InvalidURLs(t *testing.T) {
	clearEnv(t)
	t.Setenv("MARKETPLACE_API_URL", "ftp://marketplace")
	t.Setenv("SOLANA_RPC_URLS", "https://ok.example.com, not a url")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme must be http or https")
	assert.Contains(t, err.Error(), "SOLANA_RPC_URLS")
}

func TestLoad_InvalidTimeout(t *testing.T) {
	clearEnv(t)
	setRequiredEnv(t)
	t.Setenv("MARKETPLACE_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	setRequiredEnv(t)
	t.Setenv("SOLANA_RPC_URLS", "https://a.example.com, https://b.example.com,,")
	t.Setenv("MARKETPLACE_API_KEY", "secret-key")
	t.Setenv("MARKETPLACE_TIMEOUT", "3s")
	t.Setenv("SERVER_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://localhost/blinkmart")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.SolanaRPCURLs)
	assert.Equal(t, "secret-key", cfg.MarketplaceAPIKey)
	assert.Equal(t, 3*time.Second, cfg.MarketplaceTimeout)
	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "postgres://localhost/blinkmart", cfg.DatabaseURL)
	assert.Equal(t, "nats://localhost:4222", cfg.NATSURL)
}

func TestMustLoad_Panics(t *testing.T) {
	clearEnv(t)
	assert.Panics(t, func() { MustLoad() })
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MarketplaceAPIURL is required")
	assert.Contains(t, err.Error(), "SolanaRPCURLs is required")
	assert.Contains(t, err.Error(), "MarketplaceTimeout must be positive")
}
