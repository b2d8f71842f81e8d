package solana

import (
	"testing"

	"github.com/brojonat/blinkmart/service/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadRPCURLs(t *testing.T, value string) ([]string, error) {
	t.Helper()
	t.Setenv("MARKETPLACE_API_URL", "https://api.marketplace.example.com")
	t.Setenv("SOLANA_RPC_URLS", value)

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return cfg.SolanaRPCURLs, nil
}

func TestSelectRandomEndpoint_FromConfig(t *testing.T) {
	t.Run("helius and public mainnet", func(t *testing.T) {
		urls, err := loadRPCURLs(t, " https://mainnet.helius-rpc.com/?api-key=test , https://api.mainnet-beta.solana.com,")
		require.NoError(t, err)
		require.Equal(t, []string{
			"https://mainnet.helius-rpc.com/?api-key=test",
			"https://api.mainnet-beta.solana.com",
		}, urls)

		selected, err := SelectRandomEndpoint(urls)
		require.NoError(t, err)
		assert.Contains(t, urls, selected)
	})

	t.Run("single endpoint is always picked", func(t *testing.T) {
		urls, err := loadRPCURLs(t, "https://api.mainnet-beta.solana.com")
		require.NoError(t, err)

		selected, err := SelectRandomEndpoint(urls)
		require.NoError(t, err)
		assert.Equal(t, "https://api.mainnet-beta.solana.com", selected)
	})

	t.Run("only separators leaves nothing to pick", func(t *testing.T) {
		_, err := loadRPCURLs(t, " , ,")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SOLANA_RPC_URLS is required")

		_, err = SelectRandomEndpoint(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no RPC endpoints configured")
	})
}
