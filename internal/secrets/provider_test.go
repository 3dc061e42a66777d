package secrets

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tradecore/engine/config"
)

func disabledProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := NewProvider(config.VaultConfig{Enabled: false}, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func TestStoreAndGetCredentialsWithVaultDisabled(t *testing.T) {
	p := disabledProvider(t)
	creds := Credentials{APIKey: "key", SecretKey: "secret", Exchange: "hyperliquid", IsTestnet: true}

	require.NoError(t, p.StoreCredentials(context.Background(), creds))

	got, err := p.GetCredentials(context.Background(), "hyperliquid", true)
	require.NoError(t, err)
	require.Equal(t, creds, got)
}

func TestGetCredentialsMissingAndDisabledErrors(t *testing.T) {
	p := disabledProvider(t)
	_, err := p.GetCredentials(context.Background(), "hyperliquid", false)
	require.Error(t, err)
}

func TestInvalidateCacheForcesRefetch(t *testing.T) {
	p := disabledProvider(t)
	creds := Credentials{APIKey: "key", Exchange: "hyperliquid"}
	require.NoError(t, p.StoreCredentials(context.Background(), creds))

	p.InvalidateCache("hyperliquid", false)

	_, err := p.GetCredentials(context.Background(), "hyperliquid", false)
	require.Error(t, err)
}

func TestHealthIsNilWhenDisabled(t *testing.T) {
	p := disabledProvider(t)
	require.NoError(t, p.Health(context.Background()))
}

func TestCacheKeyDistinguishesTestnetFromMainnet(t *testing.T) {
	require.Equal(t, "hyperliquid_mainnet", cacheKey("hyperliquid", false))
	require.Equal(t, "hyperliquid_testnet", cacheKey("hyperliquid", true))
}
