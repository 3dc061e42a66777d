// Package secrets retrieves exchange API credentials for internal/exchange,
// grounded on the teacher's internal/vault/client.go cache-over-Vault
// shape. Reworked from the teacher's per-user multi-tenant key store onto a
// single-instance (exchange, testnet) credential lookup, matching this
// engine's non-SaaS scope.
package secrets

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"
	"github.com/rs/zerolog"

	"github.com/tradecore/engine/config"
)

// Credentials holds one exchange's API key pair.
type Credentials struct {
	APIKey    string
	SecretKey string
	Exchange  string
	IsTestnet bool
}

// Provider retrieves and caches exchange credentials from Vault, falling
// back to an in-memory store when Vault is disabled (local/dev mode).
type Provider struct {
	client *api.Client
	config config.VaultConfig
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]Credentials
}

// NewProvider constructs a Provider. When cfg.Enabled is false it returns a
// provider backed only by its in-memory cache, matching the teacher's
// disabled-vault fallback.
func NewProvider(cfg config.VaultConfig, logger zerolog.Logger) (*Provider, error) {
	p := &Provider{config: cfg, logger: logger, cache: make(map[string]Credentials)}
	if !cfg.Enabled {
		return p, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address
	if cfg.TLSEnabled && cfg.CACert != "" {
		if err := vaultConfig.ConfigureTLS(&api.TLSConfig{CACert: cfg.CACert}); err != nil {
			return nil, fmt.Errorf("secrets: configure tls: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("secrets: new vault client: %w", err)
	}
	client.SetToken(cfg.Token)
	p.client = client
	return p, nil
}

// StoreCredentials writes creds to Vault (or the in-memory cache when
// disabled) and refreshes the local cache entry.
func (p *Provider) StoreCredentials(ctx context.Context, creds Credentials) error {
	key := cacheKey(creds.Exchange, creds.IsTestnet)

	if p.config.Enabled {
		secretData := map[string]interface{}{
			"data": map[string]interface{}{
				"api_key":    creds.APIKey,
				"secret_key": creds.SecretKey,
				"exchange":   creds.Exchange,
				"is_testnet": creds.IsTestnet,
			},
		}
		if _, err := p.client.Logical().WriteWithContext(ctx, p.secretPath(creds.Exchange, creds.IsTestnet), secretData); err != nil {
			return fmt.Errorf("secrets: store credentials: %w", err)
		}
	}

	p.mu.Lock()
	p.cache[key] = creds
	p.mu.Unlock()
	return nil
}

// GetCredentials returns the cached credentials for (exchange, isTestnet),
// falling through to Vault on a cache miss.
func (p *Provider) GetCredentials(ctx context.Context, exchange string, isTestnet bool) (Credentials, error) {
	key := cacheKey(exchange, isTestnet)

	p.mu.RLock()
	cached, ok := p.cache[key]
	p.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if !p.config.Enabled {
		return Credentials{}, fmt.Errorf("secrets: credentials for %s not found and vault is disabled", exchange)
	}

	secret, err := p.client.Logical().ReadWithContext(ctx, p.secretPath(exchange, isTestnet))
	if err != nil {
		return Credentials{}, fmt.Errorf("secrets: read credentials: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return Credentials{}, fmt.Errorf("secrets: credentials for %s not found", exchange)
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return Credentials{}, fmt.Errorf("secrets: unexpected secret shape for %s", exchange)
	}

	creds := Credentials{
		APIKey:    stringField(data, "api_key"),
		SecretKey: stringField(data, "secret_key"),
		Exchange:  exchange,
		IsTestnet: isTestnet,
	}

	p.mu.Lock()
	p.cache[key] = creds
	p.mu.Unlock()
	return creds, nil
}

// InvalidateCache drops a cached credential so the next lookup re-reads Vault.
func (p *Provider) InvalidateCache(exchange string, isTestnet bool) {
	p.mu.Lock()
	delete(p.cache, cacheKey(exchange, isTestnet))
	p.mu.Unlock()
}

// Health reports whether Vault is reachable and unsealed. A disabled
// provider is always healthy.
func (p *Provider) Health(ctx context.Context) error {
	if !p.config.Enabled {
		return nil
	}
	health, err := p.client.Sys().Health()
	if err != nil {
		return fmt.Errorf("secrets: health check: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("secrets: vault is sealed")
	}
	return nil
}

func (p *Provider) secretPath(exchange string, isTestnet bool) string {
	return fmt.Sprintf("secret/data/%s/%s", p.config.SecretPath, cacheKey(exchange, isTestnet))
}

func cacheKey(exchange string, isTestnet bool) string {
	network := "mainnet"
	if isTestnet {
		network = "testnet"
	}
	return fmt.Sprintf("%s_%s", exchange, network)
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
