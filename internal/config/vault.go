package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"resumeform/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets are KVv2 read paths, e.g. secret/data/resumeform/endpoint.
// An empty path leaves the matching setting alone.
type VaultSecrets struct {
	EndpointKey string `mapstructure:"endpointKey"` // key "api_key"
	JWTSecret   string `mapstructure:"jwtSecret"`   // key "secret"
	BridgeKeys  string `mapstructure:"bridgeKeys"`  // key "keys": list or comma separated string
	TLSCerts    string `mapstructure:"tlsCerts"`    // keys "cert", "key", "ca"
}

const vaultTimeout = 10 * time.Second

// kvReader returns the data map of a KVv2 secret
type kvReader interface {
	ReadKV(ctx context.Context, path string) (map[string]any, error)
}

// VaultClient reads KVv2 secrets
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// NewVaultClient connects to Vault and checks it is unsealed. The token is
// taken from cfg.Token, then cfg.TokenFile, then VAULT_TOKEN.
func NewVaultClient(ctx context.Context, cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if logger == nil {
		logger = errors.Discard()
	}

	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg, client.Token())
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().HealthWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vault at %s: %w", apiCfg.Address, err)
	}
	if health.Sealed {
		return nil, fmt.Errorf("vault at %s is sealed", apiCfg.Address)
	}
	logger.Info("Connected to Vault", "address", apiCfg.Address, "version", health.Version)

	return &VaultClient{client: client, logger: logger}, nil
}

// resolveVaultToken picks the configured token, the token file, or the
// token the API client found in its environment
func resolveVaultToken(cfg VaultConfig, envToken string) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	if cfg.TokenFile != "" {
		b, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		if token := strings.TrimSpace(string(b)); token != "" {
			return token, nil
		}
		return "", fmt.Errorf("vault token file %s is empty", cfg.TokenFile)
	}
	if envToken != "" {
		return envToken, nil
	}
	return "", fmt.Errorf("vault token is required when vault is enabled")
}

// ReadKV reads a KVv2 secret and returns its data
func (vc *VaultClient) ReadKV(ctx context.Context, path string) (map[string]any, error) {
	secret, err := vc.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s: %w", path, err)
	}
	return kvData(secret, path)
}

func kvData(secret *api.Secret, path string) (map[string]any, error) {
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at %s", path)
	}
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not a KVv2 secret", path)
	}
	return data, nil
}

// secretBinding copies one Vault secret into the config. apply returns the
// number of settings it changed.
type secretBinding struct {
	name  string
	path  string
	apply func(cfg *Config, data map[string]any) (int, error)
}

func secretBindings(s VaultSecrets) []secretBinding {
	return []secretBinding{
		{"endpoint API key", s.EndpointKey, func(cfg *Config, data map[string]any) (int, error) {
			return setString(data, "api_key", &cfg.Endpoint.APIKey)
		}},
		{"JWT signing secret", s.JWTSecret, func(cfg *Config, data map[string]any) (int, error) {
			return setString(data, "secret", &cfg.Endpoint.JWT.Secret)
		}},
		{"bridge API keys", s.BridgeKeys, applyBridgeKeys},
		{"endpoint TLS material", s.TLSCerts, applyTLSMaterial},
	}
}

// ApplyVaultSecrets overwrites config secrets with the values stored in
// Vault. It does nothing when Vault is disabled.
func ApplyVaultSecrets(cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		return nil
	}
	if logger == nil {
		logger = errors.Discard()
	}

	ctx, cancel := context.WithTimeout(context.Background(), vaultTimeout)
	defer cancel()

	client, err := NewVaultClient(ctx, cfg.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return applySecrets(ctx, client, cfg, logger)
}

func applySecrets(ctx context.Context, r kvReader, cfg *Config, logger *errors.Logger) error {
	for _, b := range secretBindings(cfg.Vault.Secrets) {
		if b.path == "" {
			continue
		}
		data, err := r.ReadKV(ctx, b.path)
		if err != nil {
			return fmt.Errorf("failed to load %s from vault: %w", b.name, err)
		}
		n, err := b.apply(cfg, data)
		if err != nil {
			return fmt.Errorf("failed to load %s from vault: %s: %w", b.name, b.path, err)
		}
		if n == 0 {
			logger.Warn("Vault secret is empty, keeping configured value", "secret", b.name, "path", b.path)
			continue
		}
		logger.Info("Loaded secret from Vault", "secret", b.name, "values", n)
	}
	return nil
}

// setString stores a non-empty string value; an empty one is left out
func setString(data map[string]any, key string, target *string) (int, error) {
	raw, ok := data[key]
	if !ok {
		return 0, fmt.Errorf("key %q not found", key)
	}
	s, ok := raw.(string)
	if !ok {
		return 0, fmt.Errorf("key %q is %T, not a string", key, raw)
	}
	if s == "" {
		return 0, nil
	}
	*target = s
	return 1, nil
}

func applyBridgeKeys(cfg *Config, data map[string]any) (int, error) {
	var keys []string
	switch v := data["keys"].(type) {
	case string:
		keys = splitAndTrim(v)
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				keys = append(keys, strings.TrimSpace(s))
			}
		}
	case nil:
		return 0, fmt.Errorf("key %q not found", "keys")
	default:
		return 0, fmt.Errorf("key %q is %T, not a list", "keys", v)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	cfg.Server.APIKeys = keys
	return len(keys), nil
}

// applyTLSMaterial sets inline PEM content; content from Vault replaces a
// configured file path for the same item
func applyTLSMaterial(cfg *Config, data map[string]any) (int, error) {
	tls := &cfg.Endpoint.TLS
	items := []struct {
		key     string
		content *string
		file    *string
	}{
		{"cert", &tls.CertContent, &tls.CertFile},
		{"key", &tls.KeyContent, &tls.KeyFile},
		{"ca", &tls.CAContent, &tls.CAFile},
	}

	n := 0
	for _, it := range items {
		if pem, ok := data[it.key].(string); ok && pem != "" {
			*it.content = pem
			*it.file = ""
			n++
		}
	}
	return n, nil
}
