package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Load loads and processes the config with immediate env var resolution
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	version, ok := rawConfig["version"].(string)
	if !ok {
		return Config{}, fmt.Errorf("config version is required")
	}
	if !strings.HasPrefix(version, "v1") {
		return Config{}, fmt.Errorf("unsupported config version: %s", version)
	}

	if err := validateRawConfig(rawConfig); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	// Parse directly into typed Config struct
	// The custom UnmarshalJSON methods will resolve env vars immediately
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validateRawConfig validates the config structure before environment
// resolution: secret material must come from env references, never from
// literal strings checked into the config file.
func validateRawConfig(rawConfig map[string]any) error {
	if server, ok := rawConfig["server"].(map[string]any); ok {
		for _, name := range []string{"signingKey", "internalApiToken"} {
			if err := requireEnvRef(name, server[name]); err != nil {
				return err
			}
		}
	}

	if providers, ok := rawConfig["providers"].(map[string]any); ok {
		for id, rawProvider := range providers {
			provider, ok := rawProvider.(map[string]any)
			if !ok {
				continue
			}
			if err := requireEnvRef(fmt.Sprintf("providers.%s.clientSecret", id), provider["clientSecret"]); err != nil {
				return err
			}
		}
	}

	return nil
}

func requireEnvRef(name string, value any) error {
	if value == nil {
		return nil
	}
	if _, isString := value.(string); isString {
		return fmt.Errorf("%s must use environment variable reference for security", name)
	}
	if refMap, isMap := value.(map[string]any); isMap {
		if _, hasEnv := refMap["$env"]; !hasEnv {
			return fmt.Errorf("%s must use {\"$env\": \"VAR_NAME\"} format", name)
		}
	}
	return nil
}

// ValidateConfig validates the resolved configuration
func ValidateConfig(config *Config) error {
	if config.Server.BaseURL == "" {
		return fmt.Errorf("server.baseURL is required")
	}
	if config.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if len(config.Server.SigningKey) < 32 {
		return fmt.Errorf("server.signingKey must be at least 32 characters (got %d). Generate with: openssl rand -base64 32", len(config.Server.SigningKey))
	}

	switch config.Server.Storage {
	case StorageMemory:
	case StorageRedis:
		if config.Server.RedisURL == "" {
			return fmt.Errorf("server.redisUrl is required when using redis storage")
		}
	case StorageFirestore:
		if config.Server.GCPProject == "" {
			return fmt.Errorf("server.gcpProject is required when using firestore storage")
		}
	default:
		return fmt.Errorf("unknown storage kind: %s (must be memory, redis, or firestore)", config.Server.Storage)
	}

	if len(config.Providers) == 0 {
		return fmt.Errorf("at least one provider is required")
	}
	for id, provider := range config.Providers {
		if err := validateProvider(id, provider); err != nil {
			return err
		}
	}

	return nil
}

func validateProvider(id string, p *ProviderConfig) error {
	if p.ClientID == "" {
		return fmt.Errorf("provider %s: clientId is required", id)
	}
	if p.ClientSecret == "" {
		return fmt.Errorf("provider %s: clientSecret is required", id)
	}
	if !isKnownProvider(id) {
		// Custom providers have no endpoint defaults to fall back on
		if p.AuthorizeURL == "" || p.TokenURL == "" {
			return fmt.Errorf("provider %s: authorizeUrl and tokenUrl are required for custom providers", id)
		}
	}
	revoke := p.RevokeWithProvider != nil && *p.RevokeWithProvider
	if revoke && p.RevocationURL == "" && !isKnownProvider(id) {
		return fmt.Errorf("provider %s: revocationUrl is required when revokeWithProvider is set", id)
	}
	return nil
}
