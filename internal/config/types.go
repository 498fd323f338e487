package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// StorageKind selects the token store backend
type StorageKind string

const (
	StorageMemory    StorageKind = "memory"
	StorageRedis     StorageKind = "redis"
	StorageFirestore StorageKind = "firestore"
)

// ServerConfig holds the HTTP server and storage settings with resolved values
type ServerConfig struct {
	BaseURL             string      `json:"baseURL"`
	Addr                string      `json:"addr"`
	PostAuthRedirect    string      `json:"postAuthRedirect"`
	SigningKey          Secret      `json:"signingKey"`
	InternalAPIToken    Secret      `json:"internalApiToken"`
	Storage             StorageKind `json:"storage"`
	RedisURL            string      `json:"redisUrl,omitempty"`
	GCPProject          string      `json:"gcpProject,omitempty"`
	FirestoreDatabase   string      `json:"firestoreDatabase,omitempty"`
	FirestoreCollection string      `json:"firestoreCollection,omitempty"`
}

// ProviderConfig holds one OAuth provider's settings with resolved values.
// For the built-in providers (slack, github, linear) the endpoint URLs and
// account fields default to well-known values; any field set here overrides
// the default.
type ProviderConfig struct {
	DisplayName        string   `json:"displayName,omitempty"`
	ClientID           string   `json:"clientId"`
	ClientSecret       Secret   `json:"clientSecret"`
	AuthorizeURL       string   `json:"authorizeUrl,omitempty"`
	TokenURL           string   `json:"tokenUrl,omitempty"`
	Scopes             []string `json:"scopes,omitempty"`
	SupportsRefresh    *bool    `json:"supportsRefresh,omitempty"`
	RevokeWithProvider *bool    `json:"revokeWithProvider,omitempty"`
	RevocationURL      string   `json:"revocationUrl,omitempty"`
	AccountIDField     string   `json:"accountIdField,omitempty"`
	AccountNameField   string   `json:"accountNameField,omitempty"`
}

// Config represents the config structure with resolved values
type Config struct {
	Server    ServerConfig               `json:"server"`
	Providers map[string]*ProviderConfig `json:"providers"`
}

// RawConfigValue represents a value that could be a string or env ref.
// This is only used during parsing, not in the final config.
type RawConfigValue struct {
	value string
}

// ParseConfigValue parses a JSON value that could be a string or an
// {"$env": "VAR_NAME"} reference object. The explicit JSON syntax avoids
// accidental shell expansion of $VAR in startup scripts and makes invalid
// references a parse-time error instead of a runtime surprise.
func ParseConfigValue(raw json.RawMessage) (*RawConfigValue, error) {
	// Try plain string first
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return &RawConfigValue{value: str}, nil
	}

	// Try reference object
	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("config value must be string or reference object")
	}

	if envVar, ok := ref["$env"]; ok {
		value := os.Getenv(envVar)
		if value == "" {
			return nil, fmt.Errorf("environment variable %s not set", envVar)
		}
		// Strip surrounding quotes if present (only matching pairs)
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}
		return &RawConfigValue{value: value}, nil
	}

	return nil, fmt.Errorf("unknown reference type in config value")
}
