package config

import (
	"encoding/json"
	"fmt"
)

// UnmarshalJSON implements custom unmarshaling for ServerConfig
func (s *ServerConfig) UnmarshalJSON(data []byte) error {
	// Use a raw type to parse references
	type rawServer struct {
		BaseURL             json.RawMessage `json:"baseURL"`
		Addr                json.RawMessage `json:"addr"`
		PostAuthRedirect    json.RawMessage `json:"postAuthRedirect"`
		SigningKey          json.RawMessage `json:"signingKey"`
		InternalAPIToken    json.RawMessage `json:"internalApiToken"`
		Storage             StorageKind     `json:"storage"`
		RedisURL            json.RawMessage `json:"redisUrl,omitempty"`
		GCPProject          json.RawMessage `json:"gcpProject,omitempty"`
		FirestoreDatabase   string          `json:"firestoreDatabase,omitempty"`
		FirestoreCollection string          `json:"firestoreCollection,omitempty"`
	}

	var raw rawServer
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Storage = raw.Storage
	s.FirestoreDatabase = raw.FirestoreDatabase
	s.FirestoreCollection = raw.FirestoreCollection

	if raw.BaseURL != nil {
		parsed, err := ParseConfigValue(raw.BaseURL)
		if err != nil {
			return fmt.Errorf("parsing baseURL: %w", err)
		}
		s.BaseURL = parsed.value
	}

	if raw.Addr != nil {
		parsed, err := ParseConfigValue(raw.Addr)
		if err != nil {
			return fmt.Errorf("parsing addr: %w", err)
		}
		s.Addr = parsed.value
	}

	if raw.PostAuthRedirect != nil {
		parsed, err := ParseConfigValue(raw.PostAuthRedirect)
		if err != nil {
			return fmt.Errorf("parsing postAuthRedirect: %w", err)
		}
		s.PostAuthRedirect = parsed.value
	}

	if raw.SigningKey != nil {
		parsed, err := ParseConfigValue(raw.SigningKey)
		if err != nil {
			return fmt.Errorf("parsing signingKey: %w", err)
		}
		s.SigningKey = Secret(parsed.value)
	}

	if raw.InternalAPIToken != nil {
		parsed, err := ParseConfigValue(raw.InternalAPIToken)
		if err != nil {
			return fmt.Errorf("parsing internalApiToken: %w", err)
		}
		s.InternalAPIToken = Secret(parsed.value)
	}

	if raw.RedisURL != nil {
		parsed, err := ParseConfigValue(raw.RedisURL)
		if err != nil {
			return fmt.Errorf("parsing redisUrl: %w", err)
		}
		s.RedisURL = parsed.value
	}

	if raw.GCPProject != nil {
		parsed, err := ParseConfigValue(raw.GCPProject)
		if err != nil {
			return fmt.Errorf("parsing gcpProject: %w", err)
		}
		s.GCPProject = parsed.value
	}

	if s.Storage == "" {
		s.Storage = StorageMemory
	}
	if s.Storage == StorageFirestore && s.FirestoreDatabase == "" {
		s.FirestoreDatabase = "(default)"
	}

	return nil
}

// UnmarshalJSON implements custom unmarshaling for ProviderConfig
func (p *ProviderConfig) UnmarshalJSON(data []byte) error {
	type rawProvider struct {
		DisplayName        string          `json:"displayName,omitempty"`
		ClientID           json.RawMessage `json:"clientId"`
		ClientSecret       json.RawMessage `json:"clientSecret"`
		AuthorizeURL       string          `json:"authorizeUrl,omitempty"`
		TokenURL           string          `json:"tokenUrl,omitempty"`
		Scopes             []string        `json:"scopes,omitempty"`
		SupportsRefresh    *bool           `json:"supportsRefresh,omitempty"`
		RevokeWithProvider *bool           `json:"revokeWithProvider,omitempty"`
		RevocationURL      string          `json:"revocationUrl,omitempty"`
		AccountIDField     string          `json:"accountIdField,omitempty"`
		AccountNameField   string          `json:"accountNameField,omitempty"`
	}

	var raw rawProvider
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	p.DisplayName = raw.DisplayName
	p.AuthorizeURL = raw.AuthorizeURL
	p.TokenURL = raw.TokenURL
	p.Scopes = raw.Scopes
	p.SupportsRefresh = raw.SupportsRefresh
	p.RevokeWithProvider = raw.RevokeWithProvider
	p.RevocationURL = raw.RevocationURL
	p.AccountIDField = raw.AccountIDField
	p.AccountNameField = raw.AccountNameField

	if raw.ClientID != nil {
		parsed, err := ParseConfigValue(raw.ClientID)
		if err != nil {
			return fmt.Errorf("parsing clientId: %w", err)
		}
		p.ClientID = parsed.value
	}

	if raw.ClientSecret != nil {
		parsed, err := ParseConfigValue(raw.ClientSecret)
		if err != nil {
			return fmt.Errorf("parsing clientSecret: %w", err)
		}
		p.ClientSecret = Secret(parsed.value)
	}

	return nil
}
