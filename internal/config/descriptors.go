package config

import (
	"fmt"
	"sort"

	"github.com/assistkit/connectd/internal/provider"
	"github.com/assistkit/connectd/internal/urlutil"
)

func isKnownProvider(id string) bool {
	switch id {
	case "slack", "github", "linear":
		return true
	}
	return false
}

// BuildRegistry turns the provider config map into a descriptor registry.
// Built-in providers start from their default descriptor; custom providers
// start empty. Config fields then override descriptor fields one by one.
func BuildRegistry(cfg *Config) (*provider.Registry, error) {
	ids := make([]string, 0, len(cfg.Providers))
	for id := range cfg.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	descriptors := make([]*provider.Descriptor, 0, len(ids))
	for _, id := range ids {
		desc, err := buildDescriptor(cfg, id, cfg.Providers[id])
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, desc)
	}
	return provider.NewRegistry(descriptors)
}

func buildDescriptor(cfg *Config, id string, p *ProviderConfig) (*provider.Descriptor, error) {
	redirectURI, err := urlutil.JoinPath(cfg.Server.BaseURL, "authenticate-"+id, "callback")
	if err != nil {
		return nil, fmt.Errorf("provider %s: building callback url: %w", id, err)
	}

	var desc *provider.Descriptor
	switch id {
	case "slack":
		desc = provider.NewSlackDescriptor(p.ClientID, string(p.ClientSecret), redirectURI)
	case "github":
		desc = provider.NewGitHubDescriptor(p.ClientID, string(p.ClientSecret), redirectURI)
	case "linear":
		desc = provider.NewLinearDescriptor(p.ClientID, string(p.ClientSecret), redirectURI)
	default:
		if !validProviderID(id) {
			return nil, fmt.Errorf("provider id %q must be lowercase letters, digits, and hyphens", id)
		}
		desc = &provider.Descriptor{
			ID:           id,
			DisplayName:  id,
			ClientID:     p.ClientID,
			ClientSecret: string(p.ClientSecret),
			RedirectURI:  redirectURI,
		}
	}

	if p.DisplayName != "" {
		desc.DisplayName = p.DisplayName
	}
	if p.AuthorizeURL != "" {
		desc.AuthorizeURL = p.AuthorizeURL
	}
	if p.TokenURL != "" {
		desc.TokenURL = p.TokenURL
	}
	if len(p.Scopes) > 0 {
		desc.Scopes = p.Scopes
	}
	if p.SupportsRefresh != nil {
		desc.SupportsRefresh = *p.SupportsRefresh
	}
	if p.RevokeWithProvider != nil {
		desc.RevokeWithProvider = *p.RevokeWithProvider
	}
	if p.RevocationURL != "" {
		desc.RevocationURL = p.RevocationURL
	}
	if p.AccountIDField != "" {
		desc.AccountIDField = p.AccountIDField
	}
	if p.AccountNameField != "" {
		desc.AccountNameField = p.AccountNameField
	}

	return desc, nil
}

func validProviderID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}
