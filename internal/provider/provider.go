// Package provider holds the static per-provider OAuth configuration.
// One generic flow consumes these descriptors; there is no per-provider
// handler logic anywhere else in the codebase.
package provider

import (
	"fmt"
	"sort"

	"golang.org/x/oauth2"
)

// Descriptor is the immutable, process-wide configuration for one OAuth
// provider. Built once at startup and passed by reference; never mutated.
type Descriptor struct {
	ID          string
	DisplayName string

	ClientID     string
	ClientSecret string
	AuthorizeURL string
	TokenURL     string
	Scopes       []string
	RedirectURI  string

	// SupportsRefresh enables the refresh sub-flow in the credential
	// accessor when a refresh token is present.
	SupportsRefresh bool

	// RevokeWithProvider makes logout call the provider's revocation
	// endpoint in addition to clearing local state. Off by default.
	RevokeWithProvider bool
	RevocationURL      string

	// AccountIDField and AccountNameField name the token-response extras
	// that identify the provider-side account (e.g. slack's team_id and
	// team_name). Left empty for providers without account extras.
	AccountIDField   string
	AccountNameField string
}

// OAuth2Config builds the oauth2 client configuration for this provider.
func (d *Descriptor) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     d.ClientID,
		ClientSecret: d.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  d.AuthorizeURL,
			TokenURL: d.TokenURL,
		},
		RedirectURL: d.RedirectURI,
		Scopes:      d.Scopes,
	}
}

// Registry is an immutable lookup table of provider descriptors.
type Registry struct {
	providers map[string]*Descriptor
}

// NewRegistry builds a registry from the given descriptors.
func NewRegistry(descriptors []*Descriptor) (*Registry, error) {
	providers := make(map[string]*Descriptor, len(descriptors))
	for _, d := range descriptors {
		if d.ID == "" {
			return nil, fmt.Errorf("provider descriptor missing id")
		}
		if _, exists := providers[d.ID]; exists {
			return nil, fmt.Errorf("duplicate provider id: %s", d.ID)
		}
		if d.AuthorizeURL == "" || d.TokenURL == "" {
			return nil, fmt.Errorf("provider %s missing endpoint configuration", d.ID)
		}
		if d.ClientID == "" {
			return nil, fmt.Errorf("provider %s missing clientId", d.ID)
		}
		providers[d.ID] = d
	}
	return &Registry{providers: providers}, nil
}

// Get returns the descriptor for a provider id.
func (r *Registry) Get(id string) (*Descriptor, bool) {
	d, ok := r.providers[id]
	return d, ok
}

// IDs returns all registered provider ids, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.providers))
	for id := range r.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
