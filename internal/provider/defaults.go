package provider

import "golang.org/x/oauth2/endpoints"

// Default endpoint and scope configuration for the providers connectd
// ships with. Config supplies credentials and may override any field.

// NewSlackDescriptor returns a descriptor for Slack workspace access.
// Slack reports the connected workspace in the token response extras.
func NewSlackDescriptor(clientID, clientSecret, redirectURI string) *Descriptor {
	return &Descriptor{
		ID:               "slack",
		DisplayName:      "Slack",
		ClientID:         clientID,
		ClientSecret:     clientSecret,
		AuthorizeURL:     endpoints.Slack.AuthURL,
		TokenURL:         endpoints.Slack.TokenURL,
		Scopes:           []string{"channels:history", "channels:read", "chat:write"},
		RedirectURI:      redirectURI,
		AccountIDField:   "team_id",
		AccountNameField: "team_name",
	}
}

// NewGitHubDescriptor returns a descriptor for GitHub repository access.
// GitHub access tokens do not expire and there is no refresh flow.
func NewGitHubDescriptor(clientID, clientSecret, redirectURI string) *Descriptor {
	return &Descriptor{
		ID:           "github",
		DisplayName:  "GitHub",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthorizeURL: endpoints.GitHub.AuthURL,
		TokenURL:     endpoints.GitHub.TokenURL,
		Scopes:       []string{"repo", "read:user"},
		RedirectURI:  redirectURI,
	}
}

// NewLinearDescriptor returns a descriptor for the Linear project tracker.
func NewLinearDescriptor(clientID, clientSecret, redirectURI string) *Descriptor {
	return &Descriptor{
		ID:            "linear",
		DisplayName:   "Linear",
		ClientID:      clientID,
		ClientSecret:  clientSecret,
		AuthorizeURL:  "https://linear.app/oauth/authorize",
		TokenURL:      "https://api.linear.app/oauth/token",
		Scopes:        []string{"read"},
		RedirectURI:   redirectURI,
		RevocationURL: "https://api.linear.app/oauth/revoke",
	}
}
