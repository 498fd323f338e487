package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func setTestSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("CONNECTD_SIGNING_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("SLACK_CLIENT_SECRET", "slack-secret")
}

const validConfig = `{
  "version": "v1",
  "server": {
    "baseURL": "https://connectd.example.com",
    "addr": ":6100",
    "signingKey": {"$env": "CONNECTD_SIGNING_KEY"},
    "storage": "memory"
  },
  "providers": {
    "slack": {
      "clientId": "slack-client-id",
      "clientSecret": {"$env": "SLACK_CLIENT_SECRET"}
    }
  }
}`

func TestLoadValidConfig(t *testing.T) {
	setTestSecrets(t)

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://connectd.example.com", cfg.Server.BaseURL)
	assert.Equal(t, ":6100", cfg.Server.Addr)
	assert.Equal(t, StorageMemory, cfg.Server.Storage)
	assert.Equal(t, Secret("0123456789abcdef0123456789abcdef"), cfg.Server.SigningKey)

	slack := cfg.Providers["slack"]
	require.NotNil(t, slack)
	assert.Equal(t, "slack-client-id", slack.ClientID)
	assert.Equal(t, Secret("slack-secret"), slack.ClientSecret)
}

func TestLoadRequiresVersion(t *testing.T) {
	setTestSecrets(t)

	_, err := Load(writeConfig(t, `{"server": {}, "providers": {}}`))
	assert.ErrorContains(t, err, "version is required")
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	setTestSecrets(t)

	_, err := Load(writeConfig(t, `{"version": "v99", "server": {}, "providers": {}}`))
	assert.ErrorContains(t, err, "unsupported config version")
}

func TestLoadRejectsLiteralSecrets(t *testing.T) {
	setTestSecrets(t)

	literal := `{
	  "version": "v1",
	  "server": {
	    "baseURL": "https://connectd.example.com",
	    "addr": ":6100",
	    "signingKey": "literal-signing-key-literal-key!"
	  },
	  "providers": {
	    "slack": {
	      "clientId": "id",
	      "clientSecret": {"$env": "SLACK_CLIENT_SECRET"}
	    }
	  }
	}`
	_, err := Load(writeConfig(t, literal))
	assert.ErrorContains(t, err, "signingKey must use environment variable reference")
}

func TestLoadRejectsLiteralProviderSecret(t *testing.T) {
	setTestSecrets(t)

	literal := `{
	  "version": "v1",
	  "server": {
	    "baseURL": "https://connectd.example.com",
	    "addr": ":6100",
	    "signingKey": {"$env": "CONNECTD_SIGNING_KEY"}
	  },
	  "providers": {
	    "slack": {
	      "clientId": "id",
	      "clientSecret": "literal"
	    }
	  }
	}`
	_, err := Load(writeConfig(t, literal))
	assert.ErrorContains(t, err, "clientSecret must use environment variable reference")
}

func TestLoadMissingEnvVar(t *testing.T) {
	t.Setenv("CONNECTD_SIGNING_KEY", "0123456789abcdef0123456789abcdef")
	// SLACK_CLIENT_SECRET deliberately unset
	os.Unsetenv("SLACK_CLIENT_SECRET")

	_, err := Load(writeConfig(t, validConfig))
	assert.ErrorContains(t, err, "SLACK_CLIENT_SECRET not set")
}

func TestLoadRejectsShortSigningKey(t *testing.T) {
	t.Setenv("CONNECTD_SIGNING_KEY", "too-short")
	t.Setenv("SLACK_CLIENT_SECRET", "slack-secret")

	_, err := Load(writeConfig(t, validConfig))
	assert.ErrorContains(t, err, "signingKey must be at least 32 characters")
}

func TestLoadRedisStorageRequiresURL(t *testing.T) {
	setTestSecrets(t)

	cfg := `{
	  "version": "v1",
	  "server": {
	    "baseURL": "https://connectd.example.com",
	    "addr": ":6100",
	    "signingKey": {"$env": "CONNECTD_SIGNING_KEY"},
	    "storage": "redis"
	  },
	  "providers": {
	    "slack": {"clientId": "id", "clientSecret": {"$env": "SLACK_CLIENT_SECRET"}}
	  }
	}`
	_, err := Load(writeConfig(t, cfg))
	assert.ErrorContains(t, err, "redisUrl is required")
}

func TestLoadCustomProviderRequiresEndpoints(t *testing.T) {
	setTestSecrets(t)

	cfg := `{
	  "version": "v1",
	  "server": {
	    "baseURL": "https://connectd.example.com",
	    "addr": ":6100",
	    "signingKey": {"$env": "CONNECTD_SIGNING_KEY"}
	  },
	  "providers": {
	    "gitlab": {"clientId": "id", "clientSecret": {"$env": "SLACK_CLIENT_SECRET"}}
	  }
	}`
	_, err := Load(writeConfig(t, cfg))
	assert.ErrorContains(t, err, "authorizeUrl and tokenUrl are required")
}

func TestBuildRegistryDefaults(t *testing.T) {
	setTestSecrets(t)

	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	reg, err := BuildRegistry(&cfg)
	require.NoError(t, err)

	slack, ok := reg.Get("slack")
	require.True(t, ok)
	assert.Equal(t, "slack-client-id", slack.ClientID)
	assert.Equal(t, "https://connectd.example.com/authenticate-slack/callback", slack.RedirectURI)
	assert.Equal(t, "team_id", slack.AccountIDField)
	assert.NotEmpty(t, slack.AuthorizeURL)
	assert.NotEmpty(t, slack.TokenURL)
}

func TestBuildRegistryOverrides(t *testing.T) {
	setTestSecrets(t)

	cfg := fmt.Sprintf(`{
	  "version": "v1",
	  "server": {
	    "baseURL": "https://connectd.example.com",
	    "addr": ":6100",
	    "signingKey": {"$env": "CONNECTD_SIGNING_KEY"}
	  },
	  "providers": {
	    "slack": {
	      "clientId": "id",
	      "clientSecret": {"$env": "SLACK_CLIENT_SECRET"},
	      "scopes": ["chat:write"],
	      "tokenUrl": %q
	    }
	  }
	}`, "https://slack.internal.example.com/api/oauth.v2.access")

	loaded, err := Load(writeConfig(t, cfg))
	require.NoError(t, err)

	reg, err := BuildRegistry(&loaded)
	require.NoError(t, err)

	slack, ok := reg.Get("slack")
	require.True(t, ok)
	assert.Equal(t, []string{"chat:write"}, slack.Scopes)
	assert.Equal(t, "https://slack.internal.example.com/api/oauth.v2.access", slack.TokenURL)
}

func TestSecretRedaction(t *testing.T) {
	s := Secret("super-secret")
	assert.Equal(t, "***", s.String())
	assert.Equal(t, "***", fmt.Sprintf("%v", s))
	assert.Equal(t, "***", fmt.Sprintf("%s", s))

	data, err := json.Marshal(struct {
		Key Secret `json:"key"`
	}{Key: s})
	require.NoError(t, err)
	assert.Equal(t, `{"key":"***"}`, string(data))
	assert.NotContains(t, string(data), "super-secret")
}

func TestSecretEmptyStaysEmpty(t *testing.T) {
	assert.Equal(t, "", Secret("").String())
}

func TestParseConfigValuePlainString(t *testing.T) {
	parsed, err := ParseConfigValue(json.RawMessage(`"plain"`))
	require.NoError(t, err)
	assert.Equal(t, "plain", parsed.value)
}

func TestParseConfigValueStripsQuotes(t *testing.T) {
	t.Setenv("QUOTED_VALUE", `"quoted"`)

	parsed, err := ParseConfigValue(json.RawMessage(`{"$env": "QUOTED_VALUE"}`))
	require.NoError(t, err)
	assert.Equal(t, "quoted", parsed.value)
}

func TestParseConfigValueUnknownRef(t *testing.T) {
	_, err := ParseConfigValue(json.RawMessage(`{"$vault": "secret/path"}`))
	assert.ErrorContains(t, err, "unknown reference type")
}
