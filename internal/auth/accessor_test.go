package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/assistkit/connectd/internal/metrics"
	"github.com/assistkit/connectd/internal/provider"
	"github.com/assistkit/connectd/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func refreshingConnector(t *testing.T, tokenURL string, tokens store.TokenStore) *Connector {
	t.Helper()

	desc := &provider.Descriptor{
		ID:              "github",
		ClientID:        "github-client-id",
		ClientSecret:    "github-client-secret",
		AuthorizeURL:    "https://github.example.com/login/oauth/authorize",
		TokenURL:        tokenURL,
		RedirectURI:     "http://localhost:6100/authenticate-github/callback",
		SupportsRefresh: true,
	}
	reg, err := provider.NewRegistry([]*provider.Descriptor{desc})
	require.NoError(t, err)
	return NewConnector(reg, tokens, []byte("accessor-test-signing-key-accessor"), metrics.Nop{})
}

func TestTokenNotConnected(t *testing.T) {
	c := newTestConnector(t, "https://example.com/token", store.NewMemoryStore())

	_, err := c.Token(context.Background(), "u1", "slack")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestTokenEmptyRecordIsNotConnected(t *testing.T) {
	tokens := store.NewMemoryStore()
	c := newTestConnector(t, "https://example.com/token", tokens)
	ctx := context.Background()

	require.NoError(t, tokens.Put(ctx, "u1", "slack", &store.TokenRecord{UpdatedAt: time.Now()}))

	_, err := c.Token(ctx, "u1", "slack")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestTokenUnknownProvider(t *testing.T) {
	c := newTestConnector(t, "https://example.com/token", store.NewMemoryStore())

	_, err := c.Token(context.Background(), "u1", "gitlab")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestTokenNonExpiring(t *testing.T) {
	tokens := store.NewMemoryStore()
	c := newTestConnector(t, "https://example.com/token", tokens)
	ctx := context.Background()

	require.NoError(t, tokens.Put(ctx, "u1", "slack", &store.TokenRecord{AccessToken: "tok1"}))

	token, err := c.Token(ctx, "u1", "slack")
	require.NoError(t, err)
	assert.Equal(t, "tok1", token.AccessToken)
}

func TestTokenFreshIsReturnedWithoutRefresh(t *testing.T) {
	tokens := store.NewMemoryStore()
	c := newTestConnector(t, "https://example.com/token", tokens)
	ctx := context.Background()

	require.NoError(t, tokens.Put(ctx, "u1", "slack", &store.TokenRecord{
		AccessToken: "tok1",
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	token, err := c.Token(ctx, "u1", "slack")
	require.NoError(t, err)
	assert.Equal(t, "tok1", token.AccessToken)
}

func TestTokenExpiredWithoutRefreshToken(t *testing.T) {
	tokens := store.NewMemoryStore()
	c := newTestConnector(t, "https://example.com/token", tokens)
	ctx := context.Background()

	require.NoError(t, tokens.Put(ctx, "u1", "slack", &store.TokenRecord{
		AccessToken: "tok1",
		ExpiresAt:   time.Now().Add(-time.Hour),
	}))

	_, err := c.Token(ctx, "u1", "slack")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenInsideThresholdWithoutRefreshStillValid(t *testing.T) {
	tokens := store.NewMemoryStore()
	c := newTestConnector(t, "https://example.com/token", tokens)
	ctx := context.Background()

	// Expires in 2 minutes: inside the refresh threshold but not yet expired,
	// and slack has no refresh support configured here.
	require.NoError(t, tokens.Put(ctx, "u1", "slack", &store.TokenRecord{
		AccessToken: "tok1",
		ExpiresAt:   time.Now().Add(2 * time.Minute),
	}))

	token, err := c.Token(ctx, "u1", "slack")
	require.NoError(t, err)
	assert.Equal(t, "tok1", token.AccessToken)
}

func TestTokenRefreshesNearExpiry(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
		assert.Equal(t, "refresh1", r.FormValue("refresh_token"))

		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "tok2",
			"refresh_token": "refresh2",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
		require.NoError(t, err)
	}))
	defer tokenServer.Close()

	tokens := store.NewMemoryStore()
	c := refreshingConnector(t, tokenServer.URL, tokens)
	ctx := context.Background()

	require.NoError(t, tokens.Put(ctx, "u1", "github", &store.TokenRecord{
		AccessToken:  "tok1",
		RefreshToken: "refresh1",
		ExpiresAt:    time.Now().Add(time.Minute),
	}))

	token, err := c.Token(ctx, "u1", "github")
	require.NoError(t, err)
	assert.Equal(t, "tok2", token.AccessToken)

	stored, err := tokens.Get(ctx, "u1", "github")
	require.NoError(t, err)
	assert.Equal(t, "tok2", stored.AccessToken)
	assert.Equal(t, "refresh2", stored.RefreshToken)
	assert.True(t, stored.ExpiresAt.After(time.Now().Add(30*time.Minute)))
}

func TestTokenRefreshPreservesRefreshToken(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// Providers commonly omit the refresh token on refresh responses.
		err := json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok2",
			"expires_in":   3600,
		})
		require.NoError(t, err)
	}))
	defer tokenServer.Close()

	tokens := store.NewMemoryStore()
	c := refreshingConnector(t, tokenServer.URL, tokens)
	ctx := context.Background()

	require.NoError(t, tokens.Put(ctx, "u1", "github", &store.TokenRecord{
		AccessToken:  "tok1",
		RefreshToken: "refresh1",
		ExpiresAt:    time.Now().Add(time.Minute),
	}))

	_, err := c.Token(ctx, "u1", "github")
	require.NoError(t, err)

	stored, err := tokens.Get(ctx, "u1", "github")
	require.NoError(t, err)
	assert.Equal(t, "refresh1", stored.RefreshToken)
}

func TestTokenRefreshFailureLeavesRecordIntact(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer tokenServer.Close()

	tokens := store.NewMemoryStore()
	c := refreshingConnector(t, tokenServer.URL, tokens)
	ctx := context.Background()

	require.NoError(t, tokens.Put(ctx, "u1", "github", &store.TokenRecord{
		AccessToken:  "tok1",
		RefreshToken: "refresh1",
		ExpiresAt:    time.Now().Add(time.Minute),
	}))

	_, err := c.Token(ctx, "u1", "github")
	assert.ErrorIs(t, err, ErrTokenExpired)

	stored, getErr := tokens.Get(ctx, "u1", "github")
	require.NoError(t, getErr)
	assert.Equal(t, "tok1", stored.AccessToken)
	assert.Equal(t, "refresh1", stored.RefreshToken)
}

func TestTokenConcurrentRefreshIsShared(t *testing.T) {
	var refreshCalls atomic.Int32
	release := make(chan struct{})
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		<-release

		w.Header().Set("Content-Type", "application/json")
		err := json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok2",
			"expires_in":   3600,
		})
		require.NoError(t, err)
	}))
	defer tokenServer.Close()

	tokens := store.NewMemoryStore()
	c := refreshingConnector(t, tokenServer.URL, tokens)
	ctx := context.Background()

	require.NoError(t, tokens.Put(ctx, "u1", "github", &store.TokenRecord{
		AccessToken:  "tok1",
		RefreshToken: "refresh1",
		ExpiresAt:    time.Now().Add(time.Minute),
	}))

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := c.Token(ctx, "u1", "github")
			if assert.NoError(t, err) {
				results[i] = token.AccessToken
			}
		}(i)
	}

	// Let every caller reach the singleflight gate before the
	// in-flight refresh completes.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), refreshCalls.Load(), "concurrent callers share one refresh")
	for _, access := range results {
		assert.Equal(t, "tok2", access)
	}
}
