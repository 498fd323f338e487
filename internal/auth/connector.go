// Package auth implements the OAuth token lifecycle: authorize-redirect
// construction, callback code exchange, credential access with refresh,
// and revocation. One generic flow serves every configured provider.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/assistkit/connectd/internal/crypto"
	"github.com/assistkit/connectd/internal/ioutil"
	"github.com/assistkit/connectd/internal/log"
	"github.com/assistkit/connectd/internal/metrics"
	"github.com/assistkit/connectd/internal/pending"
	"github.com/assistkit/connectd/internal/provider"
	"github.com/assistkit/connectd/internal/store"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

const (
	// ExchangeTimeout is the default bound on the one synchronous
	// external call per flow
	ExchangeTimeout = 10 * time.Second

	// RefreshThreshold is how early to refresh tokens before expiry so
	// they do not expire mid-operation in the action dispatcher
	RefreshThreshold = 5 * time.Minute
)

// authState is the signed payload carried in the OAuth state parameter
type authState struct {
	Nonce      string    `json:"nonce"`
	UserID     string    `json:"user_id"`
	ProviderID string    `json:"provider_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// RevocationResult reports the outcome of a revocation
type RevocationResult string

const (
	Revoked          RevocationResult = "revoked"
	AlreadyLoggedOut RevocationResult = "already_logged_out"
)

// Connector runs the OAuth authorization-code flow for every configured
// provider. It is request-scoped and safe for concurrent use; the token
// store is the only shared mutable state.
type Connector struct {
	providers       *provider.Registry
	store           store.TokenStore
	pending         *pending.Ledger
	signer          crypto.TokenSigner
	httpClient      *http.Client
	metrics         metrics.Recorder
	refreshes       singleflight.Group
	exchangeTimeout time.Duration
	now             func() time.Time
}

// NewConnector creates a Connector for the given provider registry and
// token store.
func NewConnector(providers *provider.Registry, tokens store.TokenStore, signingKey []byte, recorder metrics.Recorder) *Connector {
	return &Connector{
		providers:       providers,
		store:           tokens,
		pending:         pending.NewLedger(),
		signer:          crypto.NewTokenSigner(signingKey, pending.Window),
		httpClient:      &http.Client{Timeout: ExchangeTimeout},
		metrics:         recorder,
		exchangeTimeout: ExchangeTimeout,
		now:             time.Now,
	}
}

// Begin builds the provider's authorize URL for a user. The caller must
// already have resolved or minted the user identity and bound it to the
// response cookie. Begin performs no network I/O.
func (c *Connector) Begin(ctx context.Context, providerID, userID string) (string, error) {
	desc, ok := c.providers.Get(providerID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, providerID)
	}
	if userID == "" {
		return "", ErrUnauthenticated
	}

	nonce, err := crypto.GenerateSecureToken()
	if err != nil {
		return "", fmt.Errorf("generating state nonce: %w", err)
	}

	state, err := c.signer.Sign(authState{
		Nonce:      nonce,
		UserID:     userID,
		ProviderID: providerID,
		CreatedAt:  c.now(),
	})
	if err != nil {
		return "", fmt.Errorf("signing state: %w", err)
	}

	c.pending.Put(pending.Authorization{
		Nonce:      nonce,
		UserID:     userID,
		ProviderID: providerID,
		CreatedAt:  c.now(),
	})

	var opts []oauth2.AuthCodeOption
	if desc.SupportsRefresh {
		opts = append(opts, oauth2.AccessTypeOffline)
	}
	authURL := desc.OAuth2Config().AuthCodeURL(state, opts...)

	log.LogInfoWithFields("auth", "Starting OAuth flow", map[string]any{
		"provider": providerID,
		"user":     userID,
	})
	return authURL, nil
}

// Complete exchanges a callback's authorization code for tokens and
// persists them under the user recovered from the state parameter.
//
// This is a single-attempt operation: authorization codes are single-use,
// so a failed exchange is never retried here. The exchange itself runs on
// a context detached from the inbound request so a closed browser
// connection cannot orphan a provider code mid-exchange.
func (c *Connector) Complete(ctx context.Context, providerID, code, state string) (*store.TokenRecord, error) {
	desc, ok := c.providers.Get(providerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerID)
	}
	if code == "" {
		return nil, ErrMissingCode
	}

	var st authState
	if err := c.signer.Verify(state, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if st.ProviderID != providerID {
		return nil, fmt.Errorf("%w: provider mismatch", ErrInvalidState)
	}
	if _, ok := c.pending.Consume(st.Nonce); !ok {
		return nil, fmt.Errorf("%w: nonce %s", ErrStateReplayed, st.Nonce)
	}

	exchangeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.exchangeTimeout)
	defer cancel()
	exchangeCtx = context.WithValue(exchangeCtx, oauth2.HTTPClient, c.httpClient)

	start := c.now()
	token, err := desc.OAuth2Config().Exchange(exchangeCtx, code)
	c.metrics.RecordExchangeLatency(providerID, c.now().Sub(start))
	if err != nil {
		c.metrics.RecordExchangeFailure(providerID, "exchange_failed")
		return nil, c.exchangeError(providerID, err)
	}
	if token.AccessToken == "" {
		c.metrics.RecordExchangeFailure(providerID, "schema_mismatch")
		return nil, &ExchangeError{
			ProviderID: providerID,
			Err:        errors.New("token response missing access_token"),
		}
	}

	record := &store.TokenRecord{
		UserID:       st.UserID,
		ProviderID:   providerID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
		AccountID:    tokenExtra(token, desc.AccountIDField),
		AccountName:  tokenExtra(token, desc.AccountNameField),
		UpdatedAt:    c.now(),
	}

	if err := c.store.Put(exchangeCtx, st.UserID, providerID, record); err != nil {
		c.metrics.RecordExchangeFailure(providerID, "store_failed")
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	c.metrics.RecordExchangeSuccess(providerID)
	log.LogInfoWithFields("auth", "OAuth flow completed", map[string]any{
		"provider": providerID,
		"user":     st.UserID,
	})
	return record, nil
}

// Revoke clears the stored credentials for a (user, provider) pair.
// Revoking twice is not an error: an absent or already-empty record
// yields AlreadyLoggedOut with zero store writes.
func (c *Connector) Revoke(ctx context.Context, userID, providerID string) (RevocationResult, error) {
	desc, ok := c.providers.Get(providerID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownProvider, providerID)
	}

	record, err := c.store.Get(ctx, userID, providerID)
	if errors.Is(err, store.ErrNotFound) {
		return AlreadyLoggedOut, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if record.Empty() {
		return AlreadyLoggedOut, nil
	}

	if desc.RevokeWithProvider && desc.RevocationURL != "" {
		// Best effort: local state is authoritative either way
		c.revokeWithProvider(ctx, desc, record.AccessToken)
	}

	cleared := &store.TokenRecord{
		UserID:     userID,
		ProviderID: providerID,
		UpdatedAt:  c.now(),
	}
	if err := c.store.Put(ctx, userID, providerID, cleared); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	c.metrics.RecordRevocation(providerID)
	log.LogInfoWithFields("auth", "Provider connection revoked", map[string]any{
		"provider": providerID,
		"user":     userID,
	})
	return Revoked, nil
}

// Connections returns the providers a user currently has credentials for.
func (c *Connector) Connections(ctx context.Context, userID string) ([]string, error) {
	providers, err := c.store.ListProviders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	connected := providers[:0]
	for _, id := range providers {
		record, err := c.store.Get(ctx, userID, id)
		if err != nil || record.Empty() {
			continue
		}
		connected = append(connected, id)
	}
	return connected, nil
}

func (c *Connector) revokeWithProvider(ctx context.Context, desc *provider.Descriptor, accessToken string) {
	form := url.Values{}
	form.Set("client_id", desc.ClientID)
	form.Set("client_secret", desc.ClientSecret)
	form.Set("token", accessToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, desc.RevocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		log.LogWarnWithFields("auth", "Building provider revocation request failed", map[string]any{
			"provider": desc.ID,
			"error":    err.Error(),
		})
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.LogWarnWithFields("auth", "Provider revocation call failed", map[string]any{
			"provider": desc.ID,
			"error":    err.Error(),
		})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.LogWarnWithFields("auth", "Provider revocation call rejected", map[string]any{
			"provider": desc.ID,
			"status":   resp.StatusCode,
			"body":     ioutil.ReadLimited(resp.Body, 1024),
		})
	}
}

// exchangeError converts oauth2 library failures into ExchangeError,
// preserving the provider's status and body when available.
func (c *Connector) exchangeError(providerID string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return &ExchangeError{
			ProviderID: providerID,
			StatusCode: status,
			Body:       string(retrieveErr.Body),
			Err:        err,
		}
	}
	return &ExchangeError{ProviderID: providerID, Err: err}
}

func tokenExtra(token *oauth2.Token, field string) string {
	if field == "" {
		return ""
	}
	value, _ := token.Extra(field).(string)
	return value
}
