package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/assistkit/connectd/internal/log"
	"github.com/assistkit/connectd/internal/provider"
	"github.com/assistkit/connectd/internal/store"
	"golang.org/x/oauth2"
)

// Token returns a live access token for a (user, provider) pair. This is
// the read path used by the action dispatcher: it never returns a nil
// token without a typed error.
//
// Tokens nearing expiry are refreshed early (RefreshThreshold) when the
// provider supports it and a refresh token is stored; concurrent requests
// for the same pair share a single refresh via singleflight. A token with
// no recorded expiry is treated as non-expiring.
func (c *Connector) Token(ctx context.Context, userID, providerID string) (*oauth2.Token, error) {
	desc, ok := c.providers.Get(providerID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, providerID)
	}

	record, err := c.store.Get(ctx, userID, providerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if record.Empty() {
		return nil, ErrNotConnected
	}

	token := &oauth2.Token{
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		TokenType:    record.TokenType,
		Expiry:       record.ExpiresAt,
	}

	if record.ExpiresAt.IsZero() {
		return token, nil
	}
	if c.now().Add(RefreshThreshold).Before(record.ExpiresAt) {
		return token, nil
	}

	if record.RefreshToken == "" || !desc.SupportsRefresh {
		if c.now().After(record.ExpiresAt) {
			return nil, ErrTokenExpired
		}
		return token, nil
	}

	refreshed, err, _ := c.refreshes.Do(userID+":"+providerID, func() (any, error) {
		return c.refresh(ctx, desc, userID, record)
	})
	if err != nil {
		return nil, err
	}
	return refreshed.(*oauth2.Token), nil
}

// refresh performs one refresh-token exchange and persists the result.
// A failed refresh surfaces as ErrTokenExpired; the stored record is left
// untouched so the user can re-authorize.
func (c *Connector) refresh(ctx context.Context, desc *provider.Descriptor, userID string, record *store.TokenRecord) (*oauth2.Token, error) {
	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.exchangeTimeout)
	defer cancel()
	refreshCtx = context.WithValue(refreshCtx, oauth2.HTTPClient, c.httpClient)

	stale := &oauth2.Token{
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		TokenType:    record.TokenType,
		Expiry:       record.ExpiresAt,
	}

	// The oauth2 library decides how to refresh; the early-expiry source
	// makes it treat tokens within the threshold as already expired.
	source := oauth2.ReuseTokenSourceWithExpiry(stale, desc.OAuth2Config().TokenSource(refreshCtx, stale), RefreshThreshold)
	fresh, err := source.Token()
	if err != nil {
		c.metrics.RecordRefreshFailure(desc.ID)
		log.LogWarnWithFields("auth", "Token refresh failed", map[string]any{
			"provider": desc.ID,
			"user":     userID,
			"error":    err.Error(),
		})
		return nil, fmt.Errorf("%w: refresh failed: %v", ErrTokenExpired, err)
	}

	updated := *record
	updated.AccessToken = fresh.AccessToken
	if fresh.RefreshToken != "" {
		updated.RefreshToken = fresh.RefreshToken
	}
	updated.TokenType = fresh.TokenType
	updated.ExpiresAt = fresh.Expiry
	updated.UpdatedAt = c.now()

	if err := c.store.Put(refreshCtx, userID, desc.ID, &updated); err != nil {
		return nil, fmt.Errorf("%w: persisting refreshed token: %v", ErrStoreUnavailable, err)
	}

	c.metrics.RecordRefreshSuccess(desc.ID)
	log.LogInfoWithFields("auth", "Token refreshed", map[string]any{
		"provider": desc.ID,
		"user":     userID,
		"expiry":   fresh.Expiry,
	})
	return fresh, nil
}
