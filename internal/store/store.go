package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no record exists for a (user, provider) pair
var ErrNotFound = errors.New("token record not found")

// TokenRecord holds the credentials stored for one (user, provider) pair.
// The pair is the natural key; writes always replace the whole record so a
// reader never observes fields from two different exchanges.
type TokenRecord struct {
	UserID     string `json:"user_id" firestore:"user_id"`
	ProviderID string `json:"provider_id" firestore:"provider_id"`

	AccessToken  string    `json:"access_token,omitempty" firestore:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty" firestore:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty" firestore:"token_type,omitempty"`
	ExpiresAt    time.Time `json:"expires_at,omitempty" firestore:"expires_at,omitempty"`

	// Provider-side account identity (e.g. slack team), populated only
	// when the token response carries it.
	AccountID   string `json:"account_id,omitempty" firestore:"account_id,omitempty"`
	AccountName string `json:"account_name,omitempty" firestore:"account_name,omitempty"`

	UpdatedAt time.Time `json:"updated_at" firestore:"updated_at"`
}

// Empty reports whether all credential fields are absent. An empty record
// is equivalent to no record for read purposes; revocation soft-deletes by
// writing one, preserving the audit timestamp.
func (r *TokenRecord) Empty() bool {
	return r == nil || (r.AccessToken == "" && r.RefreshToken == "")
}

// TokenStore persists per-user, per-provider credentials. Implementations
// must make Put a whole-record overwrite; concurrent writers resolve
// last-write-wins.
type TokenStore interface {
	Get(ctx context.Context, userID, providerID string) (*TokenRecord, error)
	Put(ctx context.Context, userID, providerID string, record *TokenRecord) error
	Delete(ctx context.Context, userID, providerID string) error
	ListProviders(ctx context.Context, userID string) ([]string, error)
}
