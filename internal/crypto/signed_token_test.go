package crypto

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statePayload struct {
	Provider string `json:"provider"`
	UserID   string `json:"user_id"`
}

func TestTokenSignerRoundTrip(t *testing.T) {
	signer := NewTokenSigner([]byte(strings.Repeat("test-key", 4)), time.Minute)

	token, err := signer.Sign(statePayload{Provider: "slack", UserID: "u1"})
	require.NoError(t, err)

	var decoded statePayload
	require.NoError(t, signer.Verify(token, &decoded))
	assert.Equal(t, "slack", decoded.Provider)
	assert.Equal(t, "u1", decoded.UserID)
}

func TestTokenSignerRejectsTamperedToken(t *testing.T) {
	signer := NewTokenSigner([]byte(strings.Repeat("test-key", 4)), time.Minute)

	token, err := signer.Sign(statePayload{Provider: "slack", UserID: "u1"})
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 2)
	tampered := parts[0] + ".AAAA" + parts[1][4:]

	var decoded statePayload
	assert.Error(t, signer.Verify(tampered, &decoded))
}

func TestTokenSignerRejectsWrongKey(t *testing.T) {
	signer := NewTokenSigner([]byte(strings.Repeat("test-key", 4)), time.Minute)
	other := NewTokenSigner([]byte(strings.Repeat("new-keys", 4)), time.Minute)

	token, err := signer.Sign(statePayload{Provider: "github", UserID: "u2"})
	require.NoError(t, err)

	var decoded statePayload
	assert.Error(t, other.Verify(token, &decoded))
}

func TestTokenSignerRejectsExpiredToken(t *testing.T) {
	signer := NewTokenSigner([]byte(strings.Repeat("test-key", 4)), -time.Minute)

	token, err := signer.Sign(statePayload{Provider: "slack", UserID: "u1"})
	require.NoError(t, err)

	var decoded statePayload
	err = signer.Verify(token, &decoded)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken()
	require.NoError(t, err)
	b, err := GenerateSecureToken()
	require.NoError(t, err)

	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
