package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/assistkit/connectd/internal/auth"
	jsonwriter "github.com/assistkit/connectd/internal/json"
	"github.com/assistkit/connectd/internal/log"
)

// TokenHandlers serves the internal credential API consumed by the action
// dispatcher. These endpoints are service-to-service only and sit behind a
// shared bearer token; they are never exposed to browsers.
type TokenHandlers struct {
	connector *auth.Connector
	apiToken  string
}

// NewTokenHandlers creates the internal credential API handlers.
func NewTokenHandlers(connector *auth.Connector, apiToken string) *TokenHandlers {
	return &TokenHandlers{connector: connector, apiToken: apiToken}
}

// TokenHandler returns a live access token for a (user, provider) pair.
// GET /internal/token?userId=<id>&provider=<id>
func (h *TokenHandlers) TokenHandler(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		jsonwriter.WriteUnauthorized(w, "Invalid or missing API token")
		return
	}

	userID := r.URL.Query().Get("userId")
	providerID := r.URL.Query().Get("provider")
	if userID == "" || providerID == "" {
		jsonwriter.WriteBadRequest(w, "userId and provider are required")
		return
	}

	token, err := h.connector.Token(r.Context(), userID, providerID)
	if err != nil {
		h.writeTokenError(w, providerID, err)
		return
	}

	response := map[string]any{
		"accessToken": token.AccessToken,
		"tokenType":   token.TokenType,
	}
	if !token.Expiry.IsZero() {
		response["expiresAt"] = token.Expiry.UTC().Format(time.RFC3339)
	}
	jsonwriter.Write(w, response)
}

// ConnectionsHandler lists the providers a user is currently connected to.
// GET /internal/connections?userId=<id>
func (h *TokenHandlers) ConnectionsHandler(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		jsonwriter.WriteUnauthorized(w, "Invalid or missing API token")
		return
	}

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		jsonwriter.WriteBadRequest(w, "userId is required")
		return
	}

	connected, err := h.connector.Connections(r.Context(), userID)
	if err != nil {
		log.LogErrorWithFields("server", "Failed to list connections", map[string]any{
			"user":  userID,
			"error": err.Error(),
		})
		jsonwriter.WriteServiceUnavailable(w, "Token store unavailable")
		return
	}

	jsonwriter.Write(w, map[string]any{
		"userId":    userID,
		"providers": connected,
	})
}

func (h *TokenHandlers) authorized(r *http.Request) bool {
	if h.apiToken == "" {
		return false
	}
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.apiToken)) == 1
}

// writeTokenError maps accessor errors onto the status codes the action
// dispatcher distinguishes: absent connection, expired credentials, and
// storage trouble each get their own code.
func (h *TokenHandlers) writeTokenError(w http.ResponseWriter, providerID string, err error) {
	switch {
	case errors.Is(err, auth.ErrUnknownProvider):
		jsonwriter.WriteNotFound(w, "Unknown provider")
	case errors.Is(err, auth.ErrNotConnected):
		jsonwriter.WriteError(w, http.StatusNotFound, "not_connected", "Provider not connected")
	case errors.Is(err, auth.ErrTokenExpired):
		jsonwriter.WriteError(w, http.StatusUnauthorized, "token_expired", "Token expired and could not be refreshed")
	case errors.Is(err, auth.ErrStoreUnavailable):
		jsonwriter.WriteError(w, http.StatusServiceUnavailable, "store_unavailable", "Token store unavailable")
	default:
		log.LogErrorWithFields("server", "Failed to load token", map[string]any{
			"provider": providerID,
			"error":    err.Error(),
		})
		jsonwriter.WriteInternalServerError(w, "Failed to load token")
	}
}
