package server

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/assistkit/connectd/internal/auth"
	"github.com/assistkit/connectd/internal/identity"
	jsonwriter "github.com/assistkit/connectd/internal/json"
	"github.com/assistkit/connectd/internal/log"
	"github.com/assistkit/connectd/internal/provider"
)

// AuthHandlers serves the browser-facing OAuth endpoints. Browser endpoints
// never render errors directly: every outcome is a 302 back to the landing
// page with a query indicator the frontend can act on.
type AuthHandlers struct {
	connector   *auth.Connector
	identity    *identity.Correlator
	providers   *provider.Registry
	landingPage string
}

// NewAuthHandlers creates the browser-facing OAuth handlers. landingPage is
// where every flow outcome redirects to; defaults to / when empty.
func NewAuthHandlers(connector *auth.Connector, correlator *identity.Correlator, providers *provider.Registry, landingPage string) *AuthHandlers {
	if landingPage == "" {
		landingPage = "/"
	}
	return &AuthHandlers{
		connector:   connector,
		identity:    correlator,
		providers:   providers,
		landingPage: landingPage,
	}
}

// BeginHandler starts the OAuth flow for a provider. A first-time visitor
// gets a minted identity bound to the response cookie before the redirect,
// so the callback can correlate back to the same browser.
func (h *AuthHandlers) BeginHandler(providerID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.identity.Resolve(r)
		if !ok {
			if userID = r.URL.Query().Get("userId"); userID == "" {
				userID = h.identity.Mint()
			}
			h.identity.Bind(w, userID)
		}

		authURL, err := h.connector.Begin(r.Context(), providerID, userID)
		if err != nil {
			log.LogErrorWithFields("server", "Failed to start OAuth flow", map[string]any{
				"provider": providerID,
				"error":    err.Error(),
			})
			h.redirectWith(w, r, "error", flowIndicator(err))
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// CallbackHandler finishes the OAuth flow for a provider. Provider-reported
// errors (user denied consent, etc.) are handled before touching code or
// state.
func (h *AuthHandlers) CallbackHandler(providerID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		if errorParam := query.Get("error"); errorParam != "" {
			log.LogWarnWithFields("server", "OAuth error from provider", map[string]any{
				"provider":    providerID,
				"error":       errorParam,
				"description": query.Get("error_description"),
			})
			h.redirectWith(w, r, "error", errorParam)
			return
		}

		record, err := h.connector.Complete(r.Context(), providerID, query.Get("code"), query.Get("state"))
		if err != nil {
			log.LogErrorWithFields("server", "Failed to complete OAuth flow", map[string]any{
				"provider": providerID,
				"error":    err.Error(),
			})
			h.redirectWith(w, r, "error", flowIndicator(err))
			return
		}

		// Re-bind the cookie to the user recovered from the state, so the
		// browser keeps its identity even if the cookie was lost mid-flow.
		h.identity.Bind(w, record.UserID)

		h.redirectWith(w, r, "success", providerID+"_connected")
	}
}

// LogoutHandler revokes a provider connection. The user comes from the
// identity cookie, with the userId query param as a fallback for clients
// that lost the cookie. The cookie is only cleared when local state is
// actually gone, so a failed revocation keeps the session usable.
func (h *AuthHandlers) LogoutHandler(providerID string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.identity.Resolve(r)
		if !ok {
			userID = r.URL.Query().Get("userId")
		}
		if userID == "" {
			h.redirectWith(w, r, "info", "not_authenticated")
			return
		}

		result, err := h.connector.Revoke(r.Context(), userID, providerID)
		if err != nil {
			log.LogErrorWithFields("server", "Failed to revoke provider connection", map[string]any{
				"provider": providerID,
				"user":     userID,
				"error":    err.Error(),
			})
			h.redirectWith(w, r, "error", "logout_failed")
			return
		}

		h.identity.Clear(w)
		if result == auth.AlreadyLoggedOut {
			h.redirectWith(w, r, "info", "not_authenticated")
			return
		}
		h.redirectWith(w, r, "success", providerID+"_disconnected")
	}
}

// ProvidersHandler lists the configured providers for the frontend's
// "Connect with X" buttons.
func (h *AuthHandlers) ProvidersHandler(w http.ResponseWriter, r *http.Request) {
	type providerInfo struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	}

	infos := make([]providerInfo, 0, len(h.providers.IDs()))
	for _, id := range h.providers.IDs() {
		desc, _ := h.providers.Get(id)
		infos = append(infos, providerInfo{ID: desc.ID, DisplayName: desc.DisplayName})
	}
	jsonwriter.Write(w, map[string]any{"providers": infos})
}

// redirectWith sends the browser back to the landing page with a single
// query indicator appended.
func (h *AuthHandlers) redirectWith(w http.ResponseWriter, r *http.Request, key, value string) {
	target, err := url.Parse(h.landingPage)
	if err != nil {
		target = &url.URL{Path: "/"}
	}
	query := target.Query()
	query.Set(key, value)
	target.RawQuery = query.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

// flowIndicator maps flow errors onto the stable query indicators the
// frontend matches on.
func flowIndicator(err error) string {
	switch {
	case errors.Is(err, auth.ErrUnknownProvider):
		return "unknown_provider"
	case errors.Is(err, auth.ErrMissingCode):
		return "missing_code"
	case errors.Is(err, auth.ErrInvalidState), errors.Is(err, auth.ErrStateReplayed):
		return "invalid_state"
	case errors.Is(err, auth.ErrUnauthenticated):
		return "not_authenticated"
	default:
		return "exchange_failed"
	}
}
