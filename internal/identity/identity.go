// Package identity binds anonymous browser requests to an internal user
// identifier, independent of any OAuth provider.
package identity

import (
	"net/http"
	"time"

	"github.com/assistkit/connectd/internal/cookie"
	"github.com/google/uuid"
)

// CookieLifetime is how long a bound identity survives between visits.
const CookieLifetime = 30 * 24 * time.Hour

// Correlator resolves and binds user identities via the identity cookie.
type Correlator struct{}

// NewCorrelator creates a new session correlator.
func NewCorrelator() *Correlator {
	return &Correlator{}
}

// Resolve extracts the user identifier from the request's identity cookie.
// The second return value is false when no identity is bound.
func (c *Correlator) Resolve(r *http.Request) (string, bool) {
	value, err := cookie.GetIdentity(r)
	if err != nil || value == "" {
		return "", false
	}
	return value, true
}

// Bind sets the identity cookie on the response.
func (c *Correlator) Bind(w http.ResponseWriter, userID string) {
	cookie.SetIdentity(w, userID, CookieLifetime)
}

// Clear expires the identity cookie immediately.
func (c *Correlator) Clear(w http.ResponseWriter) {
	cookie.ClearIdentity(w)
}

// Mint creates a fresh user identifier for first-contact requests.
func (c *Correlator) Mint() string {
	return uuid.NewString()
}
