package cookie

import (
	"net/http"
	"time"

	"github.com/assistkit/connectd/internal/envutil"
	"github.com/assistkit/connectd/internal/log"
)

// IdentityCookie carries the internal user identifier across the
// authorize redirect and back through the provider callback.
const IdentityCookie = "connectd_user"

// SetIdentity sets the identity cookie with appropriate security settings
func SetIdentity(w http.ResponseWriter, value string, maxAge time.Duration) {
	secure := !envutil.IsDev()
	http.SetCookie(w, &http.Cookie{
		Name:     IdentityCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})

	log.LogTraceWithFields("cookie", "Identity cookie set", map[string]any{
		"maxAge":   maxAge.String(),
		"secure":   secure,
		"sameSite": "Lax",
	})
}

// Clear removes a cookie by setting MaxAge to -1
func Clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}

// ClearIdentity removes the identity cookie
func ClearIdentity(w http.ResponseWriter) {
	Clear(w, IdentityCookie)
	log.LogTraceWithFields("cookie", "Identity cookie cleared", nil)
}

// Get retrieves a cookie value from the request
func Get(r *http.Request, name string) (string, error) {
	cookie, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

// GetIdentity retrieves the identity cookie value
func GetIdentity(r *http.Request) (string, error) {
	return Get(r, IdentityCookie)
}
