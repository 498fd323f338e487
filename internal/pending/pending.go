// Package pending tracks in-flight authorizations so each callback state
// can be consumed exactly once.
package pending

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Window bounds how long an authorization may stay pending. Entries past
// the window are evicted, closing the replay window and bounding memory.
const Window = 10 * time.Minute

// Authorization is one in-flight authorize request awaiting its callback.
type Authorization struct {
	Nonce      string
	UserID     string
	ProviderID string
	CreatedAt  time.Time
}

// Ledger is a TTL ledger of pending authorizations keyed by state nonce.
//
// The ledger is per-process: state parameters are HMAC-signed and verify
// on any instance sharing the signing key, so flows still complete behind
// a load balancer. A callback landing on a different instance than its
// authorize request skips only the replay check, never signature or
// expiry validation.
type Ledger struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// NewLedger creates a ledger with the default expiry window.
func NewLedger() *Ledger {
	return &Ledger{
		cache: gocache.New(Window, time.Minute),
	}
}

// Put records a pending authorization under its nonce.
func (l *Ledger) Put(auth Authorization) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache.Set(auth.Nonce, auth, Window)
}

// Consume removes and returns the authorization for a nonce. The check and
// delete happen under one lock so a replayed callback cannot consume the
// same entry twice.
func (l *Ledger) Consume(nonce string) (Authorization, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.cache.Get(nonce)
	if !ok {
		return Authorization{}, false
	}
	l.cache.Delete(nonce)
	return v.(Authorization), true
}
