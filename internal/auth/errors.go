package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownProvider is returned when a provider id has no descriptor
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrMissingCode is returned when a callback arrives without a code
	ErrMissingCode = errors.New("missing authorization code")

	// ErrInvalidState is returned when the callback state fails
	// signature or expiry checks, or names a different provider
	ErrInvalidState = errors.New("invalid or expired state")

	// ErrStateReplayed is returned when a state nonce has already been
	// consumed by an earlier callback
	ErrStateReplayed = errors.New("state already consumed")

	// ErrNotConnected is returned when no usable credentials exist for a
	// (user, provider) pair. Distinct from transport errors: the caller
	// must be able to tell "never connected" from "store unavailable".
	ErrNotConnected = errors.New("provider not connected")

	// ErrTokenExpired is returned when the stored token is expired and
	// cannot be refreshed
	ErrTokenExpired = errors.New("token expired")

	// ErrStoreUnavailable is returned when the token store fails
	ErrStoreUnavailable = errors.New("token store unavailable")

	// ErrUnauthenticated is returned when an operation requires a bound
	// identity and none is present
	ErrUnauthenticated = errors.New("authentication required")
)

// ExchangeError reports a failed token-endpoint exchange. It carries the
// provider's HTTP status and response body for diagnostics; a zero status
// means the request never completed (timeout, connection failure).
type ExchangeError struct {
	ProviderID string
	StatusCode int
	Body       string
	Err        error
}

func (e *ExchangeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token exchange with %s failed: status %d: %s", e.ProviderID, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("token exchange with %s failed: %v", e.ProviderID, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	return e.Err
}
