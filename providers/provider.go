// Package providers defines the interface for OAuth identity providers and the
// normalized claim set produced by introspecting a provider access token.
package providers

import (
	"context"
	"errors"
	"fmt"
)

// Provider defines the interface for an OAuth identity provider.
// The login handler depends only on this interface so that tests can
// substitute a stub provider.
type Provider interface {
	// Name returns the provider name (e.g., "facebook")
	Name() string

	// AuthorizationURL generates the URL to redirect users for authentication
	AuthorizationURL(state string) string

	// ExchangeCode exchanges an authorization code for an access token.
	// redirectURI must be byte-identical to the URI used to obtain the code;
	// a mismatch causes the provider to reject the exchange.
	ExchangeCode(ctx context.Context, code, redirectURI string) (*AccessToken, error)

	// Introspect queries the provider's identity endpoint with an access token
	// and returns a normalized claim set. A token the provider recognizes as
	// invalid yields ClaimSet{valid:"false"} and a nil error; only genuine
	// transport or protocol failures return an error.
	Introspect(ctx context.Context, accessToken string) (ClaimSet, error)

	// HealthCheck verifies that the provider is reachable.
	// Returns nil if the provider is healthy, or an error describing the issue.
	HealthCheck(ctx context.Context) error
}

// AccessToken is a provider-issued bearer credential. The token value is
// opaque; Expires is an expiry hint in seconds from issuance. Tokens are
// request-scoped and never persisted.
type AccessToken struct {
	// Token is the opaque access token value
	Token string

	// Expires is the provider's expiry hint in seconds (0 if not supplied)
	Expires int64
}

// Claim keys guaranteed in a ClaimSet.
const (
	ClaimValid = "valid"
	ClaimID    = "id"
	ClaimName  = "name"
	ClaimEmail = "email"
)

// ClaimSet is the normalized identity produced by introspection.
//
// A ClaimSet is all-or-nothing: either valid="true" with id, name and email
// populated, or exactly {valid:"false"} with no other keys. Callers must not
// assume id/name/email are present in the failure case.
type ClaimSet map[string]string

// NewClaims builds a fully populated, valid claim set. The id is expected to
// already carry the provider prefix (e.g. "facebook:123") so that identities
// from different providers cannot collide.
func NewClaims(id, name, email string) ClaimSet {
	return ClaimSet{
		ClaimValid: "true",
		ClaimID:    id,
		ClaimName:  name,
		ClaimEmail: email,
	}
}

// InvalidClaims builds the minimal claim set for a rejected token.
func InvalidClaims() ClaimSet {
	return ClaimSet{ClaimValid: "false"}
}

// Valid reports whether the provider confirmed the token.
func (c ClaimSet) Valid() bool {
	return c[ClaimValid] == "true"
}

// Subject returns the provider-prefixed identity, or "" for invalid claims.
func (c ClaimSet) Subject() string {
	return c[ClaimID]
}

// TransportError reports a failed call to a provider endpoint: the endpoint
// was unreachable, timed out, returned a non-2xx status, or produced a body
// that could not be parsed. It is fatal to the current request and must not
// be converted into a failure redirect, because that would hide
// infrastructure problems behind a user-facing "login failed" message.
type TransportError struct {
	Provider string // provider name
	Op       string // logical operation ("exchange_code", "introspect", ...)
	Status   int    // HTTP status, 0 if the request never completed
	Err      error  // underlying cause
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s failed with status %d", e.Provider, e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s failed: %v", e.Provider, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
