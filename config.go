// Package sociallogin implements the server-side leg of a third-party OAuth2
// authorization-code login flow: it receives the provider redirect carrying an
// authorization code, exchanges the code for an access token, introspects the
// token for the user's verified identity, and either issues a signed identity
// token or redirects to the failure destination.
package sociallogin

import (
	"fmt"
	"strings"
)

// HTTP paths served by the Handler. CallbackPath is appended to the
// configured base URL to reconstruct the exact redirect URI the provider saw
// when it issued the code; the two must be byte-identical or the exchange is
// rejected.
const (
	LoginPath    = "/FacebookAuth"
	CallbackPath = "/FacebookCallback"
)

// Config holds the redirect targets for the login flow. It is read once at
// startup, validated fail-fast, and immutable afterwards; concurrent reads
// are safe.
type Config struct {
	// SuccessURL is the base URL the browser is redirected to after a
	// successful login; the signed identity token is appended as a path
	// segment.
	SuccessURL string

	// FailureURL is the URL the browser is redirected to when the provider
	// rejects the login. Used as-is, no suffix.
	FailureURL string

	// BaseURL is this service's own externally visible base URL, used to
	// reconstruct the redirect URI passed during code exchange.
	BaseURL string
}

// ConfigError reports a missing or unusable startup configuration value.
// Proceeding with undefined redirect targets is itself a latent bug, so
// validation happens before the handler accepts any traffic.
type ConfigError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Field, e.Reason)
}

// Validate checks that every redirect target is set. It returns the first
// problem found as a *ConfigError.
func (c *Config) Validate() error {
	if c.SuccessURL == "" {
		return &ConfigError{Field: "SuccessURL", Reason: "is required"}
	}
	if c.FailureURL == "" {
		return &ConfigError{Field: "FailureURL", Reason: "is required"}
	}
	if c.BaseURL == "" {
		return &ConfigError{Field: "BaseURL", Reason: "is required"}
	}
	return nil
}

// RedirectURI returns the exact redirect URI used for this flow: the base
// callback URL plus the fixed callback path.
func (c *Config) RedirectURI() string {
	return strings.TrimSuffix(c.BaseURL, "/") + CallbackPath
}
