// Package token issues the signed identity tokens this service hands to the
// rest of the application once a provider has confirmed a login.
package token

import (
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/questline/social-login/providers"
)

// Signer turns a confirmed claim set into an opaque signed token. The login
// handler treats the result as a black box it only forwards.
type Signer interface {
	Sign(claims providers.ClaimSet) (string, error)
}

// Compile-time check that JWTSigner implements Signer.
var _ Signer = (*JWTSigner)(nil)

// defaultTTL is the token lifetime applied when none is configured.
const defaultTTL = 24 * time.Hour

// JWTSigner signs identity claims as EdDSA JWTs.
type JWTSigner struct {
	key    ed25519.PrivateKey
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// SignerConfig holds JWT signer configuration.
type SignerConfig struct {
	// Key is the Ed25519 private key used to sign tokens.
	Key ed25519.PrivateKey

	// Issuer is the iss claim stamped on every token.
	Issuer string

	// TTL is the token lifetime (default: 24h).
	TTL time.Duration

	// Now is the time source (default: time.Now). Intended for tests.
	Now func() time.Time
}

// NewJWTSigner creates a JWT signer from the given configuration.
func NewJWTSigner(cfg *SignerConfig) (*JWTSigner, error) {
	if len(cfg.Key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("signing key must be %d bytes", ed25519.PrivateKeySize)
	}
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("issuer is required")
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &JWTSigner{
		key:    cfg.Key,
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    now,
	}, nil
}

// Sign issues a signed identity token for a confirmed claim set. The subject
// is the provider-prefixed id; name and email ride along as custom claims.
func (s *JWTSigner) Sign(claims providers.ClaimSet) (string, error) {
	subject := claims.Subject()
	if subject == "" {
		return "", fmt.Errorf("claim set has no id")
	}

	now := s.now().UTC()
	jwtClaims := jwt.MapClaims{
		"iss":   s.issuer,
		"sub":   subject,
		"name":  claims[providers.ClaimName],
		"email": claims[providers.ClaimEmail],
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(now.Add(s.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwtClaims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign identity token: %w", err)
	}
	return signed, nil
}

// PublicKey returns the verification key for tokens issued by this signer.
func (s *JWTSigner) PublicKey() ed25519.PublicKey {
	return s.key.Public().(ed25519.PublicKey)
}
