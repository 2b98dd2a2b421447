package providers

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewClaims(t *testing.T) {
	claims := NewClaims("facebook:1234567890", "Jane Doe", "jane@example.com")

	if !claims.Valid() {
		t.Fatalf("claims = %v, want valid", claims)
	}
	if got := claims.Subject(); got != "facebook:1234567890" {
		t.Errorf("Subject() = %q, want %q", got, "facebook:1234567890")
	}
	if got := claims[ClaimName]; got != "Jane Doe" {
		t.Errorf("name = %q, want %q", got, "Jane Doe")
	}
	if got := claims[ClaimEmail]; got != "jane@example.com" {
		t.Errorf("email = %q, want %q", got, "jane@example.com")
	}
	if len(claims) != 4 {
		t.Errorf("claims = %v, want exactly 4 entries", claims)
	}
}

func TestInvalidClaims(t *testing.T) {
	claims := InvalidClaims()

	if claims.Valid() {
		t.Fatalf("claims = %v, want invalid", claims)
	}
	if len(claims) != 1 {
		t.Errorf("claims = %v, want exactly one entry", claims)
	}
	if claims.Subject() != "" {
		t.Errorf("Subject() = %q, want empty", claims.Subject())
	}
}

func TestClaimSetValid(t *testing.T) {
	tests := []struct {
		name   string
		claims ClaimSet
		want   bool
	}{
		{name: "valid true", claims: ClaimSet{ClaimValid: "true"}, want: true},
		{name: "valid false", claims: ClaimSet{ClaimValid: "false"}, want: false},
		{name: "missing key", claims: ClaimSet{}, want: false},
		{name: "nil set", claims: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.claims.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")

	withStatus := &TransportError{Provider: "facebook", Op: "introspect", Status: 502, Err: errors.New("bad gateway")}
	if got := withStatus.Error(); got != "facebook: introspect failed with status 502" {
		t.Errorf("Error() = %q", got)
	}

	withoutStatus := &TransportError{Provider: "facebook", Op: "exchange_code", Err: cause}
	if got := withoutStatus.Error(); got != "facebook: exchange_code failed: connection refused" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(withoutStatus, cause) {
		t.Error("errors.Is() does not find the wrapped cause")
	}
}

func TestIsTransport(t *testing.T) {
	te := &TransportError{Provider: "facebook", Op: "introspect", Status: 500}

	if !IsTransport(te) {
		t.Error("IsTransport() = false for a TransportError")
	}
	if !IsTransport(fmt.Errorf("calling provider: %w", te)) {
		t.Error("IsTransport() = false for a wrapped TransportError")
	}
	if IsTransport(errors.New("plain")) {
		t.Error("IsTransport() = true for a plain error")
	}
	if IsTransport(nil) {
		t.Error("IsTransport() = true for nil")
	}
}
