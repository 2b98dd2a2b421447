// Package security provides audit logging for the login flow with PII
// protection: subject ids are hashed before they reach the log stream.
package security

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"
)

// Audit event types.
const (
	EventUserAuthenticated = "user_authenticated"
	EventLoginRejected     = "login_rejected"
	EventLoginFailed       = "login_failed"
)

// Auditor handles security event logging with PII protection.
type Auditor struct {
	logger  *slog.Logger
	enabled bool
}

// NewAuditor creates a new security auditor
func NewAuditor(logger *slog.Logger, enabled bool) *Auditor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		logger:  logger,
		enabled: enabled,
	}
}

// Event represents a security audit event
type Event struct {
	Type      string
	Subject   string
	Provider  string
	Details   map[string]any
	Timestamp time.Time
}

// LogEvent logs a security event with hashed PII
func (a *Auditor) LogEvent(event Event) {
	if !a.enabled {
		return
	}

	event.Timestamp = time.Now()

	a.logger.Info("security_audit",
		"event_type", event.Type,
		"subject_hash", hashForLogging(event.Subject),
		"provider", event.Provider,
		"details", event.Details,
		"timestamp", event.Timestamp,
	)
}

// LogUserAuthenticated logs a successful login for which a signed identity
// token was issued.
func (a *Auditor) LogUserAuthenticated(subject, provider string) {
	a.LogEvent(Event{
		Type:     EventUserAuthenticated,
		Subject:  subject,
		Provider: provider,
	})
}

// LogLoginRejected logs a login the provider declared invalid. No claims are
// recorded; a rejected claim set carries none worth recording.
func (a *Auditor) LogLoginRejected(provider string) {
	a.LogEvent(Event{
		Type:     EventLoginRejected,
		Provider: provider,
	})
}

// LogLoginFailed logs a login that failed for infrastructure reasons.
func (a *Auditor) LogLoginFailed(provider, reason string) {
	a.LogEvent(Event{
		Type:     EventLoginFailed,
		Provider: provider,
		Details: map[string]any{
			"reason": reason,
		},
	})
}

// hashForLogging creates a SHA256 hash of sensitive data for logging
func hashForLogging(sensitive string) string {
	if sensitive == "" {
		return "<empty>"
	}
	hash := sha256.Sum256([]byte(sensitive))
	return hex.EncodeToString(hash[:])[:16]
}
