package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// serverConfig holds raw env values for the login server.
type serverConfig struct {
	Addr string `env:"SOCIAL_LOGIN_ADDR" envDefault:":8080"`

	FacebookAppID     string `env:"SOCIAL_LOGIN_FACEBOOK_APP_ID"`
	FacebookAppSecret string `env:"SOCIAL_LOGIN_FACEBOOK_APP_SECRET"`

	BaseURL    string `env:"SOCIAL_LOGIN_BASE_URL"`
	SuccessURL string `env:"SOCIAL_LOGIN_SUCCESS_URL"`
	FailureURL string `env:"SOCIAL_LOGIN_FAILURE_URL"`

	// Base64-encoded Ed25519 signing key: either a 32-byte seed or a
	// 64-byte private key.
	SigningKey  string        `env:"SOCIAL_LOGIN_SIGNING_KEY"`
	TokenIssuer string        `env:"SOCIAL_LOGIN_TOKEN_ISSUER" envDefault:"social-login"`
	TokenTTL    time.Duration `env:"SOCIAL_LOGIN_TOKEN_TTL"    envDefault:"24h"`

	RequestTimeout time.Duration `env:"SOCIAL_LOGIN_REQUEST_TIMEOUT" envDefault:"30s"`

	InstrumentationEnabled bool `env:"SOCIAL_LOGIN_INSTRUMENTATION_ENABLED" envDefault:"false"`
	AuditEnabled           bool `env:"SOCIAL_LOGIN_AUDIT_ENABLED"           envDefault:"true"`
}

// loadConfigFromEnv loads server configuration from environment variables
// and rejects anything that would only fail at login time.
func loadConfigFromEnv() (*serverConfig, error) {
	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.FacebookAppID == "" {
		return nil, fmt.Errorf("SOCIAL_LOGIN_FACEBOOK_APP_ID is required")
	}
	if cfg.FacebookAppSecret == "" {
		return nil, fmt.Errorf("SOCIAL_LOGIN_FACEBOOK_APP_SECRET is required")
	}
	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("SOCIAL_LOGIN_SIGNING_KEY is required")
	}

	return &cfg, nil
}
