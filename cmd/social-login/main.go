// Command social-login runs the server-side social login service. It serves
// the login entry point, the provider callback, and a health endpoint.
package main

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	sociallogin "github.com/questline/social-login"
	"github.com/questline/social-login/instrumentation"
	"github.com/questline/social-login/providers/facebook"
	"github.com/questline/social-login/security"
	"github.com/questline/social-login/token"
)

// Version is set by the build process
var Version = "dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := loadConfigFromEnv()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	signingKey, err := decodeSigningKey(cfg.SigningKey)
	if err != nil {
		return fmt.Errorf("decode signing key: %w", err)
	}

	signer, err := token.NewJWTSigner(&token.SignerConfig{
		Key:    signingKey,
		Issuer: cfg.TokenIssuer,
		TTL:    cfg.TokenTTL,
	})
	if err != nil {
		return fmt.Errorf("create token signer: %w", err)
	}

	loginCfg := &sociallogin.Config{
		SuccessURL: cfg.SuccessURL,
		FailureURL: cfg.FailureURL,
		BaseURL:    cfg.BaseURL,
	}
	if err := loginCfg.Validate(); err != nil {
		return fmt.Errorf("validate configuration: %w", err)
	}

	provider, err := facebook.NewProvider(&facebook.Config{
		ClientID:       cfg.FacebookAppID,
		ClientSecret:   cfg.FacebookAppSecret,
		RedirectURL:    loginCfg.RedirectURI(),
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("create facebook provider: %w", err)
	}

	handler, err := sociallogin.NewHandler(loginCfg, provider, signer, logger)
	if err != nil {
		return fmt.Errorf("create login handler: %w", err)
	}

	handler.SetAuditor(security.NewAuditor(logger, cfg.AuditEnabled))

	inst, err := instrumentation.New(instrumentation.Config{
		ServiceName:    "social-login",
		ServiceVersion: Version,
		Enabled:        cfg.InstrumentationEnabled,
	})
	if err != nil {
		return fmt.Errorf("initialize instrumentation: %w", err)
	}
	handler.SetInstrumentation(inst)

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Get(sociallogin.LoginPath, handler.ServeLogin)
	router.Get(sociallogin.CallbackPath, handler.ServeCallback)
	router.Get("/health", handler.ServeHealth)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", cfg.Addr, "version", Version)
		serverErrors <- httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Starting shutdown", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down server", "error", err)
			if err := httpServer.Close(); err != nil {
				logger.Error("Error closing server", "error", err)
			}
		}

		if err := inst.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down instrumentation", "error", err)
		}
	}

	return nil
}

// decodeSigningKey decodes a base64 Ed25519 key. A 32-byte value is treated
// as a seed, a 64-byte value as the full private key.
func decodeSigningKey(encoded string) (ed25519.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}

	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
}
