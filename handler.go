package sociallogin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/questline/social-login/instrumentation"
	"github.com/questline/social-login/providers"
	"github.com/questline/social-login/security"
	"github.com/questline/social-login/token"
)

// healthCheckTimeout bounds the provider probe behind the health endpoint.
const healthCheckTimeout = 5 * time.Second

// Handler serves the login flow over HTTP. It orchestrates the callback
// state machine: read code, exchange it for an access token, introspect the
// token, then either sign the claims and redirect to the success URL or
// redirect to the failure URL with no token.
//
// Handlers hold no per-request state beyond the read-only configuration, so
// one Handler safely serves concurrent requests.
type Handler struct {
	cfg      *Config
	provider providers.Provider
	signer   token.Signer
	logger   *slog.Logger
	auditor  *security.Auditor
	inst     *instrumentation.Instrumentation
	tracer   trace.Tracer
}

// NewHandler creates a login handler. The configuration is validated here,
// before any traffic is accepted; a missing redirect target is a
// *ConfigError, not something to discover mid-login.
func NewHandler(cfg *Config, provider providers.Provider, signer token.Signer, logger *slog.Logger) (*Handler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		cfg:      cfg,
		provider: provider,
		signer:   signer,
		logger:   logger,
	}, nil
}

// SetAuditor sets the security auditor
func (h *Handler) SetAuditor(a *security.Auditor) {
	h.auditor = a
}

// SetInstrumentation sets the OpenTelemetry instrumentation
func (h *Handler) SetInstrumentation(inst *instrumentation.Instrumentation) {
	h.inst = inst
	if inst != nil {
		h.tracer = inst.Tracer("http")
	}
}

// ServeLogin starts a login flow by redirecting the browser to the
// provider's authorization URL.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	if r.Method != http.MethodGet {
		h.recordHTTPMetrics(r.Context(), "login", r.Method, http.StatusMethodNotAllowed, startTime)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// The provider echoes the state back on the callback; the callback
	// consumes only the code, so the state is purely an outbound formality.
	state := oauth2.GenerateVerifier()
	authURL := h.provider.AuthorizationURL(state)

	if h.inst != nil {
		h.inst.Metrics().RecordLoginStarted(r.Context(), h.provider.Name())
	}
	h.recordHTTPMetrics(r.Context(), "login", r.Method, http.StatusFound, startTime)

	h.logger.Debug("Redirecting to provider authorization URL", "provider", h.provider.Name())
	http.Redirect(w, r, authURL, http.StatusFound)
}

// ServeCallback handles the provider redirect carrying the authorization
// code and drives the flow to one of its two terminal redirects.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	ctx := r.Context()

	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "login.http.callback")
		defer span.End()
	}

	if r.Method != http.MethodGet {
		h.recordHTTPMetrics(ctx, "callback", r.Method, http.StatusMethodNotAllowed, startTime)
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// The provider redirected to us; there should be a code awaiting us as
	// part of the request. Nothing else in the query string is consumed.
	code := r.URL.Query().Get("code")
	if code == "" {
		h.recordHTTPMetrics(ctx, "callback", r.Method, http.StatusBadRequest, startTime)
		instrumentation.SetSpanError(span, "code missing")
		h.writeError(w, ErrorCodeInvalidRequest, "authorization code is required", http.StatusBadRequest)
		return
	}

	// The redirect URI must be byte-identical to the one the code was
	// issued against.
	redirectURI := h.cfg.RedirectURI()
	h.logger.Debug("Exchanging authorization code", "provider", h.provider.Name(), "redirect_uri", redirectURI)

	accessToken, err := h.exchangeCode(ctx, code, redirectURI)
	if err != nil {
		// Fatal for the request: a transport failure is an infrastructure
		// problem, not a rejected login, and must not be disguised as one.
		h.logger.Error("Failed to exchange authorization code", "provider", h.provider.Name(), "error", err)
		h.recordCallbackProcessed(ctx, false)
		h.recordHTTPMetrics(ctx, "callback", r.Method, http.StatusInternalServerError, startTime)
		instrumentation.RecordError(span, err)
		if h.auditor != nil {
			h.auditor.LogLoginFailed(h.provider.Name(), "code exchange failed")
		}
		h.writeError(w, ErrorCodeServerError, "Login failed", http.StatusInternalServerError)
		return
	}

	claims, err := h.introspect(ctx, accessToken.Token)
	if err != nil {
		h.logger.Error("Failed to introspect access token", "provider", h.provider.Name(), "error", err)
		h.recordCallbackProcessed(ctx, false)
		h.recordHTTPMetrics(ctx, "callback", r.Method, http.StatusInternalServerError, startTime)
		instrumentation.RecordError(span, err)
		if h.auditor != nil {
			h.auditor.LogLoginFailed(h.provider.Name(), "introspection failed")
		}
		h.writeError(w, ErrorCodeServerError, "Login failed", http.StatusInternalServerError)
		return
	}

	instrumentation.SetSpanAttributes(span, attribute.Bool(instrumentation.AttrValid, claims.Valid()))

	// If the provider no longer considers the token valid there is no
	// identity to sign. Redirect back to the failure destination; the claims
	// carry nothing and nothing is logged about them.
	if !claims.Valid() {
		if h.inst != nil {
			h.inst.Metrics().RecordLoginRejected(ctx, h.provider.Name())
		}
		if h.auditor != nil {
			h.auditor.LogLoginRejected(h.provider.Name())
		}
		h.recordCallbackProcessed(ctx, false)
		h.recordHTTPMetrics(ctx, "callback", r.Method, http.StatusFound, startTime)
		instrumentation.SetSpanSuccess(span)
		http.Redirect(w, r, h.cfg.FailureURL, http.StatusFound)
		return
	}

	signed, err := h.signer.Sign(claims)
	if err != nil {
		h.logger.Error("Failed to sign identity token", "provider", h.provider.Name(), "error", err)
		h.recordCallbackProcessed(ctx, false)
		h.recordHTTPMetrics(ctx, "callback", r.Method, http.StatusInternalServerError, startTime)
		instrumentation.RecordError(span, err)
		h.writeError(w, ErrorCodeServerError, "Login failed", http.StatusInternalServerError)
		return
	}

	subject := claims.Subject()
	h.logger.Info("New user authenticated", "provider", h.provider.Name(), "subject", subject)
	if h.auditor != nil {
		h.auditor.LogUserAuthenticated(subject, h.provider.Name())
	}
	if h.inst != nil {
		h.inst.Metrics().RecordTokenIssued(ctx, h.provider.Name())
	}
	h.recordCallbackProcessed(ctx, true)
	h.recordHTTPMetrics(ctx, "callback", r.Method, http.StatusFound, startTime)
	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrSubject, subject))
	instrumentation.SetSpanSuccess(span)

	http.Redirect(w, r, h.successRedirectURL(signed), http.StatusFound)
}

// ServeHealth reports whether the provider is reachable. Internal error
// detail is logged, never exposed to clients.
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.provider.HealthCheck(ctx); err != nil {
		h.logger.Warn("Health check failed", "provider", h.provider.Name(), "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("unhealthy"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("healthy"))
}

// exchangeCode calls the provider token endpoint, recording API metrics.
func (h *Handler) exchangeCode(ctx context.Context, code, redirectURI string) (*providers.AccessToken, error) {
	start := time.Now()
	accessToken, err := h.provider.ExchangeCode(ctx, code, redirectURI)
	if h.inst != nil {
		h.inst.Metrics().RecordProviderAPICall(ctx, h.provider.Name(), "exchange_code", durationMs(start), err)
	}
	return accessToken, err
}

// introspect calls the provider identity endpoint, recording API metrics.
// The access token is used for exactly this one call and then discarded.
func (h *Handler) introspect(ctx context.Context, accessToken string) (providers.ClaimSet, error) {
	start := time.Now()
	claims, err := h.provider.Introspect(ctx, accessToken)
	if h.inst != nil {
		h.inst.Metrics().RecordProviderAPICall(ctx, h.provider.Name(), "introspect", durationMs(start), err)
	}
	return claims, err
}

// successRedirectURL appends the signed token to the success base URL as a
// path segment.
func (h *Handler) successRedirectURL(signedToken string) string {
	return strings.TrimSuffix(h.cfg.SuccessURL, "/") + "/" + signedToken
}

// writeError writes a JSON error response
func (h *Handler) writeError(w http.ResponseWriter, code, description string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}

// recordHTTPMetrics records HTTP layer metrics if instrumentation is enabled.
func (h *Handler) recordHTTPMetrics(ctx context.Context, endpoint, method string, statusCode int, startTime time.Time) {
	if h.inst == nil {
		return
	}
	h.inst.Metrics().RecordHTTPRequest(ctx, method, endpoint, statusCode, durationMs(startTime))
}

// recordCallbackProcessed records the callback outcome metric.
func (h *Handler) recordCallbackProcessed(ctx context.Context, success bool) {
	if h.inst == nil {
		return
	}
	h.inst.Metrics().RecordCallbackProcessed(ctx, h.provider.Name(), success)
}

func durationMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
