package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	oauthfacebook "golang.org/x/oauth2/facebook"

	"github.com/questline/social-login/providers"
)

// Compile-time check that Provider implements the providers.Provider interface.
var _ providers.Provider = (*Provider)(nil)

// providerName is the name returned by Provider.Name(). It also prefixes
// every subject id so identities from other providers cannot collide.
const providerName = "facebook"

// Graph API endpoints
const (
	defaultTokenEndpoint    = "https://graph.facebook.com/oauth/access_token"
	defaultIdentityEndpoint = "https://graph.facebook.com/me"
)

// identityFields are the only fields requested from the identity endpoint.
// The provider's authorization scope determines what actually comes back;
// the id is always included.
const identityFields = "email,name"

// oauthExceptionType marks a Graph error as an authorization rejection
// rather than an infrastructure failure.
const oauthExceptionType = "OAuthException"

// errorBodyLimit caps how much of an error response body is read.
const errorBodyLimit = 1 << 16

// Provider implements the providers.Provider interface for Facebook Login.
type Provider struct {
	config           *oauth2.Config
	httpClient       *http.Client
	requestTimeout   time.Duration
	tokenEndpoint    string
	identityEndpoint string
	logger           *slog.Logger
}

// Config holds Facebook OAuth configuration.
type Config struct {
	// ClientID is the Facebook application id.
	ClientID string

	// ClientSecret is the Facebook application secret.
	ClientSecret string

	// RedirectURL is the OAuth callback URL registered with Facebook.
	RedirectURL string

	// Scopes are optional custom scopes (defaults to ["email", "public_profile"]).
	Scopes []string

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client

	// RequestTimeout is the timeout for Graph API calls (default: 30s).
	RequestTimeout time.Duration

	// TokenEndpoint overrides the Graph token endpoint. Intended for tests.
	TokenEndpoint string

	// IdentityEndpoint overrides the Graph identity endpoint. Intended for tests.
	IdentityEndpoint string

	// Logger is an optional structured logger (defaults to slog.Default()).
	Logger *slog.Logger
}

// NewProvider creates a new Facebook OAuth provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"email", "public_profile"}
	}
	scopesCopy := make([]string, len(scopes))
	copy(scopesCopy, scopes)

	requestTimeout := cfg.RequestTimeout
	if requestTimeout == 0 {
		requestTimeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: requestTimeout,
		}
	}

	tokenEndpoint := cfg.TokenEndpoint
	if tokenEndpoint == "" {
		tokenEndpoint = defaultTokenEndpoint
	}
	identityEndpoint := cfg.IdentityEndpoint
	if identityEndpoint == "" {
		identityEndpoint = defaultIdentityEndpoint
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Provider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopesCopy,
			Endpoint:     oauthfacebook.Endpoint,
		},
		httpClient:       httpClient,
		requestTimeout:   requestTimeout,
		tokenEndpoint:    tokenEndpoint,
		identityEndpoint: identityEndpoint,
		logger:           logger,
	}, nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// AuthorizationURL generates the Facebook Login authorization URL.
func (p *Provider) AuthorizationURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// ensureContextTimeout ensures the context has a deadline, adding one if needed.
// Returns a new context with timeout and a cancel function that should be deferred.
func (p *Provider) ensureContextTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.requestTimeout)
}

// ExchangeCode exchanges an authorization code for an access token.
//
// The Graph token endpoint is called with the client credentials, the code,
// and the exact redirect URI that was used to obtain it. The JSON body is
// re-expressed as the canonical query-string form
// "access_token=...&expires=..." before parsing; Graph has shipped both
// quoted and unquoted expires_in values over the years and the query-string
// form normalizes them.
func (p *Provider) ExchangeCode(ctx context.Context, code, redirectURI string) (*providers.AccessToken, error) {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	params := url.Values{}
	params.Set("client_id", p.config.ClientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("client_secret", p.config.ClientSecret)
	params.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.tokenEndpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &providers.TransportError{Provider: providerName, Op: "exchange_code", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &providers.TransportError{Provider: providerName, Op: "exchange_code", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &providers.TransportError{
			Provider: providerName,
			Op:       "exchange_code",
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("token endpoint returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	if err != nil {
		return nil, &providers.TransportError{Provider: providerName, Op: "exchange_code", Err: err}
	}

	queryString, err := tokenQueryString(body)
	if err != nil {
		return nil, &providers.TransportError{Provider: providerName, Op: "exchange_code", Err: err}
	}

	token, err := accessTokenFromQueryString(queryString)
	if err != nil {
		return nil, &providers.TransportError{Provider: providerName, Op: "exchange_code", Err: err}
	}

	p.logger.Debug("Exchanged authorization code for access token", "expires", token.Expires)
	return token, nil
}

// tokenQueryString converts a Graph token-endpoint JSON body into the
// canonical query-string representation "access_token=...&expires=...".
// expires_in is accepted as either a JSON string or a JSON number.
func tokenQueryString(body []byte) (string, error) {
	var payload struct {
		AccessToken string          `json:"access_token"`
		ExpiresIn   json.RawMessage `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}

	expires := strings.Trim(string(payload.ExpiresIn), `"`)

	values := url.Values{}
	values.Set("access_token", payload.AccessToken)
	values.Set("expires", expires)
	return values.Encode(), nil
}

// accessTokenFromQueryString parses the canonical query-string form into an
// AccessToken value.
func accessTokenFromQueryString(queryString string) (*providers.AccessToken, error) {
	values, err := url.ParseQuery(queryString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token query string: %w", err)
	}
	tokenValue := values.Get("access_token")
	if tokenValue == "" {
		return nil, fmt.Errorf("token query string has no access_token")
	}

	// The expiry is a hint; an absent or malformed value is not an error.
	expires, _ := strconv.ParseInt(values.Get("expires"), 10, 64)

	return &providers.AccessToken{
		Token:   tokenValue,
		Expires: expires,
	}, nil
}

// Introspect queries the Graph identity endpoint for the email and name of
// the token's owner and normalizes the result into a ClaimSet.
//
// A token Facebook recognizes as invalid, expired or revoked surfaces as a
// Graph OAuthException; that is an expected outcome, not a fault, and maps
// to ClaimSet{valid:"false"} with a nil error. Every other failure returns
// a TransportError so that infrastructure problems stay distinguishable
// from a legitimate "not a valid user" result.
func (p *Provider) Introspect(ctx context.Context, accessToken string) (providers.ClaimSet, error) {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.identityEndpoint+"?fields="+url.QueryEscape(identityFields), nil)
	if err != nil {
		return nil, &providers.TransportError{Provider: providerName, Op: "introspect", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &providers.TransportError{Provider: providerName, Op: "introspect", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		if isOAuthRejection(body) {
			p.logger.Debug("Access token rejected by provider", "status", resp.StatusCode)
			return providers.InvalidClaims(), nil
		}
		return nil, &providers.TransportError{
			Provider: providerName,
			Op:       "introspect",
			Status:   resp.StatusCode,
			Err:      fmt.Errorf("identity endpoint returned status %d", resp.StatusCode),
		}
	}

	var user struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, &providers.TransportError{Provider: providerName, Op: "introspect", Err: fmt.Errorf("failed to decode identity response: %w", err)}
	}
	if user.ID == "" {
		return nil, &providers.TransportError{Provider: providerName, Op: "introspect", Err: fmt.Errorf("identity response has no id")}
	}

	return providers.NewClaims(providerName+":"+user.ID, user.Name, user.Email), nil
}

// isOAuthRejection reports whether a Graph error body is an explicit
// authorization rejection (error.type == "OAuthException"). Revoked tokens,
// expired tokens and insufficient scope all arrive this way; they collapse
// into one "invalid" outcome.
func isOAuthRejection(body []byte) bool {
	var envelope struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false
	}
	return envelope.Error.Type == oauthExceptionType
}

// HealthCheck verifies that the Graph API is reachable. The token endpoint
// answers unauthenticated requests with a 4xx, which still proves
// reachability; only transport failures and 5xx responses count as
// unhealthy.
func (p *Provider) HealthCheck(ctx context.Context) error {
	ctx, cancel := p.ensureContextTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.tokenEndpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("graph api unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("graph health check failed with status %d", resp.StatusCode)
	}
	return nil
}
