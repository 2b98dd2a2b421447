package facebook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/questline/social-login/providers"
)

func newTestProvider(t *testing.T, tokenEndpoint, identityEndpoint string) *Provider {
	t.Helper()
	provider, err := NewProvider(&Config{
		ClientID:         "test-client-id",
		ClientSecret:     "test-client-secret",
		RedirectURL:      "https://example.com/FacebookCallback",
		TokenEndpoint:    tokenEndpoint,
		IdentityEndpoint: identityEndpoint,
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	return provider
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				ClientID:     "test-client-id",
				ClientSecret: "test-client-secret",
				RedirectURL:  "https://example.com/FacebookCallback",
				Scopes:       []string{"email"},
			},
			wantErr: false,
		},
		{
			name: "missing client ID",
			config: &Config{
				ClientSecret: "test-client-secret",
				RedirectURL:  "https://example.com/FacebookCallback",
			},
			wantErr: true,
		},
		{
			name: "missing client secret",
			config: &Config{
				ClientID:    "test-client-id",
				RedirectURL: "https://example.com/FacebookCallback",
			},
			wantErr: true,
		},
		{
			name: "default scopes",
			config: &Config{
				ClientID:     "test-client-id",
				ClientSecret: "test-client-secret",
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewProvider() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && provider != nil {
				if provider.httpClient == nil {
					t.Error("NewProvider() httpClient is nil")
				}
				if len(provider.config.Scopes) == 0 {
					t.Error("NewProvider() scopes are empty")
				}
			}
		})
	}
}

func TestNewProvider_WithCustomHTTPClient(t *testing.T) {
	customClient := &http.Client{
		Timeout: 10 * time.Second,
	}

	provider, err := NewProvider(&Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		HTTPClient:   customClient,
	})
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	if provider.httpClient != customClient {
		t.Error("NewProvider() did not use custom HTTP client")
	}
}

func TestAuthorizationURL(t *testing.T) {
	provider := newTestProvider(t, "", "")

	authURL := provider.AuthorizationURL("test-state")

	if !strings.Contains(authURL, "facebook.com") {
		t.Errorf("AuthorizationURL() = %q, want facebook.com host", authURL)
	}
	if !strings.Contains(authURL, "client_id=test-client-id") {
		t.Errorf("AuthorizationURL() = %q, missing client_id", authURL)
	}
	if !strings.Contains(authURL, "state=test-state") {
		t.Errorf("AuthorizationURL() = %q, missing state", authURL)
	}
}

func TestTokenQueryString(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    string
		wantErr bool
	}{
		{
			name: "numeric expires_in",
			body: `{"access_token":"tok123","expires_in":5184000}`,
			want: "access_token=tok123&expires=5184000",
		},
		{
			name: "string expires_in",
			body: `{"access_token":"tok123","expires_in":"5184000"}`,
			want: "access_token=tok123&expires=5184000",
		},
		{
			name: "missing expires_in",
			body: `{"access_token":"tok123"}`,
			want: "access_token=tok123&expires=",
		},
		{
			name: "token needing escaping",
			body: `{"access_token":"a b&c","expires_in":60}`,
			want: "access_token=a+b%26c&expires=60",
		},
		{
			name:    "missing access_token",
			body:    `{"expires_in":5184000}`,
			wantErr: true,
		},
		{
			name:    "not json",
			body:    `access_token=tok123`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tokenQueryString([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("tokenQueryString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("tokenQueryString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAccessTokenFromQueryString(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantToken   string
		wantExpires int64
		wantErr     bool
	}{
		{
			name:        "token and expires",
			query:       "access_token=tok123&expires=5184000",
			wantToken:   "tok123",
			wantExpires: 5184000,
		},
		{
			name:        "empty expires tolerated",
			query:       "access_token=tok123&expires=",
			wantToken:   "tok123",
			wantExpires: 0,
		},
		{
			name:        "escaped token round-trips",
			query:       "access_token=a+b%26c&expires=60",
			wantToken:   "a b&c",
			wantExpires: 60,
		},
		{
			name:    "missing access_token",
			query:   "expires=5184000",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := accessTokenFromQueryString(tt.query)
			if (err != nil) != tt.wantErr {
				t.Fatalf("accessTokenFromQueryString() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if token.Token != tt.wantToken {
				t.Errorf("Token = %q, want %q", token.Token, tt.wantToken)
			}
			if token.Expires != tt.wantExpires {
				t.Errorf("Expires = %d, want %d", token.Expires, tt.wantExpires)
			}
		})
	}
}

func TestExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("token endpoint called with method %s, want GET", r.Method)
		}
		query := r.URL.Query()
		if got := query.Get("client_id"); got != "test-client-id" {
			t.Errorf("client_id = %q, want %q", got, "test-client-id")
		}
		if got := query.Get("client_secret"); got != "test-client-secret" {
			t.Errorf("client_secret = %q, want %q", got, "test-client-secret")
		}
		if got := query.Get("redirect_uri"); got != "https://example.com/FacebookCallback" {
			t.Errorf("redirect_uri = %q, want %q", got, "https://example.com/FacebookCallback")
		}
		if got := query.Get("code"); got != "test-code" {
			t.Errorf("code = %q, want %q", got, "test-code")
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fb-access-token",
			"expires_in":   5184000,
		})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL, "")

	token, err := provider.ExchangeCode(context.Background(), "test-code", "https://example.com/FacebookCallback")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	if token.Token != "fb-access-token" {
		t.Errorf("Token = %q, want %q", token.Token, "fb-access-token")
	}
	if token.Expires != 5184000 {
		t.Errorf("Expires = %d, want 5184000", token.Expires)
	}
}

func TestExchangeCode_SingleUseCode(t *testing.T) {
	var mu sync.Mutex
	used := make(map[string]bool)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")

		mu.Lock()
		seen := used[code]
		used[code] = true
		mu.Unlock()

		if seen {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"This authorization code has been used.","type":"OAuthException","code":100}}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "fb-access-token",
			"expires_in":   5184000,
		})
	}))
	defer server.Close()

	provider := newTestProvider(t, server.URL, "")

	if _, err := provider.ExchangeCode(context.Background(), "once", "https://example.com/FacebookCallback"); err != nil {
		t.Fatalf("first ExchangeCode() error = %v", err)
	}

	_, err := provider.ExchangeCode(context.Background(), "once", "https://example.com/FacebookCallback")
	if err == nil {
		t.Fatal("second ExchangeCode() with the same code succeeded, want error")
	}
	if !providers.IsTransport(err) {
		t.Errorf("second ExchangeCode() error = %v, want TransportError", err)
	}
}

func TestExchangeCode_ErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{
			name:   "provider error status",
			status: http.StatusBadRequest,
			body:   `{"error":{"message":"Invalid verification code format.","type":"OAuthException","code":100}}`,
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `upstream exploded`,
		},
		{
			name:   "ok status without access_token",
			status: http.StatusOK,
			body:   `{"expires_in":5184000}`,
		},
		{
			name:   "ok status with invalid json",
			status: http.StatusOK,
			body:   `not json at all`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := newTestProvider(t, server.URL, "")

			_, err := provider.ExchangeCode(context.Background(), "test-code", "https://example.com/FacebookCallback")
			if err == nil {
				t.Fatal("ExchangeCode() succeeded, want error")
			}
			if !providers.IsTransport(err) {
				t.Errorf("ExchangeCode() error = %v, want TransportError", err)
			}
		})
	}
}

func TestExchangeCode_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	provider := newTestProvider(t, server.URL, "")

	_, err := provider.ExchangeCode(context.Background(), "test-code", "https://example.com/FacebookCallback")
	if err == nil {
		t.Fatal("ExchangeCode() against closed server succeeded, want error")
	}
	if !providers.IsTransport(err) {
		t.Errorf("ExchangeCode() error = %v, want TransportError", err)
	}
}

func TestIntrospect_ValidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer fb-access-token" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer fb-access-token")
		}
		if got := r.URL.Query().Get("fields"); got != "email,name" {
			t.Errorf("fields = %q, want %q", got, "email,name")
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":    "1234567890",
			"name":  "Jane Doe",
			"email": "jane@example.com",
		})
	}))
	defer server.Close()

	provider := newTestProvider(t, "", server.URL)

	claims, err := provider.Introspect(context.Background(), "fb-access-token")
	if err != nil {
		t.Fatalf("Introspect() error = %v", err)
	}

	if !claims.Valid() {
		t.Fatalf("claims = %v, want valid", claims)
	}
	if got := claims[providers.ClaimID]; got != "facebook:1234567890" {
		t.Errorf("id claim = %q, want %q", got, "facebook:1234567890")
	}
	if got := claims[providers.ClaimName]; got != "Jane Doe" {
		t.Errorf("name claim = %q, want %q", got, "Jane Doe")
	}
	if got := claims[providers.ClaimEmail]; got != "jane@example.com" {
		t.Errorf("email claim = %q, want %q", got, "jane@example.com")
	}
}

func TestIntrospect_RejectedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Error validating access token: Session has expired.","type":"OAuthException","code":190}}`))
	}))
	defer server.Close()

	provider := newTestProvider(t, "", server.URL)

	claims, err := provider.Introspect(context.Background(), "expired-token")
	if err != nil {
		t.Fatalf("Introspect() error = %v, want rejection without error", err)
	}

	if claims.Valid() {
		t.Fatalf("claims = %v, want invalid", claims)
	}
	// A rejection carries nothing but the valid flag.
	if len(claims) != 1 {
		t.Errorf("claims = %v, want exactly one entry", claims)
	}
	if got := claims[providers.ClaimValid]; got != "false" {
		t.Errorf("valid claim = %q, want %q", got, "false")
	}
	if claims.Subject() != "" {
		t.Errorf("Subject() = %q, want empty", claims.Subject())
	}
}

func TestIntrospect_TransportFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{
			name:   "non-oauth error body",
			status: http.StatusInternalServerError,
			body:   `{"error":{"message":"An unknown error occurred","type":"InternalError","code":1}}`,
		},
		{
			name:   "unparseable error body",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
		},
		{
			name:   "ok status without id",
			status: http.StatusOK,
			body:   `{"name":"Jane Doe","email":"jane@example.com"}`,
		},
		{
			name:   "ok status with invalid json",
			status: http.StatusOK,
			body:   `not json`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider := newTestProvider(t, "", server.URL)

			_, err := provider.Introspect(context.Background(), "some-token")
			if err == nil {
				t.Fatal("Introspect() succeeded, want error")
			}
			if !providers.IsTransport(err) {
				t.Errorf("Introspect() error = %v, want TransportError", err)
			}
		})
	}
}

func TestIsOAuthRejection(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{
			name: "oauth exception",
			body: `{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`,
			want: true,
		},
		{
			name: "other graph error",
			body: `{"error":{"message":"Unknown","type":"GraphMethodException","code":100}}`,
			want: false,
		},
		{
			name: "no error envelope",
			body: `{}`,
			want: false,
		},
		{
			name: "not json",
			body: `boom`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isOAuthRejection([]byte(tt.body)); got != tt.want {
				t.Errorf("isOAuthRejection() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "reachable 200", status: http.StatusOK, wantErr: false},
		{name: "reachable 400 still healthy", status: http.StatusBadRequest, wantErr: false},
		{name: "server error unhealthy", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			provider := newTestProvider(t, server.URL, "")

			err := provider.HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHealthCheck_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	provider := newTestProvider(t, server.URL, "")

	if err := provider.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() against closed server succeeded, want error")
	}
}
