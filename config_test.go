package sociallogin

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		config    *Config
		wantField string
	}{
		{
			name: "valid",
			config: &Config{
				SuccessURL: "https://app.example.com/welcome",
				FailureURL: "https://app.example.com/login-failed",
				BaseURL:    "https://login.example.com",
			},
		},
		{
			name: "missing success URL",
			config: &Config{
				FailureURL: "https://app.example.com/login-failed",
				BaseURL:    "https://login.example.com",
			},
			wantField: "SuccessURL",
		},
		{
			name: "missing failure URL",
			config: &Config{
				SuccessURL: "https://app.example.com/welcome",
				BaseURL:    "https://login.example.com",
			},
			wantField: "FailureURL",
		},
		{
			name: "missing base URL",
			config: &Config{
				SuccessURL: "https://app.example.com/welcome",
				FailureURL: "https://app.example.com/login-failed",
			},
			wantField: "BaseURL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("ConfigError.Field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestConfigRedirectURI(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{
			name:    "no trailing slash",
			baseURL: "https://login.example.com",
			want:    "https://login.example.com/FacebookCallback",
		},
		{
			name:    "trailing slash stripped",
			baseURL: "https://login.example.com/",
			want:    "https://login.example.com/FacebookCallback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{BaseURL: tt.baseURL}
			if got := cfg.RedirectURI(); got != tt.want {
				t.Errorf("RedirectURI() = %q, want %q", got, tt.want)
			}
		})
	}
}
