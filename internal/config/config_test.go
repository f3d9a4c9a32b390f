package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:     "postgres://localhost:5432/bookcourier",
		StripeSecretKey: "sk_test_123",
		TokenSecret:     strings.Repeat("s", 32),
		ClientDomain:    "https://shop.example",
		CacheProvider:   "memory",
		LogFormat:       "text",
		Port:            "8080",
	}
}

func TestValidateTokenSecretLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{name: "valid 32-byte secret", secret: strings.Repeat("k", 32), wantErr: false},
		{name: "short secret", secret: "short", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.TokenSecret = tt.secret

			err := cfg.validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateClientDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		domain  string
		wantErr bool
	}{
		{name: "https", domain: "https://shop.example", wantErr: false},
		{name: "http localhost", domain: "http://localhost:5173", wantErr: false},
		{name: "http public", domain: "http://shop.example", wantErr: true},
		{name: "not a url", domain: "::::", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			cfg.ClientDomain = tt.domain

			err := cfg.validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}

func TestValidateCacheProvider(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.CacheProvider = "invalid"

	err := cfg.validate()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "CacheProvider") || !strings.Contains(err.Error(), "oneof") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateEmailProviderRequiresKey(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.EmailProvider = "resend"
	cfg.EmailAPIKey = ""
	cfg.EmailFrom = "orders@shop.example"

	err := cfg.validate()
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "EmailAPIKey") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPaymentRedirectURLs(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.ClientDomain = "https://shop.example/"

	if got := cfg.PaymentSuccessURL(); got != "https://shop.example/payment?session_id={CHECKOUT_SESSION_ID}" {
		t.Fatalf("unexpected success url: %q", got)
	}
	if got := cfg.PaymentCancelURL(); got != "https://shop.example/dashboard/my-orders" {
		t.Fatalf("unexpected cancel url: %q", got)
	}
}
