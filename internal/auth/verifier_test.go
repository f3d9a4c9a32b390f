package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestVerifyResolvesEmail(t *testing.T) {
	t.Parallel()

	verifier, err := NewJWTVerifier(testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	token := signToken(t, testSecret, jwt.MapClaims{
		"email": "Reader@X.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	identity, err := verifier.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if identity.Email != "reader@x.com" {
		t.Fatalf("unexpected email: %q", identity.Email)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	t.Parallel()

	verifier, err := NewJWTVerifier(testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{
			name: "wrong secret",
			token: signToken(t, strings.Repeat("x", 32), jwt.MapClaims{
				"email": "a@x.com",
				"exp":   time.Now().Add(time.Hour).Unix(),
			}),
		},
		{
			name: "expired",
			token: signToken(t, testSecret, jwt.MapClaims{
				"email": "a@x.com",
				"exp":   time.Now().Add(-time.Hour).Unix(),
			}),
		},
		{
			name: "missing email claim",
			token: signToken(t, testSecret, jwt.MapClaims{
				"exp": time.Now().Add(time.Hour).Unix(),
			}),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := verifier.Verify(context.Background(), tc.token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestNewJWTVerifierRejectsShortSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewJWTVerifier("short"); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header string
		want   string
		ok     bool
	}{
		{name: "valid", header: "Bearer abc.def.ghi", want: "abc.def.ghi", ok: true},
		{name: "case insensitive scheme", header: "bearer tok", want: "tok", ok: true},
		{name: "missing scheme", header: "abc.def.ghi", ok: false},
		{name: "empty token", header: "Bearer ", ok: false},
		{name: "empty header", header: "", ok: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := BearerToken(tc.header)
			if ok != tc.ok || got != tc.want {
				t.Fatalf("BearerToken(%q) = (%q, %v), want (%q, %v)", tc.header, got, ok, tc.want, tc.ok)
			}
		})
	}
}
