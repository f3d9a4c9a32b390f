package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required" validate:"required"`

	StripeSecretKey     string `env:"STRIPE_SECRET_KEY,required" validate:"required"`
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	// TokenSecret verifies bearer tokens minted by the identity
	// provider. HS256, so both sides share it.
	TokenSecret string `env:"TOKEN_SECRET,required" validate:"required,min=32"`

	// ClientDomain is where the hosted payment page sends the customer
	// back after checkout.
	ClientDomain string `env:"CLIENT_DOMAIN,required" validate:"required,url"`

	CacheProvider         string `env:"CACHE_PROVIDER" envDefault:"memory" validate:"omitempty,oneof=memory redis"`
	RedisConnectionString string `env:"REDIS_CONNECTION_STRING" envDefault:"redis://localhost:6379/0" validate:"required_if=CacheProvider redis"`

	EmailProvider string `env:"EMAIL_PROVIDER" validate:"omitempty,oneof=resend"`
	EmailAPIKey   string `env:"EMAIL_API_KEY" validate:"required_with=EmailProvider"`
	EmailFrom     string `env:"EMAIL_FROM" validate:"required_with=EmailProvider,omitempty,email"`

	SeedFile string `env:"SEED_FILE"`

	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"text" validate:"omitempty,oneof=text json"`
	Port      string     `env:"PORT" envDefault:"8080"`
}

var configValidator = validator.New()

func Load() (*Config, error) {
	var cfg Config

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := configValidator.Struct(c); err != nil {
		return err
	}

	domain := strings.TrimSpace(c.ClientDomain)
	parsed, err := url.Parse(domain)
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("CLIENT_DOMAIN must be a valid absolute URL")
	}
	if !isLocalHost(parsed.Hostname()) && !strings.EqualFold(parsed.Scheme, "https") {
		return fmt.Errorf("CLIENT_DOMAIN must use https outside local development")
	}

	return nil
}

// PaymentSuccessURL is where the provider redirects after a completed
// checkout; the placeholder is substituted by the provider.
func (c *Config) PaymentSuccessURL() string {
	return strings.TrimRight(c.ClientDomain, "/") + "/payment?session_id={CHECKOUT_SESSION_ID}"
}

func (c *Config) PaymentCancelURL() string {
	return strings.TrimRight(c.ClientDomain, "/") + "/dashboard/my-orders"
}

func isLocalHost(host string) bool {
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}
