// Package cache provides short-lived key storage for webhook and
// payment-confirmation deduplication.
package cache

import (
	"context"
	"fmt"
	"time"
)

type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func NewProvider(provider, redisConnectionString string) (Provider, error) {
	switch provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(redisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", provider)
	}
}

// WebhookKey dedupes provider webhook deliveries by event ID.
func WebhookKey(source, eventID string) string {
	return fmt.Sprintf("webhook:%s:%s", source, eventID)
}
