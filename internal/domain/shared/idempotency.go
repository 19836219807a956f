package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which event IDs a handler has already processed
type IdempotencyStore interface {
	// MarkProcessed atomically records the key with a TTL.
	// Returns true if the key was newly recorded, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been recorded
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close releases resources held by the store
	Close() error
}

// IdempotencyConfig holds configuration for idempotent event handling
type IdempotencyConfig struct {
	// TTL is how long a processed key is remembered. Default: 24 hours
	TTL time.Duration

	// Enabled toggles duplicate detection. Default: true
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
