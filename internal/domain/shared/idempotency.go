package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers keys (payment references, event IDs) that have
// already been processed. It is an advisory fast path: callers must still
// rely on a durable uniqueness guarantee inside their unit of work.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL.
	// Returns true if the key was newly marked, false if it was already present.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a key has already been processed
	IsProcessed(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is how long a processed key is remembered by the fast path
	TTL time.Duration

	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     72 * time.Hour,
		Enabled: true,
	}
}
