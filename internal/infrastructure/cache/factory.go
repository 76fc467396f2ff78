package cache

import (
	"fmt"

	"github.com/invest/ledger/internal/domain/shared"
	"github.com/invest/ledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// IdempotencyStoreFactory picks the payment reference store for the process
type IdempotencyStoreFactory struct {
	redisConfig           config.RedisConfig
	keyPrefix             string
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// IdempotencyStoreFactoryOption configures the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithKeyPrefix namespaces Redis keys, e.g. per deployment
func WithKeyPrefix(prefix string) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.keyPrefix = prefix
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// process-local store. Default is true.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redisConfig:           cfg,
		keyPrefix:             defaultKeyPrefix,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateRedisStore connects to Redis and returns a shared store
func (f *IdempotencyStoreFactory) CreateRedisStore() (shared.IdempotencyStore, error) {
	if f.redisConfig.Host == "" {
		return nil, fmt.Errorf("redis host is not configured")
	}
	store, err := NewRedisIdempotencyStore(f.redisConfig, f.keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis idempotency store: %w", err)
	}
	return store, nil
}

// CreateInMemoryStore returns a process-local store.
// State is not shared across instances; the receipt unique constraint still
// rejects duplicates that slip past it.
func (f *IdempotencyStoreFactory) CreateInMemoryStore() shared.IdempotencyStore {
	return NewInMemoryIdempotencyStore()
}

// CreateStore prefers Redis and falls back to memory when allowed
func (f *IdempotencyStoreFactory) CreateStore() (shared.IdempotencyStore, error) {
	store, err := f.CreateRedisStore()
	if err == nil {
		f.logger.Info("Using Redis idempotency store",
			zap.String("addr", f.redisConfig.Addr()),
		)
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store",
		zap.Error(err),
	)
	return f.CreateInMemoryStore(), nil
}
