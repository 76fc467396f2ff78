package cache

import (
	"testing"

	"github.com/invest/ledger/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyStoreFactory_CreateStore(t *testing.T) {
	t.Run("falls back to memory without redis host", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.RedisConfig{})

		store, err := f.CreateStore()
		require.NoError(t, err)
		defer store.Close()

		_, ok := store.(*InMemoryIdempotencyStore)
		assert.True(t, ok)
	})

	t.Run("errors when fallback is disabled", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(config.RedisConfig{}, WithInMemoryFallback(false))

		store, err := f.CreateStore()
		assert.Nil(t, store)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis required for idempotency")
	})

	t.Run("unreachable redis falls back", func(t *testing.T) {
		f := NewIdempotencyStoreFactory(
			config.RedisConfig{Host: "127.0.0.1", Port: 1},
			WithKeyPrefix("test:"),
		)

		store, err := f.CreateStore()
		require.NoError(t, err)
		defer store.Close()

		_, ok := store.(*InMemoryIdempotencyStore)
		assert.True(t, ok)
	})
}
