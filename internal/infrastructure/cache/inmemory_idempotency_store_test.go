package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is advanced manually by tests
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	clock := newFakeClock()
	store := NewInMemoryIdempotencyStore(WithClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	t.Run("new reference is recorded", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "ledger:payment:TRX-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("repeated reference is rejected", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "ledger:payment:TRX-2", time.Hour)
		require.NoError(t, err)

		isNew, err := store.MarkProcessed(ctx, "ledger:payment:TRX-2", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("expired reference can be recorded again", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "ledger:payment:TRX-3", time.Minute)
		require.NoError(t, err)

		clock.Advance(2 * time.Minute)

		isNew, err := store.MarkProcessed(ctx, "ledger:payment:TRX-3", time.Minute)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	clock := newFakeClock()
	store := NewInMemoryIdempotencyStore(WithClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	processed, err := store.IsProcessed(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, processed)

	_, err = store.MarkProcessed(ctx, "ref", 10*time.Minute)
	require.NoError(t, err)

	processed, err = store.IsProcessed(ctx, "ref")
	require.NoError(t, err)
	assert.True(t, processed)

	clock.Advance(10 * time.Minute)
	processed, err = store.IsProcessed(ctx, "ref")
	require.NoError(t, err)
	assert.False(t, processed, "expiry boundary is exclusive")
}

func TestInMemoryIdempotencyStore_EvictExpired(t *testing.T) {
	clock := newFakeClock()
	store := NewInMemoryIdempotencyStore(WithClock(clock.Now))
	defer store.Close()
	ctx := context.Background()

	store.MarkProcessed(ctx, "short-1", time.Minute)
	store.MarkProcessed(ctx, "short-2", time.Minute)
	store.MarkProcessed(ctx, "long", 72*time.Hour)
	assert.Equal(t, 3, store.Size())

	clock.Advance(5 * time.Minute)
	store.evictExpired()

	assert.Equal(t, 1, store.Size())
	processed, err := store.IsProcessed(ctx, "long")
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestInMemoryIdempotencyStore_EvictLoop(t *testing.T) {
	store := NewInMemoryIdempotencyStore(WithSweepInterval(5 * time.Millisecond))
	defer store.Close()

	store.MarkProcessed(context.Background(), "gone", time.Millisecond)

	assert.Eventually(t, func() bool { return store.Size() == 0 }, time.Second, 5*time.Millisecond)
}

func TestInMemoryIdempotencyStore_ConcurrentMark(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	const workers = 100
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := store.MarkProcessed(context.Background(), "same-reference", time.Hour)
			if err == nil && isNew {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
