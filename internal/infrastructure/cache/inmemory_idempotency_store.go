package cache

import (
	"context"
	"sync"
	"time"

	"github.com/invest/ledger/internal/domain/shared"
)

const defaultSweepEvery = 5 * time.Minute

// InMemoryIdempotencyStore keeps processed keys in a map with per-key expiry.
// Suitable for single-instance deployments and tests.
type InMemoryIdempotencyStore struct {
	mu        sync.Mutex
	expires   map[string]time.Time
	now       func() time.Time
	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// InMemoryOption configures an InMemoryIdempotencyStore
type InMemoryOption func(*inMemoryOptions)

type inMemoryOptions struct {
	now        func() time.Time
	sweepEvery time.Duration
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) InMemoryOption {
	return func(o *inMemoryOptions) { o.now = now }
}

// WithSweepInterval sets how often expired keys are evicted
func WithSweepInterval(d time.Duration) InMemoryOption {
	return func(o *inMemoryOptions) { o.sweepEvery = d }
}

// NewInMemoryIdempotencyStore starts the store and its eviction loop
func NewInMemoryIdempotencyStore(opts ...InMemoryOption) *InMemoryIdempotencyStore {
	o := inMemoryOptions{now: time.Now, sweepEvery: defaultSweepEvery}
	for _, opt := range opts {
		opt(&o)
	}

	s := &InMemoryIdempotencyStore{
		expires: make(map[string]time.Time),
		now:     o.now,
		stop:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.evictLoop(o.sweepEvery)
	return s
}

// MarkProcessed returns true if key was newly recorded. An expired key is
// treated as absent and overwritten.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if exp, ok := s.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	s.expires[key] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether key is recorded and not expired
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expires[key]
	return ok && s.now().Before(exp), nil
}

// Close stops the eviction loop. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) evictLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *InMemoryIdempotencyStore) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, exp := range s.expires {
		if !now.Before(exp) {
			delete(s.expires, key)
		}
	}
}

// Size returns the number of keys held, expired or not
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.expires)
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
