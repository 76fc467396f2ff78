package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const revocationKeyPrefix = "auth:revoked:jti:"

// RevocationList answers whether a token ID was revoked before expiry.
// The identity service writes revocations; the ledger only reads them.
type RevocationList interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisRevocationList reads revocations from keys shared with the identity service
type RedisRevocationList struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisRevocationList creates a RedisRevocationList on an existing client
func NewRedisRevocationList(client redis.UniversalClient) *RedisRevocationList {
	return &RedisRevocationList{client: client, keyPrefix: revocationKeyPrefix}
}

// IsRevoked implements RevocationList
func (l *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := l.client.Exists(ctx, l.keyPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// Revoke marks jti revoked for ttl, normally the token's remaining lifetime
func (l *RedisRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := l.client.Set(ctx, l.keyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// InMemoryRevocationList keeps revocations in process, for a single instance or tests
type InMemoryRevocationList struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewInMemoryRevocationList creates an empty InMemoryRevocationList
func NewInMemoryRevocationList() *InMemoryRevocationList {
	return &InMemoryRevocationList{revoked: make(map[string]time.Time), now: time.Now}
}

// Revoke marks jti revoked for ttl
func (l *InMemoryRevocationList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[jti] = l.now().Add(ttl)
	return nil
}

// IsRevoked implements RevocationList. Expired entries are dropped.
func (l *InMemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	until, ok := l.revoked[jti]
	if !ok {
		return false, nil
	}
	if !l.now().Before(until) {
		delete(l.revoked, jti)
		return false, nil
	}
	return true, nil
}

var (
	_ RevocationList = (*RedisRevocationList)(nil)
	_ RevocationList = (*InMemoryRevocationList)(nil)
)
