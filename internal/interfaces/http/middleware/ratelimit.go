package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/invest/ledger/internal/infrastructure/logger"
	"github.com/invest/ledger/internal/interfaces/http/dto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Limiter counts requests per key in fixed windows
type Limiter interface {
	// Allow consumes one request for key and returns the requests left
	Allow(ctx context.Context, key string) (allowed bool, remaining int, err error)
	Limit() int
}

// MemoryLimiter is a process-local fixed window limiter
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	count int
	start time.Time
}

// NewMemoryLimiter creates a MemoryLimiter allowing limit requests per period
func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow implements Limiter
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.period {
		if len(l.windows) > 10000 {
			l.evict(now)
		}
		w = &window{start: now}
		l.windows[key] = w
	}
	if w.count >= l.limit {
		return false, 0, nil
	}
	w.count++
	return true, l.limit - w.count, nil
}

// evict drops expired windows; caller holds mu
func (l *MemoryLimiter) evict(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.period {
			delete(l.windows, key)
		}
	}
}

// Limit implements Limiter
func (l *MemoryLimiter) Limit() int { return l.limit }

// RedisLimiter shares fixed windows across replicas
type RedisLimiter struct {
	client redis.UniversalClient
	limit  int
	period time.Duration
	prefix string
}

// NewRedisLimiter creates a RedisLimiter allowing limit requests per period
func NewRedisLimiter(client redis.UniversalClient, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, period: period, prefix: "ledger:ratelimit:"}
}

// Allow implements Limiter
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	slot := time.Now().UnixNano() / int64(l.period)
	redisKey := l.prefix + key + ":" + strconv.FormatInt(slot, 10)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.period)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("rate limit counter: %w", err)
	}

	count := int(incr.Val())
	if count > l.limit {
		return false, 0, nil
	}
	return true, l.limit - count, nil
}

// Limit implements Limiter
func (l *RedisLimiter) Limit() int { return l.limit }

// RateLimit limits authenticated callers by actor and anonymous ones by
// client IP. A limiter failure lets the request through.
func RateLimit(limiter Limiter, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if actor := ActorID(c); actor != "" {
			key = "actor:" + actor
		}

		ctx := c.Request.Context()
		allowed, remaining, err := limiter.Allow(ctx, key)
		if err != nil {
			logger.For(ctx, log).Warn("Rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
				dto.ErrCodeRateLimited,
				"Too many requests. Please try again later.",
				logger.RequestID(ctx),
			))
			return
		}
		c.Next()
	}
}
