package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/invest/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// RetryPolicy bounds how often a unit of work is re-run after a
// ConcurrencyConflictError
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration // Multiplied by the attempt number
}

// DefaultRetryPolicy returns the default retry policy
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Backoff: 10 * time.Millisecond}
}

// ConflictObserver is notified of every conflict retry
type ConflictObserver interface {
	RecordConflictRetry(ctx context.Context, operation string)
}

// withConflictRetry runs fn and re-runs it from scratch while it fails with a
// concurrency conflict, up to policy.MaxRetries extra attempts. Any other
// error is returned immediately.
func withConflictRetry(
	ctx context.Context,
	policy RetryPolicy,
	logger *zap.Logger,
	observer ConflictObserver,
	operation string,
	fn func() error,
) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		if attempt >= policy.MaxRetries {
			logger.Warn("Concurrency conflict retries exhausted",
				zap.String("operation", operation),
				zap.Int("attempts", attempt+1),
			)
			return err
		}
		if observer != nil {
			observer.RecordConflictRetry(ctx, operation)
		}
		logger.Debug("Retrying after concurrency conflict",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
		)

		wait := policy.Backoff * time.Duration(attempt+1)
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
