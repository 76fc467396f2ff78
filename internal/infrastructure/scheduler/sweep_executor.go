package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	appledger "github.com/invest/ledger/internal/application/ledger"
	"go.uber.org/zap"
)

// OverdueSweeper runs a batch overdue sweep
type OverdueSweeper interface {
	SweepAllOverdue(ctx context.Context, asOf time.Time) (*appledger.SweepStats, error)
}

// SweepRecorder receives the duration and failure count of each run
type SweepRecorder interface {
	RecordSweep(ctx context.Context, duration time.Duration, failures int)
}

// SweepExecutor executes OVERDUE_SWEEP jobs and keeps the last run's stats
type SweepExecutor struct {
	sweeper  OverdueSweeper
	logger   *zap.Logger
	recorder SweepRecorder

	mu   sync.RWMutex
	last *appledger.SweepStats
}

// NewSweepExecutor creates a new SweepExecutor
func NewSweepExecutor(sweeper OverdueSweeper, logger *zap.Logger) *SweepExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepExecutor{sweeper: sweeper, logger: logger}
}

// WithRecorder sets the recorder notified after every run
func (e *SweepExecutor) WithRecorder(r SweepRecorder) *SweepExecutor {
	e.recorder = r
	return e
}

// Execute implements JobExecutor. A run where some plans failed is reported
// as an error so the job is retried; sweeping is idempotent for a fixed AsOf.
func (e *SweepExecutor) Execute(ctx context.Context, job *Job) error {
	if job.Kind != JobKindOverdueSweep {
		return fmt.Errorf("%w: unsupported job kind %q", ErrInvalidConfig, job.Kind)
	}

	started := time.Now()
	stats, err := e.sweeper.SweepAllOverdue(ctx, job.AsOf)
	if e.recorder != nil {
		failures := 0
		if stats != nil {
			failures = stats.Failures
		}
		if err != nil && failures == 0 {
			failures = 1
		}
		e.recorder.RecordSweep(ctx, time.Since(started), failures)
	}
	if stats != nil {
		e.mu.Lock()
		e.last = stats
		e.mu.Unlock()
	}
	if err != nil {
		return fmt.Errorf("overdue sweep: %w", err)
	}

	e.logger.Info("Overdue sweep finished",
		zap.String("job_id", job.ID.String()),
		zap.Int("plans_scanned", stats.PlansScanned),
		zap.Int("plans_updated", stats.PlansUpdated),
		zap.Int("entries_marked_overdue", stats.EntriesMarkedOverdue),
		zap.Int("late_fees_accrued", stats.LateFeesAccrued),
		zap.Int("failures", stats.Failures),
	)
	if stats.Failures > 0 {
		return fmt.Errorf("%w: %d plan(s)", ErrSweepIncomplete, stats.Failures)
	}
	return nil
}

// LastStats returns the stats of the most recent run, or nil
func (e *SweepExecutor) LastStats() *appledger.SweepStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.last
}
