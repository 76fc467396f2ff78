package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SystemActor is the actor recorded for scheduled sweeps
const SystemActor = "system:overdue-sweep"

// DefaultSweepBatchSize is the number of plan IDs loaded per page
const DefaultSweepBatchSize = 100

// PlanLister pages through active plans
type PlanLister interface {
	FindActiveIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

// SweepStats contains statistics about a batch sweep
type SweepStats struct {
	PlansScanned         int       `json:"plans_scanned"`
	PlansUpdated         int       `json:"plans_updated"`
	EntriesMarkedOverdue int       `json:"entries_marked_overdue"`
	LateFeesAccrued      int       `json:"late_fees_accrued"`
	Failures             int       `json:"failures"`
	ProcessedAt          time.Time `json:"processed_at"`
}

// OverdueSweepService sweeps every active plan, each in its own unit of work
type OverdueSweepService struct {
	plans     PlanLister
	ledger    *LedgerService
	batchSize int
	logger    *zap.Logger
}

// NewOverdueSweepService creates a new OverdueSweepService
func NewOverdueSweepService(plans PlanLister, ledgerService *LedgerService, batchSize int, logger *zap.Logger) *OverdueSweepService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	return &OverdueSweepService{
		plans:     plans,
		ledger:    ledgerService,
		batchSize: batchSize,
		logger:    logger,
	}
}

// SweepAllOverdue sweeps all active plans as of asOf (now when zero). A
// failing plan is counted and skipped; only a listing failure aborts the run.
func (s *OverdueSweepService) SweepAllOverdue(ctx context.Context, asOf time.Time) (*SweepStats, error) {
	if asOf.IsZero() {
		asOf = s.ledger.now()
	}
	stats := &SweepStats{ProcessedAt: time.Now()}

	after := uuid.Nil
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		ids, err := s.plans.FindActiveIDs(ctx, after, s.batchSize)
		if err != nil {
			s.logger.Error("Failed to list active plans", zap.Error(err))
			return stats, err
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			stats.PlansScanned++
			_, result, err := s.ledger.sweepPlan(ctx, id, asOf, SystemActor)
			if err != nil {
				s.logger.Error("Failed to sweep plan",
					zap.String("plan_id", id.String()),
					zap.Error(err),
				)
				stats.Failures++
				continue
			}
			if result.Changed {
				stats.PlansUpdated++
			}
			stats.EntriesMarkedOverdue += len(result.NewlyOverdue)
			stats.LateFeesAccrued += len(result.LateFeeAccrued)
		}

		after = ids[len(ids)-1]
		if len(ids) < s.batchSize {
			break
		}
	}

	s.logger.Info("Completed overdue sweep",
		zap.Time("as_of", asOf),
		zap.Int("scanned", stats.PlansScanned),
		zap.Int("updated", stats.PlansUpdated),
		zap.Int("marked_overdue", stats.EntriesMarkedOverdue),
		zap.Int("late_fees", stats.LateFeesAccrued),
		zap.Int("failed", stats.Failures),
	)
	return stats, nil
}
