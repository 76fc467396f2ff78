package ledger

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// StatementStorage is the object store statements are written to
type StatementStorage interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// StatementService exports plan statements as CSV objects
type StatementService struct {
	txScope TransactionScope
	storage StatementStorage
	urlTTL  time.Duration
	logger  *zap.Logger
}

// NewStatementService creates a new StatementService
func NewStatementService(txScope TransactionScope, storage StatementStorage, urlTTL time.Duration, logger *zap.Logger) *StatementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &StatementService{
		txScope: txScope,
		storage: storage,
		urlTTL:  urlTTL,
		logger:  logger,
	}
}

var statementHeader = []string{
	"installment", "due_date", "due_amount", "late_fee", "paid_amount",
	"paid_date", "status", "days_overdue", "transaction_reference",
}

// ExportPlanStatement writes the schedule of a plan with its payments to
// object storage and returns a presigned download URL
func (s *StatementService) ExportPlanStatement(ctx context.Context, actorID string, planID uuid.UUID) (*StatementResponse, error) {
	if err := requireActor(actorID); err != nil {
		return nil, err
	}

	var plan *ledger.PaymentPlan
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		plan, err = repos.PlanRepo().FindByID(ctx, planID)
		return err
	})
	if err != nil {
		return nil, err
	}

	data, err := RenderStatementCSV(plan)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("statements/%s/%s.csv", plan.ID, time.Now().UTC().Format("20060102T150405Z"))
	if err := s.storage.Upload(ctx, key, data, "text/csv"); err != nil {
		return nil, fmt.Errorf("upload statement: %w", err)
	}
	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, key, s.urlTTL)
	if err != nil {
		return nil, fmt.Errorf("presign statement: %w", err)
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		return repos.AuditRepo().Append(ctx, ledger.NewAuditEntry(actorID, ledger.AuditPlanStatementExported,
			ledger.AggregateTypePaymentPlan, plan.ID, map[string]any{"object_key": key}))
	})
	if err != nil {
		s.logger.Warn("Failed to audit statement export",
			zap.String("plan_id", plan.ID.String()),
			zap.Error(err),
		)
	}

	s.logger.Info("Plan statement exported",
		zap.String("plan_id", plan.ID.String()),
		zap.String("object_key", key),
		zap.String("actor_id", actorID),
	)
	return &StatementResponse{
		PlanID:      plan.ID,
		ObjectKey:   key,
		DownloadURL: url,
		ExpiresAt:   expiresAt,
	}, nil
}

// RenderStatementCSV renders one row per installment followed by a totals row
func RenderStatementCSV(plan *ledger.PaymentPlan) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(statementHeader); err != nil {
		return nil, err
	}

	for _, inst := range plan.Installments {
		paid := ""
		if inst.PaidDate != nil {
			paid = inst.PaidDate.Format(time.DateOnly)
		}
		row := []string{
			strconv.Itoa(inst.Number),
			inst.DueDate.Format(time.DateOnly),
			inst.DueAmount.StringFixed(valueobject.Scale),
			inst.LateFee.StringFixed(valueobject.Scale),
			inst.PaidAmount.StringFixed(valueobject.Scale),
			paid,
			string(inst.Status),
			strconv.Itoa(inst.DaysOverdue),
			inst.TransactionReference,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	totals := []string{
		"total", "",
		plan.TotalDue().StringFixed(valueobject.Scale),
		plan.TotalLateFees().StringFixed(valueobject.Scale),
		plan.TotalPaid.Add(plan.LateFeesPaid).StringFixed(valueobject.Scale),
		"", string(plan.Status), "", "",
	}
	if err := w.Write(totals); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
