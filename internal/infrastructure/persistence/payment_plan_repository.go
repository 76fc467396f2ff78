package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/invest/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentPlanRepository implements PaymentPlanRepository using GORM.
// Plans are loaded with their installments; inside a transaction on
// Postgres the plan row is locked FOR UPDATE.
type GormPaymentPlanRepository struct {
	db        *gorm.DB
	lockLoads bool
}

// NewGormPaymentPlanRepository creates a new GormPaymentPlanRepository
func NewGormPaymentPlanRepository(db *gorm.DB) *GormPaymentPlanRepository {
	return &GormPaymentPlanRepository{db: db}
}

// newLockingPlanRepository is used by the transaction scope
func newLockingPlanRepository(tx *gorm.DB) *GormPaymentPlanRepository {
	return &GormPaymentPlanRepository{db: tx, lockLoads: tx.Dialector.Name() == "postgres"}
}

func (r *GormPaymentPlanRepository) load(ctx context.Context, where string, arg interface{}) (*ledger.PaymentPlan, error) {
	query := r.db.WithContext(ctx)
	if r.lockLoads {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var model models.PaymentPlanModel
	if err := query.
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_number ASC")
		}).
		Where(where, arg).
		First(&model).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return model.ToDomain(), nil
}

// FindByID loads a plan with its installments ordered by number
func (r *GormPaymentPlanRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.PaymentPlan, error) {
	return r.load(ctx, "id = ?", id)
}

// FindByInvestmentID loads the plan of an investment
func (r *GormPaymentPlanRepository) FindByInvestmentID(ctx context.Context, investmentID uuid.UUID) (*ledger.PaymentPlan, error) {
	return r.load(ctx, "investment_id = ?", investmentID)
}

// FindActiveIDs returns active plan IDs after the given ID, for keyset iteration
func (r *GormPaymentPlanRepository) FindActiveIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.PaymentPlanModel{}).
		Where("status = ? AND id > ?", ledger.PlanStatusActive, after).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// Create inserts a plan together with all of its installments
func (r *GormPaymentPlanRepository) Create(ctx context.Context, plan *ledger.PaymentPlan) error {
	err := r.db.WithContext(ctx).Create(models.PaymentPlanModelFromDomain(plan)).Error
	if isUniqueViolation(err) {
		return shared.NewDomainError(shared.CodeAlreadyExists, "Investment already has a payment plan")
	}
	return err
}

// SaveWithLock saves the plan with a version check, then writes each
// installment. Rows whose late fee was accrued since load carry an extra
// late_fee = 0 guard; a guarded row that no longer matches is a conflict.
func (r *GormPaymentPlanRepository) SaveWithLock(ctx context.Context, plan *ledger.PaymentPlan) error {
	db := r.db.WithContext(ctx)
	m := models.PaymentPlanModelFromDomain(plan)

	result := db.Model(&models.PaymentPlanModel{}).
		Where("id = ? AND version = ?", plan.ID, plan.Version-1).
		Updates(map[string]interface{}{
			"next_due_date":     m.NextDueDate,
			"interest_rate":     m.InterestRate,
			"late_fee_rate":     m.LateFeeRate,
			"grace_period_days": m.GracePeriodDays,
			"status":            m.Status,
			"total_paid":        m.TotalPaid,
			"remaining_balance": m.RemainingBalance,
			"overdue_amount":    m.OverdueAmount,
			"late_fees_paid":    m.LateFeesPaid,
			"unapplied_credit":  m.UnappliedCredit,
			"version":           m.Version,
			"updated_at":        m.UpdatedAt,
		})
	if result.Error != nil {
		return translateConflict(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewConcurrencyConflictError("Payment plan was modified by another transaction")
	}

	guarded := make(map[int]bool)
	for _, n := range plan.PendingLateFeeAccruals() {
		guarded[n] = true
	}
	for i := range m.Installments {
		inst := &m.Installments[i]
		query := db.Model(&models.InstallmentModel{}).Where("id = ?", inst.ID)
		if guarded[inst.Number] {
			query = query.Where("late_fee = 0")
		}
		res := query.Updates(map[string]interface{}{
			"paid_date":             inst.PaidDate,
			"paid_amount":           inst.PaidAmount,
			"late_fee":              inst.LateFee,
			"status":                inst.Status,
			"days_overdue":          inst.DaysOverdue,
			"payment_method":        inst.PaymentMethod,
			"transaction_reference": inst.TransactionReference,
			"processed_by":          inst.ProcessedBy,
			"notes":                 inst.Notes,
			"updated_at":            inst.UpdatedAt,
		})
		if res.Error != nil {
			return translateConflict(res.Error)
		}
		if res.RowsAffected == 0 {
			if guarded[inst.Number] {
				return shared.NewConcurrencyConflictError(fmt.Sprintf("Late fee of installment %d was already accrued", inst.Number))
			}
			return fmt.Errorf("installment %d of plan %s is missing", inst.Number, plan.ID)
		}
	}
	plan.ClearPendingAccruals()
	return nil
}

// Ensure GormPaymentPlanRepository implements PaymentPlanRepository
var _ ledger.PaymentPlanRepository = (*GormPaymentPlanRepository)(nil)
