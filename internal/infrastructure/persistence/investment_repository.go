package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/invest/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormInvestmentRepository implements InvestmentRepository using GORM
type GormInvestmentRepository struct {
	db *gorm.DB
}

// NewGormInvestmentRepository creates a new GormInvestmentRepository
func NewGormInvestmentRepository(db *gorm.DB) *GormInvestmentRepository {
	return &GormInvestmentRepository{db: db}
}

// FindByID finds an investment by its ID
func (r *GormInvestmentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Investment, error) {
	var model models.InvestmentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds investments matching the filter with the total match count
func (r *GormInvestmentRepository) FindAll(ctx context.Context, filter ledger.InvestmentFilter) ([]ledger.Investment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InvestmentModel{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.InvestmentModel
	if err := query.
		Order(investmentSort.orderBy(filter.Filter)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]ledger.Investment, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, total, nil
}

// Create inserts a new investment
func (r *GormInvestmentRepository) Create(ctx context.Context, inv *ledger.Investment) error {
	err := r.db.WithContext(ctx).Create(models.InvestmentModelFromDomain(inv)).Error
	if isUniqueViolation(err) {
		return shared.ErrAlreadyExists
	}
	return err
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormInvestmentRepository) SaveWithLock(ctx context.Context, inv *ledger.Investment) error {
	m := models.InvestmentModelFromDomain(inv)
	result := r.db.WithContext(ctx).
		Model(&models.InvestmentModel{}).
		Where("id = ? AND version = ?", inv.ID, inv.Version-1).
		Updates(map[string]interface{}{
			"status":            m.Status,
			"expected_return":   m.ExpectedReturn,
			"actual_return":     m.ActualReturn,
			"confirmed_at":      m.ConfirmedAt,
			"cancelled_at":      m.CancelledAt,
			"cancel_reason":     m.CancelReason,
			"maturity_date":     m.MaturityDate,
			"payment_method":    m.PaymentMethod,
			"reference_number":  m.ReferenceNumber,
			"notes":             m.Notes,
			"risk_acknowledged": m.RiskAcknowledged,
			"version":           m.Version,
			"updated_at":        m.UpdatedAt,
		})

	if result.Error != nil {
		return translateConflict(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.NewConcurrencyConflictError("Investment was modified by another transaction")
	}
	return nil
}

// Ensure GormInvestmentRepository implements InvestmentRepository
var _ ledger.InvestmentRepository = (*GormInvestmentRepository)(nil)
