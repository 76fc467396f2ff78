package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/invest/ledger/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// projectUpdateColumns are written when Save hits an existing row.
// raised_amount is absent: it only moves through AdjustRaised.
var projectUpdateColumns = []string{
	"name", "target_amount", "min_investment", "max_investment",
	"expected_return_rate", "duration_months", "status", "version", "updated_at",
}

// GormProjectRepository implements ProjectRepository using GORM
type GormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a new GormProjectRepository
func NewGormProjectRepository(db *gorm.DB) *GormProjectRepository {
	return &GormProjectRepository{db: db}
}

// FindByID finds a project by its ID
func (r *GormProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Project, error) {
	var model models.ProjectModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err)
	}
	return model.ToDomain(), nil
}

// Save creates a project or updates its terms and status
func (r *GormProjectRepository) Save(ctx context.Context, project *ledger.Project) error {
	model := models.ProjectModelFromDomain(project)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(projectUpdateColumns),
		}).
		Create(model).Error
}

// AdjustRaised adds delta to raised_amount in one statement, floored at zero
func (r *GormProjectRepository) AdjustRaised(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProjectModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"raised_amount": gorm.Expr("CASE WHEN raised_amount + ? < 0 THEN 0 ELSE raised_amount + ? END", delta, delta),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return translateConflict(result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormProjectRepository implements ProjectRepository
var _ ledger.ProjectRepository = (*GormProjectRepository)(nil)
