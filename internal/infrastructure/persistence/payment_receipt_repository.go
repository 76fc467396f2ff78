package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/invest/ledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPaymentReceiptRepository implements PaymentReceiptRepository using GORM
type GormPaymentReceiptRepository struct {
	db *gorm.DB
}

// NewGormPaymentReceiptRepository creates a new GormPaymentReceiptRepository
func NewGormPaymentReceiptRepository(db *gorm.DB) *GormPaymentReceiptRepository {
	return &GormPaymentReceiptRepository{db: db}
}

// Create inserts a receipt. The unique reference index turns a replayed
// payment into shared.ErrAlreadyExists.
func (r *GormPaymentReceiptRepository) Create(ctx context.Context, receipt *ledger.PaymentReceipt) error {
	model, err := models.PaymentReceiptModelFromDomain(receipt)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Create(model).Error
	if isUniqueViolation(err) {
		return shared.ErrAlreadyExists
	}
	return err
}

// ExistsByReference checks if a payment reference was already applied
func (r *GormPaymentReceiptRepository) ExistsByReference(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentReceiptModel{}).
		Where("reference = ?", reference).
		Count(&count).Error
	return count > 0, err
}

// FindByPlan lists receipts of a plan, oldest first
func (r *GormPaymentReceiptRepository) FindByPlan(ctx context.Context, planID uuid.UUID) ([]ledger.PaymentReceipt, error) {
	var rows []models.PaymentReceiptModel
	if err := r.db.WithContext(ctx).
		Where("plan_id = ?", planID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.PaymentReceipt, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// GormAuditRepository implements AuditRepository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append writes one audit entry
func (r *GormAuditRepository) Append(ctx context.Context, entry *ledger.AuditEntry) error {
	model, err := models.AuditLogModelFromDomain(entry)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByEntity returns the audit trail of one entity, oldest first
func (r *GormAuditRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]ledger.AuditEntry, error) {
	var rows []models.AuditLogModel
	if err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.AuditEntry, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

var (
	_ ledger.PaymentReceiptRepository = (*GormPaymentReceiptRepository)(nil)
	_ ledger.AuditRepository          = (*GormAuditRepository)(nil)
)
