package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// logger for model conversion errors (silent failures are logged for debugging)
var modelLogger = zap.L().Named("ledger.models")

// PaymentReceiptModel is the persistence model for an accepted payment.
// The unique index on reference is the exactly-once guarantee of ApplyPayment.
type PaymentReceiptModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PlanID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvestmentID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Reference       string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	Amount          decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	AppliedAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	UnappliedAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Method          string          `gorm:"type:varchar(50)"`
	ReceivedDate    time.Time       `gorm:"type:date;not null"`
	Installments    datatypes.JSON
	GatewayResponse datatypes.JSON
	ProcessedBy     string    `gorm:"type:varchar(100);not null"`
	CreatedAt       time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentReceiptModel) TableName() string {
	return "payment_receipts"
}

// ToDomain converts the persistence model to a domain PaymentReceipt.
func (m *PaymentReceiptModel) ToDomain() *ledger.PaymentReceipt {
	r := &ledger.PaymentReceipt{
		ID:              m.ID,
		PlanID:          m.PlanID,
		InvestmentID:    m.InvestmentID,
		Reference:       m.Reference,
		Amount:          m.Amount,
		AppliedAmount:   m.AppliedAmount,
		UnappliedAmount: m.UnappliedAmount,
		Method:          m.Method,
		ReceivedDate:    m.ReceivedDate,
		ProcessedBy:     m.ProcessedBy,
		CreatedAt:       m.CreatedAt,
	}
	if len(m.Installments) > 0 {
		if err := json.Unmarshal(m.Installments, &r.Installments); err != nil {
			modelLogger.Warn("failed to parse receipt installments JSON",
				zap.String("reference", m.Reference),
				zap.Error(err))
		}
	}
	if len(m.GatewayResponse) > 0 {
		if err := json.Unmarshal(m.GatewayResponse, &r.GatewayResponse); err != nil {
			modelLogger.Warn("failed to parse gateway response JSON",
				zap.String("reference", m.Reference),
				zap.Error(err))
		}
	}
	return r
}

// PaymentReceiptModelFromDomain creates a persistence model from a domain PaymentReceipt.
func PaymentReceiptModelFromDomain(r *ledger.PaymentReceipt) (*PaymentReceiptModel, error) {
	installments, err := json.Marshal(r.Installments)
	if err != nil {
		return nil, err
	}
	m := &PaymentReceiptModel{
		ID:              r.ID,
		PlanID:          r.PlanID,
		InvestmentID:    r.InvestmentID,
		Reference:       r.Reference,
		Amount:          r.Amount,
		AppliedAmount:   r.AppliedAmount,
		UnappliedAmount: r.UnappliedAmount,
		Method:          r.Method,
		ReceivedDate:    r.ReceivedDate,
		Installments:    datatypes.JSON(installments),
		ProcessedBy:     r.ProcessedBy,
		CreatedAt:       r.CreatedAt,
	}
	if r.GatewayResponse != nil {
		gateway, err := json.Marshal(r.GatewayResponse)
		if err != nil {
			return nil, err
		}
		m.GatewayResponse = datatypes.JSON(gateway)
	}
	return m, nil
}

// AuditLogModel is one append-only audit row.
type AuditLogModel struct {
	ID         uuid.UUID          `gorm:"type:uuid;primaryKey"`
	ActorID    string             `gorm:"type:varchar(100);not null;index"`
	Action     ledger.AuditAction `gorm:"type:varchar(50);not null;index"`
	EntityType string             `gorm:"type:varchar(50);not null;index:idx_audit_entity,priority:1"`
	EntityID   uuid.UUID          `gorm:"type:uuid;not null;index:idx_audit_entity,priority:2"`
	Details    datatypes.JSON
	CreatedAt  time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "ledger_audit_log"
}

// ToDomain converts the persistence model to a domain AuditEntry.
func (m *AuditLogModel) ToDomain() *ledger.AuditEntry {
	e := &ledger.AuditEntry{
		ID:         m.ID,
		ActorID:    m.ActorID,
		Action:     m.Action,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Details:    map[string]any{},
		CreatedAt:  m.CreatedAt,
	}
	if len(m.Details) > 0 {
		if err := json.Unmarshal(m.Details, &e.Details); err != nil {
			modelLogger.Warn("failed to parse audit details JSON",
				zap.String("audit_id", m.ID.String()),
				zap.Error(err))
		}
	}
	return e
}

// AuditLogModelFromDomain creates a persistence model from a domain AuditEntry.
func AuditLogModelFromDomain(e *ledger.AuditEntry) (*AuditLogModel, error) {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return nil, err
	}
	return &AuditLogModel{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    datatypes.JSON(details),
		CreatedAt:  e.CreatedAt,
	}, nil
}
