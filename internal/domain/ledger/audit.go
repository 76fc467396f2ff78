package ledger

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names a recorded ledger mutation
type AuditAction string

const (
	AuditProjectRegistered     AuditAction = "PROJECT_REGISTERED"
	AuditProjectStatusChanged  AuditAction = "PROJECT_STATUS_CHANGED"
	AuditInvestmentCreated     AuditAction = "INVESTMENT_CREATED"
	AuditInvestmentConfirmed   AuditAction = "INVESTMENT_CONFIRMED"
	AuditInvestmentCancelled   AuditAction = "INVESTMENT_CANCELLED"
	AuditInvestmentCompleted   AuditAction = "INVESTMENT_COMPLETED"
	AuditInvestmentUpdated     AuditAction = "INVESTMENT_UPDATED"
	AuditPaymentApplied        AuditAction = "PAYMENT_APPLIED"
	AuditOverdueSwept          AuditAction = "OVERDUE_SWEPT"
	AuditInstallmentWaived     AuditAction = "INSTALLMENT_WAIVED"
	AuditPlanTermsUpdated      AuditAction = "PLAN_TERMS_UPDATED"
	AuditPlanStatementExported AuditAction = "PLAN_STATEMENT_EXPORTED"
)

// AuditEntry is an append-only record of who changed what
type AuditEntry struct {
	ID         uuid.UUID
	ActorID    string
	Action     AuditAction
	EntityType string
	EntityID   uuid.UUID
	Details    map[string]any
	CreatedAt  time.Time
}

// NewAuditEntry creates an audit entry stamped now
func NewAuditEntry(actorID string, action AuditAction, entityType string, entityID uuid.UUID, details map[string]any) *AuditEntry {
	if details == nil {
		details = map[string]any{}
	}
	return &AuditEntry{
		ID:         uuid.New(),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  time.Now(),
	}
}
