package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// RegisterProjectRequest is the body of POST /projects
type RegisterProjectRequest struct {
	Name               string           `json:"name" binding:"required,max=200"`
	TargetAmount       decimal.Decimal  `json:"target_amount" binding:"required,decimal_positive"`
	MinInvestment      decimal.Decimal  `json:"min_investment" binding:"decimal_nonnegative"`
	MaxInvestment      *decimal.Decimal `json:"max_investment" binding:"omitempty,decimal_positive"`
	ExpectedReturnRate decimal.Decimal  `json:"expected_return_rate" binding:"decimal_nonnegative"`
	DurationMonths     int              `json:"duration_months" binding:"gte=0"`
	Status             string           `json:"status" binding:"omitempty,oneof=DRAFT ACTIVE FUNDING COMPLETED CANCELLED PAUSED"`
}

// ChangeProjectStatusRequest is the body of POST /projects/:id/status
type ChangeProjectStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=DRAFT ACTIVE FUNDING COMPLETED CANCELLED PAUSED"`
}

// InstallmentSpecRequest describes the requested plan of an installment investment
type InstallmentSpecRequest struct {
	Count           int              `json:"count" binding:"required,min=1"`
	Frequency       string           `json:"frequency" binding:"required,oneof=MONTHLY QUARTERLY ANNUALLY"`
	StartDate       string           `json:"start_date" binding:"required,datetime=2006-01-02"`
	InterestRate    decimal.Decimal  `json:"interest_rate" binding:"decimal_nonnegative"`
	LateFeeRate     *decimal.Decimal `json:"late_fee_rate" binding:"omitempty,decimal_nonnegative"`
	GracePeriodDays *int             `json:"grace_period_days" binding:"omitempty,gte=0"`
}

// CreateInvestmentRequest is the body of POST /investments
type CreateInvestmentRequest struct {
	ProjectID        string                  `json:"project_id" binding:"required,uuid"`
	UserID           string                  `json:"user_id" binding:"required,uuid"`
	Amount           decimal.Decimal         `json:"amount" binding:"required,decimal_positive"`
	PaymentType      string                  `json:"payment_type" binding:"required,oneof=LUMP_SUM INSTALLMENT"`
	Installments     *InstallmentSpecRequest `json:"installments" binding:"omitempty"`
	PaymentMethod    string                  `json:"payment_method" binding:"max=50"`
	ReferenceNumber  string                  `json:"reference_number" binding:"max=100"`
	Notes            string                  `json:"notes"`
	RiskAcknowledged bool                    `json:"risk_acknowledged"`
}

// CancelInvestmentRequest is the body of POST /investments/:id/cancel
type CancelInvestmentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// CompleteInvestmentRequest is the body of POST /investments/:id/complete
type CompleteInvestmentRequest struct {
	ActualReturn *decimal.Decimal `json:"actual_return" binding:"omitempty,decimal_nonnegative"`
}

// UpdateInvestmentDetailsRequest is the body of PATCH /investments/:id.
// Absent fields are left unchanged.
type UpdateInvestmentDetailsRequest struct {
	Notes           *string          `json:"notes"`
	ActualReturn    *decimal.Decimal `json:"actual_return" binding:"omitempty,decimal_nonnegative"`
	PaymentMethod   *string          `json:"payment_method" binding:"omitempty,max=50"`
	ReferenceNumber *string          `json:"reference_number" binding:"omitempty,max=100"`
}

// ApplyPaymentRequest is the body of POST /plans/:id/payments
type ApplyPaymentRequest struct {
	Amount          decimal.Decimal `json:"amount" binding:"required,decimal_positive"`
	ReceivedDate    string          `json:"received_date" binding:"omitempty,datetime=2006-01-02"`
	Method          string          `json:"method" binding:"max=50"`
	Reference       string          `json:"reference" binding:"required,max=100"`
	GatewayResponse map[string]any  `json:"gateway_response"`
}

// SweepPlanRequest is the body of POST /plans/:id/sweep. An empty as_of
// means today.
type SweepPlanRequest struct {
	AsOf string `json:"as_of" binding:"omitempty,datetime=2006-01-02"`
}

// WaiveInstallmentRequest is the body of POST /plans/:id/installments/:number/waive
type WaiveInstallmentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// UpdatePlanTermsRequest is the body of PATCH /plans/:id/terms
type UpdatePlanTermsRequest struct {
	LateFeeRate     *decimal.Decimal `json:"late_fee_rate" binding:"omitempty,decimal_nonnegative"`
	GracePeriodDays *int             `json:"grace_period_days" binding:"omitempty,gte=0"`
	InterestRate    *decimal.Decimal `json:"interest_rate" binding:"omitempty,decimal_nonnegative"`
}

// ListInvestmentsQuery filters GET /investments
type ListInvestmentsQuery struct {
	PageRequest
	UserID    string `form:"user_id" binding:"omitempty,uuid"`
	ProjectID string `form:"project_id" binding:"omitempty,uuid"`
	Status    string `form:"status" binding:"omitempty,oneof=PENDING CONFIRMED ACTIVE COMPLETED CANCELLED"`
	OrderBy   string `form:"order_by"`
	OrderDir  string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ListInstallmentsQuery filters GET /installments
type ListInstallmentsQuery struct {
	PageRequest
	Status      string `form:"status" binding:"omitempty,oneof=PENDING PARTIAL PAID OVERDUE WAIVED"`
	OverdueOnly bool   `form:"overdue_only"`
	UserID      string `form:"user_id" binding:"omitempty,uuid"`
}

// DateRangeQuery bounds the aggregate reports
type DateRangeQuery struct {
	From string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To   string `form:"to" binding:"omitempty,datetime=2006-01-02"`
}

// SumPlansQuery filters GET /reports/plans
type SumPlansQuery struct {
	DateRangeQuery
	Status string `form:"status" binding:"omitempty,oneof=ACTIVE COMPLETED CANCELLED DEFAULTED"`
}

// ReceiptResponse is one recorded payment of a plan
type ReceiptResponse struct {
	ID              uuid.UUID       `json:"id"`
	PlanID          uuid.UUID       `json:"plan_id"`
	InvestmentID    uuid.UUID       `json:"investment_id"`
	Reference       string          `json:"reference"`
	Amount          decimal.Decimal `json:"amount"`
	AppliedAmount   decimal.Decimal `json:"applied_amount"`
	UnappliedAmount decimal.Decimal `json:"unapplied_amount"`
	Method          string          `json:"method,omitempty"`
	ReceivedDate    time.Time       `json:"received_date"`
	Installments    []int           `json:"installments"`
	GatewayResponse map[string]any  `json:"gateway_response,omitempty"`
	ProcessedBy     string          `json:"processed_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewReceiptResponse converts a domain receipt
func NewReceiptResponse(r ledger.PaymentReceipt) ReceiptResponse {
	return ReceiptResponse{
		ID:              r.ID,
		PlanID:          r.PlanID,
		InvestmentID:    r.InvestmentID,
		Reference:       r.Reference,
		Amount:          r.Amount,
		AppliedAmount:   r.AppliedAmount,
		UnappliedAmount: r.UnappliedAmount,
		Method:          r.Method,
		ReceivedDate:    r.ReceivedDate,
		Installments:    r.Installments,
		GatewayResponse: r.GatewayResponse,
		ProcessedBy:     r.ProcessedBy,
		CreatedAt:       r.CreatedAt,
	}
}

// AuditEntryResponse is one audit trail row
type AuditEntryResponse struct {
	ID         uuid.UUID      `json:"id"`
	ActorID    string         `json:"actor_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   uuid.UUID      `json:"entity_id"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

// NewAuditEntryResponse converts a domain audit entry
func NewAuditEntryResponse(e ledger.AuditEntry) AuditEntryResponse {
	return AuditEntryResponse{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Action:     string(e.Action),
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Details:    e.Details,
		CreatedAt:  e.CreatedAt,
	}
}
