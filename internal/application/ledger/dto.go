package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// RegisterProjectCommand registers the funding terms of a project
type RegisterProjectCommand struct {
	ActorID            string
	Name               string
	TargetAmount       decimal.Decimal
	MinInvestment      decimal.Decimal
	MaxInvestment      *decimal.Decimal
	ExpectedReturnRate decimal.Decimal
	DurationMonths     int
	Status             ledger.ProjectStatus // Empty keeps DRAFT
}

// ChangeProjectStatusCommand moves a project to a new status
type ChangeProjectStatusCommand struct {
	ActorID   string
	ProjectID uuid.UUID
	Status    ledger.ProjectStatus
}

// InstallmentSpecInput is the requested plan shape of an installment investment
type InstallmentSpecInput struct {
	Count           int
	Frequency       ledger.PaymentFrequency
	StartDate       time.Time
	InterestRate    decimal.Decimal
	LateFeeRate     *decimal.Decimal
	GracePeriodDays *int
}

// CreateInvestmentCommand records a new pledge
type CreateInvestmentCommand struct {
	ActorID          string
	ProjectID        uuid.UUID
	UserID           uuid.UUID
	Amount           decimal.Decimal
	PaymentType      ledger.PaymentType
	Installments     *InstallmentSpecInput
	PaymentMethod    string
	ReferenceNumber  string
	Notes            string
	RiskAcknowledged bool
}

// ConfirmInvestmentCommand confirms a pending investment
type ConfirmInvestmentCommand struct {
	ActorID      string
	InvestmentID uuid.UUID
}

// CancelInvestmentCommand cancels an investment
type CancelInvestmentCommand struct {
	ActorID      string
	InvestmentID uuid.UUID
	Reason       string
}

// CompleteInvestmentCommand settles a confirmed lump-sum investment
type CompleteInvestmentCommand struct {
	ActorID      string
	InvestmentID uuid.UUID
	ActualReturn *decimal.Decimal
}

// UpdateInvestmentDetailsCommand edits the descriptive fields of an investment
type UpdateInvestmentDetailsCommand struct {
	ActorID         string
	InvestmentID    uuid.UUID
	Notes           *string
	ActualReturn    *decimal.Decimal
	PaymentMethod   *string
	ReferenceNumber *string
}

// ApplyPaymentCommand is an incoming "payment received" event
type ApplyPaymentCommand struct {
	ActorID         string
	PlanID          uuid.UUID
	Amount          decimal.Decimal
	ReceivedDate    time.Time
	Method          string
	Reference       string
	GatewayResponse map[string]any
}

// SweepOverdueCommand sweeps one plan
type SweepOverdueCommand struct {
	ActorID string
	PlanID  uuid.UUID
	AsOf    time.Time
}

// WaiveInstallmentCommand forgives one outstanding installment
type WaiveInstallmentCommand struct {
	ActorID           string
	PlanID            uuid.UUID
	InstallmentNumber int
	Reason            string
}

// UpdatePlanTermsCommand changes future-accrual terms of a plan
type UpdatePlanTermsCommand struct {
	ActorID         string
	PlanID          uuid.UUID
	LateFeeRate     *decimal.Decimal
	GracePeriodDays *int
	InterestRate    *decimal.Decimal
}

// ProjectResponse represents a project in API responses
type ProjectResponse struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	Status             string           `json:"status"`
	TargetAmount       decimal.Decimal  `json:"target_amount"`
	RaisedAmount       decimal.Decimal  `json:"raised_amount"`
	MinInvestment      decimal.Decimal  `json:"min_investment"`
	MaxInvestment      *decimal.Decimal `json:"max_investment,omitempty"`
	ExpectedReturnRate decimal.Decimal  `json:"expected_return_rate"`
	DurationMonths     int              `json:"duration_months"`
	Currency           string           `json:"currency"`
	Progress           decimal.Decimal  `json:"progress"`
	OverFunded         bool             `json:"over_funded"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// ToProjectResponse converts a domain project, tagging amounts with currency
func ToProjectResponse(p *ledger.Project, currency valueobject.Currency) ProjectResponse {
	return ProjectResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Status:             string(p.Status),
		TargetAmount:       p.TargetAmount,
		RaisedAmount:       p.RaisedAmount,
		MinInvestment:      p.MinInvestment,
		MaxInvestment:      p.MaxInvestment,
		ExpectedReturnRate: p.ExpectedReturnRate,
		DurationMonths:     p.DurationMonths,
		Currency:           string(currency),
		Progress:           p.FundingProgress(),
		OverFunded:         p.IsOverFunded(),
		UpdatedAt:          p.UpdatedAt,
	}
}

// InvestmentResponse represents an investment in API responses
type InvestmentResponse struct {
	ID               uuid.UUID       `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	ProjectID        uuid.UUID       `json:"project_id"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	PaymentType      string          `json:"payment_type"`
	Status           string          `json:"status"`
	ExpectedReturn   decimal.Decimal `json:"expected_return"`
	ActualReturn     decimal.Decimal `json:"actual_return"`
	ConfirmedAt      *time.Time      `json:"confirmed_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	CancelReason     string          `json:"cancel_reason,omitempty"`
	MaturityDate     *time.Time      `json:"maturity_date,omitempty"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	ReferenceNumber  string          `json:"reference_number,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	RiskAcknowledged bool            `json:"risk_acknowledged"`
	PlanID           *uuid.UUID      `json:"plan_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Version          int             `json:"version"`
}

// ToInvestmentResponse converts a domain investment. plan may be nil.
func ToInvestmentResponse(inv *ledger.Investment, plan *ledger.PaymentPlan, currency valueobject.Currency) InvestmentResponse {
	resp := InvestmentResponse{
		ID:               inv.ID,
		UserID:           inv.UserID,
		ProjectID:        inv.ProjectID,
		Amount:           inv.Amount,
		Currency:         string(currency),
		PaymentType:      string(inv.PaymentType),
		Status:           string(inv.Status),
		ExpectedReturn:   inv.ExpectedReturn,
		ActualReturn:     inv.ActualReturn,
		ConfirmedAt:      inv.ConfirmedAt,
		CancelledAt:      inv.CancelledAt,
		CancelReason:     inv.CancelReason,
		MaturityDate:     inv.MaturityDate,
		PaymentMethod:    inv.PaymentMethod,
		ReferenceNumber:  inv.ReferenceNumber,
		Notes:            inv.Notes,
		RiskAcknowledged: inv.RiskAcknowledged,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
		Version:          inv.Version,
	}
	if plan != nil {
		id := plan.ID
		resp.PlanID = &id
	}
	return resp
}

// InstallmentResponse represents one installment
type InstallmentResponse struct {
	Number               int             `json:"number"`
	DueDate              time.Time       `json:"due_date"`
	PaidDate             *time.Time      `json:"paid_date,omitempty"`
	DueAmount            decimal.Decimal `json:"due_amount"`
	PaidAmount           decimal.Decimal `json:"paid_amount"`
	LateFee              decimal.Decimal `json:"late_fee"`
	Status               string          `json:"status"`
	DaysOverdue          int             `json:"days_overdue"`
	PaymentMethod        string          `json:"payment_method,omitempty"`
	TransactionReference string          `json:"transaction_reference,omitempty"`
	Notes                string          `json:"notes,omitempty"`
}

// PaymentPlanResponse is the plan summary projection
type PaymentPlanResponse struct {
	ID                uuid.UUID             `json:"id"`
	InvestmentID      uuid.UUID             `json:"investment_id"`
	Status            string                `json:"status"`
	Currency          string                `json:"currency"`
	TotalAmount       decimal.Decimal       `json:"total_amount"`
	InstallmentCount  int                   `json:"installment_count"`
	InstallmentAmount decimal.Decimal       `json:"installment_amount"`
	Frequency         string                `json:"frequency"`
	StartDate         time.Time             `json:"start_date"`
	EndDate           time.Time             `json:"end_date"`
	NextDueDate       *time.Time            `json:"next_due_date,omitempty"`
	InterestRate      decimal.Decimal       `json:"interest_rate"`
	LateFeeRate       decimal.Decimal       `json:"late_fee_rate"`
	GracePeriodDays   int                   `json:"grace_period_days"`
	TotalPaid         decimal.Decimal       `json:"total_paid"`
	RemainingBalance  decimal.Decimal       `json:"remaining_balance"`
	OverdueAmount     decimal.Decimal       `json:"overdue_amount"`
	LateFeesPaid      decimal.Decimal       `json:"late_fees_paid"`
	UnappliedCredit   decimal.Decimal       `json:"unapplied_credit"`
	Installments      []InstallmentResponse `json:"installments"`
	Version           int                   `json:"version"`
}

// ToPaymentPlanResponse converts a domain plan
func ToPaymentPlanResponse(p *ledger.PaymentPlan, currency valueobject.Currency) PaymentPlanResponse {
	resp := PaymentPlanResponse{
		ID:                p.ID,
		InvestmentID:      p.InvestmentID,
		Status:            string(p.Status),
		Currency:          string(currency),
		TotalAmount:       p.TotalAmount,
		InstallmentCount:  p.InstallmentCount,
		InstallmentAmount: p.InstallmentAmount,
		Frequency:         string(p.Frequency),
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		NextDueDate:       p.NextDueDate,
		InterestRate:      p.InterestRate,
		LateFeeRate:       p.LateFeeRate,
		GracePeriodDays:   p.GracePeriodDays,
		TotalPaid:         p.TotalPaid,
		RemainingBalance:  p.RemainingBalance,
		OverdueAmount:     p.OverdueAmount,
		LateFeesPaid:      p.LateFeesPaid,
		UnappliedCredit:   p.UnappliedCredit,
		Installments:      make([]InstallmentResponse, 0, len(p.Installments)),
		Version:           p.Version,
	}
	for i := range p.Installments {
		resp.Installments = append(resp.Installments, toInstallmentResponse(&p.Installments[i]))
	}
	return resp
}

func toInstallmentResponse(inst *ledger.Installment) InstallmentResponse {
	return InstallmentResponse{
		Number:               inst.Number,
		DueDate:              inst.DueDate,
		PaidDate:             inst.PaidDate,
		DueAmount:            inst.DueAmount,
		PaidAmount:           inst.PaidAmount,
		LateFee:              inst.LateFee,
		Status:               string(inst.Status),
		DaysOverdue:          inst.DaysOverdue,
		PaymentMethod:        inst.PaymentMethod,
		TransactionReference: inst.TransactionReference,
		Notes:                inst.Notes,
	}
}

// ProjectFundingResponse is the funding progress projection of a project
type ProjectFundingResponse struct {
	ProjectID  uuid.UUID       `json:"project_id"`
	Currency   string          `json:"currency"`
	Raised     decimal.Decimal `json:"raised"`
	Target     decimal.Decimal `json:"target"`
	Progress   decimal.Decimal `json:"progress"`
	OverFunded bool            `json:"over_funded"`
}

// PlanTotalsResponse aggregates a set of plans
type PlanTotalsResponse struct {
	PlanCount    int64           `json:"plan_count"`
	Currency     string          `json:"currency"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	Remaining    decimal.Decimal `json:"remaining"`
	Overdue      decimal.Decimal `json:"overdue"`
	LateFeesPaid decimal.Decimal `json:"late_fees_paid"`
}

// FinancialOverviewResponse is the admin dashboard projection
type FinancialOverviewResponse struct {
	Currency          string          `json:"currency"`
	TotalInvestments  decimal.Decimal `json:"total_investments"`
	InvestmentCount   int64           `json:"investment_count"`
	AverageInvestment decimal.Decimal `json:"average_investment"`
	TotalDue          decimal.Decimal `json:"total_due"`
	TotalReceived     decimal.Decimal `json:"total_received"`
	OverdueDue        decimal.Decimal `json:"overdue_due"`
	CollectionRate    decimal.Decimal `json:"collection_rate"`
}

// InstallmentListItemResponse is a row of the payment management listing
type InstallmentListItemResponse struct {
	InstallmentResponse
	PlanID       uuid.UUID `json:"plan_id"`
	InvestmentID uuid.UUID `json:"investment_id"`
	UserID       uuid.UUID `json:"user_id"`
	PlanStatus   string    `json:"plan_status"`
}

// InstallmentListFilter represents filter options for the installment listing
type InstallmentListFilter struct {
	Status      string
	OverdueOnly bool
	UserID      *uuid.UUID
	Page        int
	PageSize    int
}

// StatementResponse points at an exported plan statement
type StatementResponse struct {
	PlanID      uuid.UUID `json:"plan_id"`
	ObjectKey   string    `json:"object_key"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}
