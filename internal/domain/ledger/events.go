package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeInvestmentCreated   = "InvestmentCreated"
	EventTypeInvestmentConfirmed = "InvestmentConfirmed"
	EventTypeInvestmentCancelled = "InvestmentCancelled"
	EventTypeInvestmentCompleted = "InvestmentCompleted"
	EventTypePaymentPlanCreated  = "PaymentPlanCreated"
	EventTypePaymentApplied      = "PaymentApplied"
	EventTypeInstallmentOverdue  = "InstallmentOverdue"
	EventTypeInstallmentWaived   = "InstallmentWaived"
	EventTypePlanCompleted       = "PaymentPlanCompleted"
	EventTypePlanCancelled       = "PaymentPlanCancelled"
)

// Aggregate type names
const (
	AggregateTypeProject     = "Project"
	AggregateTypeInvestment  = "Investment"
	AggregateTypePaymentPlan = "PaymentPlan"
)

// InvestmentCreatedEvent is raised when a pledge is recorded
type InvestmentCreatedEvent struct {
	shared.BaseDomainEvent
	InvestmentID uuid.UUID       `json:"investment_id"`
	UserID       uuid.UUID       `json:"user_id"`
	ProjectID    uuid.UUID       `json:"project_id"`
	Amount       decimal.Decimal `json:"amount"`
	PaymentType  PaymentType     `json:"payment_type"`
}

// EventType returns the event type name
func (e *InvestmentCreatedEvent) EventType() string {
	return EventTypeInvestmentCreated
}

// NewInvestmentCreatedEvent creates a new InvestmentCreatedEvent
func NewInvestmentCreatedEvent(inv *Investment, actorID string) *InvestmentCreatedEvent {
	return &InvestmentCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvestmentCreated, AggregateTypeInvestment, inv.ID, actorID),
		InvestmentID:    inv.ID,
		UserID:          inv.UserID,
		ProjectID:       inv.ProjectID,
		Amount:          inv.Amount,
		PaymentType:     inv.PaymentType,
	}
}

// InvestmentConfirmedEvent is raised when an investment passes confirmation
type InvestmentConfirmedEvent struct {
	shared.BaseDomainEvent
	InvestmentID uuid.UUID        `json:"investment_id"`
	ProjectID    uuid.UUID        `json:"project_id"`
	Amount       decimal.Decimal  `json:"amount"`
	PaymentType  PaymentType      `json:"payment_type"`
	Status       InvestmentStatus `json:"status"`
	ConfirmedAt  time.Time        `json:"confirmed_at"`
}

// EventType returns the event type name
func (e *InvestmentConfirmedEvent) EventType() string {
	return EventTypeInvestmentConfirmed
}

// NewInvestmentConfirmedEvent creates a new InvestmentConfirmedEvent
func NewInvestmentConfirmedEvent(inv *Investment, actorID string) *InvestmentConfirmedEvent {
	confirmedAt := time.Now()
	if inv.ConfirmedAt != nil {
		confirmedAt = *inv.ConfirmedAt
	}
	return &InvestmentConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvestmentConfirmed, AggregateTypeInvestment, inv.ID, actorID),
		InvestmentID:    inv.ID,
		ProjectID:       inv.ProjectID,
		Amount:          inv.Amount,
		PaymentType:     inv.PaymentType,
		Status:          inv.Status,
		ConfirmedAt:     confirmedAt,
	}
}

// InvestmentCancelledEvent is raised when an investment is cancelled
type InvestmentCancelledEvent struct {
	shared.BaseDomainEvent
	InvestmentID uuid.UUID       `json:"investment_id"`
	ProjectID    uuid.UUID       `json:"project_id"`
	Amount       decimal.Decimal `json:"amount"`
	FundingDelta decimal.Decimal `json:"funding_delta"`
	Reason       string          `json:"reason"`
}

// EventType returns the event type name
func (e *InvestmentCancelledEvent) EventType() string {
	return EventTypeInvestmentCancelled
}

// NewInvestmentCancelledEvent creates a new InvestmentCancelledEvent
func NewInvestmentCancelledEvent(inv *Investment, delta decimal.Decimal, actorID string) *InvestmentCancelledEvent {
	return &InvestmentCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvestmentCancelled, AggregateTypeInvestment, inv.ID, actorID),
		InvestmentID:    inv.ID,
		ProjectID:       inv.ProjectID,
		Amount:          inv.Amount,
		FundingDelta:    delta,
		Reason:          inv.CancelReason,
	}
}

// InvestmentCompletedEvent is raised when an investment is fully settled
type InvestmentCompletedEvent struct {
	shared.BaseDomainEvent
	InvestmentID uuid.UUID       `json:"investment_id"`
	ProjectID    uuid.UUID       `json:"project_id"`
	Amount       decimal.Decimal `json:"amount"`
	ActualReturn decimal.Decimal `json:"actual_return"`
}

// EventType returns the event type name
func (e *InvestmentCompletedEvent) EventType() string {
	return EventTypeInvestmentCompleted
}

// NewInvestmentCompletedEvent creates a new InvestmentCompletedEvent
func NewInvestmentCompletedEvent(inv *Investment, actorID string) *InvestmentCompletedEvent {
	return &InvestmentCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvestmentCompleted, AggregateTypeInvestment, inv.ID, actorID),
		InvestmentID:    inv.ID,
		ProjectID:       inv.ProjectID,
		Amount:          inv.Amount,
		ActualReturn:    inv.ActualReturn,
	}
}

// PaymentPlanCreatedEvent is raised when a schedule is generated
type PaymentPlanCreatedEvent struct {
	shared.BaseDomainEvent
	PlanID           uuid.UUID        `json:"plan_id"`
	InvestmentID     uuid.UUID        `json:"investment_id"`
	TotalAmount      decimal.Decimal  `json:"total_amount"`
	InstallmentCount int              `json:"installment_count"`
	Frequency        PaymentFrequency `json:"frequency"`
	EndDate          time.Time        `json:"end_date"`
}

// EventType returns the event type name
func (e *PaymentPlanCreatedEvent) EventType() string {
	return EventTypePaymentPlanCreated
}

// NewPaymentPlanCreatedEvent creates a new PaymentPlanCreatedEvent
func NewPaymentPlanCreatedEvent(p *PaymentPlan, actorID string) *PaymentPlanCreatedEvent {
	return &PaymentPlanCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypePaymentPlanCreated, AggregateTypePaymentPlan, p.ID, actorID),
		PlanID:           p.ID,
		InvestmentID:     p.InvestmentID,
		TotalAmount:      p.TotalAmount,
		InstallmentCount: p.InstallmentCount,
		Frequency:        p.Frequency,
		EndDate:          p.EndDate,
	}
}

// PaymentAppliedEvent is raised for every accepted payment
type PaymentAppliedEvent struct {
	shared.BaseDomainEvent
	PlanID           uuid.UUID       `json:"plan_id"`
	InvestmentID     uuid.UUID       `json:"investment_id"`
	Reference        string          `json:"reference"`
	Method           string          `json:"method"`
	Amount           decimal.Decimal `json:"amount"`
	AppliedAmount    decimal.Decimal `json:"applied_amount"`
	UnappliedAmount  decimal.Decimal `json:"unapplied_amount"`
	Installments     []int           `json:"installments"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// EventType returns the event type name
func (e *PaymentAppliedEvent) EventType() string {
	return EventTypePaymentApplied
}

// NewPaymentAppliedEvent creates a new PaymentAppliedEvent
func NewPaymentAppliedEvent(p *PaymentPlan, in PaymentInput, app *PaymentApplication) *PaymentAppliedEvent {
	return &PaymentAppliedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypePaymentApplied, AggregateTypePaymentPlan, p.ID, in.ActorID),
		PlanID:           p.ID,
		InvestmentID:     p.InvestmentID,
		Reference:        in.Reference,
		Method:           in.Method,
		Amount:           in.Amount,
		AppliedAmount:    app.AppliedAmount,
		UnappliedAmount:  app.UnappliedAmount,
		Installments:     app.Touched,
		RemainingBalance: p.RemainingBalance,
	}
}

// InstallmentOverdueEvent is raised when a sweep moves an installment to OVERDUE
type InstallmentOverdueEvent struct {
	shared.BaseDomainEvent
	PlanID            uuid.UUID       `json:"plan_id"`
	InvestmentID      uuid.UUID       `json:"investment_id"`
	InstallmentNumber int             `json:"installment_number"`
	DueDate           time.Time       `json:"due_date"`
	DaysOverdue       int             `json:"days_overdue"`
	LateFee           decimal.Decimal `json:"late_fee"`
}

// EventType returns the event type name
func (e *InstallmentOverdueEvent) EventType() string {
	return EventTypeInstallmentOverdue
}

// NewInstallmentOverdueEvent creates a new InstallmentOverdueEvent
func NewInstallmentOverdueEvent(p *PaymentPlan, inst *Installment, actorID string) *InstallmentOverdueEvent {
	return &InstallmentOverdueEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInstallmentOverdue, AggregateTypePaymentPlan, p.ID, actorID),
		PlanID:            p.ID,
		InvestmentID:      p.InvestmentID,
		InstallmentNumber: inst.Number,
		DueDate:           inst.DueDate,
		DaysOverdue:       inst.DaysOverdue,
		LateFee:           inst.LateFee,
	}
}

// InstallmentWaivedEvent is raised when an operator waives an installment
type InstallmentWaivedEvent struct {
	shared.BaseDomainEvent
	PlanID            uuid.UUID       `json:"plan_id"`
	InstallmentNumber int             `json:"installment_number"`
	WaivedAmount      decimal.Decimal `json:"waived_amount"`
	Reason            string          `json:"reason"`
}

// EventType returns the event type name
func (e *InstallmentWaivedEvent) EventType() string {
	return EventTypeInstallmentWaived
}

// NewInstallmentWaivedEvent creates a new InstallmentWaivedEvent
func NewInstallmentWaivedEvent(p *PaymentPlan, inst *Installment, reason, actorID string) *InstallmentWaivedEvent {
	return &InstallmentWaivedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeInstallmentWaived, AggregateTypePaymentPlan, p.ID, actorID),
		PlanID:            p.ID,
		InstallmentNumber: inst.Number,
		WaivedAmount:      inst.Shortfall(),
		Reason:            reason,
	}
}

// PaymentPlanCompletedEvent is raised when the plan's principal is settled
type PaymentPlanCompletedEvent struct {
	shared.BaseDomainEvent
	PlanID         uuid.UUID       `json:"plan_id"`
	InvestmentID   uuid.UUID       `json:"investment_id"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	LateFeesPaid   decimal.Decimal `json:"late_fees_paid"`
	LateFeesWaived decimal.Decimal `json:"late_fees_waived"`
}

// EventType returns the event type name
func (e *PaymentPlanCompletedEvent) EventType() string {
	return EventTypePlanCompleted
}

// NewPaymentPlanCompletedEvent creates a new PaymentPlanCompletedEvent
func NewPaymentPlanCompletedEvent(p *PaymentPlan, feesWaived decimal.Decimal, actorID string) *PaymentPlanCompletedEvent {
	return &PaymentPlanCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePlanCompleted, AggregateTypePaymentPlan, p.ID, actorID),
		PlanID:          p.ID,
		InvestmentID:    p.InvestmentID,
		TotalPaid:       p.TotalPaid,
		LateFeesPaid:    p.LateFeesPaid,
		LateFeesWaived:  feesWaived,
	}
}

// PaymentPlanCancelledEvent is raised when a plan is cancelled with its investment
type PaymentPlanCancelledEvent struct {
	shared.BaseDomainEvent
	PlanID             uuid.UUID `json:"plan_id"`
	InvestmentID       uuid.UUID `json:"investment_id"`
	WaivedInstallments []int     `json:"waived_installments"`
}

// EventType returns the event type name
func (e *PaymentPlanCancelledEvent) EventType() string {
	return EventTypePlanCancelled
}

// NewPaymentPlanCancelledEvent creates a new PaymentPlanCancelledEvent
func NewPaymentPlanCancelledEvent(p *PaymentPlan, waived []int, actorID string) *PaymentPlanCancelledEvent {
	return &PaymentPlanCancelledEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypePlanCancelled, AggregateTypePaymentPlan, p.ID, actorID),
		PlanID:             p.ID,
		InvestmentID:       p.InvestmentID,
		WaivedInstallments: waived,
	}
}
