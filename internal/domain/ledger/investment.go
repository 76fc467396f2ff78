package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/invest/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Plan defaults taken when an installment spec leaves them unset
var (
	DefaultLateFeeRate     = decimal.NewFromFloat(5.0)
	DefaultGracePeriodDays = 7
)

// InstallmentSpec describes the plan an installment investment asks for.
// It is captured at creation and turned into a PaymentPlan on confirmation.
type InstallmentSpec struct {
	Count           int
	Frequency       PaymentFrequency
	StartDate       time.Time
	InterestRate    decimal.Decimal
	LateFeeRate     *decimal.Decimal
	GracePeriodDays *int
}

// Validate checks the spec shape
func (s InstallmentSpec) Validate() error {
	if s.Count < 1 {
		return shared.NewValidationError("Installment count must be at least 1")
	}
	if !s.Frequency.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("Unknown payment frequency %q", s.Frequency))
	}
	if s.StartDate.IsZero() {
		return shared.NewValidationError("Installment start date is required")
	}
	if s.InterestRate.IsNegative() {
		return shared.NewValidationError("Interest rate cannot be negative")
	}
	if s.LateFeeRate != nil && s.LateFeeRate.IsNegative() {
		return shared.NewValidationError("Late fee rate cannot be negative")
	}
	if s.GracePeriodDays != nil && *s.GracePeriodDays < 0 {
		return shared.NewValidationError("Grace period cannot be negative")
	}
	return nil
}

func (s InstallmentSpec) lateFeeRate() decimal.Decimal {
	if s.LateFeeRate == nil {
		return DefaultLateFeeRate
	}
	return *s.LateFeeRate
}

func (s InstallmentSpec) gracePeriodDays() int {
	if s.GracePeriodDays == nil {
		return DefaultGracePeriodDays
	}
	return *s.GracePeriodDays
}

// InvestmentDetails are the descriptive fields supplied at creation
type InvestmentDetails struct {
	PaymentMethod    string
	ReferenceNumber  string
	Notes            string
	RiskAcknowledged bool
}

// Investment is one user's capital commitment to one project
type Investment struct {
	shared.BaseAggregateRoot
	UserID           uuid.UUID
	ProjectID        uuid.UUID
	Amount           decimal.Decimal
	PaymentType      PaymentType
	Status           InvestmentStatus
	ExpectedReturn   decimal.Decimal
	ActualReturn     decimal.Decimal
	ConfirmedAt      *time.Time
	CancelledAt      *time.Time
	CancelReason     string
	MaturityDate     *time.Time
	PaymentMethod    string
	ReferenceNumber  string
	Notes            string
	RiskAcknowledged bool
	Spec             *InstallmentSpec // Only for INSTALLMENT
}

// NewInvestment validates a pledge against the project and returns it in PENDING status
func NewInvestment(
	project *Project,
	userID uuid.UUID,
	amount decimal.Decimal,
	paymentType PaymentType,
	spec *InstallmentSpec,
	details InvestmentDetails,
	actorID string,
) (*Investment, error) {
	if project == nil {
		return nil, shared.NewValidationError("Project is required")
	}
	if userID == uuid.Nil {
		return nil, shared.NewValidationError("User ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Investment amount must be positive")
	}
	if !amount.Equal(valueobject.RoundAmount(amount)) {
		return nil, shared.NewValidationError("Investment amount has more than 2 decimal places")
	}
	if !paymentType.IsValid() {
		return nil, shared.NewValidationError(fmt.Sprintf("Unknown payment type %q", paymentType))
	}
	if !details.RiskAcknowledged {
		return nil, shared.NewValidationError("Investment risk must be acknowledged")
	}
	if err := project.ValidateInvestment(amount); err != nil {
		return nil, err
	}

	switch paymentType {
	case PaymentTypeInstallment:
		if spec == nil {
			return nil, shared.NewValidationError("Installment investments require an installment spec")
		}
		if err := spec.Validate(); err != nil {
			return nil, err
		}
		s := *spec
		s.StartDate = DateOf(s.StartDate)
		spec = &s
	case PaymentTypeLumpSum:
		spec = nil
	}

	inv := &Investment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		ProjectID:         project.ID,
		Amount:            amount,
		PaymentType:       paymentType,
		Status:            InvestmentStatusPending,
		ExpectedReturn:    project.ExpectedReturnFor(amount),
		ActualReturn:      decimal.Zero,
		PaymentMethod:     details.PaymentMethod,
		ReferenceNumber:   details.ReferenceNumber,
		Notes:             details.Notes,
		RiskAcknowledged:  details.RiskAcknowledged,
		Spec:              spec,
	}

	inv.AddDomainEvent(NewInvestmentCreatedEvent(inv, actorID))
	return inv, nil
}

// ConfirmResult describes the side effects a confirmation requires
type ConfirmResult struct {
	// AlreadyConfirmed is true when the call was a no-op replay
	AlreadyConfirmed bool
	// FundingDelta is the amount to fold into the project's raised total
	FundingDelta decimal.Decimal
	// Plan is the generated schedule for installment investments
	Plan *PaymentPlan
}

// Confirm moves a PENDING investment forward. Re-confirming an already
// confirmed, active or completed investment is a no-op. Installment
// investments get their plan generated and become ACTIVE. Lump-sum ones do
// not jump to COMPLETED here: they stay CONFIRMED, so a cancel can still
// reverse their funding, until settled with Complete.
func (inv *Investment) Confirm(project *Project, actorID string, now time.Time) (*ConfirmResult, error) {
	if inv.Status.IsConfirmed() {
		return &ConfirmResult{AlreadyConfirmed: true, FundingDelta: decimal.Zero}, nil
	}
	if inv.Status != InvestmentStatusPending {
		return nil, shared.NewInvalidStateError(fmt.Sprintf("Cannot confirm investment in %s status", inv.Status))
	}
	if project == nil || project.ID != inv.ProjectID {
		return nil, shared.NewValidationError("Confirmation requires the investment's project")
	}

	confirmedAt := now
	inv.ConfirmedAt = &confirmedAt
	inv.Status = InvestmentStatusConfirmed
	if project.DurationMonths > 0 {
		maturity := AddMonthsClamped(DateOf(now), project.DurationMonths)
		inv.MaturityDate = &maturity
	}

	result := &ConfirmResult{FundingDelta: inv.Amount}

	if inv.PaymentType == PaymentTypeInstallment {
		plan, err := NewPaymentPlan(inv, *inv.Spec, actorID)
		if err != nil {
			return nil, err
		}
		result.Plan = plan
		inv.Status = InvestmentStatusActive
		if inv.MaturityDate == nil {
			end := plan.EndDate
			inv.MaturityDate = &end
		}
	}

	inv.Touch()
	inv.IncrementVersion()
	inv.AddDomainEvent(NewInvestmentConfirmedEvent(inv, actorID))
	return result, nil
}

// CancelResult describes the side effects a cancellation requires
type CancelResult struct {
	// FundingDelta is negative when previously applied funding must be reversed
	FundingDelta decimal.Decimal
	// WaivedInstallments lists the installment numbers waived on the plan
	WaivedInstallments []int
}

// Cancel cancels the investment. Funding applied at confirmation is reversed
// and the plan (if any) is cancelled, waiving every unpaid installment.
func (inv *Investment) Cancel(plan *PaymentPlan, reason, actorID string, now time.Time) (*CancelResult, error) {
	if inv.Status.IsTerminal() {
		return nil, shared.NewInvalidStateError(fmt.Sprintf("Cannot cancel investment in %s status", inv.Status))
	}
	if plan != nil && plan.InvestmentID != inv.ID {
		return nil, shared.NewValidationError("Payment plan does not belong to this investment")
	}

	result := &CancelResult{FundingDelta: decimal.Zero}
	if inv.Status.CountsTowardFunding() {
		result.FundingDelta = inv.Amount.Neg()
	}
	if plan != nil {
		waived, err := plan.Cancel(reason, actorID, now)
		if err != nil {
			return nil, err
		}
		result.WaivedInstallments = waived
	}

	cancelledAt := now
	inv.Status = InvestmentStatusCancelled
	inv.CancelledAt = &cancelledAt
	inv.CancelReason = reason
	inv.Touch()
	inv.IncrementVersion()
	inv.AddDomainEvent(NewInvestmentCancelledEvent(inv, result.FundingDelta, actorID))
	return result, nil
}

// Complete settles a CONFIRMED lump-sum investment, optionally recording the
// realized return. Installment investments complete through their plan.
func (inv *Investment) Complete(actualReturn *decimal.Decimal, actorID string) error {
	if inv.PaymentType != PaymentTypeLumpSum {
		return shared.NewInvalidStateError("Installment investments complete when their plan is fully paid")
	}
	if inv.Status != InvestmentStatusConfirmed {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot complete investment in %s status", inv.Status))
	}
	if actualReturn != nil {
		if actualReturn.IsNegative() {
			return shared.NewValidationError("Actual return cannot be negative")
		}
		inv.ActualReturn = valueobject.RoundAmount(*actualReturn)
	}
	return inv.MarkCompleted(actorID)
}

// MarkCompleted closes a confirmed investment. Idempotent.
func (inv *Investment) MarkCompleted(actorID string) error {
	if inv.Status == InvestmentStatusCompleted {
		return nil
	}
	if !inv.Status.CanTransitionTo(InvestmentStatusCompleted) {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot complete investment in %s status", inv.Status))
	}
	inv.Status = InvestmentStatusCompleted
	inv.Touch()
	inv.IncrementVersion()
	inv.AddDomainEvent(NewInvestmentCompletedEvent(inv, actorID))
	return nil
}

// InvestmentDetailsUpdate lists the only investment fields an operator may
// edit directly. Nil fields are left unchanged; lifecycle fields are never
// reachable through this path.
type InvestmentDetailsUpdate struct {
	Notes           *string
	ActualReturn    *decimal.Decimal
	PaymentMethod   *string
	ReferenceNumber *string
}

// IsEmpty returns true if the update touches nothing
func (u InvestmentDetailsUpdate) IsEmpty() bool {
	return u.Notes == nil && u.ActualReturn == nil && u.PaymentMethod == nil && u.ReferenceNumber == nil
}

// UpdateDetails applies an explicit details update
func (inv *Investment) UpdateDetails(u InvestmentDetailsUpdate) error {
	if u.IsEmpty() {
		return shared.NewValidationError("No fields to update")
	}
	if u.ActualReturn != nil && u.ActualReturn.IsNegative() {
		return shared.NewValidationError("Actual return cannot be negative")
	}
	if u.Notes != nil {
		inv.Notes = *u.Notes
	}
	if u.ActualReturn != nil {
		inv.ActualReturn = valueobject.RoundAmount(*u.ActualReturn)
	}
	if u.PaymentMethod != nil {
		inv.PaymentMethod = *u.PaymentMethod
	}
	if u.ReferenceNumber != nil {
		inv.ReferenceNumber = *u.ReferenceNumber
	}
	inv.Touch()
	inv.IncrementVersion()
	return nil
}

// RequiresPlan returns true for installment investments
func (inv *Investment) RequiresPlan() bool {
	return inv.PaymentType == PaymentTypeInstallment
}
