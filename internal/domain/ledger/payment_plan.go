package ledger

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/invest/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Installment is one scheduled payment of a plan (a payment history row)
type Installment struct {
	ID                   uuid.UUID
	PlanID               uuid.UUID
	InvestmentID         uuid.UUID
	Number               int
	DueDate              time.Time
	PaidDate             *time.Time
	DueAmount            decimal.Decimal
	PaidAmount           decimal.Decimal
	LateFee              decimal.Decimal
	Status               InstallmentStatus
	DaysOverdue          int
	PaymentMethod        string
	TransactionReference string
	ProcessedBy          string
	Notes                string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Owed returns the due amount plus any accrued late fee
func (i *Installment) Owed() decimal.Decimal {
	return i.DueAmount.Add(i.LateFee)
}

// Shortfall returns what is still owed on this installment
func (i *Installment) Shortfall() decimal.Decimal {
	s := i.Owed().Sub(i.PaidAmount)
	if s.IsNegative() {
		return decimal.Zero
	}
	return s
}

// PrincipalPaid returns the part of PaidAmount that settles DueAmount
func (i *Installment) PrincipalPaid() decimal.Decimal {
	return decimal.Min(i.PaidAmount, i.DueAmount)
}

// FeePaid returns the part of PaidAmount above DueAmount
func (i *Installment) FeePaid() decimal.Decimal {
	if i.PaidAmount.GreaterThan(i.DueAmount) {
		return i.PaidAmount.Sub(i.DueAmount)
	}
	return decimal.Zero
}

// PaymentPlan is the installment schedule owned by one installment investment
type PaymentPlan struct {
	shared.BaseAggregateRoot
	InvestmentID      uuid.UUID
	UserID            uuid.UUID
	TotalAmount       decimal.Decimal
	InstallmentCount  int
	InstallmentAmount decimal.Decimal
	Frequency         PaymentFrequency
	StartDate         time.Time
	EndDate           time.Time
	NextDueDate       *time.Time
	InterestRate      decimal.Decimal
	LateFeeRate       decimal.Decimal
	GracePeriodDays   int
	Status            PlanStatus
	TotalPaid         decimal.Decimal // Principal collected
	RemainingBalance  decimal.Decimal // TotalAmount - TotalPaid
	OverdueAmount     decimal.Decimal
	LateFeesPaid      decimal.Decimal
	UnappliedCredit   decimal.Decimal // Payment excess with nothing left to settle
	Installments      []Installment

	// Installment numbers whose late fee was accrued since the plan was loaded.
	// The store persists those rows with a zero-fee guard.
	accrued map[int]struct{}
}

// NewPaymentPlan generates the plan for a confirmed installment investment.
// All installments are created eagerly so due dates are known up front.
func NewPaymentPlan(inv *Investment, spec InstallmentSpec, actorID string) (*PaymentPlan, error) {
	if inv == nil {
		return nil, shared.NewValidationError("Investment is required")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	schedule, err := GenerateSchedule(inv.Amount, spec.Count, spec.Frequency, spec.StartDate)
	if err != nil {
		return nil, err
	}

	plan := &PaymentPlan{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvestmentID:      inv.ID,
		UserID:            inv.UserID,
		TotalAmount:       inv.Amount,
		InstallmentCount:  spec.Count,
		InstallmentAmount: schedule[0].DueAmount,
		Frequency:         spec.Frequency,
		StartDate:         DateOf(spec.StartDate),
		EndDate:           schedule[len(schedule)-1].DueDate,
		InterestRate:      spec.InterestRate,
		LateFeeRate:       spec.lateFeeRate(),
		GracePeriodDays:   spec.gracePeriodDays(),
		Status:            PlanStatusActive,
		TotalPaid:         decimal.Zero,
		RemainingBalance:  inv.Amount,
		OverdueAmount:     decimal.Zero,
		LateFeesPaid:      decimal.Zero,
		UnappliedCredit:   decimal.Zero,
		Installments:      make([]Installment, 0, len(schedule)),
	}

	now := plan.CreatedAt
	for _, s := range schedule {
		plan.Installments = append(plan.Installments, Installment{
			ID:           uuid.New(),
			PlanID:       plan.ID,
			InvestmentID: inv.ID,
			Number:       s.Number,
			DueDate:      s.DueDate,
			DueAmount:    s.DueAmount,
			PaidAmount:   decimal.Zero,
			LateFee:      decimal.Zero,
			Status:       InstallmentStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	plan.recalculate()

	plan.AddDomainEvent(NewPaymentPlanCreatedEvent(plan, actorID))
	return plan, nil
}

// PaymentInput is an incoming "payment received" event
type PaymentInput struct {
	Amount       decimal.Decimal
	ReceivedDate time.Time
	Method       string
	Reference    string
	ActorID      string
}

// PaymentApplication reports how a payment was distributed
type PaymentApplication struct {
	AppliedAmount   decimal.Decimal
	UnappliedAmount decimal.Decimal
	// Touched lists installment numbers that received money, oldest first
	Touched   []int
	Completed bool
}

// ApplyPayment applies a payment to the oldest outstanding installment and
// cascades any excess to the next ones. Excess left after the last
// outstanding installment is kept as unapplied credit.
func (p *PaymentPlan) ApplyPayment(in PaymentInput) (*PaymentApplication, error) {
	if !in.Amount.IsPositive() {
		return nil, shared.NewValidationError("Payment amount must be positive")
	}
	if !in.Amount.Equal(valueobject.RoundAmount(in.Amount)) {
		return nil, shared.NewValidationError("Payment amount has more than 2 decimal places")
	}
	if strings.TrimSpace(in.Reference) == "" {
		return nil, shared.NewValidationError("Payment reference is required")
	}
	if in.ReceivedDate.IsZero() {
		return nil, shared.NewValidationError("Payment received date is required")
	}
	if p.Status == PlanStatusCompleted {
		return nil, shared.ErrNoOutstanding
	}
	if p.Status != PlanStatusActive {
		return nil, shared.NewInvalidStateError(fmt.Sprintf("Cannot apply payment to plan in %s status", p.Status))
	}
	if p.firstOutstanding() < 0 {
		return nil, shared.ErrNoOutstanding
	}

	p.sortInstallments()
	remaining := in.Amount
	paidDate := DateOf(in.ReceivedDate)
	result := &PaymentApplication{}

	for idx := range p.Installments {
		if !remaining.IsPositive() {
			break
		}
		inst := &p.Installments[idx]
		if !inst.Status.IsOutstanding() {
			continue
		}
		portion := decimal.Min(remaining, inst.Shortfall())
		if !portion.IsPositive() {
			continue
		}

		inst.PaidAmount = inst.PaidAmount.Add(portion)
		inst.PaidDate = &paidDate
		inst.PaymentMethod = in.Method
		inst.TransactionReference = in.Reference
		inst.ProcessedBy = in.ActorID
		inst.UpdatedAt = time.Now()
		if inst.PaidAmount.GreaterThanOrEqual(inst.Owed()) {
			inst.Status = InstallmentStatusPaid
			inst.DaysOverdue = 0
		} else {
			inst.Status = InstallmentStatusPartial
		}

		remaining = remaining.Sub(portion)
		result.Touched = append(result.Touched, inst.Number)
	}

	result.AppliedAmount = in.Amount.Sub(remaining)
	result.UnappliedAmount = remaining
	p.UnappliedCredit = p.UnappliedCredit.Add(remaining)
	p.recalculate()

	p.AddDomainEvent(NewPaymentAppliedEvent(p, in, result))
	if p.completeIfSettled(in.ActorID) {
		result.Completed = true
	}

	p.Touch()
	p.IncrementVersion()
	return result, nil
}

// SweepResult reports what a sweep changed
type SweepResult struct {
	NewlyOverdue   []int
	LateFeeAccrued []int
	Changed        bool
}

// Sweep reclassifies installments whose due date plus grace period is before
// asOf. Each installment accrues its late fee at most once; repeat sweeps
// only refresh DaysOverdue. Non-active plans are left untouched.
func (p *PaymentPlan) Sweep(asOf time.Time, actorID string) *SweepResult {
	result := &SweepResult{}
	if p.Status != PlanStatusActive {
		return result
	}

	asOfDate := DateOf(asOf)
	beforeOverdue := p.OverdueAmount
	for idx := range p.Installments {
		inst := &p.Installments[idx]
		if inst.Status != InstallmentStatusOverdue && !inst.Status.CanBecomeOverdue() {
			continue
		}
		days := DaysBetween(inst.DueDate, asOfDate) - p.GracePeriodDays
		if days < 1 {
			continue
		}

		if inst.Status != InstallmentStatusOverdue {
			inst.Status = InstallmentStatusOverdue
			result.NewlyOverdue = append(result.NewlyOverdue, inst.Number)
			result.Changed = true
		}
		if inst.DaysOverdue != days {
			inst.DaysOverdue = days
			result.Changed = true
		}
		if inst.LateFee.IsZero() {
			fee := valueobject.PercentOf(inst.DueAmount, p.LateFeeRate)
			if fee.IsPositive() {
				inst.LateFee = fee
				p.markAccrued(inst.Number)
				result.LateFeeAccrued = append(result.LateFeeAccrued, inst.Number)
				result.Changed = true
			}
		}
		inst.UpdatedAt = time.Now()
	}

	p.recalculate()
	if !p.OverdueAmount.Equal(beforeOverdue) {
		result.Changed = true
	}
	if result.Changed {
		for _, n := range result.NewlyOverdue {
			p.AddDomainEvent(NewInstallmentOverdueEvent(p, p.installment(n), actorID))
		}
		p.Touch()
		p.IncrementVersion()
	}
	return result
}

// Cancel cancels the plan and waives every unpaid installment. Paid
// installments are left as they are. Returns the waived installment numbers.
func (p *PaymentPlan) Cancel(reason, actorID string, now time.Time) ([]int, error) {
	if p.Status == PlanStatusCancelled {
		return nil, shared.NewInvalidStateError("Payment plan is already cancelled")
	}
	if p.Status == PlanStatusCompleted {
		return nil, shared.NewInvalidStateError("Cannot cancel a completed payment plan")
	}

	var waived []int
	for idx := range p.Installments {
		inst := &p.Installments[idx]
		if !inst.Status.IsOutstanding() {
			continue
		}
		inst.Status = InstallmentStatusWaived
		inst.Notes = joinNote(inst.Notes, "cancelled: "+reason)
		inst.UpdatedAt = now
		waived = append(waived, inst.Number)
	}

	p.Status = PlanStatusCancelled
	p.recalculate()
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewPaymentPlanCancelledEvent(p, waived, actorID))
	return waived, nil
}

// Waive forgives a single outstanding installment
func (p *PaymentPlan) Waive(number int, reason, actorID string) error {
	if p.Status != PlanStatusActive {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot waive installments of plan in %s status", p.Status))
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("Waiver reason is required")
	}
	inst := p.installment(number)
	if inst == nil {
		return shared.NewValidationError(fmt.Sprintf("Installment %d does not exist", number))
	}
	if !inst.Status.IsOutstanding() {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot waive installment in %s status", inst.Status))
	}

	inst.Status = InstallmentStatusWaived
	inst.Notes = joinNote(inst.Notes, "waived: "+reason)
	inst.ProcessedBy = actorID
	inst.UpdatedAt = time.Now()
	p.recalculate()
	p.AddDomainEvent(NewInstallmentWaivedEvent(p, inst, reason, actorID))
	p.completeIfSettled(actorID)
	p.Touch()
	p.IncrementVersion()
	return nil
}

// PlanTermsUpdate lists the plan terms an operator may change. Changes apply
// to future accruals only; fees already accrued are kept.
type PlanTermsUpdate struct {
	LateFeeRate     *decimal.Decimal
	GracePeriodDays *int
	InterestRate    *decimal.Decimal
}

// IsEmpty returns true if the update touches nothing
func (u PlanTermsUpdate) IsEmpty() bool {
	return u.LateFeeRate == nil && u.GracePeriodDays == nil && u.InterestRate == nil
}

// UpdateTerms applies an explicit terms update
func (p *PaymentPlan) UpdateTerms(u PlanTermsUpdate) error {
	if u.IsEmpty() {
		return shared.NewValidationError("No fields to update")
	}
	if p.Status != PlanStatusActive {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot change terms of plan in %s status", p.Status))
	}
	if u.LateFeeRate != nil && u.LateFeeRate.IsNegative() {
		return shared.NewValidationError("Late fee rate cannot be negative")
	}
	if u.GracePeriodDays != nil && *u.GracePeriodDays < 0 {
		return shared.NewValidationError("Grace period cannot be negative")
	}
	if u.InterestRate != nil && u.InterestRate.IsNegative() {
		return shared.NewValidationError("Interest rate cannot be negative")
	}
	if u.LateFeeRate != nil {
		p.LateFeeRate = *u.LateFeeRate
	}
	if u.GracePeriodDays != nil {
		p.GracePeriodDays = *u.GracePeriodDays
	}
	if u.InterestRate != nil {
		p.InterestRate = *u.InterestRate
	}
	p.Touch()
	p.IncrementVersion()
	return nil
}

// HasOutstanding returns true if any installment still expects money
func (p *PaymentPlan) HasOutstanding() bool {
	return p.firstOutstanding() >= 0
}

// PendingLateFeeAccruals returns the installment numbers accrued since load
func (p *PaymentPlan) PendingLateFeeAccruals() []int {
	nums := make([]int, 0, len(p.accrued))
	for n := range p.accrued {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// ClearPendingAccruals is called by the store once accruals are persisted
func (p *PaymentPlan) ClearPendingAccruals() {
	p.accrued = nil
}

// Installment returns the installment with the given number, or nil
func (p *PaymentPlan) Installment(number int) *Installment {
	return p.installment(number)
}

// TotalDue returns Σ dueAmount. Equals TotalAmount for any generated plan.
func (p *PaymentPlan) TotalDue() decimal.Decimal {
	sum := decimal.Zero
	for _, inst := range p.Installments {
		sum = sum.Add(inst.DueAmount)
	}
	return sum
}

// TotalLateFees returns Σ lateFee across installments
func (p *PaymentPlan) TotalLateFees() decimal.Decimal {
	sum := decimal.Zero
	for _, inst := range p.Installments {
		sum = sum.Add(inst.LateFee)
	}
	return sum
}

// recalculate derives the plan aggregates from its installments
func (p *PaymentPlan) recalculate() {
	p.sortInstallments()
	totalPaid := decimal.Zero
	feesPaid := decimal.Zero
	overdue := decimal.Zero
	var next *time.Time

	for idx := range p.Installments {
		inst := &p.Installments[idx]
		totalPaid = totalPaid.Add(inst.PrincipalPaid())
		feesPaid = feesPaid.Add(inst.FeePaid())
		if inst.Status == InstallmentStatusOverdue {
			overdue = overdue.Add(inst.Shortfall())
		}
		if next == nil && inst.Status.IsOutstanding() {
			due := inst.DueDate
			next = &due
		}
	}

	p.TotalPaid = totalPaid
	p.LateFeesPaid = feesPaid
	p.RemainingBalance = p.TotalAmount.Sub(totalPaid)
	p.OverdueAmount = overdue
	p.NextDueDate = next
}

// completeIfSettled completes the plan once its principal is fully paid or
// nothing remains outstanding. Late fees still unpaid at that point are
// forgiven: their entries are waived so a completed plan owes nothing.
func (p *PaymentPlan) completeIfSettled(actorID string) bool {
	if p.Status != PlanStatusActive {
		return false
	}
	if p.RemainingBalance.IsPositive() && p.HasOutstanding() {
		return false
	}

	forgiven := decimal.Zero
	for idx := range p.Installments {
		inst := &p.Installments[idx]
		if !inst.Status.IsOutstanding() {
			continue
		}
		forgiven = forgiven.Add(inst.Shortfall())
		inst.Status = InstallmentStatusWaived
		inst.Notes = joinNote(inst.Notes, "late fee forgiven on completion")
		inst.UpdatedAt = time.Now()
	}
	p.recalculate()

	p.Status = PlanStatusCompleted
	p.AddDomainEvent(NewPaymentPlanCompletedEvent(p, forgiven, actorID))
	return true
}

func (p *PaymentPlan) firstOutstanding() int {
	p.sortInstallments()
	for idx := range p.Installments {
		if p.Installments[idx].Status.IsOutstanding() {
			return idx
		}
	}
	return -1
}

func (p *PaymentPlan) installment(number int) *Installment {
	for idx := range p.Installments {
		if p.Installments[idx].Number == number {
			return &p.Installments[idx]
		}
	}
	return nil
}

func (p *PaymentPlan) sortInstallments() {
	sort.SliceStable(p.Installments, func(a, b int) bool {
		return p.Installments[a].Number < p.Installments[b].Number
	})
}

func (p *PaymentPlan) markAccrued(number int) {
	if p.accrued == nil {
		p.accrued = make(map[int]struct{})
	}
	p.accrued[number] = struct{}{}
}

func joinNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "; " + note
}
