// Package ledger contains the investment and installment ledger domain:
// projects, investments, payment plans and their installments.
package ledger

import (
	"fmt"

	"github.com/invest/ledger/internal/domain/shared"
	"github.com/invest/ledger/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DefaultMinInvestment applies when a project does not specify a minimum
var DefaultMinInvestment = decimal.NewFromInt(1_000_000)

var maxProgress = decimal.NewFromInt(100)

// Project is the funding target investments are made into. The ledger only
// tracks the fields it needs; catalog content lives elsewhere.
type Project struct {
	shared.BaseAggregateRoot
	Name               string
	TargetAmount       decimal.Decimal
	RaisedAmount       decimal.Decimal
	MinInvestment      decimal.Decimal
	MaxInvestment      *decimal.Decimal
	ExpectedReturnRate decimal.Decimal // Percent per term
	DurationMonths     int
	Status             ProjectStatus
}

// ProjectTerms holds the investment constraints of a project
type ProjectTerms struct {
	TargetAmount       decimal.Decimal
	MinInvestment      decimal.Decimal
	MaxInvestment      *decimal.Decimal
	ExpectedReturnRate decimal.Decimal
	DurationMonths     int
}

// NewProject creates a project in DRAFT status
func NewProject(name string, terms ProjectTerms) (*Project, error) {
	if name == "" {
		return nil, shared.NewValidationError("Project name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewValidationError("Project name cannot exceed 200 characters")
	}
	if terms.MinInvestment.IsZero() {
		terms.MinInvestment = DefaultMinInvestment
	}
	if err := terms.validate(); err != nil {
		return nil, err
	}

	p := &Project{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		Name:               name,
		TargetAmount:       valueobject.RoundAmount(terms.TargetAmount),
		RaisedAmount:       decimal.Zero,
		MinInvestment:      valueobject.RoundAmount(terms.MinInvestment),
		ExpectedReturnRate: terms.ExpectedReturnRate,
		DurationMonths:     terms.DurationMonths,
		Status:             ProjectStatusDraft,
	}
	if terms.MaxInvestment != nil {
		maxInv := valueobject.RoundAmount(*terms.MaxInvestment)
		p.MaxInvestment = &maxInv
	}
	return p, nil
}

func (t ProjectTerms) validate() error {
	if !t.TargetAmount.IsPositive() {
		return shared.NewValidationError("Target amount must be positive")
	}
	if t.MinInvestment.IsNegative() {
		return shared.NewValidationError("Minimum investment cannot be negative")
	}
	if t.MaxInvestment != nil && t.MaxInvestment.LessThan(t.MinInvestment) {
		return shared.NewValidationError("Maximum investment cannot be below minimum investment")
	}
	if t.ExpectedReturnRate.IsNegative() {
		return shared.NewValidationError("Expected return rate cannot be negative")
	}
	if t.DurationMonths < 0 {
		return shared.NewValidationError("Duration cannot be negative")
	}
	return nil
}

// ChangeStatus moves the project to a new catalog status
func (p *Project) ChangeStatus(status ProjectStatus) error {
	if !status.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("Unknown project status %q", status))
	}
	if p.Status == ProjectStatusCompleted || p.Status == ProjectStatusCancelled {
		return shared.NewInvalidStateError(fmt.Sprintf("Cannot change status of %s project", p.Status))
	}
	p.Status = status
	p.Touch()
	p.IncrementVersion()
	return nil
}

// ValidateInvestment checks an amount against the project's constraints
func (p *Project) ValidateInvestment(amount decimal.Decimal) error {
	if !p.Status.AcceptsInvestments() {
		return shared.NewValidationError(fmt.Sprintf("Project is not accepting investments in %s status", p.Status))
	}
	if amount.LessThan(p.MinInvestment) {
		return shared.NewValidationError(fmt.Sprintf("Amount %s is below minimum investment %s",
			amount.StringFixed(valueobject.Scale), p.MinInvestment.StringFixed(valueobject.Scale)))
	}
	if p.MaxInvestment != nil && amount.GreaterThan(*p.MaxInvestment) {
		return shared.NewValidationError(fmt.Sprintf("Amount %s exceeds maximum investment %s",
			amount.StringFixed(valueobject.Scale), p.MaxInvestment.StringFixed(valueobject.Scale)))
	}
	return nil
}

// ExpectedReturnFor computes amount × expectedReturnRate / 100, rounded half-up
func (p *Project) ExpectedReturnFor(amount decimal.Decimal) decimal.Decimal {
	return valueobject.PercentOf(amount, p.ExpectedReturnRate)
}

// ApplyRaisedDelta mirrors the store's atomic increment on the in-memory
// aggregate: raised += delta, floored at zero.
func (p *Project) ApplyRaisedDelta(delta decimal.Decimal) {
	p.RaisedAmount = p.RaisedAmount.Add(delta)
	if p.RaisedAmount.IsNegative() {
		p.RaisedAmount = decimal.Zero
	}
}

// FundingProgress returns raised / target × 100, capped at 100 and rounded to 2 places
func (p *Project) FundingProgress() decimal.Decimal {
	if !p.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	progress := p.RaisedAmount.Div(p.TargetAmount).Mul(maxProgress).Round(2)
	if progress.GreaterThan(maxProgress) {
		return maxProgress
	}
	return progress
}

// IsOverFunded reports raised > target. Over-funding is allowed but flagged.
func (p *Project) IsOverFunded() bool {
	return p.RaisedAmount.GreaterThan(p.TargetAmount)
}
