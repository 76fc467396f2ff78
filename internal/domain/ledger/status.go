package ledger

// ProjectStatus represents the lifecycle status of a project
type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "DRAFT"
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusFunding   ProjectStatus = "FUNDING"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
	ProjectStatusCancelled ProjectStatus = "CANCELLED"
	ProjectStatusPaused    ProjectStatus = "PAUSED"
)

// IsValid checks if the status is a valid ProjectStatus
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusDraft, ProjectStatusActive, ProjectStatusFunding,
		ProjectStatusCompleted, ProjectStatusCancelled, ProjectStatusPaused:
		return true
	}
	return false
}

// AcceptsInvestments returns true if new investments may be created
func (s ProjectStatus) AcceptsInvestments() bool {
	return s == ProjectStatusActive || s == ProjectStatusFunding
}

func (s ProjectStatus) String() string {
	return string(s)
}

// InvestmentStatus represents the status of an investment
type InvestmentStatus string

const (
	InvestmentStatusPending   InvestmentStatus = "PENDING"
	InvestmentStatusConfirmed InvestmentStatus = "CONFIRMED"
	InvestmentStatusActive    InvestmentStatus = "ACTIVE"    // Confirmed with an installment plan running
	InvestmentStatusCompleted InvestmentStatus = "COMPLETED" // Fully funded
	InvestmentStatusCancelled InvestmentStatus = "CANCELLED"
)

// IsValid checks if the status is a valid InvestmentStatus
func (s InvestmentStatus) IsValid() bool {
	switch s {
	case InvestmentStatusPending, InvestmentStatusConfirmed, InvestmentStatusActive,
		InvestmentStatusCompleted, InvestmentStatusCancelled:
		return true
	}
	return false
}

// IsTerminal returns true if no further transitions are allowed
func (s InvestmentStatus) IsTerminal() bool {
	return s == InvestmentStatusCompleted || s == InvestmentStatusCancelled
}

// IsConfirmed returns true once the investment has passed confirmation.
// Cancelled investments report false even when they were confirmed before.
func (s InvestmentStatus) IsConfirmed() bool {
	return s == InvestmentStatusConfirmed || s == InvestmentStatusActive || s == InvestmentStatusCompleted
}

// CountsTowardFunding returns true if the amount is folded into the project total
func (s InvestmentStatus) CountsTowardFunding() bool {
	return s == InvestmentStatusConfirmed || s == InvestmentStatusActive
}

// CanTransitionTo reports whether the state machine allows s -> next
func (s InvestmentStatus) CanTransitionTo(next InvestmentStatus) bool {
	switch s {
	case InvestmentStatusPending:
		return next == InvestmentStatusConfirmed || next == InvestmentStatusCancelled
	case InvestmentStatusConfirmed:
		return next == InvestmentStatusActive || next == InvestmentStatusCompleted || next == InvestmentStatusCancelled
	case InvestmentStatusActive:
		return next == InvestmentStatusCompleted || next == InvestmentStatusCancelled
	}
	return false
}

func (s InvestmentStatus) String() string {
	return string(s)
}

// PaymentType determines whether an investment is paid at once or in installments
type PaymentType string

const (
	PaymentTypeLumpSum     PaymentType = "LUMP_SUM"
	PaymentTypeInstallment PaymentType = "INSTALLMENT"
)

// IsValid checks if the payment type is valid
func (t PaymentType) IsValid() bool {
	return t == PaymentTypeLumpSum || t == PaymentTypeInstallment
}

// PaymentFrequency is the spacing between installment due dates
type PaymentFrequency string

const (
	FrequencyMonthly   PaymentFrequency = "MONTHLY"
	FrequencyQuarterly PaymentFrequency = "QUARTERLY"
	FrequencyAnnually  PaymentFrequency = "ANNUALLY"
)

// IsValid checks if the frequency is valid
func (f PaymentFrequency) IsValid() bool {
	return f.Months() > 0
}

// Months returns the number of calendar months in one period, or 0 if unknown
func (f PaymentFrequency) Months() int {
	switch f {
	case FrequencyMonthly:
		return 1
	case FrequencyQuarterly:
		return 3
	case FrequencyAnnually:
		return 12
	}
	return 0
}

// PlanStatus represents the status of a payment plan
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "ACTIVE"
	PlanStatusCompleted PlanStatus = "COMPLETED"
	PlanStatusDefaulted PlanStatus = "DEFAULTED" // Decided by an external delinquency policy
	PlanStatusCancelled PlanStatus = "CANCELLED"
)

// IsValid checks if the plan status is valid
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanStatusActive, PlanStatusCompleted, PlanStatusDefaulted, PlanStatusCancelled:
		return true
	}
	return false
}

// InstallmentStatus represents the status of a single installment
type InstallmentStatus string

const (
	InstallmentStatusPending InstallmentStatus = "PENDING"
	InstallmentStatusPaid    InstallmentStatus = "PAID"
	InstallmentStatusOverdue InstallmentStatus = "OVERDUE"
	InstallmentStatusPartial InstallmentStatus = "PARTIAL"
	InstallmentStatusWaived  InstallmentStatus = "WAIVED"
)

// IsValid checks if the installment status is valid
func (s InstallmentStatus) IsValid() bool {
	switch s {
	case InstallmentStatusPending, InstallmentStatusPaid, InstallmentStatusOverdue,
		InstallmentStatusPartial, InstallmentStatusWaived:
		return true
	}
	return false
}

// IsOutstanding returns true if the installment still expects money
func (s InstallmentStatus) IsOutstanding() bool {
	return s == InstallmentStatusPending || s == InstallmentStatusOverdue || s == InstallmentStatusPartial
}

// CanBecomeOverdue returns true if a sweep may reclassify the installment
func (s InstallmentStatus) CanBecomeOverdue() bool {
	return s == InstallmentStatusPending || s == InstallmentStatusPartial
}
