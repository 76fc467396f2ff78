package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProjectRepository defines persistence for the funding side of projects
type ProjectRepository interface {
	// FindByID finds a project by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Project, error)

	// Save creates or updates a project
	Save(ctx context.Context, project *Project) error

	// AdjustRaised atomically adds delta to raised_amount, flooring at zero.
	// Returns shared.ErrNotFound if the project does not exist.
	AdjustRaised(ctx context.Context, id uuid.UUID, delta decimal.Decimal) error
}

// InvestmentFilter defines filtering options for investment queries
type InvestmentFilter struct {
	shared.Filter
	UserID    *uuid.UUID
	ProjectID *uuid.UUID
	Status    *InvestmentStatus
}

// InvestmentRepository defines the interface for investment persistence
type InvestmentRepository interface {
	// FindByID finds an investment by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Investment, error)

	// FindAll finds investments matching the filter
	FindAll(ctx context.Context, filter InvestmentFilter) ([]Investment, int64, error)

	// Create inserts a new investment
	Create(ctx context.Context, inv *Investment) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, inv *Investment) error
}

// PaymentPlanRepository defines the interface for plan and installment persistence
type PaymentPlanRepository interface {
	// FindByID loads a plan with its installments ordered by number
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentPlan, error)

	// FindByInvestmentID loads the plan of an investment
	FindByInvestmentID(ctx context.Context, investmentID uuid.UUID) (*PaymentPlan, error)

	// FindActiveIDs returns up to limit active plan IDs greater than after,
	// ordered by ID, for keyset iteration
	FindActiveIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)

	// Create inserts a plan together with all of its installments
	Create(ctx context.Context, plan *PaymentPlan) error

	// SaveWithLock saves the plan with a version check and writes its
	// installments. Late fees accrued since load are written only where the
	// stored fee is still zero.
	SaveWithLock(ctx context.Context, plan *PaymentPlan) error
}

// PaymentReceiptRepository defines persistence for accepted payments
type PaymentReceiptRepository interface {
	// Create inserts a receipt. A duplicate reference returns shared.ErrAlreadyExists.
	Create(ctx context.Context, receipt *PaymentReceipt) error

	// ExistsByReference checks if a payment reference was already applied
	ExistsByReference(ctx context.Context, reference string) (bool, error)

	// FindByPlan lists receipts of a plan, oldest first
	FindByPlan(ctx context.Context, planID uuid.UUID) ([]PaymentReceipt, error)
}

// AuditRepository appends and reads audit entries
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditEntry) error
	FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]AuditEntry, error)
}

// PlanSumFilter selects plans for an aggregate fold
type PlanSumFilter struct {
	Status *PlanStatus
	From   *time.Time // Plan start date lower bound, inclusive
	To     *time.Time // Plan start date upper bound, inclusive
}

// PlanTotals is the aggregate of a set of plans
type PlanTotals struct {
	PlanCount    int64
	TotalAmount  decimal.Decimal
	TotalPaid    decimal.Decimal
	Remaining    decimal.Decimal
	Overdue      decimal.Decimal
	LateFeesPaid decimal.Decimal
}

// FinancialOverview is the admin dashboard fold over investments and installments
type FinancialOverview struct {
	TotalInvestments  decimal.Decimal
	InvestmentCount   int64
	AverageInvestment decimal.Decimal
	TotalDue          decimal.Decimal
	TotalReceived     decimal.Decimal
	OverdueDue        decimal.Decimal
	CollectionRate    decimal.Decimal // Percent, 2 places
}

// InstallmentFilter selects installments for payment management listings
type InstallmentFilter struct {
	shared.Filter
	Status      *InstallmentStatus
	OverdueOnly bool
	UserID      *uuid.UUID
}

// InstallmentView is an installment joined with its plan owner
type InstallmentView struct {
	Installment
	UserID     uuid.UUID
	PlanStatus PlanStatus
}

// LedgerReadRepository serves read projections from committed state
type LedgerReadRepository interface {
	SumPlans(ctx context.Context, filter PlanSumFilter) (*PlanTotals, error)
	FinancialOverview(ctx context.Context, from, to *time.Time) (*FinancialOverview, error)
	ListInstallments(ctx context.Context, filter InstallmentFilter) ([]InstallmentView, int64, error)
}
