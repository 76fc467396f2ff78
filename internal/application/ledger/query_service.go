package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/invest/ledger/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// QueryRepositories are the non-transactional repositories used for reads
type QueryRepositories struct {
	Projects    ledger.ProjectRepository
	Investments ledger.InvestmentRepository
	Plans       ledger.PaymentPlanRepository
	Receipts    ledger.PaymentReceiptRepository
	Audit       ledger.AuditRepository
	Read        ledger.LedgerReadRepository
}

// LedgerQueryService serves dashboard projections from committed state
type LedgerQueryService struct {
	repos    QueryRepositories
	currency valueobject.Currency
	logger   *zap.Logger
}

// NewLedgerQueryService creates a new LedgerQueryService. An empty currency
// means valueobject.DefaultCurrency.
func NewLedgerQueryService(repos QueryRepositories, currency valueobject.Currency, logger *zap.Logger) *LedgerQueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &LedgerQueryService{repos: repos, currency: currency, logger: logger}
}

// GetProject returns a project with its funding progress
func (s *LedgerQueryService) GetProject(ctx context.Context, projectID uuid.UUID) (*ProjectResponse, error) {
	project, err := s.repos.Projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	resp := ToProjectResponse(project, s.currency)
	return &resp, nil
}

// GetProjectFunding returns raised, target and progress (capped at 100) of a project
func (s *LedgerQueryService) GetProjectFunding(ctx context.Context, projectID uuid.UUID) (*ProjectFundingResponse, error) {
	project, err := s.repos.Projects.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &ProjectFundingResponse{
		ProjectID:  project.ID,
		Currency:   string(s.currency),
		Raised:     project.RaisedAmount,
		Target:     project.TargetAmount,
		Progress:   project.FundingProgress(),
		OverFunded: project.IsOverFunded(),
	}, nil
}

// GetInvestment returns an investment and the ID of its plan, if any
func (s *LedgerQueryService) GetInvestment(ctx context.Context, investmentID uuid.UUID) (*InvestmentResponse, error) {
	inv, err := s.repos.Investments.FindByID(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	var plan *ledger.PaymentPlan
	if inv.RequiresPlan() {
		plan, err = s.repos.Plans.FindByInvestmentID(ctx, inv.ID)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
	}
	resp := ToInvestmentResponse(inv, plan, s.currency)
	return &resp, nil
}

// ListInvestments lists investments by user, project or status
func (s *LedgerQueryService) ListInvestments(ctx context.Context, filter ledger.InvestmentFilter) ([]InvestmentResponse, int64, error) {
	items, total, err := s.repos.Investments.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]InvestmentResponse, 0, len(items))
	for i := range items {
		out = append(out, ToInvestmentResponse(&items[i], nil, s.currency))
	}
	return out, total, nil
}

// GetPlanSummary returns the totals and installments of a plan
func (s *LedgerQueryService) GetPlanSummary(ctx context.Context, planID uuid.UUID) (*PaymentPlanResponse, error) {
	plan, err := s.repos.Plans.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	resp := ToPaymentPlanResponse(plan, s.currency)
	return &resp, nil
}

// SumPlans folds plan totals filtered by status and start date range
func (s *LedgerQueryService) SumPlans(ctx context.Context, filter ledger.PlanSumFilter) (*PlanTotalsResponse, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, shared.NewValidationError("Unknown plan status")
	}
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, shared.NewValidationError("Date range end is before its start")
	}
	totals, err := s.repos.Read.SumPlans(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &PlanTotalsResponse{
		PlanCount:    totals.PlanCount,
		Currency:     string(s.currency),
		TotalAmount:  totals.TotalAmount,
		TotalPaid:    totals.TotalPaid,
		Remaining:    totals.Remaining,
		Overdue:      totals.Overdue,
		LateFeesPaid: totals.LateFeesPaid,
	}, nil
}

// FinancialOverview returns investment and collection totals for an optional date range
func (s *LedgerQueryService) FinancialOverview(ctx context.Context, from, to *time.Time) (*FinancialOverviewResponse, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, shared.NewValidationError("Date range end is before its start")
	}
	o, err := s.repos.Read.FinancialOverview(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &FinancialOverviewResponse{
		Currency:          string(s.currency),
		TotalInvestments:  o.TotalInvestments,
		InvestmentCount:   o.InvestmentCount,
		AverageInvestment: o.AverageInvestment,
		TotalDue:          o.TotalDue,
		TotalReceived:     o.TotalReceived,
		OverdueDue:        o.OverdueDue,
		CollectionRate:    o.CollectionRate,
	}, nil
}

// ListInstallments serves the payment management listing
func (s *LedgerQueryService) ListInstallments(ctx context.Context, filter InstallmentListFilter) ([]InstallmentListItemResponse, int64, error) {
	domainFilter := ledger.InstallmentFilter{
		Filter:      shared.Filter{Page: filter.Page, PageSize: filter.PageSize, OrderBy: "due_date", OrderDir: "asc"},
		OverdueOnly: filter.OverdueOnly,
		UserID:      filter.UserID,
	}
	if filter.Status != "" {
		status := ledger.InstallmentStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewValidationError("Unknown installment status")
		}
		domainFilter.Status = &status
	}

	rows, total, err := s.repos.Read.ListInstallments(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]InstallmentListItemResponse, 0, len(rows))
	for i := range rows {
		out = append(out, InstallmentListItemResponse{
			InstallmentResponse: toInstallmentResponse(&rows[i].Installment),
			PlanID:              rows[i].PlanID,
			InvestmentID:        rows[i].InvestmentID,
			UserID:              rows[i].UserID,
			PlanStatus:          string(rows[i].PlanStatus),
		})
	}
	return out, total, nil
}

// ListReceipts returns the accepted payments of a plan
func (s *LedgerQueryService) ListReceipts(ctx context.Context, planID uuid.UUID) ([]ledger.PaymentReceipt, error) {
	return s.repos.Receipts.FindByPlan(ctx, planID)
}

// AuditTrail returns the audit entries of one entity
func (s *LedgerQueryService) AuditTrail(ctx context.Context, entityType string, entityID uuid.UUID) ([]ledger.AuditEntry, error) {
	return s.repos.Audit.FindByEntity(ctx, entityType, entityID)
}
