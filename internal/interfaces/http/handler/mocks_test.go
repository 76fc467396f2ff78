package handler

import (
	"context"
	"time"

	"github.com/google/uuid"
	appledger "github.com/invest/ledger/internal/application/ledger"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/stretchr/testify/mock"
)

type mockCommands struct {
	mock.Mock
}

func (m *mockCommands) investment(args mock.Arguments) (*appledger.InvestmentResponse, error) {
	resp, _ := args.Get(0).(*appledger.InvestmentResponse)
	return resp, args.Error(1)
}

func (m *mockCommands) plan(args mock.Arguments) (*appledger.PaymentPlanResponse, error) {
	resp, _ := args.Get(0).(*appledger.PaymentPlanResponse)
	return resp, args.Error(1)
}

func (m *mockCommands) project(args mock.Arguments) (*appledger.ProjectResponse, error) {
	resp, _ := args.Get(0).(*appledger.ProjectResponse)
	return resp, args.Error(1)
}

func (m *mockCommands) RegisterProject(ctx context.Context, cmd appledger.RegisterProjectCommand) (*appledger.ProjectResponse, error) {
	return m.project(m.Called(ctx, cmd))
}

func (m *mockCommands) ChangeProjectStatus(ctx context.Context, cmd appledger.ChangeProjectStatusCommand) (*appledger.ProjectResponse, error) {
	return m.project(m.Called(ctx, cmd))
}

func (m *mockCommands) CreateInvestment(ctx context.Context, cmd appledger.CreateInvestmentCommand) (*appledger.InvestmentResponse, error) {
	return m.investment(m.Called(ctx, cmd))
}

func (m *mockCommands) ConfirmInvestment(ctx context.Context, cmd appledger.ConfirmInvestmentCommand) (*appledger.InvestmentResponse, error) {
	return m.investment(m.Called(ctx, cmd))
}

func (m *mockCommands) CancelInvestment(ctx context.Context, cmd appledger.CancelInvestmentCommand) (*appledger.InvestmentResponse, error) {
	return m.investment(m.Called(ctx, cmd))
}

func (m *mockCommands) CompleteInvestment(ctx context.Context, cmd appledger.CompleteInvestmentCommand) (*appledger.InvestmentResponse, error) {
	return m.investment(m.Called(ctx, cmd))
}

func (m *mockCommands) UpdateInvestmentDetails(ctx context.Context, cmd appledger.UpdateInvestmentDetailsCommand) (*appledger.InvestmentResponse, error) {
	return m.investment(m.Called(ctx, cmd))
}

func (m *mockCommands) ApplyPayment(ctx context.Context, cmd appledger.ApplyPaymentCommand) (*appledger.PaymentPlanResponse, error) {
	return m.plan(m.Called(ctx, cmd))
}

func (m *mockCommands) SweepOverdue(ctx context.Context, cmd appledger.SweepOverdueCommand) (*appledger.PaymentPlanResponse, error) {
	return m.plan(m.Called(ctx, cmd))
}

func (m *mockCommands) WaiveInstallment(ctx context.Context, cmd appledger.WaiveInstallmentCommand) (*appledger.PaymentPlanResponse, error) {
	return m.plan(m.Called(ctx, cmd))
}

func (m *mockCommands) UpdatePlanTerms(ctx context.Context, cmd appledger.UpdatePlanTermsCommand) (*appledger.PaymentPlanResponse, error) {
	return m.plan(m.Called(ctx, cmd))
}

type mockQueries struct {
	mock.Mock
}

func (m *mockQueries) GetProject(ctx context.Context, id uuid.UUID) (*appledger.ProjectResponse, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*appledger.ProjectResponse)
	return resp, args.Error(1)
}

func (m *mockQueries) GetProjectFunding(ctx context.Context, id uuid.UUID) (*appledger.ProjectFundingResponse, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*appledger.ProjectFundingResponse)
	return resp, args.Error(1)
}

func (m *mockQueries) GetInvestment(ctx context.Context, id uuid.UUID) (*appledger.InvestmentResponse, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*appledger.InvestmentResponse)
	return resp, args.Error(1)
}

func (m *mockQueries) ListInvestments(ctx context.Context, filter ledger.InvestmentFilter) ([]appledger.InvestmentResponse, int64, error) {
	args := m.Called(ctx, filter)
	items, _ := args.Get(0).([]appledger.InvestmentResponse)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *mockQueries) GetPlanSummary(ctx context.Context, id uuid.UUID) (*appledger.PaymentPlanResponse, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*appledger.PaymentPlanResponse)
	return resp, args.Error(1)
}

func (m *mockQueries) SumPlans(ctx context.Context, filter ledger.PlanSumFilter) (*appledger.PlanTotalsResponse, error) {
	args := m.Called(ctx, filter)
	resp, _ := args.Get(0).(*appledger.PlanTotalsResponse)
	return resp, args.Error(1)
}

func (m *mockQueries) FinancialOverview(ctx context.Context, from, to *time.Time) (*appledger.FinancialOverviewResponse, error) {
	args := m.Called(ctx, from, to)
	resp, _ := args.Get(0).(*appledger.FinancialOverviewResponse)
	return resp, args.Error(1)
}

func (m *mockQueries) ListInstallments(ctx context.Context, filter appledger.InstallmentListFilter) ([]appledger.InstallmentListItemResponse, int64, error) {
	args := m.Called(ctx, filter)
	items, _ := args.Get(0).([]appledger.InstallmentListItemResponse)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *mockQueries) ListReceipts(ctx context.Context, planID uuid.UUID) ([]ledger.PaymentReceipt, error) {
	args := m.Called(ctx, planID)
	items, _ := args.Get(0).([]ledger.PaymentReceipt)
	return items, args.Error(1)
}

func (m *mockQueries) AuditTrail(ctx context.Context, entityType string, entityID uuid.UUID) ([]ledger.AuditEntry, error) {
	args := m.Called(ctx, entityType, entityID)
	items, _ := args.Get(0).([]ledger.AuditEntry)
	return items, args.Error(1)
}

type mockStatements struct {
	mock.Mock
}

func (m *mockStatements) ExportPlanStatement(ctx context.Context, actorID string, planID uuid.UUID) (*appledger.StatementResponse, error) {
	args := m.Called(ctx, actorID, planID)
	resp, _ := args.Get(0).(*appledger.StatementResponse)
	return resp, args.Error(1)
}

type mockSweeps struct {
	mock.Mock
}

func (m *mockSweeps) SweepAllOverdue(ctx context.Context, asOf time.Time) (*appledger.SweepStats, error) {
	args := m.Called(ctx, asOf)
	resp, _ := args.Get(0).(*appledger.SweepStats)
	return resp, args.Error(1)
}
