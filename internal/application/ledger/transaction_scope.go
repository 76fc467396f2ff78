package ledger

import (
	"context"

	"github.com/invest/ledger/internal/domain/ledger"
)

// TransactionScope provides transactional access to ledger repositories.
// All repository operations inside Execute are committed or rolled back
// together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to all ledger repositories within a transaction.
//
// Aggregate boundary notes:
//   - ProjectRepo: only the atomic raised-amount increment is used on the hot path.
//   - PlanRepo: installments are child entities of PaymentPlan and are written
//     through the plan, never on their own.
//   - ReceiptRepo and AuditRepo are append-only.
type TransactionalRepositories interface {
	ProjectRepo() ledger.ProjectRepository
	InvestmentRepo() ledger.InvestmentRepository
	PlanRepo() ledger.PaymentPlanRepository
	ReceiptRepo() ledger.PaymentReceiptRepository
	AuditRepo() ledger.AuditRepository
}

// Repositories is a plain holder of ledger repositories
type Repositories struct {
	Projects    ledger.ProjectRepository
	Investments ledger.InvestmentRepository
	Plans       ledger.PaymentPlanRepository
	Receipts    ledger.PaymentReceiptRepository
	Audit       ledger.AuditRepository
}

// NoOpTransactionScope runs fn against fixed repositories without a real
// transaction. Used in tests.
type NoOpTransactionScope struct {
	repos Repositories
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(repos Repositories) *NoOpTransactionScope {
	return &NoOpTransactionScope{repos: repos}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) ProjectRepo() ledger.ProjectRepository {
	return s.repos.Projects
}

func (s *NoOpTransactionScope) InvestmentRepo() ledger.InvestmentRepository {
	return s.repos.Investments
}

func (s *NoOpTransactionScope) PlanRepo() ledger.PaymentPlanRepository {
	return s.repos.Plans
}

func (s *NoOpTransactionScope) ReceiptRepo() ledger.PaymentReceiptRepository {
	return s.repos.Receipts
}

func (s *NoOpTransactionScope) AuditRepo() ledger.AuditRepository {
	return s.repos.Audit
}
