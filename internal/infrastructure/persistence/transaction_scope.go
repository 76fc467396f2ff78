package persistence

import (
	"context"

	appledger "github.com/invest/ledger/internal/application/ledger"
	"github.com/invest/ledger/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Every ledger mutation runs inside one of these.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// Serialization failures surface as ConcurrencyConflictError.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
	return translateConflict(err)
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// ProjectRepo returns the project repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ProjectRepo() ledger.ProjectRepository {
	return NewGormProjectRepository(r.tx)
}

// InvestmentRepo returns the investment repository scoped to the current transaction.
func (r *gormTransactionalRepositories) InvestmentRepo() ledger.InvestmentRepository {
	return NewGormInvestmentRepository(r.tx)
}

// PlanRepo returns a plan repository that locks loaded plans on Postgres.
func (r *gormTransactionalRepositories) PlanRepo() ledger.PaymentPlanRepository {
	return newLockingPlanRepository(r.tx)
}

// ReceiptRepo returns the receipt repository scoped to the current transaction.
func (r *gormTransactionalRepositories) ReceiptRepo() ledger.PaymentReceiptRepository {
	return NewGormPaymentReceiptRepository(r.tx)
}

// AuditRepo returns the audit repository scoped to the current transaction.
func (r *gormTransactionalRepositories) AuditRepo() ledger.AuditRepository {
	return NewGormAuditRepository(r.tx)
}

// NewQueryRepositories wires the non-transactional repositories used by
// LedgerQueryService.
func NewQueryRepositories(db *gorm.DB) appledger.QueryRepositories {
	return appledger.QueryRepositories{
		Projects:    NewGormProjectRepository(db),
		Investments: NewGormInvestmentRepository(db),
		Plans:       NewGormPaymentPlanRepository(db),
		Receipts:    NewGormPaymentReceiptRepository(db),
		Audit:       NewGormAuditRepository(db),
		Read:        NewGormLedgerReadRepository(db),
	}
}

// Ensure GormTransactionScope implements TransactionScope
var _ appledger.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appledger.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
