package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// fundedStatuses are the investment statuses counted by the financial overview
var fundedStatuses = []ledger.InvestmentStatus{
	ledger.InvestmentStatusConfirmed,
	ledger.InvestmentStatusActive,
	ledger.InvestmentStatusCompleted,
}

// GormLedgerReadRepository implements LedgerReadRepository with aggregate SQL
type GormLedgerReadRepository struct {
	db *gorm.DB
}

// NewGormLedgerReadRepository creates a new GormLedgerReadRepository
func NewGormLedgerReadRepository(db *gorm.DB) *GormLedgerReadRepository {
	return &GormLedgerReadRepository{db: db}
}

type planTotalsRow struct {
	PlanCount    int64
	TotalAmount  decimal.Decimal
	TotalPaid    decimal.Decimal
	Remaining    decimal.Decimal
	Overdue      decimal.Decimal
	LateFeesPaid decimal.Decimal
}

// SumPlans folds plan balances filtered by status and start date
func (r *GormLedgerReadRepository) SumPlans(ctx context.Context, filter ledger.PlanSumFilter) (*ledger.PlanTotals, error) {
	query := r.db.WithContext(ctx).Table("payment_plans").
		Select(`COUNT(*) AS plan_count,
			COALESCE(SUM(total_amount), 0) AS total_amount,
			COALESCE(SUM(total_paid), 0) AS total_paid,
			COALESCE(SUM(remaining_balance), 0) AS remaining,
			COALESCE(SUM(overdue_amount), 0) AS overdue,
			COALESCE(SUM(late_fees_paid), 0) AS late_fees_paid`)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.From != nil {
		query = query.Where("start_date >= ?", ledger.DateOf(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("start_date <= ?", ledger.DateOf(*filter.To))
	}

	var row planTotalsRow
	if err := query.Scan(&row).Error; err != nil {
		return nil, err
	}
	return &ledger.PlanTotals{
		PlanCount:    row.PlanCount,
		TotalAmount:  row.TotalAmount,
		TotalPaid:    row.TotalPaid,
		Remaining:    row.Remaining,
		Overdue:      row.Overdue,
		LateFeesPaid: row.LateFeesPaid,
	}, nil
}

type investmentTotalsRow struct {
	Total decimal.Decimal
	Count int64
}

type collectionRow struct {
	TotalDue      decimal.Decimal
	TotalReceived decimal.Decimal
	OverdueDue    decimal.Decimal
}

// FinancialOverview folds funded investments (by creation date) and
// installments (by due date) over an optional range. Accrued late fees count
// as due, since received amounts include fee collections.
func (r *GormLedgerReadRepository) FinancialOverview(ctx context.Context, from, to *time.Time) (*ledger.FinancialOverview, error) {
	db := r.db.WithContext(ctx)

	invQuery := db.Table("investments").
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("status IN ?", fundedStatuses)
	if from != nil {
		invQuery = invQuery.Where("created_at >= ?", *from)
	}
	if to != nil {
		invQuery = invQuery.Where("created_at <= ?", *to)
	}
	var inv investmentTotalsRow
	if err := invQuery.Scan(&inv).Error; err != nil {
		return nil, err
	}

	instQuery := db.Table("payment_installments").
		Select(`COALESCE(SUM(due_amount + late_fee), 0) AS total_due,
			COALESCE(SUM(paid_amount), 0) AS total_received,
			COALESCE(SUM(CASE WHEN status = ? THEN due_amount + late_fee - paid_amount ELSE 0 END), 0) AS overdue_due`,
			ledger.InstallmentStatusOverdue).
		Where("status <> ?", ledger.InstallmentStatusWaived)
	if from != nil {
		instQuery = instQuery.Where("due_date >= ?", ledger.DateOf(*from))
	}
	if to != nil {
		instQuery = instQuery.Where("due_date <= ?", ledger.DateOf(*to))
	}
	var coll collectionRow
	if err := instQuery.Scan(&coll).Error; err != nil {
		return nil, err
	}

	overview := &ledger.FinancialOverview{
		TotalInvestments:  inv.Total,
		InvestmentCount:   inv.Count,
		AverageInvestment: decimal.Zero,
		TotalDue:          coll.TotalDue,
		TotalReceived:     coll.TotalReceived,
		OverdueDue:        coll.OverdueDue,
		CollectionRate:    decimal.Zero,
	}
	if inv.Count > 0 {
		overview.AverageInvestment = inv.Total.Div(decimal.NewFromInt(inv.Count)).Round(2)
	}
	if coll.TotalDue.IsPositive() {
		overview.CollectionRate = coll.TotalReceived.Div(coll.TotalDue).Mul(hundred).Round(2)
	}
	return overview, nil
}

type installmentViewRow struct {
	models.InstallmentModel
	UserID     uuid.UUID
	PlanStatus ledger.PlanStatus
}

// ListInstallments serves the payment management listing, joined with the
// plan owner and status
func (r *GormLedgerReadRepository) ListInstallments(ctx context.Context, filter ledger.InstallmentFilter) ([]ledger.InstallmentView, int64, error) {
	query := r.db.WithContext(ctx).
		Table("payment_installments AS i").
		Joins("JOIN payment_plans AS p ON p.id = i.plan_id")
	if filter.Status != nil {
		query = query.Where("i.status = ?", *filter.Status)
	}
	if filter.OverdueOnly {
		query = query.Where("i.status = ?", ledger.InstallmentStatusOverdue)
	}
	if filter.UserID != nil {
		query = query.Where("p.user_id = ?", *filter.UserID)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []installmentViewRow
	if err := query.
		Select("i.*, p.user_id AS user_id, p.status AS plan_status").
		Order(installmentSort.orderBy(filter.Filter)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]ledger.InstallmentView, len(rows))
	for i := range rows {
		out[i] = ledger.InstallmentView{
			Installment: *rows[i].InstallmentModel.ToDomain(),
			UserID:      rows[i].UserID,
			PlanStatus:  rows[i].PlanStatus,
		}
	}
	return out, total, nil
}

// Ensure GormLedgerReadRepository implements LedgerReadRepository
var _ ledger.LedgerReadRepository = (*GormLedgerReadRepository)(nil)
