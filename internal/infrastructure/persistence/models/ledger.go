package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// ProjectModel is the persistence model for the Project aggregate root.
type ProjectModel struct {
	AggregateModel
	Name               string               `gorm:"type:varchar(200);not null"`
	TargetAmount       decimal.Decimal      `gorm:"type:decimal(15,2);not null"`
	RaisedAmount       decimal.Decimal      `gorm:"type:decimal(15,2);not null;default:0"`
	MinInvestment      decimal.Decimal      `gorm:"type:decimal(15,2);not null"`
	MaxInvestment      *decimal.Decimal     `gorm:"type:decimal(15,2)"`
	ExpectedReturnRate decimal.Decimal      `gorm:"type:decimal(5,2);not null;default:0"`
	DurationMonths     int                  `gorm:"not null;default:0"`
	Status             ledger.ProjectStatus `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (ProjectModel) TableName() string {
	return "projects"
}

// ToDomain converts the persistence model to a domain Project.
func (m *ProjectModel) ToDomain() *ledger.Project {
	return &ledger.Project{
		BaseAggregateRoot:  m.ToAggregateRoot(),
		Name:               m.Name,
		TargetAmount:       m.TargetAmount,
		RaisedAmount:       m.RaisedAmount,
		MinInvestment:      m.MinInvestment,
		MaxInvestment:      m.MaxInvestment,
		ExpectedReturnRate: m.ExpectedReturnRate,
		DurationMonths:     m.DurationMonths,
		Status:             m.Status,
	}
}

// ProjectModelFromDomain creates a persistence model from a domain Project.
func ProjectModelFromDomain(p *ledger.Project) *ProjectModel {
	m := &ProjectModel{
		Name:               p.Name,
		TargetAmount:       p.TargetAmount,
		RaisedAmount:       p.RaisedAmount,
		MinInvestment:      p.MinInvestment,
		MaxInvestment:      p.MaxInvestment,
		ExpectedReturnRate: p.ExpectedReturnRate,
		DurationMonths:     p.DurationMonths,
		Status:             p.Status,
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	return m
}

// InvestmentModel is the persistence model for the Investment aggregate root.
// The requested installment spec is flattened into nullable columns.
type InvestmentModel struct {
	AggregateModel
	UserID           uuid.UUID               `gorm:"type:uuid;not null;index"`
	ProjectID        uuid.UUID               `gorm:"type:uuid;not null;index"`
	Amount           decimal.Decimal         `gorm:"type:decimal(15,2);not null"`
	PaymentType      ledger.PaymentType      `gorm:"type:varchar(20);not null"`
	Status           ledger.InvestmentStatus `gorm:"type:varchar(20);not null;index"`
	ExpectedReturn   decimal.Decimal         `gorm:"type:decimal(15,2);not null;default:0"`
	ActualReturn     decimal.Decimal         `gorm:"type:decimal(15,2);not null;default:0"`
	ConfirmedAt      *time.Time
	CancelledAt      *time.Time
	CancelReason     string     `gorm:"type:text"`
	MaturityDate     *time.Time `gorm:"type:date"`
	PaymentMethod    string     `gorm:"type:varchar(50)"`
	ReferenceNumber  string     `gorm:"type:varchar(100)"`
	Notes            string     `gorm:"type:text"`
	RiskAcknowledged bool       `gorm:"not null;default:false"`

	SpecCount           *int                     `gorm:"column:spec_installment_count"`
	SpecFrequency       *ledger.PaymentFrequency `gorm:"column:spec_frequency;type:varchar(20)"`
	SpecStartDate       *time.Time               `gorm:"column:spec_start_date;type:date"`
	SpecInterestRate    *decimal.Decimal         `gorm:"column:spec_interest_rate;type:decimal(5,2)"`
	SpecLateFeeRate     *decimal.Decimal         `gorm:"column:spec_late_fee_rate;type:decimal(5,2)"`
	SpecGracePeriodDays *int                     `gorm:"column:spec_grace_period_days"`
}

// TableName returns the table name for GORM
func (InvestmentModel) TableName() string {
	return "investments"
}

// ToDomain converts the persistence model to a domain Investment.
func (m *InvestmentModel) ToDomain() *ledger.Investment {
	inv := &ledger.Investment{
		BaseAggregateRoot: m.ToAggregateRoot(),
		UserID:            m.UserID,
		ProjectID:         m.ProjectID,
		Amount:            m.Amount,
		PaymentType:       m.PaymentType,
		Status:            m.Status,
		ExpectedReturn:    m.ExpectedReturn,
		ActualReturn:      m.ActualReturn,
		ConfirmedAt:       m.ConfirmedAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
		MaturityDate:      m.MaturityDate,
		PaymentMethod:     m.PaymentMethod,
		ReferenceNumber:   m.ReferenceNumber,
		Notes:             m.Notes,
		RiskAcknowledged:  m.RiskAcknowledged,
	}
	if m.SpecCount != nil {
		spec := &ledger.InstallmentSpec{
			Count:           *m.SpecCount,
			LateFeeRate:     m.SpecLateFeeRate,
			GracePeriodDays: m.SpecGracePeriodDays,
		}
		if m.SpecFrequency != nil {
			spec.Frequency = *m.SpecFrequency
		}
		if m.SpecStartDate != nil {
			spec.StartDate = *m.SpecStartDate
		}
		if m.SpecInterestRate != nil {
			spec.InterestRate = *m.SpecInterestRate
		}
		inv.Spec = spec
	}
	return inv
}

// InvestmentModelFromDomain creates a persistence model from a domain Investment.
func InvestmentModelFromDomain(inv *ledger.Investment) *InvestmentModel {
	m := &InvestmentModel{
		UserID:           inv.UserID,
		ProjectID:        inv.ProjectID,
		Amount:           inv.Amount,
		PaymentType:      inv.PaymentType,
		Status:           inv.Status,
		ExpectedReturn:   inv.ExpectedReturn,
		ActualReturn:     inv.ActualReturn,
		ConfirmedAt:      inv.ConfirmedAt,
		CancelledAt:      inv.CancelledAt,
		CancelReason:     inv.CancelReason,
		MaturityDate:     inv.MaturityDate,
		PaymentMethod:    inv.PaymentMethod,
		ReferenceNumber:  inv.ReferenceNumber,
		Notes:            inv.Notes,
		RiskAcknowledged: inv.RiskAcknowledged,
	}
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	if s := inv.Spec; s != nil {
		count, freq, start, rate := s.Count, s.Frequency, s.StartDate, s.InterestRate
		m.SpecCount = &count
		m.SpecFrequency = &freq
		m.SpecStartDate = &start
		m.SpecInterestRate = &rate
		m.SpecLateFeeRate = s.LateFeeRate
		m.SpecGracePeriodDays = s.GracePeriodDays
	}
	return m
}

// PaymentPlanModel is the persistence model for the PaymentPlan aggregate root.
type PaymentPlanModel struct {
	AggregateModel
	InvestmentID      uuid.UUID               `gorm:"type:uuid;not null;uniqueIndex"`
	UserID            uuid.UUID               `gorm:"type:uuid;not null;index"`
	TotalAmount       decimal.Decimal         `gorm:"type:decimal(15,2);not null"`
	InstallmentCount  int                     `gorm:"not null"`
	InstallmentAmount decimal.Decimal         `gorm:"type:decimal(15,2);not null"`
	Frequency         ledger.PaymentFrequency `gorm:"type:varchar(20);not null"`
	StartDate         time.Time               `gorm:"type:date;not null"`
	EndDate           time.Time               `gorm:"type:date;not null"`
	NextDueDate       *time.Time              `gorm:"type:date;index"`
	InterestRate      decimal.Decimal         `gorm:"type:decimal(5,2);not null;default:0"`
	LateFeeRate       decimal.Decimal         `gorm:"type:decimal(5,2);not null;default:5"`
	GracePeriodDays   int                     `gorm:"not null;default:7"`
	Status            ledger.PlanStatus       `gorm:"type:varchar(20);not null;index"`
	TotalPaid         decimal.Decimal         `gorm:"type:decimal(15,2);not null;default:0"`
	RemainingBalance  decimal.Decimal         `gorm:"type:decimal(15,2);not null"`
	OverdueAmount     decimal.Decimal         `gorm:"type:decimal(15,2);not null;default:0"`
	LateFeesPaid      decimal.Decimal         `gorm:"type:decimal(15,2);not null;default:0"`
	UnappliedCredit   decimal.Decimal         `gorm:"type:decimal(15,2);not null;default:0"`
	// Associations
	Installments []InstallmentModel `gorm:"foreignKey:PlanID;references:ID"`
}

// TableName returns the table name for GORM
func (PaymentPlanModel) TableName() string {
	return "payment_plans"
}

// ToDomain converts the persistence model to a domain PaymentPlan.
func (m *PaymentPlanModel) ToDomain() *ledger.PaymentPlan {
	plan := &ledger.PaymentPlan{
		BaseAggregateRoot: m.ToAggregateRoot(),
		InvestmentID:      m.InvestmentID,
		UserID:            m.UserID,
		TotalAmount:       m.TotalAmount,
		InstallmentCount:  m.InstallmentCount,
		InstallmentAmount: m.InstallmentAmount,
		Frequency:         m.Frequency,
		StartDate:         m.StartDate,
		EndDate:           m.EndDate,
		NextDueDate:       m.NextDueDate,
		InterestRate:      m.InterestRate,
		LateFeeRate:       m.LateFeeRate,
		GracePeriodDays:   m.GracePeriodDays,
		Status:            m.Status,
		TotalPaid:         m.TotalPaid,
		RemainingBalance:  m.RemainingBalance,
		OverdueAmount:     m.OverdueAmount,
		LateFeesPaid:      m.LateFeesPaid,
		UnappliedCredit:   m.UnappliedCredit,
		Installments:      make([]ledger.Installment, len(m.Installments)),
	}
	for i := range m.Installments {
		plan.Installments[i] = *m.Installments[i].ToDomain()
	}
	return plan
}

// PaymentPlanModelFromDomain creates a persistence model from a domain
// PaymentPlan, installments included.
func PaymentPlanModelFromDomain(p *ledger.PaymentPlan) *PaymentPlanModel {
	m := &PaymentPlanModel{
		InvestmentID:      p.InvestmentID,
		UserID:            p.UserID,
		TotalAmount:       p.TotalAmount,
		InstallmentCount:  p.InstallmentCount,
		InstallmentAmount: p.InstallmentAmount,
		Frequency:         p.Frequency,
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		NextDueDate:       p.NextDueDate,
		InterestRate:      p.InterestRate,
		LateFeeRate:       p.LateFeeRate,
		GracePeriodDays:   p.GracePeriodDays,
		Status:            p.Status,
		TotalPaid:         p.TotalPaid,
		RemainingBalance:  p.RemainingBalance,
		OverdueAmount:     p.OverdueAmount,
		LateFeesPaid:      p.LateFeesPaid,
		UnappliedCredit:   p.UnappliedCredit,
		Installments:      make([]InstallmentModel, len(p.Installments)),
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	for i := range p.Installments {
		m.Installments[i] = *InstallmentModelFromDomain(&p.Installments[i])
	}
	return m
}

// InstallmentModel is the persistence model for one installment row
// (the payment history table).
type InstallmentModel struct {
	BaseModel
	PlanID               uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_installment_plan_number,priority:1"`
	InvestmentID         uuid.UUID                `gorm:"type:uuid;not null;index"`
	Number               int                      `gorm:"column:installment_number;not null;uniqueIndex:idx_installment_plan_number,priority:2"`
	DueDate              time.Time                `gorm:"type:date;not null;index"`
	PaidDate             *time.Time               `gorm:"type:date"`
	DueAmount            decimal.Decimal          `gorm:"type:decimal(15,2);not null"`
	PaidAmount           decimal.Decimal          `gorm:"type:decimal(15,2);not null;default:0"`
	LateFee              decimal.Decimal          `gorm:"type:decimal(15,2);not null;default:0"`
	Status               ledger.InstallmentStatus `gorm:"type:varchar(20);not null;index"`
	DaysOverdue          int                      `gorm:"not null;default:0"`
	PaymentMethod        string                   `gorm:"type:varchar(50)"`
	TransactionReference string                   `gorm:"type:varchar(100)"`
	ProcessedBy          string                   `gorm:"type:varchar(100)"`
	Notes                string                   `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "payment_installments"
}

// ToDomain converts the persistence model to a domain Installment.
func (m *InstallmentModel) ToDomain() *ledger.Installment {
	return &ledger.Installment{
		ID:                   m.ID,
		PlanID:               m.PlanID,
		InvestmentID:         m.InvestmentID,
		Number:               m.Number,
		DueDate:              m.DueDate,
		PaidDate:             m.PaidDate,
		DueAmount:            m.DueAmount,
		PaidAmount:           m.PaidAmount,
		LateFee:              m.LateFee,
		Status:               m.Status,
		DaysOverdue:          m.DaysOverdue,
		PaymentMethod:        m.PaymentMethod,
		TransactionReference: m.TransactionReference,
		ProcessedBy:          m.ProcessedBy,
		Notes:                m.Notes,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

// InstallmentModelFromDomain creates a persistence model from a domain Installment.
func InstallmentModelFromDomain(i *ledger.Installment) *InstallmentModel {
	return &InstallmentModel{
		BaseModel: BaseModel{
			ID:        i.ID,
			CreatedAt: i.CreatedAt,
			UpdatedAt: i.UpdatedAt,
		},
		PlanID:               i.PlanID,
		InvestmentID:         i.InvestmentID,
		Number:               i.Number,
		DueDate:              i.DueDate,
		PaidDate:             i.PaidDate,
		DueAmount:            i.DueAmount,
		PaidAmount:           i.PaidAmount,
		LateFee:              i.LateFee,
		Status:               i.Status,
		DaysOverdue:          i.DaysOverdue,
		PaymentMethod:        i.PaymentMethod,
		TransactionReference: i.TransactionReference,
		ProcessedBy:          i.ProcessedBy,
		Notes:                i.Notes,
	}
}
