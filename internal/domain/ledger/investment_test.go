package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testActor = "admin-1"

var acknowledged = InvestmentDetails{PaymentMethod: "bank_transfer", RiskAcknowledged: true}

func newLumpSum(t *testing.T, p *Project, amount int64) *Investment {
	t.Helper()
	inv, err := NewInvestment(p, uuid.New(), decimal.NewFromInt(amount), PaymentTypeLumpSum, nil, acknowledged, testActor)
	require.NoError(t, err)
	return inv
}

func newInstallmentInvestment(t *testing.T, p *Project, amount int64, count int, start time.Time) *Investment {
	t.Helper()
	spec := &InstallmentSpec{Count: count, Frequency: FrequencyMonthly, StartDate: start}
	inv, err := NewInvestment(p, uuid.New(), decimal.NewFromInt(amount), PaymentTypeInstallment, spec, acknowledged, testActor)
	require.NoError(t, err)
	return inv
}

// ============================================
// InvestmentStatus Tests
// ============================================

func TestInvestmentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from InvestmentStatus
		to   InvestmentStatus
		ok   bool
	}{
		{InvestmentStatusPending, InvestmentStatusConfirmed, true},
		{InvestmentStatusPending, InvestmentStatusCancelled, true},
		{InvestmentStatusPending, InvestmentStatusCompleted, false},
		{InvestmentStatusConfirmed, InvestmentStatusActive, true},
		{InvestmentStatusConfirmed, InvestmentStatusCompleted, true},
		{InvestmentStatusActive, InvestmentStatusCompleted, true},
		{InvestmentStatusActive, InvestmentStatusPending, false},
		{InvestmentStatusCompleted, InvestmentStatusCancelled, false},
		{InvestmentStatusCancelled, InvestmentStatusConfirmed, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

// ============================================
// NewInvestment Tests
// ============================================

func TestNewInvestment(t *testing.T) {
	p := newActiveProject(t, 20_000_000)

	t.Run("creates pending with expected return", func(t *testing.T) {
		inv := newLumpSum(t, p, 5_000_000)
		assert.Equal(t, InvestmentStatusPending, inv.Status)
		assert.Equal(t, "625000.00", inv.ExpectedReturn.StringFixed(2))
		assert.Nil(t, inv.Spec)
		require.Len(t, inv.GetDomainEvents(), 1)
		assert.Equal(t, EventTypeInvestmentCreated, inv.GetDomainEvents()[0].EventType())
		assert.Equal(t, testActor, inv.GetDomainEvents()[0].ActorID())
	})

	t.Run("validation failures", func(t *testing.T) {
		userID := uuid.New()
		tests := []struct {
			name    string
			amount  decimal.Decimal
			ptype   PaymentType
			spec    *InstallmentSpec
			details InvestmentDetails
		}{
			{"below minimum", decimal.NewFromInt(999_999), PaymentTypeLumpSum, nil, acknowledged},
			{"negative amount", decimal.NewFromInt(-1), PaymentTypeLumpSum, nil, acknowledged},
			{"three decimals", decimal.RequireFromString("1000000.005"), PaymentTypeLumpSum, nil, acknowledged},
			{"unknown type", decimal.NewFromInt(2_000_000), PaymentType("CRYPTO"), nil, acknowledged},
			{"risk not acknowledged", decimal.NewFromInt(2_000_000), PaymentTypeLumpSum, nil, InvestmentDetails{}},
			{"installment without spec", decimal.NewFromInt(2_000_000), PaymentTypeInstallment, nil, acknowledged},
			{"zero installments", decimal.NewFromInt(2_000_000), PaymentTypeInstallment,
				&InstallmentSpec{Count: 0, Frequency: FrequencyMonthly, StartDate: date(2024, 1, 1)}, acknowledged},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := NewInvestment(p, userID, tt.amount, tt.ptype, tt.spec, tt.details, testActor)
				assert.ErrorIs(t, err, shared.ErrValidation)
			})
		}
	})
}

// ============================================
// Confirm Tests
// ============================================

func TestInvestment_Confirm(t *testing.T) {
	now := date(2024, time.January, 10)

	t.Run("lump sum stays confirmed and reports funding delta", func(t *testing.T) {
		p := newActiveProject(t, 20_000_000)
		inv := newLumpSum(t, p, 5_000_000)

		result, err := inv.Confirm(p, testActor, now)
		require.NoError(t, err)
		assert.False(t, result.AlreadyConfirmed)
		assert.True(t, result.FundingDelta.Equal(decimal.NewFromInt(5_000_000)))
		assert.Nil(t, result.Plan)
		assert.Equal(t, InvestmentStatusConfirmed, inv.Status)
		require.NotNil(t, inv.ConfirmedAt)
		require.NotNil(t, inv.MaturityDate)
		assert.Equal(t, date(2026, time.January, 10), *inv.MaturityDate)
	})

	t.Run("installment generates plan and becomes active", func(t *testing.T) {
		p := newActiveProject(t, 20_000_000)
		inv := newInstallmentInvestment(t, p, 12_000_000, 12, now)

		result, err := inv.Confirm(p, testActor, now)
		require.NoError(t, err)
		require.NotNil(t, result.Plan)
		assert.Equal(t, InvestmentStatusActive, inv.Status)
		assert.Len(t, result.Plan.Installments, 12)
		assert.Equal(t, inv.ID, result.Plan.InvestmentID)
		assert.True(t, result.Plan.LateFeeRate.Equal(DefaultLateFeeRate))
		assert.Equal(t, DefaultGracePeriodDays, result.Plan.GracePeriodDays)
	})

	t.Run("confirm twice is a no-op", func(t *testing.T) {
		p := newActiveProject(t, 20_000_000)
		inv := newLumpSum(t, p, 5_000_000)
		_, err := inv.Confirm(p, testActor, now)
		require.NoError(t, err)
		version := inv.Version
		confirmedAt := *inv.ConfirmedAt

		again, err := inv.Confirm(p, testActor, now.Add(time.Hour))
		require.NoError(t, err)
		assert.True(t, again.AlreadyConfirmed)
		assert.True(t, again.FundingDelta.IsZero())
		assert.Equal(t, version, inv.Version)
		assert.Equal(t, confirmedAt, *inv.ConfirmedAt)
	})

	t.Run("cancelled investment cannot be confirmed", func(t *testing.T) {
		p := newActiveProject(t, 20_000_000)
		inv := newLumpSum(t, p, 5_000_000)
		_, err := inv.Cancel(nil, "changed mind", testActor, now)
		require.NoError(t, err)

		_, err = inv.Confirm(p, testActor, now)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("wrong project is rejected", func(t *testing.T) {
		p := newActiveProject(t, 20_000_000)
		other := newActiveProject(t, 20_000_000)
		inv := newLumpSum(t, p, 5_000_000)

		_, err := inv.Confirm(other, testActor, now)
		assert.ErrorIs(t, err, shared.ErrValidation)
		assert.Equal(t, InvestmentStatusPending, inv.Status)
	})
}

// ============================================
// Cancel Tests
// ============================================

func TestInvestment_Cancel(t *testing.T) {
	now := date(2024, time.January, 10)

	t.Run("confirmed lump sum reverses funding", func(t *testing.T) {
		p := newActiveProject(t, 20_000_000)
		p.ApplyRaisedDelta(decimal.NewFromInt(15_000_000))
		inv := newLumpSum(t, p, 5_000_000)
		confirm, err := inv.Confirm(p, testActor, now)
		require.NoError(t, err)
		p.ApplyRaisedDelta(confirm.FundingDelta)
		require.Equal(t, "20000000.00", p.RaisedAmount.StringFixed(2))

		result, err := inv.Cancel(nil, "duplicate", testActor, now)
		require.NoError(t, err)
		p.ApplyRaisedDelta(result.FundingDelta)

		assert.Equal(t, "15000000.00", p.RaisedAmount.StringFixed(2))
		assert.Equal(t, InvestmentStatusCancelled, inv.Status)
		assert.Equal(t, "duplicate", inv.CancelReason)
	})

	t.Run("pending cancel has no funding delta", func(t *testing.T) {
		p := newActiveProject(t, 20_000_000)
		inv := newLumpSum(t, p, 5_000_000)

		result, err := inv.Cancel(nil, "withdrawn", testActor, now)
		require.NoError(t, err)
		assert.True(t, result.FundingDelta.IsZero())
	})

	t.Run("active installment waives unpaid entries", func(t *testing.T) {
		p := newActiveProject(t, 20_000_000)
		inv := newInstallmentInvestment(t, p, 3_000_000, 3, now)
		confirm, err := inv.Confirm(p, testActor, now)
		require.NoError(t, err)
		plan := confirm.Plan

		_, err = plan.ApplyPayment(PaymentInput{Amount: decimal.NewFromInt(1_000_000), ReceivedDate: now, Reference: "R1", ActorID: testActor})
		require.NoError(t, err)

		result, err := inv.Cancel(plan, "default", testActor, now)
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3}, result.WaivedInstallments)
		assert.True(t, result.FundingDelta.Equal(decimal.NewFromInt(-3_000_000)))
		assert.Equal(t, PlanStatusCancelled, plan.Status)
		assert.Equal(t, InstallmentStatusPaid, plan.Installment(1).Status)
		assert.Equal(t, InstallmentStatusWaived, plan.Installment(2).Status)
	})

	t.Run("terminal investments cannot be cancelled", func(t *testing.T) {
		p := newActiveProject(t, 20_000_000)
		inv := newLumpSum(t, p, 5_000_000)
		_, err := inv.Confirm(p, testActor, now)
		require.NoError(t, err)
		require.NoError(t, inv.Complete(nil, testActor))

		_, err = inv.Cancel(nil, "late", testActor, now)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("plan of another investment is rejected", func(t *testing.T) {
		p := newActiveProject(t, 20_000_000)
		a := newInstallmentInvestment(t, p, 3_000_000, 3, now)
		b := newInstallmentInvestment(t, p, 3_000_000, 3, now)
		ca, err := a.Confirm(p, testActor, now)
		require.NoError(t, err)
		_, err = b.Confirm(p, testActor, now)
		require.NoError(t, err)

		_, err = b.Cancel(ca.Plan, "mixup", testActor, now)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})
}

// ============================================
// Complete and UpdateDetails Tests
// ============================================

func TestInvestment_Complete(t *testing.T) {
	now := date(2024, time.January, 10)
	p := newActiveProject(t, 20_000_000)

	t.Run("pending lump sum cannot complete", func(t *testing.T) {
		inv := newLumpSum(t, p, 5_000_000)
		assert.ErrorIs(t, inv.Complete(nil, testActor), shared.ErrInvalidState)
	})

	t.Run("confirmed lump sum records actual return", func(t *testing.T) {
		inv := newLumpSum(t, p, 5_000_000)
		_, err := inv.Confirm(p, testActor, now)
		require.NoError(t, err)

		ret := decimal.RequireFromString("600000.005")
		require.NoError(t, inv.Complete(&ret, testActor))
		assert.Equal(t, InvestmentStatusCompleted, inv.Status)
		assert.Equal(t, "600000.01", inv.ActualReturn.StringFixed(2))
	})

	t.Run("installment investment completes through its plan", func(t *testing.T) {
		inv := newInstallmentInvestment(t, p, 2_000_000, 2, now)
		_, err := inv.Confirm(p, testActor, now)
		require.NoError(t, err)
		assert.ErrorIs(t, inv.Complete(nil, testActor), shared.ErrInvalidState)
		require.NoError(t, inv.MarkCompleted(testActor))
		require.NoError(t, inv.MarkCompleted(testActor))
		assert.Equal(t, InvestmentStatusCompleted, inv.Status)
	})
}

func TestInvestment_UpdateDetails(t *testing.T) {
	p := newActiveProject(t, 20_000_000)
	inv := newLumpSum(t, p, 5_000_000)

	assert.ErrorIs(t, inv.UpdateDetails(InvestmentDetailsUpdate{}), shared.ErrValidation)

	neg := decimal.NewFromInt(-5)
	assert.ErrorIs(t, inv.UpdateDetails(InvestmentDetailsUpdate{ActualReturn: &neg}), shared.ErrValidation)

	notes := "wired from BCA"
	ref := "TRX-77"
	require.NoError(t, inv.UpdateDetails(InvestmentDetailsUpdate{Notes: &notes, ReferenceNumber: &ref}))
	assert.Equal(t, notes, inv.Notes)
	assert.Equal(t, ref, inv.ReferenceNumber)
	assert.Equal(t, "bank_transfer", inv.PaymentMethod)
	assert.Equal(t, InvestmentStatusPending, inv.Status)
}
