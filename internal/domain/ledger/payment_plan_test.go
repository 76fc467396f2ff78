package ledger

import (
	"testing"
	"time"

	"github.com/invest/ledger/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlan(t *testing.T, amount int64, count int, start time.Time) *PaymentPlan {
	t.Helper()
	p := newActiveProject(t, 100_000_000)
	inv := newInstallmentInvestment(t, p, amount, count, start)
	result, err := inv.Confirm(p, testActor, start)
	require.NoError(t, err)
	require.NotNil(t, result.Plan)
	return result.Plan
}

func pay(amount int64, ref string, on time.Time) PaymentInput {
	return PaymentInput{
		Amount:       decimal.NewFromInt(amount),
		ReceivedDate: on,
		Method:       "bank_transfer",
		Reference:    ref,
		ActorID:      testActor,
	}
}

func assertBalanced(t *testing.T, p *PaymentPlan) {
	t.Helper()
	assert.True(t, p.TotalPaid.Add(p.RemainingBalance).Equal(p.TotalAmount),
		"totalPaid %s + remaining %s != total %s", p.TotalPaid, p.RemainingBalance, p.TotalAmount)
	assert.True(t, p.TotalDue().Equal(p.TotalAmount))
	for _, inst := range p.Installments {
		assert.True(t, inst.PaidAmount.LessThanOrEqual(inst.Owed()), "installment %d overpaid", inst.Number)
	}
}

// ============================================
// NewPaymentPlan Tests
// ============================================

func TestNewPaymentPlan(t *testing.T) {
	start := date(2024, time.January, 15)
	plan := newTestPlan(t, 12_000_000, 12, start)

	assert.Equal(t, PlanStatusActive, plan.Status)
	assert.Equal(t, "1000000.00", plan.InstallmentAmount.StringFixed(2))
	assert.Equal(t, date(2025, time.January, 15), plan.EndDate)
	require.NotNil(t, plan.NextDueDate)
	assert.Equal(t, date(2024, time.February, 15), *plan.NextDueDate)
	for _, inst := range plan.Installments {
		assert.Equal(t, InstallmentStatusPending, inst.Status)
		assert.Equal(t, plan.ID, inst.PlanID)
	}
	assertBalanced(t, plan)
}

// ============================================
// ApplyPayment Tests
// ============================================

func TestPaymentPlan_ApplyPayment(t *testing.T) {
	start := date(2024, time.January, 15)

	t.Run("cascades into the next installment", func(t *testing.T) {
		plan := newTestPlan(t, 12_000_000, 12, start)

		app, err := plan.ApplyPayment(pay(1_500_000, "TRX-1", date(2024, 2, 10)))
		require.NoError(t, err)

		assert.Equal(t, []int{1, 2}, app.Touched)
		assert.Equal(t, InstallmentStatusPaid, plan.Installment(1).Status)
		assert.Equal(t, InstallmentStatusPartial, plan.Installment(2).Status)
		assert.Equal(t, "500000.00", plan.Installment(2).PaidAmount.StringFixed(2))
		assert.Equal(t, "1500000.00", plan.TotalPaid.StringFixed(2))
		assert.Equal(t, "10500000.00", plan.RemainingBalance.StringFixed(2))
		assert.True(t, app.UnappliedAmount.IsZero())
		require.NotNil(t, plan.NextDueDate)
		assert.Equal(t, date(2024, time.March, 15), *plan.NextDueDate)
		assertBalanced(t, plan)
	})

	t.Run("full payoff completes plan and keeps excess as credit", func(t *testing.T) {
		plan := newTestPlan(t, 3_000_000, 3, start)

		app, err := plan.ApplyPayment(pay(3_250_000, "TRX-ALL", date(2024, 2, 1)))
		require.NoError(t, err)

		assert.True(t, app.Completed)
		assert.Equal(t, PlanStatusCompleted, plan.Status)
		assert.True(t, plan.RemainingBalance.IsZero())
		assert.Equal(t, "250000.00", app.UnappliedAmount.StringFixed(2))
		assert.Equal(t, "250000.00", plan.UnappliedCredit.StringFixed(2))
		assert.Nil(t, plan.NextDueDate)
		assertBalanced(t, plan)

		_, err = plan.ApplyPayment(pay(1, "TRX-AFTER", date(2024, 2, 2)))
		assert.ErrorIs(t, err, shared.ErrNoOutstanding)
	})

	t.Run("late fee is settled after principal and tracked separately", func(t *testing.T) {
		plan := newTestPlan(t, 2_000_000, 2, start)
		plan.Sweep(date(2024, time.February, 25), testActor)
		require.Equal(t, "50000.00", plan.Installment(1).LateFee.StringFixed(2))

		_, err := plan.ApplyPayment(pay(1_050_000, "TRX-FEE", date(2024, 2, 26)))
		require.NoError(t, err)

		assert.Equal(t, InstallmentStatusPaid, plan.Installment(1).Status)
		assert.Equal(t, "1000000.00", plan.TotalPaid.StringFixed(2))
		assert.Equal(t, "50000.00", plan.LateFeesPaid.StringFixed(2))
		assert.True(t, plan.OverdueAmount.IsZero())
		assertBalanced(t, plan)
	})

	t.Run("settling principal completes plan and forgives unpaid fee", func(t *testing.T) {
		plan := newTestPlan(t, 1_000_000, 1, start)
		plan.Sweep(date(2024, time.February, 25), testActor)
		require.Equal(t, "50000.00", plan.Installment(1).LateFee.StringFixed(2))
		plan.ClearDomainEvents()

		app, err := plan.ApplyPayment(pay(1_000_000, "TRX-PRINCIPAL", date(2024, 2, 26)))
		require.NoError(t, err)

		assert.True(t, app.Completed)
		assert.Equal(t, PlanStatusCompleted, plan.Status)
		assert.True(t, plan.RemainingBalance.IsZero())
		assert.True(t, plan.LateFeesPaid.IsZero())
		assert.True(t, plan.OverdueAmount.IsZero())
		assert.False(t, plan.HasOutstanding())
		inst := plan.Installment(1)
		assert.Equal(t, InstallmentStatusWaived, inst.Status)
		assert.Equal(t, "50000.00", inst.LateFee.StringFixed(2))
		assert.Contains(t, inst.Notes, "late fee forgiven")
		assertBalanced(t, plan)

		var completed *PaymentPlanCompletedEvent
		for _, e := range plan.GetDomainEvents() {
			if ev, ok := e.(*PaymentPlanCompletedEvent); ok {
				completed = ev
			}
		}
		require.NotNil(t, completed)
		assert.Equal(t, "50000.00", completed.LateFeesWaived.StringFixed(2))

		_, err = plan.ApplyPayment(pay(50_000, "TRX-FEE-LATE", date(2024, 2, 27)))
		assert.ErrorIs(t, err, shared.ErrNoOutstanding)
	})

	t.Run("partial on overdue entry keeps its fee", func(t *testing.T) {
		plan := newTestPlan(t, 2_000_000, 2, start)
		plan.Sweep(date(2024, time.February, 25), testActor)

		_, err := plan.ApplyPayment(pay(400_000, "TRX-P", date(2024, 2, 26)))
		require.NoError(t, err)
		inst := plan.Installment(1)
		assert.Equal(t, InstallmentStatusPartial, inst.Status)
		assert.Equal(t, "650000.00", inst.Shortfall().StringFixed(2))

		plan.Sweep(date(2024, time.February, 27), testActor)
		assert.Equal(t, InstallmentStatusOverdue, inst.Status)
		assert.Equal(t, "50000.00", inst.LateFee.StringFixed(2))
		assert.Equal(t, "650000.00", plan.OverdueAmount.StringFixed(2))
	})

	t.Run("validation", func(t *testing.T) {
		plan := newTestPlan(t, 2_000_000, 2, start)
		tests := []struct {
			name string
			in   PaymentInput
		}{
			{"zero amount", pay(0, "R", start)},
			{"negative amount", pay(-10, "R", start)},
			{"blank reference", pay(10, "  ", start)},
			{"missing date", pay(10, "R", time.Time{})},
			{"sub cent amount", PaymentInput{Amount: decimal.RequireFromString("0.001"), ReceivedDate: start, Reference: "R"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := plan.ApplyPayment(tt.in)
				assert.ErrorIs(t, err, shared.ErrValidation)
			})
		}
		assert.True(t, plan.TotalPaid.IsZero())
	})

	t.Run("cancelled plan rejects payments", func(t *testing.T) {
		plan := newTestPlan(t, 2_000_000, 2, start)
		_, err := plan.Cancel("closed", testActor, start)
		require.NoError(t, err)

		_, err = plan.ApplyPayment(pay(10, "R", start))
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

// ============================================
// Sweep Tests
// ============================================

func TestPaymentPlan_Sweep(t *testing.T) {
	start := date(2024, time.January, 1)

	t.Run("accrues late fee exactly once", func(t *testing.T) {
		plan := newTestPlan(t, 3_000_000, 3, start)
		// #1 due Feb 1, grace 7 days, ten days overdue past grace on Feb 18
		asOf := date(2024, time.February, 18)

		first := plan.Sweep(asOf, testActor)
		assert.Equal(t, []int{1}, first.NewlyOverdue)
		assert.Equal(t, []int{1}, first.LateFeeAccrued)

		inst := plan.Installment(1)
		assert.Equal(t, InstallmentStatusOverdue, inst.Status)
		assert.Equal(t, 10, inst.DaysOverdue)
		assert.Equal(t, "50000.00", inst.LateFee.StringFixed(2))
		assert.Equal(t, "1050000.00", plan.OverdueAmount.StringFixed(2))
		version := plan.Version

		for i := 0; i < 5; i++ {
			again := plan.Sweep(asOf, testActor)
			assert.False(t, again.Changed)
		}
		assert.Equal(t, "50000.00", plan.TotalLateFees().StringFixed(2))
		assert.Equal(t, "1050000.00", plan.OverdueAmount.StringFixed(2))
		assert.Equal(t, version, plan.Version)
		assert.Equal(t, []int{1}, plan.PendingLateFeeAccruals())
	})

	t.Run("grace period boundary", func(t *testing.T) {
		plan := newTestPlan(t, 3_000_000, 3, start)

		none := plan.Sweep(date(2024, time.February, 8), testActor)
		assert.False(t, none.Changed)
		assert.Equal(t, InstallmentStatusPending, plan.Installment(1).Status)

		one := plan.Sweep(date(2024, time.February, 9), testActor)
		assert.True(t, one.Changed)
		assert.Equal(t, 1, plan.Installment(1).DaysOverdue)
	})

	t.Run("later sweep refreshes days without new fee", func(t *testing.T) {
		plan := newTestPlan(t, 3_000_000, 3, start)
		plan.Sweep(date(2024, time.February, 18), testActor)
		plan.ClearPendingAccruals()

		later := plan.Sweep(date(2024, time.February, 28), testActor)
		assert.True(t, later.Changed)
		assert.Empty(t, later.LateFeeAccrued)
		assert.Equal(t, 20, plan.Installment(1).DaysOverdue)
		assert.Empty(t, plan.PendingLateFeeAccruals())
	})

	t.Run("paid and waived entries are skipped", func(t *testing.T) {
		plan := newTestPlan(t, 3_000_000, 3, start)
		_, err := plan.ApplyPayment(pay(1_000_000, "R1", date(2024, 1, 30)))
		require.NoError(t, err)
		require.NoError(t, plan.Waive(2, "hardship", testActor))

		result := plan.Sweep(date(2024, time.December, 31), testActor)
		assert.Equal(t, []int{3}, result.NewlyOverdue)
		assert.Equal(t, InstallmentStatusPaid, plan.Installment(1).Status)
		assert.Equal(t, InstallmentStatusWaived, plan.Installment(2).Status)
	})

	t.Run("inactive plan is unchanged", func(t *testing.T) {
		plan := newTestPlan(t, 3_000_000, 3, start)
		_, err := plan.Cancel("closed", testActor, start)
		require.NoError(t, err)

		result := plan.Sweep(date(2025, time.January, 1), testActor)
		assert.False(t, result.Changed)
		assert.True(t, plan.TotalLateFees().IsZero())
	})

	t.Run("zero late fee rate marks overdue without fee", func(t *testing.T) {
		plan := newTestPlan(t, 3_000_000, 3, start)
		zero := decimal.Zero
		require.NoError(t, plan.UpdateTerms(PlanTermsUpdate{LateFeeRate: &zero}))

		result := plan.Sweep(date(2024, time.February, 18), testActor)
		assert.Equal(t, []int{1}, result.NewlyOverdue)
		assert.Empty(t, result.LateFeeAccrued)
		assert.Equal(t, "1000000.00", plan.OverdueAmount.StringFixed(2))
	})
}

// ============================================
// Waive / Cancel / UpdateTerms Tests
// ============================================

func TestPaymentPlan_Waive(t *testing.T) {
	start := date(2024, time.January, 1)

	t.Run("waiving the last outstanding entry completes the plan", func(t *testing.T) {
		plan := newTestPlan(t, 2_000_000, 2, start)
		_, err := plan.ApplyPayment(pay(1_000_000, "R1", start))
		require.NoError(t, err)

		require.NoError(t, plan.Waive(2, "goodwill", testActor))
		assert.Equal(t, PlanStatusCompleted, plan.Status)
		assert.Equal(t, "1000000.00", plan.RemainingBalance.StringFixed(2))
		assertBalanced(t, plan)
	})

	t.Run("rejections", func(t *testing.T) {
		plan := newTestPlan(t, 2_000_000, 2, start)
		_, err := plan.ApplyPayment(pay(1_000_000, "R1", start))
		require.NoError(t, err)

		assert.ErrorIs(t, plan.Waive(1, "again", testActor), shared.ErrInvalidState)
		assert.ErrorIs(t, plan.Waive(9, "missing", testActor), shared.ErrValidation)
		assert.ErrorIs(t, plan.Waive(2, "", testActor), shared.ErrValidation)
	})
}

func TestPaymentPlan_Cancel(t *testing.T) {
	plan := newTestPlan(t, 3_000_000, 3, date(2024, 1, 1))

	waived, err := plan.Cancel("investor request", testActor, date(2024, 1, 5))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, waived)
	assert.Equal(t, PlanStatusCancelled, plan.Status)
	assert.Nil(t, plan.NextDueDate)

	_, err = plan.Cancel("again", testActor, date(2024, 1, 6))
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestPaymentPlan_UpdateTerms(t *testing.T) {
	plan := newTestPlan(t, 3_000_000, 3, date(2024, 1, 1))
	plan.Sweep(date(2024, time.February, 18), testActor)

	assert.ErrorIs(t, plan.UpdateTerms(PlanTermsUpdate{}), shared.ErrValidation)
	neg := -1
	assert.ErrorIs(t, plan.UpdateTerms(PlanTermsUpdate{GracePeriodDays: &neg}), shared.ErrValidation)

	rate := decimal.NewFromInt(10)
	grace := 0
	require.NoError(t, plan.UpdateTerms(PlanTermsUpdate{LateFeeRate: &rate, GracePeriodDays: &grace}))
	assert.Equal(t, 0, plan.GracePeriodDays)

	plan.Sweep(date(2024, time.March, 2), testActor)
	assert.Equal(t, "50000.00", plan.Installment(1).LateFee.StringFixed(2), "accrued fee is kept")
	assert.Equal(t, "100000.00", plan.Installment(2).LateFee.StringFixed(2))
}
