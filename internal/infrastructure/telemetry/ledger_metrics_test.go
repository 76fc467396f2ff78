package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/invest/ledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestLedgerMetrics(t *testing.T) (*telemetry.LedgerMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProviderWithReader(reader)
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := telemetry.NewLedgerMetrics(mp.Meter(telemetry.LedgerMeterName))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func intSum(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func floatSum(t *testing.T, data metricdata.Aggregation) float64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[float64])
	require.True(t, ok, "expected float64 sum, got %T", data)
	var total float64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewLedgerMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Nil(t, m)
}

func TestLedgerMetrics_RecordInvestment(t *testing.T) {
	m, reader := newTestLedgerMetrics(t)
	ctx := context.Background()

	m.RecordInvestment(ctx, telemetry.TransitionCreated, "LUMP_SUM", decimal.NewFromInt(1_000_000))
	m.RecordInvestment(ctx, telemetry.TransitionConfirmed, "LUMP_SUM", decimal.NewFromInt(1_000_000))
	m.RecordInvestment(ctx, telemetry.TransitionConfirmed, "INSTALLMENT", decimal.RequireFromString("250000.50"))

	data := collect(t, reader)
	assert.Equal(t, int64(3), intSum(t, data["ledger_investment_transitions_total"]))
	// only confirmations fold into the principal total
	assert.InDelta(t, 1_250_000.50, floatSum(t, data["ledger_confirmed_amount_total"]), 0.001)
}

func TestLedgerMetrics_RecordPayment(t *testing.T) {
	m, reader := newTestLedgerMetrics(t)
	ctx := context.Background()

	m.RecordPayment(ctx, "BANK_TRANSFER", decimal.NewFromInt(300_000), decimal.Zero)
	m.RecordPayment(ctx, "BANK_TRANSFER", decimal.NewFromInt(200_000), decimal.NewFromInt(50_000))
	m.RecordPaymentReplay(ctx)

	data := collect(t, reader)
	assert.Equal(t, int64(3), intSum(t, data["ledger_payments_total"]))
	assert.InDelta(t, 500_000.0, floatSum(t, data["ledger_payment_applied_amount_total"]), 0.001)
	assert.InDelta(t, 50_000.0, floatSum(t, data["ledger_payment_unapplied_amount_total"]), 0.001)
}

func TestLedgerMetrics_RecordOverdueAndCompletion(t *testing.T) {
	m, reader := newTestLedgerMetrics(t)
	ctx := context.Background()

	m.RecordOverdue(ctx, decimal.NewFromInt(15_000))
	m.RecordOverdue(ctx, decimal.Zero)
	m.RecordPlanCompleted(ctx)
	m.RecordConflictRetry(ctx, "apply_payment")

	data := collect(t, reader)
	assert.Equal(t, int64(2), intSum(t, data["ledger_installments_overdue_total"]))
	assert.InDelta(t, 15_000.0, floatSum(t, data["ledger_late_fees_accrued_total"]), 0.001)
	assert.Equal(t, int64(1), intSum(t, data["ledger_plans_completed_total"]))
	assert.Equal(t, int64(1), intSum(t, data["ledger_conflict_retries_total"]))
}

func TestLedgerMetrics_RecordSweep(t *testing.T) {
	m, reader := newTestLedgerMetrics(t)
	ctx := context.Background()

	m.RecordSweep(ctx, 2*time.Second, 0)
	m.RecordSweep(ctx, 3*time.Second, 4)

	data := collect(t, reader)
	assert.Equal(t, int64(2), intSum(t, data["ledger_sweep_runs_total"]))
	assert.Equal(t, int64(4), intSum(t, data["ledger_sweep_plan_failures_total"]))

	hist, ok := data["ledger_sweep_duration_seconds"].(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	var sum float64
	for _, dp := range hist.DataPoints {
		count += dp.Count
		sum += dp.Sum
	}
	assert.Equal(t, uint64(2), count)
	assert.InDelta(t, 5.0, sum, 0.001)
}
