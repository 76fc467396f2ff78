package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMeterName names the meter for ledger instruments
const LedgerMeterName = "investment-ledger/ledger"

// Investment lifecycle transitions recorded by RecordInvestment
const (
	TransitionCreated   = "created"
	TransitionConfirmed = "confirmed"
	TransitionCancelled = "cancelled"
	TransitionCompleted = "completed"
)

// LedgerMetrics holds the ledger's business instruments. Money is exported
// as float64 major units; the ledger itself never computes with floats.
type LedgerMetrics struct {
	investments      *Counter
	investedAmount   *FloatCounter
	payments         *Counter
	paymentAmount    *FloatCounter
	unappliedAmount  *FloatCounter
	overdue          *Counter
	lateFees         *FloatCounter
	plansCompleted   *Counter
	conflictRetries  *Counter
	sweepRuns        *Counter
	sweepDuration    *Histogram
	sweepPlansFailed *Counter
}

// NewLedgerMetrics creates every ledger instrument on meter
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &LedgerMetrics{}
	counters := []struct {
		dst              **Counter
		name, desc, unit string
	}{
		{&m.investments, "ledger_investment_transitions_total", "Investment lifecycle transitions", "{investments}"},
		{&m.payments, "ledger_payments_total", "Payments received by outcome", "{payments}"},
		{&m.overdue, "ledger_installments_overdue_total", "Installments moved to overdue", "{installments}"},
		{&m.plansCompleted, "ledger_plans_completed_total", "Payment plans fully settled", "{plans}"},
		{&m.conflictRetries, "ledger_conflict_retries_total", "Units of work re-run after a concurrency conflict", "{retries}"},
		{&m.sweepRuns, "ledger_sweep_runs_total", "Batch overdue sweep runs", "{runs}"},
		{&m.sweepPlansFailed, "ledger_sweep_plan_failures_total", "Plans that failed during a batch sweep", "{plans}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	amounts := []struct {
		dst        **FloatCounter
		name, desc string
	}{
		{&m.investedAmount, "ledger_confirmed_amount_total", "Principal folded into project raised amounts"},
		{&m.paymentAmount, "ledger_payment_applied_amount_total", "Payment amount applied to installments"},
		{&m.unappliedAmount, "ledger_payment_unapplied_amount_total", "Payment amount held as unapplied credit"},
		{&m.lateFees, "ledger_late_fees_accrued_total", "Late fees accrued by overdue sweeps"},
	}
	for _, a := range amounts {
		counter, err := NewFloatCounter(meter, a.name, a.desc, "{currency}")
		if err != nil {
			return nil, err
		}
		*a.dst = counter
	}

	var err error
	m.sweepDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "ledger_sweep_duration_seconds",
		Description: "Batch overdue sweep duration",
		Unit:        "s",
		Boundaries:  SweepDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordInvestment counts a lifecycle transition. Confirmed amounts are also
// added to the confirmed principal total.
func (m *LedgerMetrics) RecordInvestment(ctx context.Context, transition, paymentType string, amount decimal.Decimal) {
	attrs := []attribute.KeyValue{AttrOutcome.String(transition), AttrPaymentType.String(paymentType)}
	m.investments.Inc(ctx, attrs...)
	if transition == TransitionConfirmed {
		m.investedAmount.Add(ctx, amount.InexactFloat64(), AttrPaymentType.String(paymentType))
	}
}

// RecordPayment counts an accepted payment and its split
func (m *LedgerMetrics) RecordPayment(ctx context.Context, method string, applied, unapplied decimal.Decimal) {
	m.payments.Inc(ctx, AttrPaymentMethod.String(method), AttrOutcome.String("applied"))
	m.paymentAmount.Add(ctx, applied.InexactFloat64(), AttrPaymentMethod.String(method))
	if unapplied.IsPositive() {
		m.unappliedAmount.Add(ctx, unapplied.InexactFloat64(), AttrPaymentMethod.String(method))
	}
}

// RecordPaymentReplay counts a payment whose reference was already processed
func (m *LedgerMetrics) RecordPaymentReplay(ctx context.Context) {
	m.payments.Inc(ctx, AttrOutcome.String("replay"))
}

// RecordOverdue counts one installment moved to overdue with its accrued fee
func (m *LedgerMetrics) RecordOverdue(ctx context.Context, lateFee decimal.Decimal) {
	m.overdue.Inc(ctx)
	if lateFee.IsPositive() {
		m.lateFees.Add(ctx, lateFee.InexactFloat64())
	}
}

// RecordPlanCompleted counts a settled plan
func (m *LedgerMetrics) RecordPlanCompleted(ctx context.Context) {
	m.plansCompleted.Inc(ctx)
}

// RecordConflictRetry counts a unit of work re-run after a conflict
func (m *LedgerMetrics) RecordConflictRetry(ctx context.Context, operation string) {
	m.conflictRetries.Inc(ctx, AttrOperation.String(operation))
}

// RecordSweep records one batch sweep run
func (m *LedgerMetrics) RecordSweep(ctx context.Context, duration time.Duration, failures int) {
	outcome := "ok"
	if failures > 0 {
		outcome = "partial"
		m.sweepPlansFailed.Add(ctx, int64(failures))
	}
	m.sweepRuns.Inc(ctx, AttrOutcome.String(outcome))
	m.sweepDuration.RecordDuration(ctx, duration, AttrOutcome.String(outcome))
}
