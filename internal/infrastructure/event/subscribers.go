package event

import (
	"context"

	"github.com/invest/ledger/internal/domain/ledger"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/invest/ledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerRecorder receives business measurements derived from ledger events
type LedgerRecorder interface {
	RecordInvestment(ctx context.Context, transition, paymentType string, amount decimal.Decimal)
	RecordPayment(ctx context.Context, method string, applied, unapplied decimal.Decimal)
	RecordOverdue(ctx context.Context, lateFee decimal.Decimal)
	RecordPlanCompleted(ctx context.Context)
}

var _ LedgerRecorder = (*telemetry.LedgerMetrics)(nil)

// MetricsSubscriber turns ledger events into LedgerRecorder measurements
type MetricsSubscriber struct {
	recorder LedgerRecorder
}

// NewMetricsSubscriber creates a new MetricsSubscriber
func NewMetricsSubscriber(recorder LedgerRecorder) *MetricsSubscriber {
	return &MetricsSubscriber{recorder: recorder}
}

// EventTypes implements shared.EventHandler
func (s *MetricsSubscriber) EventTypes() []string {
	return []string{
		ledger.EventTypeInvestmentCreated,
		ledger.EventTypeInvestmentConfirmed,
		ledger.EventTypeInvestmentCancelled,
		ledger.EventTypeInvestmentCompleted,
		ledger.EventTypePaymentApplied,
		ledger.EventTypeInstallmentOverdue,
		ledger.EventTypePlanCompleted,
	}
}

// Handle implements shared.EventHandler. Unknown events are ignored.
func (s *MetricsSubscriber) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *ledger.InvestmentCreatedEvent:
		s.recorder.RecordInvestment(ctx, telemetry.TransitionCreated, string(e.PaymentType), e.Amount)
	case *ledger.InvestmentConfirmedEvent:
		s.recorder.RecordInvestment(ctx, telemetry.TransitionConfirmed, string(e.PaymentType), e.Amount)
	case *ledger.InvestmentCancelledEvent:
		s.recorder.RecordInvestment(ctx, telemetry.TransitionCancelled, "", e.Amount)
	case *ledger.InvestmentCompletedEvent:
		s.recorder.RecordInvestment(ctx, telemetry.TransitionCompleted, "", e.Amount)
	case *ledger.PaymentAppliedEvent:
		s.recorder.RecordPayment(ctx, e.Method, e.AppliedAmount, e.UnappliedAmount)
	case *ledger.InstallmentOverdueEvent:
		s.recorder.RecordOverdue(ctx, e.LateFee)
	case *ledger.PaymentPlanCompletedEvent:
		s.recorder.RecordPlanCompleted(ctx)
	}
	return nil
}

// LoggingSubscriber writes one structured line per ledger event
type LoggingSubscriber struct {
	logger *zap.Logger
}

// NewLoggingSubscriber creates a new LoggingSubscriber
func NewLoggingSubscriber(logger *zap.Logger) *LoggingSubscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingSubscriber{logger: logger.Named("ledger_events")}
}

// EventTypes implements shared.EventHandler; it receives every event
func (s *LoggingSubscriber) EventTypes() []string {
	return nil
}

// Handle implements shared.EventHandler
func (s *LoggingSubscriber) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.String("actor_id", event.ActorID()),
	}
	if traceID := telemetry.GetTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}

	switch e := event.(type) {
	case *ledger.PaymentAppliedEvent:
		fields = append(fields,
			zap.String("reference", e.Reference),
			zap.String("applied_amount", e.AppliedAmount.String()),
			zap.String("unapplied_amount", e.UnappliedAmount.String()),
			zap.Ints("installments", e.Installments),
			zap.String("remaining_balance", e.RemainingBalance.String()),
		)
	case *ledger.InstallmentOverdueEvent:
		s.logger.Warn("Installment overdue", append(fields,
			zap.Int("installment_number", e.InstallmentNumber),
			zap.Int("days_overdue", e.DaysOverdue),
			zap.String("late_fee", e.LateFee.String()),
		)...)
		return nil
	case *ledger.InvestmentCancelledEvent:
		fields = append(fields,
			zap.String("funding_delta", e.FundingDelta.String()),
			zap.String("reason", e.Reason),
		)
	case *ledger.InstallmentWaivedEvent:
		fields = append(fields,
			zap.Int("installment_number", e.InstallmentNumber),
			zap.String("waived_amount", e.WaivedAmount.String()),
		)
	case *ledger.PaymentPlanCompletedEvent:
		fields = append(fields,
			zap.String("total_paid", e.TotalPaid.String()),
			zap.String("late_fees_paid", e.LateFeesPaid.String()),
			zap.String("late_fees_waived", e.LateFeesWaived.String()),
		)
	}
	s.logger.Info("Ledger event", fields...)
	return nil
}

// RegisterLedgerSubscribers subscribes the logging subscriber and, when
// recorder is non-nil, the metrics subscriber. With a store, both are wrapped
// so redelivered events are handled once.
func RegisterLedgerSubscribers(
	bus shared.EventSubscriber,
	recorder LedgerRecorder,
	store shared.IdempotencyStore,
	logger *zap.Logger,
) {
	handlers := map[string]shared.EventHandler{"logging": NewLoggingSubscriber(logger)}
	if recorder != nil {
		handlers["metrics"] = NewMetricsSubscriber(recorder)
	}
	counters := &IdempotencyMetrics{}
	for _, name := range []string{"logging", "metrics"} {
		h, ok := handlers[name]
		if !ok {
			continue
		}
		if store != nil {
			h = NewIdempotentHandler(h, store, logger,
				WithHandlerName(name),
				WithIdempotencyMetrics(counters),
			)
		}
		bus.Subscribe(h)
	}
}
