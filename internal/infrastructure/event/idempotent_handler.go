package event

import (
	"context"
	"sync/atomic"

	"github.com/invest/ledger/internal/domain/shared"
	"go.uber.org/zap"
)

// EventKeyPrefix namespaces event IDs in the shared idempotency store so
// they cannot collide with payment references
const EventKeyPrefix = "ledger:event:"

// IdempotencyMetrics counts deliveries seen by IdempotentHandler
type IdempotencyMetrics struct {
	EventsProcessed atomic.Int64
	EventsDuplicate atomic.Int64
	EventsFailed    atomic.Int64
}

// IdempotencyStats is a snapshot of IdempotencyMetrics
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// Stats returns a snapshot of the counters
func (m *IdempotencyMetrics) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: m.EventsProcessed.Load(),
		EventsDuplicate: m.EventsDuplicate.Load(),
		EventsFailed:    m.EventsFailed.Load(),
	}
}

// IdempotentHandler delivers each event ID to the wrapped handler at most
// once per TTL. Store errors are treated as a miss and the event is handled.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	name    string
	config  shared.IdempotencyConfig
	logger  *zap.Logger
	metrics *IdempotencyMetrics
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig sets the TTL and the enabled switch
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithHandlerName scopes keys to one handler, so several handlers sharing a
// store each see every event once
func WithHandlerName(name string) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.name = name
	}
}

// WithIdempotencyMetrics shares a counter set between handlers
func WithIdempotencyMetrics(metrics *IdempotencyMetrics) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.metrics = metrics
	}
}

// NewIdempotentHandler wraps handler
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
		metrics: &IdempotencyMetrics{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes returns the wrapped handler's event types
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle delivers event unless its ID was already marked
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled || h.store == nil {
		return h.handler.Handle(ctx, event)
	}

	eventID := event.EventID().String()
	fresh, err := h.store.MarkProcessed(ctx, h.key(eventID), h.config.TTL)
	switch {
	case err != nil:
		h.logger.Warn("idempotency check failed, handling event anyway",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	case !fresh:
		h.metrics.EventsDuplicate.Add(1)
		h.logger.Debug("duplicate event skipped",
			zap.String("event_id", eventID),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	// The key stays marked on failure; redelivery waits for the TTL.
	if err := h.handler.Handle(ctx, event); err != nil {
		h.metrics.EventsFailed.Add(1)
		return err
	}
	h.metrics.EventsProcessed.Add(1)
	return nil
}

func (h *IdempotentHandler) key(eventID string) string {
	if h.name == "" {
		return EventKeyPrefix + eventID
	}
	return EventKeyPrefix + h.name + ":" + eventID
}

// Metrics returns the handler's counters
func (h *IdempotentHandler) Metrics() *IdempotencyMetrics {
	return h.metrics
}

// Unwrap returns the wrapped handler
func (h *IdempotentHandler) Unwrap() shared.EventHandler {
	return h.handler
}

// Ensure IdempotentHandler implements EventHandler
var _ shared.EventHandler = (*IdempotentHandler)(nil)
