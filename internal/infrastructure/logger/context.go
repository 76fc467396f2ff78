package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey int

const (
	loggerKey contextKey = iota
	requestIDKey
	actorIDKey
	idempotencyKeyKey
)

// WithContext attaches log to ctx
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the attached logger, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(loggerKey).(*zap.Logger); ok && log != nil {
		return log
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithActorID stores the authenticated actor recorded on audit entries
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// WithIdempotencyKey stores the client-supplied idempotency key of a write
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyKey, key)
}

// RequestID returns the stored request ID or ""
func RequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// ActorID returns the stored actor ID or ""
func ActorID(ctx context.Context) string {
	return stringValue(ctx, actorIDKey)
}

// IdempotencyKey returns the stored idempotency key or ""
func IdempotencyKey(ctx context.Context) string {
	return stringValue(ctx, idempotencyKeyKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// Fields returns the request-scoped fields present in ctx, including the
// active span's trace and span IDs.
func Fields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields := make([]zap.Field, 0, 5)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if v := RequestID(ctx); v != "" {
		fields = append(fields, zap.String("request_id", v))
	}
	if v := ActorID(ctx); v != "" {
		fields = append(fields, zap.String("actor_id", v))
	}
	if v := IdempotencyKey(ctx); v != "" {
		fields = append(fields, zap.String("idempotency_key", v))
	}
	return fields
}

// L returns the context's logger enriched with Fields(ctx).
// Usage: logger.L(ctx).Info("Payment applied", zap.String("plan_id", id))
func L(ctx context.Context) *zap.Logger {
	return FromContext(ctx).With(Fields(ctx)...)
}

// For enriches base with Fields(ctx). A nil base yields a no-op logger.
func For(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.With(Fields(ctx)...)
}
