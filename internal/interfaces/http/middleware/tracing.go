// Package middleware provides the gin middleware chain of the ledger API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/invest/ledger/internal/infrastructure/logger"
	"github.com/invest/ledger/internal/infrastructure/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wraps otelgin. Span names follow "METHOD /route/:pattern".
// When disabled it is a pass-through.
func Tracing(serviceName string, enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(serviceName)
}

// SpanEnricher tags the request span with the request and actor IDs once
// authentication has run, and marks error responses. Place it after
// Authenticate.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		if id := logger.RequestID(ctx); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if actor := logger.ActorID(ctx); actor != "" {
			span.SetAttributes(attribute.String(telemetry.SpanAttrActorID, actor))
		}

		c.Next()

		status := c.Writer.Status()
		if status >= http.StatusBadRequest {
			span.SetAttributes(telemetry.AttrHTTPStatusCode.Int(status))
		}
		// 4xx are caller errors; only server failures mark the span
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
