package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/invest/ledger/internal/infrastructure/telemetry"
)

// Profiling attaches route and method pprof labels to the request so
// Pyroscope can slice CPU profiles per endpoint. Unmatched routes are left
// unlabelled.
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}
		labels := map[string]string{
			telemetry.ProfilingLabelRoute:  route,
			telemetry.ProfilingLabelMethod: c.Request.Method,
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
