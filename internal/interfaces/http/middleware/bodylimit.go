package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/invest/ledger/internal/infrastructure/logger"
	"github.com/invest/ledger/internal/interfaces/http/dto"
)

// BodyLimit rejects declared bodies above maxBytes and caps streamed ones.
// A non-positive limit disables the check.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(
				dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size",
				logger.RequestID(c.Request.Context()),
			))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
