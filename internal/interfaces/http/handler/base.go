// Package handler adapts HTTP requests to the ledger application services.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/invest/ledger/internal/domain/shared"
	"github.com/invest/ledger/internal/infrastructure/logger"
	"github.com/invest/ledger/internal/interfaces/http/dto"
	"github.com/invest/ledger/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct {
	logger *zap.Logger
}

func newBaseHandler(log *zap.Logger) BaseHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return BaseHandler{logger: log}
}

func requestID(c *gin.Context) string {
	return logger.RequestID(c.Request.Context())
}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a 200 response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error envelope, deriving the status from code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, requestID(c)))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// HandleError maps err to the error envelope. Domain errors keep their code;
// anything else is logged and hidden behind INTERNAL_ERROR.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	log := logger.For(c.Request.Context(), h.logger).With(zap.String("route", c.FullPath()))
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		log.Error("Request failed", zap.Error(err))
		h.Error(c, dto.ErrCodeInternal, "An internal error occurred")
		return
	}

	switch domainErr.Code {
	case shared.CodeNoOutstanding:
		// Money arrived for a plan with nothing left to apply it to
		log.Warn("Payment received with no outstanding installment", zap.String("message", domainErr.Message))
	case shared.CodeConcurrencyConflict:
		log.Warn("Concurrency conflict persisted after retries", zap.String("message", domainErr.Message))
	}
	h.Error(c, domainErr.Code, domainErr.Message)
}

// bindJSON decodes the body into req; on failure the response is written
// and false returned
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// bindQuery decodes the query string into req
func (h *BaseHandler) bindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// pathUUID parses a UUID path parameter
func (h *BaseHandler) pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewValidationErrorResponse(
			"Invalid path parameter", requestID(c),
			[]dto.ValidationDetail{{Field: name, Message: "Invalid UUID format"}},
		))
		return uuid.Nil, false
	}
	return id, true
}

// parseDate reads a validated YYYY-MM-DD value as UTC midnight. Empty
// yields the zero time.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(dto.DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// dateRange turns an inclusive day range into instants; to covers the
// whole day
func dateRange(q dto.DateRangeQuery) (from, to *time.Time) {
	if f := parseDate(q.From); !f.IsZero() {
		from = &f
	}
	if t := parseDate(q.To); !t.IsZero() {
		end := t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		to = &end
	}
	return from, to
}

func optionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
