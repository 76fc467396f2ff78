package dto

import (
	"net/http"

	"github.com/invest/ledger/internal/domain/shared"
)

// Error codes returned in the error envelope. Domain codes are passed
// through unchanged; the rest originate in the HTTP layer.
const (
	ErrCodeValidation          = shared.CodeValidation
	ErrCodeInvalidState        = shared.CodeInvalidState
	ErrCodeNoOutstanding       = shared.CodeNoOutstanding
	ErrCodeConcurrencyConflict = shared.CodeConcurrencyConflict
	ErrCodeNotFound            = shared.CodeNotFound
	ErrCodeAlreadyExists       = shared.CodeAlreadyExists
	ErrCodeUnauthorized        = shared.CodeUnauthorized
	ErrCodeForbidden           = shared.CodeForbidden

	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "INVALID_TOKEN"
	ErrCodeTokenRevoked    = "TOKEN_REVOKED"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeInvalidState:        http.StatusConflict,
	ErrCodeNoOutstanding:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeForbidden:           http.StatusForbidden,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeTokenExpired:    http.StatusUnauthorized,
	ErrCodeTokenInvalid:    http.StatusUnauthorized,
	ErrCodeTokenRevoked:    http.StatusUnauthorized,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,
	ErrCodeInternal:        http.StatusInternalServerError,
}

// GetHTTPStatus returns the status for code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
