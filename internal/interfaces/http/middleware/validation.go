package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/invest/ledger/internal/infrastructure/logger"
	"github.com/invest/ledger/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

var setupOnce sync.Once

// SetupValidator registers JSON field naming, decimal support and the
// amount validators on gin's validator engine. Safe to call repeatedly.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		// Decimals are validated on their string form
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.String()
			}
			return nil
		}, decimal.Decimal{})
		_ = v.RegisterValidation("decimal_positive", decimalCheck(func(d decimal.Decimal) bool { return d.IsPositive() }))
		_ = v.RegisterValidation("decimal_nonnegative", decimalCheck(func(d decimal.Decimal) bool { return !d.IsNegative() }))
	})
}

func decimalCheck(ok func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		d, err := decimal.NewFromString(field.String())
		if err != nil {
			return false
		}
		return ok(d)
	}
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	)
}

// HandleValidationError returns a validation error response. Bodies that
// fail to decode get INVALID_JSON instead.
func HandleValidationError(c *gin.Context, err error) {
	requestID := logger.RequestID(c.Request.Context())

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		c.AbortWithStatusJSON(http.StatusBadRequest,
			dto.NewErrorResponse(dto.ErrCodeInvalidJSON, "Malformed request body", requestID))
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
}

// getValidationMessage returns a human-readable validation message
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "uuid":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "datetime":
		return "Must be a date in " + e.Param() + " format"
	case "decimal_positive":
		return "Must be a positive amount"
	case "decimal_nonnegative":
		return "Must not be negative"
	default:
		return "Invalid value"
	}
}
