package middleware

import (
	"net/http"
	"reflect"
	"strings"

	inventoryapp "github.com/erp/stockledger/internal/application/inventory"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// RequestIDKey is the header and gin context key for the request ID
const RequestIDKey = "X-Request-ID"

// SetupValidator registers the custom validation tags and reports field
// names by their JSON (or form) tag. Safe to call more than once.
func SetupValidator() {
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
	_ = v.RegisterValidation("adjust_mode", validateAdjustMode)
	_ = v.RegisterValidation("uuid_or_empty", validateUUIDOrEmpty)
}

func validateAdjustMode(fl validator.FieldLevel) bool {
	switch f := fl.Field(); f.Kind() {
	case reflect.String:
		return inventoryapp.AdjustMode(f.String()).IsValid()
	default:
		return false
	}
}

func validateUUIDOrEmpty(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError returns a validation error response
func HandleValidationError(c *gin.Context, err error) {
	requestID := c.GetString(RequestIDKey)
	if requestID == "" {
		requestID = c.GetHeader(RequestIDKey)
	}
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, requestID))
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		if e.Type().Kind() == reflect.Slice {
			return "Must contain at least " + e.Param() + " items"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		if e.Type().Kind() == reflect.Slice {
			return "Must contain at most " + e.Param() + " items"
		}
		return "Must be at most " + e.Param()
	case "uuid", "uuid_or_empty":
		return "Invalid UUID format"
	case "oneof":
		return "Must be one of: " + e.Param()
	case "adjust_mode":
		return "Must be one of: add subtract set"
	case "gtefield":
		return "Must be greater than or equal to " + e.Param()
	default:
		return "Invalid value"
	}
}
