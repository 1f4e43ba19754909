package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// RetryAfter is the hint sent with busy responses.
var RetryAfter = time.Second

// ErrorResponse represents error response structure
type ErrorResponse struct {
	Error     string            `json:"error"`             // Error message
	Code      string            `json:"code,omitempty"`    // Machine-readable error code
	Retryable bool              `json:"retryable"`         // Whether the same request may succeed later
	Details   map[string]string `json:"details,omitempty"` // Validation details
}

// ValidationHelper provides shared validation functionality
type ValidationHelper struct {
	validator *validator.Validate
}

// NewValidationHelper creates a new validation helper
func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse sends a JSON error response
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	errorResp := ErrorResponse{Error: message}
	if statusCode == http.StatusBadRequest {
		errorResp.Code = "validation_failed"
	}

	var fieldErrs validator.ValidationErrors
	if validationErr != nil && errors.As(validationErr, &fieldErrs) {
		errorResp.Details = make(map[string]string)
		for _, err := range fieldErrs {
			errorResp.Details[err.Field()] = fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
		}
	}

	writeError(w, statusCode, errorResp)
}

// SendEngineError maps an engine error onto its HTTP status and code.
func SendEngineError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	errorResp := ErrorResponse{
		Error:     err.Error(),
		Code:      ErrorCode(err),
		Retryable: IsRetryable(err),
	}
	if status == http.StatusInternalServerError {
		// store internals stay in the logs
		errorResp.Error = "internal error, please retry"
	}
	if errors.Is(err, ErrBusy) {
		w.Header().Set("Retry-After", strconv.Itoa(int(RetryAfter.Seconds())))
	}
	writeError(w, status, errorResp)
}

func writeError(w http.ResponseWriter, statusCode int, errorResp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResp)
}
