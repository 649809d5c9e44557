package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds shared by every handler behind the middleware chain.
// Handlers wrap one of these so the exception handler can classify the
// failure without inspecting concrete types.
var (
	// ErrValidation is returned when input fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidType is returned when a value has the wrong shape or type.
	ErrInvalidType = errors.New("invalid type")

	// ErrNotFound is returned when a requested entity or key does not exist.
	ErrNotFound = errors.New("not found")

	// ErrPermission is returned when an operation is not permitted.
	ErrPermission = errors.New("permission denied")

	// ErrConflict is returned when an operation conflicts with current state.
	ErrConflict = errors.New("conflict")

	// ErrBusinessRule is returned when a request is well formed but violates
	// a business rule (e.g. scheduling a meal in the past).
	ErrBusinessRule = errors.New("business rule violated")

	// ErrTimeout is returned when a downstream call did not finish in time.
	ErrTimeout = errors.New("operation timed out")

	// ErrUnavailable is returned when a downstream dependency cannot be reached.
	ErrUnavailable = errors.New("dependency unavailable")
)

// FieldError describes a single invalid field.
type FieldError struct {
	Field   string         `json:"field"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// ValidationError carries structured, per-field validation failures.
// It matches ErrValidation under errors.Is.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

// NewValidationError creates a ValidationError with the given fields.
func NewValidationError(message string, fields ...FieldError) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field)
	}
	return fmt.Sprintf("%s: invalid fields %s", e.Message, strings.Join(names, ", "))
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
