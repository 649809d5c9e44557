package middleware

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"os"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/recipe-api/internal/domain"
)

// ErrorType is the classification of a failure.
type ErrorType string

// Error taxonomy.
const (
	ErrorTypeValidation     ErrorType = "validation_error"
	ErrorTypeAuthentication ErrorType = "authentication_error"
	ErrorTypeAuthorization  ErrorType = "authorization_error"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeBusinessRule   ErrorType = "business_rule_error"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypeInternal       ErrorType = "internal_error"
)

var statusCodes = map[ErrorType]int{
	ErrorTypeValidation:     http.StatusUnprocessableEntity,
	ErrorTypeAuthentication: http.StatusUnauthorized,
	ErrorTypeAuthorization:  http.StatusForbidden,
	ErrorTypeNotFound:       http.StatusNotFound,
	ErrorTypeConflict:       http.StatusConflict,
	ErrorTypeBusinessRule:   http.StatusBadRequest,
	ErrorTypeTimeout:        http.StatusRequestTimeout,
	ErrorTypeInternal:       http.StatusInternalServerError,
}

var defaultMessages = map[ErrorType]string{
	ErrorTypeValidation:     "Validation failed",
	ErrorTypeAuthentication: "Authentication required",
	ErrorTypeAuthorization:  "Insufficient permissions",
	ErrorTypeNotFound:       "Resource not found",
	ErrorTypeConflict:       "Resource conflict",
	ErrorTypeBusinessRule:   "Business rule violation",
	ErrorTypeTimeout:        "Request timeout",
	ErrorTypeInternal:       "Internal server error",
}

// StatusCode returns the HTTP status for t.
func (t ErrorType) StatusCode() int {
	if code, ok := statusCodes[t]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// DefaultMessage returns the generic caller-facing message for t.
func (t ErrorType) DefaultMessage() string {
	if msg, ok := defaultMessages[t]; ok {
		return msg
	}
	return defaultMessages[ErrorTypeInternal]
}

// Classify maps err to an ErrorType. The first matching rule wins:
//
//	*AuthenticationError                              authentication (401)
//	*AuthorizationError, ErrPermission, fs.ErrPermission  authorization (403)
//	*domain.ValidationError, validator.ValidationErrors,
//	ErrValidation, ErrInvalidType                     validation (422)
//	ErrNotFound, fs.ErrNotExist                       not found (404)
//	ErrConflict                                       conflict (409)
//	ErrBusinessRule                                   business rule (400)
//	deadlines, timeouts, refused or reset connections timeout (408)
//	anything else                                     internal (500)
func Classify(err error) ErrorType {
	if err == nil {
		return ErrorTypeInternal
	}

	var authn *AuthenticationError
	var authz *AuthorizationError
	switch {
	case errors.As(err, &authn):
		return ErrorTypeAuthentication
	case errors.As(err, &authz),
		errors.Is(err, domain.ErrPermission),
		errors.Is(err, fs.ErrPermission):
		return ErrorTypeAuthorization
	case isValidation(err):
		return ErrorTypeValidation
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return ErrorTypeNotFound
	case errors.Is(err, domain.ErrConflict):
		return ErrorTypeConflict
	case errors.Is(err, domain.ErrBusinessRule):
		return ErrorTypeBusinessRule
	case isTimeout(err):
		return ErrorTypeTimeout
	default:
		return ErrorTypeInternal
	}
}

func isValidation(err error) bool {
	return hasStructuredValidation(err) ||
		errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrInvalidType)
}

func hasStructuredValidation(err error) bool {
	var ve *domain.ValidationError
	var fields validator.ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &fields)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, domain.ErrTimeout) ||
		errors.Is(err, domain.ErrUnavailable) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
