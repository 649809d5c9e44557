package middleware

import (
	"errors"
	"fmt"
)

// Configuration errors raised when a strategy cannot find what it needs on the
// request. These are programming errors in the adapter, not client errors.
var (
	ErrMissingEvent           = errors.New("request event is missing")
	ErrMissingPlatformContext = errors.New("platform context is missing")
	ErrInvalidStatusCode      = errors.New("error status code must be between 400 and 599")
)

// AuthenticationError is returned when a request carries no valid identity.
type AuthenticationError struct {
	Message string
	Err     error
}

// NewAuthenticationError creates an AuthenticationError.
func NewAuthenticationError(message string) *AuthenticationError {
	return &AuthenticationError{Message: message}
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// PublicMessage returns the text safe to show the caller.
func (e *AuthenticationError) PublicMessage() string { return e.Message }

// AuthorizationError is returned when an authenticated caller lacks a role
// required by the policy.
type AuthorizationError struct {
	Message string
	Err     error
}

// NewAuthorizationError creates an AuthorizationError.
func NewAuthorizationError(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}

func (e *AuthorizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// PublicMessage returns the text safe to show the caller.
func (e *AuthorizationError) PublicMessage() string { return e.Message }

// PanicError carries a recovered panic value and the stack at recovery.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
