package domain

import (
	"errors"
	"slices"
	"time"
)

// Common validation errors
var (
	ErrEmptyUserID        = errors.New("user ID cannot be empty")
	ErrEmptyCallerContext = errors.New("caller context cannot be empty")
)

// User is the identity a caller context resolves an authenticated subject to.
// The same subject may map to different roles in different caller contexts
// (e.g. the recipes service versus the client-management service).
type User struct {
	ID            string         `json:"id"`
	CallerContext string         `json:"caller_context"`
	Roles         []string       `json:"roles"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Validate checks if the User has valid data.
// Returns an error if any field fails validation.
func (u *User) Validate() error {
	if u.ID == "" {
		return ErrEmptyUserID
	}
	if u.CallerContext == "" {
		return ErrEmptyCallerContext
	}
	return nil
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Roles, role)
}
