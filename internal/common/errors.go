// Package common defines shared constants and sentinel errors used across
// client and server layers of CodeX Notes. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any remote call.
	ErrValidation = errors.New("validation error")

	// ErrTransport marks network failures and non-OK remote responses.
	ErrTransport = errors.New("transport error")

	// ErrUnauthorized marks an expired, invalid or missing auth token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden marks an authenticated caller touching data it has no
	// access to.
	ErrForbidden = errors.New("forbidden")

	// ErrStorage marks local persistence failures. Never swallowed.
	ErrStorage = errors.New("storage error")

	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	ErrCancelled           = errors.New("cancelled")
	ErrRootFolderImmutable = errors.New("root folder cannot be renamed or removed")
	ErrLogoutAborted       = errors.New("logout aborted")
	ErrMalformedSnapshot   = errors.New("malformed sync snapshot")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ValidationError carries the offending field and a message that can be shown
// to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) true for every *ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError is a shorthand for &ValidationError{...}.
func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// StorageErr wraps err so that it matches ErrStorage while keeping the cause.
func StorageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
