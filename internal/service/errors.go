package service

import (
	"errors"
	"fmt"
)

// Service errors. Handlers map these to HTTP responses; nothing from the
// repository or directory packages reaches a handler unmapped.
var (
	ErrValidation               = errors.New("validation failed")
	ErrDuplicateEmail           = errors.New("email already registered")
	ErrExternalIdentityConflict = errors.New("directory person already linked to another user")
	ErrExternalIdentity         = errors.New("could not resolve directory identity")
	ErrHashing                  = errors.New("failed to hash password")
	ErrStorage                  = errors.New("storage failure")
	ErrSessionIssue             = errors.New("failed to issue session")

	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrForbidden          = errors.New("not allowed to modify this resource")
	ErrNotFound           = errors.New("resource not found")
	ErrConflict           = errors.New("resource already exists")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Field + " is required"
}

// Is makes errors.Is(err, ErrValidation) hold for every ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func required(field string) error {
	return &ValidationError{Field: field}
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// storageError wraps an unexpected repository error.
func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
