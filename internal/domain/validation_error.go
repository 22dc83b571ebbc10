package domain

import "fmt"

// ValidationError describes a single field that failed validation. It wraps
// one of the sentinel errors above so callers can classify it with errors.Is
// while keeping the field and reason for the client-facing message.
type ValidationError struct {
	// Field is the name of the offending field or parameter.
	Field string

	// Message describes what is wrong with the field.
	Message string

	// Err is the underlying sentinel (ErrValidation, ErrInvalidID, ...).
	Err error
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string, err error) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Field, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped sentinel for errors.Is / errors.As checks.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
