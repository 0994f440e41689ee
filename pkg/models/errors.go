package models

import "fmt"

// ValidationError reports malformed or missing input. Persistence failures are
// also wrapped in this type at the model boundary so callers see a single error
// vocabulary regardless of where a write failed.
type ValidationError struct {
	Message string
	Cause   error
}

func NewValidationError(message string, cause error) *ValidationError {
	return &ValidationError{Message: message, Cause: cause}
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// NotFoundError reports that a referenced Order or Item id does not exist.
type NotFoundError struct {
	Resource string
	ID       int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%d' was not found", e.Resource, e.ID)
}

// ConflictError reports an illegal lifecycle transition.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
