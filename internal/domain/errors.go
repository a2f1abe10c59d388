package domain

import (
	"errors"
	"fmt"
)

// ErrProjectHasDonations is returned when deleting a project that still owns donations.
var ErrProjectHasDonations = errors.New("project still has donations")

// ValidationError reports bad input. It is always returned before any mutation.
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

// NewValidationError builds a ValidationError for a field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports a referenced project or donation that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// GatewayError wraps a failed or non-successful payment gateway call.
// The caller may retry; the service never does.
type GatewayError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("payment gateway %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("payment gateway %s failed", e.Op)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// InconsistentStateError reports stored state that makes an operation impossible,
// e.g. a status check on a donation without a gateway charge.
type InconsistentStateError struct {
	Message string
}

func (e *InconsistentStateError) Error() string {
	return e.Message
}
