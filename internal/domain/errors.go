package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrIllegalTransition      = errors.New("illegal transition of order status")
	ErrNotFound               = errors.New("not found")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrPermissionDenied       = errors.New("permission denied")
)

// ValidationError reports the first checkout field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// IllegalTransitionError is returned when the state machine rejects a status change.
// The order is left unchanged.
type IllegalTransitionError struct {
	From   OrderStatus
	To     OrderStatus
	Reason string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %q to %q: %s", e.From, e.To, e.Reason)
}

func (e *IllegalTransitionError) Unwrap() error {
	return ErrIllegalTransition
}
