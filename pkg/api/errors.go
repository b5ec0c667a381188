package api

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound is returned by OrderDirectory implementations for
	// an unknown claim ID. The workflow treats it as a degraded lookup,
	// not a failure.
	ErrOrderNotFound = errors.New("order not found")

	// ErrSessionNotFound is returned when no checkpoint exists for the
	// given thread ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidResumeState is returned when Resume is called on a
	// finished session, or when a patch is applied while the session is
	// not paused at the human review gate.
	ErrInvalidResumeState = errors.New("session is not in a resumable state")

	// ErrConcurrentAccess is returned when a second Run/Resume/ApplyPatch
	// call arrives for a thread that already has a call in flight. The
	// caller should retry once the in-flight call returns.
	ErrConcurrentAccess = errors.New("another call is in flight for this thread")

	// ErrInvalidTransition is returned when a patch would move the
	// refund status backwards in its lifecycle.
	ErrInvalidTransition = errors.New("invalid refund status transition")
)

// ValidationError reports invalid claim input, rejected before any
// session is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid claim: %s %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// InfrastructureError wraps a failure of a delegated capability or the
// checkpoint store. It is fatal for the current Run/Resume call; the
// session is left at its last successfully persisted checkpoint.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// NewInfrastructureError wraps err with the failing operation name.
func NewInfrastructureError(op string, err error) error {
	return &InfrastructureError{Op: op, Err: err}
}

// IsInfrastructureError reports whether err is an InfrastructureError.
func IsInfrastructureError(err error) bool {
	var i *InfrastructureError
	return errors.As(err, &i)
}
