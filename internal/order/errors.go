package order

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("order: validation failed")
	// ErrEmptyCart is returned when there is nothing to submit.
	ErrEmptyCart = errors.New("order: cart is empty")
	// ErrSubmission matches every SubmissionError.
	ErrSubmission = errors.New("order: submission failed")
)

// ValidationError names the first order field that failed validation.
type ValidationError struct {
	Field string
	Rule  string
}

func (e *ValidationError) Error() string {
	switch e.Rule {
	case "required", "required_if":
		return fmt.Sprintf("order: %s is required", e.Field)
	case "":
		return fmt.Sprintf("order: %s is invalid", e.Field)
	default:
		return fmt.Sprintf("order: %s is invalid (%s)", e.Field, e.Rule)
	}
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// SubmissionError is any failure reported by the order service, with the
// reason the service gave so it can be shown to the customer verbatim.
type SubmissionError struct {
	Reason string
	Status int
	Err    error
}

func (e *SubmissionError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("order: submission rejected (%d): %s", e.Status, e.Reason)
	}
	return "order: submission failed: " + e.Reason
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func (e *SubmissionError) Is(target error) bool { return target == ErrSubmission }
