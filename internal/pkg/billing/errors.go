package billing

import (
	"errors"
	"fmt"
	"time"
)

// Code is the machine-readable reason attached to a domain refusal.
type Code string

const (
	CodeNoSubscription   Code = "NO_SUBSCRIPTION"
	CodeAlreadyCanceling Code = "ALREADY_CANCELING"
	CodeNothingToResume  Code = "NOTHING_TO_RESUME"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeCancelFailed     Code = "SUBSCRIPTION_CANCEL_FAILED"
)

// Refusal is a deterministic domain-level rejection: the request was
// understood but the current state does not allow it. Not a system fault.
type Refusal struct {
	Code      Code
	Message   string
	PeriodEnd *time.Time
}

func (r *Refusal) Error() string {
	return string(r.Code) + ": " + r.Message
}

// AsRefusal unwraps a refusal from an error chain.
func AsRefusal(err error) (*Refusal, bool) {
	var r *Refusal
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// ProcessorError wraps a failed or timed-out processor call. Retryable means
// the caller may try again; the deletion flow treats every processor error as
// fatal regardless.
type ProcessorError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("processor %s failed: %v", e.Op, e.Err)
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}

// AsProcessorError unwraps a processor fault from an error chain.
func AsProcessorError(err error) (*ProcessorError, bool) {
	var pe *ProcessorError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
