package sequence

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for step failures.
const (
	ErrCodeCheckFailed       = "CHECK_FAILED"
	ErrCodeRemediationFailed = "REMEDIATION_FAILED"
	ErrCodeAborted           = "ABORTED"
)

// Sentinel errors recorded in run reports.
var (
	// ErrNoCheck is returned by a step that was built without a check.
	ErrNoCheck = errors.New("step has no check")
	// ErrNoRemediation is recorded when an absent step cannot be remediated.
	ErrNoRemediation = errors.New("step has no remediation")
	// ErrNotConverged is recorded when remediation succeeded but the
	// follow-up check did not report the step present.
	ErrNotConverged = errors.New("remediation reported success but the step is still not present")
	// ErrAborted marks a run halted by a required step.
	ErrAborted = errors.New("run aborted by a required step")
	// ErrUnknownState is recorded when a check returns StateUnknown without an error.
	ErrUnknownState = errors.New("check reported unknown state")
	// ErrStepPanicked wraps a recovered panic from a check or remediation.
	ErrStepPanicked = errors.New("step panicked")
)

// StepError attributes a failure to a step.
type StepError struct {
	Code       string
	Step       string
	Underlying error
}

// Error returns the formatted error message.
func (e *StepError) Error() string {
	var what string
	switch e.Code {
	case ErrCodeCheckFailed:
		what = "check failed"
	case ErrCodeRemediationFailed:
		what = "remediation failed"
	case ErrCodeAborted:
		what = "aborted"
	default:
		what = strings.ToLower(e.Code)
	}
	if e.Underlying == nil {
		return fmt.Sprintf("step %q: %s", e.Step, what)
	}
	return fmt.Sprintf("step %q: %s: %v", e.Step, what, e.Underlying)
}

// Unwrap returns the underlying error for error chain support.
func (e *StepError) Unwrap() error {
	return e.Underlying
}

// Is matches another *StepError by code, so errors.Is(err, &StepError{Code: ...}) works.
func (e *StepError) Is(target error) bool {
	if t, ok := target.(*StepError); ok {
		return t.Step == "" && e.Code == t.Code
	}
	return false
}

// NewCheckError creates an error for a check that could not determine state.
func NewCheckError(step string, err error) *StepError {
	return &StepError{Code: ErrCodeCheckFailed, Step: step, Underlying: err}
}

// NewRemediationFailure creates an error for a failed remediation.
func NewRemediationFailure(step string, reason error) *StepError {
	return &StepError{Code: ErrCodeRemediationFailed, Step: step, Underlying: reason}
}

// NewAbortedError creates the error recorded when a required step halts the run.
func NewAbortedError(step string, cause error) *StepError {
	if cause == nil {
		cause = ErrAborted
	} else {
		cause = fmt.Errorf("%w: %w", ErrAborted, cause)
	}
	return &StepError{Code: ErrCodeAborted, Step: step, Underlying: cause}
}
