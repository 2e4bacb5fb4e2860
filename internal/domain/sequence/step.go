// Package sequence runs ordered provisioning steps, each gated by an
// idempotency check, and reports a per-step outcome.
package sequence

import "context"

// State is the tri-state result of a step check.
type State string

const (
	// StatePresent means the desired state is already in place.
	StatePresent State = "present"
	// StateAbsent means the step needs remediation.
	StateAbsent State = "absent"
	// StateUnknown means the check could not determine the state.
	StateUnknown State = "unknown"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// Step is one provisioning unit.
//
// Check must be a pure observation: it may be called any number of times
// and must not change the system. Remediate may have side effects; the
// sequencer calls it at most once per run.
type Step interface {
	// Name returns the human-readable label used in reports.
	Name() string

	// Required reports whether a failure of this step aborts the run.
	Required() bool

	// Check observes the current state. A non-nil error means StateUnknown
	// regardless of the returned state.
	Check(ctx context.Context) (State, error)

	// Remediate attempts to move the system toward StatePresent.
	// A non-nil error is the failure reason.
	Remediate(ctx context.Context) error
}

// CheckFunc observes a step's state.
type CheckFunc func(ctx context.Context) (State, error)

// RemediateFunc performs a step's remediation.
type RemediateFunc func(ctx context.Context) error

// FuncStep adapts plain functions to the Step interface.
type FuncStep struct {
	name      string
	required  bool
	check     CheckFunc
	remediate RemediateFunc
}

// StepOption configures a FuncStep.
type StepOption func(*FuncStep)

// WithRequired marks the step as required (or not).
func WithRequired(required bool) StepOption {
	return func(s *FuncStep) {
		s.required = required
	}
}

// NewStep creates a Step from a check and a remediation.
// A nil remediate yields a check-only step.
func NewStep(name string, check CheckFunc, remediate RemediateFunc, opts ...StepOption) *FuncStep {
	s := &FuncStep{
		name:      name,
		check:     check,
		remediate: remediate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step label.
func (s *FuncStep) Name() string {
	return s.name
}

// Required reports whether failure aborts the run.
func (s *FuncStep) Required() bool {
	return s.required
}

// Check runs the check function.
func (s *FuncStep) Check(ctx context.Context) (State, error) {
	if s.check == nil {
		return StateUnknown, ErrNoCheck
	}
	return s.check(ctx)
}

// Remediate runs the remediation function.
func (s *FuncStep) Remediate(ctx context.Context) error {
	if s.remediate == nil {
		return ErrNoRemediation
	}
	return s.remediate(ctx)
}

// CanRemediate reports whether a remediation function was supplied.
func (s *FuncStep) CanRemediate() bool {
	return s.remediate != nil
}

// Remediable is implemented by steps that may lack a remediation.
type Remediable interface {
	CanRemediate() bool
}

// canRemediate reports whether the sequencer should attempt remediation.
// Steps that do not implement Remediable are assumed to have one.
func canRemediate(step Step) bool {
	if r, ok := step.(Remediable); ok {
		return r.CanRemediate()
	}
	return true
}

// Policy overrides the required flag of an existing step.
func Policy(step Step, required bool) Step {
	return policyStep{Step: step, required: required}
}

type policyStep struct {
	Step
	required bool
}

func (p policyStep) Required() bool {
	return p.required
}

func (p policyStep) CanRemediate() bool {
	return canRemediate(p.Step)
}
