package sequence

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// Action is what the sequencer did for a step.
type Action string

const (
	// ActionSkippedPresent means the check reported present; nothing was done.
	ActionSkippedPresent Action = "skipped-already-present"
	// ActionRemediated means remediation ran and the step ended present.
	ActionRemediated Action = "remediated"
	// ActionRemediateFailed means remediation failed or did not converge.
	ActionRemediateFailed Action = "remediate-failed"
	// ActionCheckError means the state could not be determined and nothing
	// could be done about it.
	ActionCheckError Action = "check-error"
	// ActionVerifyOnly means the step is absent and the run was checks-only.
	ActionVerifyOnly Action = "verify-only"
)

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// Failed reports whether the action counts as a step failure.
func (a Action) Failed() bool {
	return a == ActionRemediateFailed || a == ActionCheckError
}

// Status is the overall outcome of a run.
type Status string

const (
	// StatusComplete means every step ended present.
	StatusComplete Status = "complete"
	// StatusPartialFailure means some non-required step did not end present.
	StatusPartialFailure Status = "partial-failure"
	// StatusAborted means a required step failed (or the run was cancelled)
	// and the remaining steps were not attempted.
	StatusAborted Status = "aborted"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Mode identifies which path of the sequencer produced a report.
type Mode string

const (
	// ModeInstall runs checks and remediations.
	ModeInstall Mode = "install"
	// ModeVerify runs checks only.
	ModeVerify Mode = "verify"
)

// Entry records the outcome of one step.
type Entry struct {
	Step     string        `json:"step"`
	Required bool          `json:"required"`
	PreCheck State         `json:"pre_check"`
	Action   Action        `json:"action"`
	Duration time.Duration `json:"duration"`

	// PostCheck is meaningful only when Reverified is true.
	PostCheck  State `json:"post_check,omitempty"`
	Reverified bool  `json:"reverified"`

	// CheckErr is the reason the pre-check (or post-check) was unknown.
	CheckErr error `json:"-"`
	// Err is the failure reason for remediate-failed and check-error entries.
	Err error `json:"-"`
}

// Final returns the state the step ended in.
func (e Entry) Final() State {
	switch {
	case e.Reverified:
		return e.PostCheck
	case e.Action == ActionRemediated:
		return StatePresent
	default:
		return e.PreCheck
	}
}

// Failed reports whether the step failed.
func (e Entry) Failed() bool {
	return e.Action.Failed()
}

// Report is the ordered record of one sequencer run.
type Report struct {
	ID         string    `json:"id"`
	Mode       Mode      `json:"mode"`
	Status     Status    `json:"status"`
	Entries    []Entry   `json:"entries"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// AbortedBy names the required step that halted the run.
	AbortedBy string `json:"aborted_by,omitempty"`
	// Interrupted holds the context error when the run was cancelled.
	Interrupted error `json:"-"`
}

func newReport(mode Mode, capacity int) *Report {
	return &Report{
		ID:        uuid.New().String(),
		Mode:      mode,
		Entries:   make([]Entry, 0, capacity),
		StartedAt: time.Now(),
	}
}

// Len returns the number of recorded entries.
func (r *Report) Len() int {
	return len(r.Entries)
}

// Complete reports whether the run finished with every step present.
func (r *Report) Complete() bool {
	return r.Status == StatusComplete
}

// Entry returns the entry for the named step.
func (r *Report) Entry(name string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Step == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Failures returns the entries that failed, in order.
func (r *Report) Failures() []Entry {
	var failed []Entry
	for _, e := range r.Entries {
		if e.Failed() {
			failed = append(failed, e)
		}
	}
	return failed
}

// Remediations returns how many steps were remediated successfully.
func (r *Report) Remediations() int {
	n := 0
	for _, e := range r.Entries {
		if e.Action == ActionRemediated {
			n++
		}
	}
	return n
}

// Err aggregates every step failure, the abort and any interruption.
// It returns nil for a complete run.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, e := range r.Entries {
		if e.Failed() && e.Err != nil {
			result = multierror.Append(result, e.Err)
		}
	}
	if r.Status == StatusAborted && r.AbortedBy != "" {
		result = multierror.Append(result, NewAbortedError(r.AbortedBy, nil))
	}
	if r.Interrupted != nil {
		result = multierror.Append(result, r.Interrupted)
	}
	return result.ErrorOrNil()
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// finish computes the overall status for a run that was not aborted.
func (r *Report) finish() {
	r.FinishedAt = time.Now()
	if r.Status == StatusAborted {
		return
	}
	r.Status = StatusComplete
	for _, e := range r.Entries {
		if e.Final() != StatePresent {
			r.Status = StatusPartialFailure
			return
		}
	}
}
