package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/wslboot/internal/ports"
)

// Sequencer runs steps strictly in order.
type Sequencer struct {
	verifyOnly bool
	recheck    bool
	logger     ports.Logger
}

// NewSequencer creates a Sequencer that re-checks after every remediation.
func NewSequencer() *Sequencer {
	return &Sequencer{
		recheck: true,
		logger:  nopLogger{},
	}
}

// WithVerifyOnly returns a Sequencer that runs checks without remediating.
func (s *Sequencer) WithVerifyOnly(verifyOnly bool) *Sequencer {
	c := *s
	c.verifyOnly = verifyOnly
	return &c
}

// WithRecheck returns a Sequencer that does (or does not) confirm a
// successful remediation with a second check.
func (s *Sequencer) WithRecheck(recheck bool) *Sequencer {
	c := *s
	c.recheck = recheck
	return &c
}

// WithLogger returns a Sequencer that logs step progress to logger.
func (s *Sequencer) WithLogger(logger ports.Logger) *Sequencer {
	c := *s
	if logger == nil {
		logger = nopLogger{}
	}
	c.logger = logger
	return &c
}

// Run executes steps in order and returns the report.
//
// Failures never escape as errors or panics; they are recorded per step.
// A failed required step halts the run with StatusAborted. The context is
// only consulted between steps. Steps receive a context that keeps ctx's
// values but not its cancellation, so a remediation in progress is never
// interrupted.
func (s *Sequencer) Run(ctx context.Context, steps []Step) *Report {
	mode := ModeInstall
	if s.verifyOnly {
		mode = ModeVerify
	}
	report := newReport(mode, len(steps))
	log := s.logger.With(ports.F("run_id", report.ID), ports.F("mode", string(mode)))
	stepCtx := context.WithoutCancel(ctx)

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			report.Status = StatusAborted
			report.Interrupted = err
			log.Warn(ctx, "run interrupted", ports.F("before", step.Name()), ports.F("error", err))
			break
		}

		stepLog := log.With(ports.F("step", step.Name()))
		stepLog.Debug(ctx, "step started")

		var entry Entry
		if s.verifyOnly {
			entry = s.verifyStep(stepCtx, step)
		} else {
			entry = s.runStep(stepCtx, step)
		}
		report.Entries = append(report.Entries, entry)

		s.logEntry(ctx, stepLog, entry)

		if entry.Failed() && entry.Required && !s.verifyOnly {
			report.Status = StatusAborted
			report.AbortedBy = entry.Step
			stepLog.Error(ctx, "required step failed, aborting run")
			break
		}
	}

	report.finish()
	log.Info(ctx, "run finished",
		ports.F("status", string(report.Status)),
		ports.F("steps", report.Len()),
		ports.F("remediated", report.Remediations()))
	return report
}

// runStep checks, remediates when needed, and re-checks.
func (s *Sequencer) runStep(ctx context.Context, step Step) Entry {
	start := time.Now()
	entry := Entry{Step: step.Name(), Required: step.Required()}

	pre, checkErr := safeCheck(ctx, step)
	entry.PreCheck = pre
	if checkErr != nil {
		entry.CheckErr = NewCheckError(step.Name(), checkErr)
	}

	switch {
	case pre == StatePresent:
		entry.Action = ActionSkippedPresent

	case !canRemediate(step):
		if pre == StateUnknown {
			entry.Action = ActionCheckError
			entry.Err = entry.CheckErr
		} else {
			entry.Action = ActionRemediateFailed
			entry.Err = NewRemediationFailure(step.Name(), ErrNoRemediation)
		}

	default:
		if err := safeRemediate(ctx, step); err != nil {
			entry.Action = ActionRemediateFailed
			entry.Err = NewRemediationFailure(step.Name(), err)
			break
		}
		if !s.recheck {
			entry.Action = ActionRemediated
			break
		}

		post, postErr := safeCheck(ctx, step)
		entry.Reverified = true
		entry.PostCheck = post
		if post == StatePresent {
			entry.Action = ActionRemediated
			break
		}

		entry.Action = ActionRemediateFailed
		if postErr != nil {
			entry.CheckErr = NewCheckError(step.Name(), postErr)
			entry.Err = NewRemediationFailure(step.Name(), fmt.Errorf("%w: %w", ErrNotConverged, postErr))
		} else {
			entry.Err = NewRemediationFailure(step.Name(), ErrNotConverged)
		}
	}

	entry.Duration = time.Since(start)
	return entry
}

// verifyStep runs the check only.
func (s *Sequencer) verifyStep(ctx context.Context, step Step) Entry {
	start := time.Now()
	entry := Entry{Step: step.Name(), Required: step.Required()}

	state, err := safeCheck(ctx, step)
	entry.PreCheck = state
	switch state {
	case StatePresent:
		entry.Action = ActionSkippedPresent
	case StateAbsent:
		entry.Action = ActionVerifyOnly
	default:
		entry.Action = ActionCheckError
		entry.CheckErr = NewCheckError(step.Name(), err)
		entry.Err = entry.CheckErr
	}

	entry.Duration = time.Since(start)
	return entry
}

func (s *Sequencer) logEntry(ctx context.Context, log ports.Logger, entry Entry) {
	fields := []ports.Field{
		ports.F("pre_check", string(entry.PreCheck)),
		ports.F("action", string(entry.Action)),
		ports.F("duration", entry.Duration.Round(time.Millisecond)),
	}
	if entry.Reverified {
		fields = append(fields, ports.F("post_check", string(entry.PostCheck)))
	}
	if entry.CheckErr != nil {
		log.Debug(ctx, "check could not determine state", ports.F("error", entry.CheckErr))
	}
	if entry.Err != nil {
		fields = append(fields, ports.F("error", entry.Err))
		log.Warn(ctx, "step failed", fields...)
		return
	}
	log.Info(ctx, "step finished", fields...)
}

// safeCheck invokes Check and folds errors and panics into StateUnknown.
func safeCheck(ctx context.Context, step Step) (state State, err error) {
	defer func() {
		if r := recover(); r != nil {
			state = StateUnknown
			err = fmt.Errorf("%w: %v", ErrStepPanicked, r)
		}
	}()

	state, err = step.Check(ctx)
	if err != nil {
		return StateUnknown, err
	}
	switch state {
	case StatePresent, StateAbsent:
		return state, nil
	case StateUnknown:
		return StateUnknown, ErrUnknownState
	default:
		return StateUnknown, fmt.Errorf("check returned invalid state %q", state)
	}
}

// safeRemediate invokes Remediate and folds panics into an error.
func safeRemediate(ctx context.Context, step Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrStepPanicked, r)
		}
	}()
	return step.Remediate(ctx)
}

// nopLogger lives here because domain packages must not import adapters.
type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...ports.Field) {}
func (nopLogger) Info(context.Context, string, ...ports.Field)  {}
func (nopLogger) Warn(context.Context, string, ...ports.Field)  {}
func (nopLogger) Error(context.Context, string, ...ports.Field) {}
func (n nopLogger) With(...ports.Field) ports.Logger            { return n }
func (nopLogger) Level() ports.Level                            { return ports.LevelError }
func (nopLogger) SetLevel(ports.Level)                          {}
