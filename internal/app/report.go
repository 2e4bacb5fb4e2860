package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/wslboot/internal/domain/sequence"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StepLabel turns a step name into a display label:
// "runtime-py2-present" becomes "Runtime Py2 Present".
func StepLabel(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "-", " "))
}

// PrintReport outputs a human-readable run report.
func (w *WSLBoot) PrintReport(r *sequence.Report) {
	styles := defaultReportStyles()

	w.printf("\n%s\n\n", styles.Title.Render("wslboot "+StepLabel(string(r.Mode))))

	width := 0
	for _, e := range r.Entries {
		if n := len(StepLabel(e.Step)); n > width {
			width = n
		}
	}

	var present, remediated, failed, missing int
	for _, e := range r.Entries {
		var mark, detail string
		switch e.Action {
		case sequence.ActionSkippedPresent:
			present++
			mark, detail = styles.Present.Render("✓"), "already present"
		case sequence.ActionRemediated:
			remediated++
			mark, detail = styles.Remediated.Render("+"), "installed in "+e.Duration.Round(100*time.Millisecond).String()
		case sequence.ActionRemediateFailed:
			failed++
			mark, detail = styles.Failed.Render("✗"), reason(e.Err)
		case sequence.ActionCheckError:
			failed++
			mark, detail = styles.Unknown.Render("?"), "could not check: "+reason(e.Err)
		case sequence.ActionVerifyOnly:
			missing++
			mark, detail = styles.Missing.Render("-"), "missing"
		}
		if e.Required && e.Failed() {
			detail += " (required)"
		}
		w.printf("  %s %-*s  %s\n", mark, width, StepLabel(e.Step), styles.Muted.Render(detail))
	}

	switch {
	case r.Interrupted != nil:
		w.printf("\n%s\n", styles.Failed.Render("Interrupted: "+r.Interrupted.Error()))
	case r.AbortedBy != "":
		w.printf("\n%s\n", styles.Failed.Render(fmt.Sprintf("Stopped: %s is required, remaining steps were not attempted.", StepLabel(r.AbortedBy))))
	}

	w.printf("\nStatus: %s (%d present, %d remediated, %d missing, %d failed) in %s\n",
		StepLabel(string(r.Status)), present, remediated, missing, failed, r.Duration().Round(100*time.Millisecond))
}

// reason strips the step attribution from a recorded failure; the report
// line already names the step.
func reason(err error) string {
	if err == nil {
		return "unknown error"
	}
	var stepErr *sequence.StepError
	if errors.As(err, &stepErr) && stepErr.Underlying != nil {
		return stepErr.Underlying.Error()
	}
	return err.Error()
}

type jsonEntry struct {
	sequence.Entry
	Label      string `json:"label"`
	CheckError string `json:"check_error,omitempty"`
	Error      string `json:"error,omitempty"`
}

type jsonReport struct {
	ID          string      `json:"id"`
	Mode        string      `json:"mode"`
	Status      string      `json:"status"`
	StartedAt   time.Time   `json:"started_at"`
	FinishedAt  time.Time   `json:"finished_at"`
	AbortedBy   string      `json:"aborted_by,omitempty"`
	Interrupted string      `json:"interrupted,omitempty"`
	Entries     []jsonEntry `json:"entries"`
}

// PrintJSON outputs the reports as a JSON array.
func (w *WSLBoot) PrintJSON(reports []*sequence.Report) error {
	out := make([]jsonReport, 0, len(reports))
	for _, r := range reports {
		jr := jsonReport{
			ID:         r.ID,
			Mode:       string(r.Mode),
			Status:     string(r.Status),
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
			AbortedBy:  r.AbortedBy,
			Entries:    make([]jsonEntry, 0, len(r.Entries)),
		}
		if r.Interrupted != nil {
			jr.Interrupted = r.Interrupted.Error()
		}
		for _, e := range r.Entries {
			je := jsonEntry{Entry: e, Label: StepLabel(e.Step)}
			if e.CheckErr != nil {
				je.CheckError = e.CheckErr.Error()
			}
			if e.Err != nil {
				je.Error = reason(e.Err)
			}
			jr.Entries = append(jr.Entries, je)
		}
		out = append(out, jr)
	}

	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// printf is a helper that writes to the output writer, ignoring errors.
func (w *WSLBoot) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w.out, format, args...)
}
