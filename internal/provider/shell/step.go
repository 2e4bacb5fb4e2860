// Package shell provides the step that patches a shell startup file with
// the configured lines.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/felixgeelhaar/wslboot/internal/domain/config"
	"github.com/felixgeelhaar/wslboot/internal/domain/sequence"
	"github.com/felixgeelhaar/wslboot/internal/ports"
	"github.com/felixgeelhaar/wslboot/internal/validation"
)

const (
	rcFileMode = 0o644
	tempSuffix = ".wslboot.tmp"
)

// RCStep keeps every configured line present in a startup file.
type RCStep struct {
	fs    ports.FileSystem
	path  string
	lines []string
}

// NewRCStep creates an RCStep. path is a host path; for a file inside the
// distribution that is its \\wsl$ share path.
func NewRCStep(fs ports.FileSystem, path string, lines []string) *RCStep {
	return &RCStep{fs: fs, path: path, lines: lines}
}

// Name returns the step name.
func (s *RCStep) Name() string {
	return config.StepShellConfig
}

// Required returns false; required-ness is assigned by policy.
func (s *RCStep) Required() bool {
	return false
}

// Check reads the file and reports whether every line is present. It
// never writes.
func (s *RCStep) Check(_ context.Context) (sequence.State, error) {
	content, err := s.read()
	if err != nil {
		return sequence.StateUnknown, err
	}
	if len(MissingLines(content, s.lines)) > 0 {
		return sequence.StateAbsent, nil
	}
	return sequence.StatePresent, nil
}

// Remediate appends the missing lines. A missing file is created. The new
// content is written beside the file and renamed over it, so a failed write
// leaves the original intact.
func (s *RCStep) Remediate(ctx context.Context) error {
	for _, line := range s.lines {
		if err := validation.ValidateShellLine(line); err != nil {
			return fmt.Errorf("invalid shell line: %w", err)
		}
	}

	content, err := s.read()
	if err != nil {
		return err
	}
	updated := AppendMissingLines(content, s.lines)
	if updated == content {
		return nil
	}

	if logger := ports.LoggerFromContext(ctx); logger != nil {
		logger.Debug(ctx, "appending shell lines",
			ports.F("file", s.path),
			ports.F("count", len(MissingLines(content, s.lines))))
	}
	return s.replace([]byte(updated))
}

func (s *RCStep) replace(data []byte) error {
	tmp := s.path + tempSuffix
	if err := s.fs.WriteFile(tmp, data, rcFileMode); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func (s *RCStep) read() (string, error) {
	data, err := s.fs.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.path, err)
	}
	return string(data), nil
}

var _ sequence.Step = (*RCStep)(nil)
