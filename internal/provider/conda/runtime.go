package conda

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/wslboot/internal/domain/config"
	"github.com/felixgeelhaar/wslboot/internal/domain/sequence"
	"github.com/felixgeelhaar/wslboot/internal/provider/commandutil"
	"github.com/felixgeelhaar/wslboot/internal/provider/wsl"
	"github.com/felixgeelhaar/wslboot/internal/validation"
	"golang.org/x/mod/semver"
)

var pythonVersionRe = regexp.MustCompile(`Python\s+(\d+(?:\.\d+){0,2})`)

// RuntimeStep keeps one conda environment pinned to a Python version.
type RuntimeStep struct {
	distro    *wsl.Distro
	condaHome string
	runtime   config.RuntimeConfig
}

// NewRuntimeStep creates a RuntimeStep for the environment rt.
func NewRuntimeStep(distro *wsl.Distro, condaHome string, rt config.RuntimeConfig) *RuntimeStep {
	return &RuntimeStep{distro: distro, condaHome: condaHome, runtime: rt}
}

// Name returns "runtime-<env>-present".
func (s *RuntimeStep) Name() string {
	return config.RuntimeStepName(s.runtime.Name)
}

// Required returns false; required-ness is assigned by policy.
func (s *RuntimeStep) Required() bool {
	return false
}

// Check asks the environment's interpreter for its version. A missing
// environment, or one on another minor release, is absent.
func (s *RuntimeStep) Check(ctx context.Context) (sequence.State, error) {
	script := fmt.Sprintf("%s run -n %s python --version", condaBin(s.condaHome), wsl.Quote(s.runtime.Name))
	result, err := s.distro.Script(ctx, script)
	if err != nil {
		if commandutil.ExitCode(err) > 0 {
			return sequence.StateAbsent, nil
		}
		return sequence.StateUnknown, err
	}

	// Python 2 prints its version on stderr.
	m := pythonVersionRe.FindStringSubmatch(result.Output())
	if m == nil {
		return sequence.StateUnknown, fmt.Errorf("unrecognized python version output %q", result.Output())
	}
	if !MatchesPin(m[1], s.runtime.Python) {
		return sequence.StateAbsent, nil
	}
	return sequence.StatePresent, nil
}

// Remediate creates the environment with the pinned interpreter.
func (s *RuntimeStep) Remediate(ctx context.Context) error {
	if err := validation.ValidateEnvName(s.runtime.Name); err != nil {
		return fmt.Errorf("invalid runtime: %w", err)
	}
	if config.CanonicalVersion(s.runtime.Python) == "" {
		return fmt.Errorf("invalid python version %q", s.runtime.Python)
	}

	script := fmt.Sprintf("%s create -n %s %s -y", condaBin(s.condaHome),
		wsl.Quote(s.runtime.Name), wsl.Quote("python="+s.runtime.Python))
	if _, err := s.distro.Script(ctx, script); err != nil {
		return fmt.Errorf("create environment %s: %w", s.runtime.Name, err)
	}
	return nil
}

// MatchesPin reports whether an installed version satisfies a pin. Pins
// name a major ("3"), a minor ("3.11") or a patch release ("3.11.4") and
// match at that precision.
func MatchesPin(installed, pin string) bool {
	got := config.CanonicalVersion(installed)
	want := config.CanonicalVersion(pin)
	if got == "" || want == "" {
		return false
	}
	switch strings.Count(strings.TrimPrefix(strings.TrimSpace(pin), "v"), ".") {
	case 0:
		return semver.Major(got) == semver.Major(want)
	case 1:
		return semver.MajorMinor(got) == semver.MajorMinor(want)
	default:
		return semver.Compare(got, want) == 0
	}
}

var _ sequence.Step = (*RuntimeStep)(nil)
