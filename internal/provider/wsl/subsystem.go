package wsl

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/wslboot/internal/domain/config"
	"github.com/felixgeelhaar/wslboot/internal/domain/sequence"
	"github.com/felixgeelhaar/wslboot/internal/ports"
	"github.com/felixgeelhaar/wslboot/internal/provider/commandutil"
)

// DISMCommand manages Windows optional features.
const DISMCommand = "dism"

// exitRebootRequired is ERROR_SUCCESS_REBOOT_REQUIRED.
const exitRebootRequired = 3010

// ErrRebootRequired means a feature was enabled but only takes effect after
// Windows restarts.
var ErrRebootRequired = errors.New("restart Windows to finish enabling WSL, then run wslboot again")

var featureStateRe = regexp.MustCompile(`(?m)^\s*State\s*:\s*(.+?)\s*$`)

// SubsystemStep enables the optional features WSL needs.
type SubsystemStep struct {
	runner         ports.CommandRunner
	features       []string
	defaultVersion int
}

// NewSubsystemStep creates a SubsystemStep. A zero defaultVersion leaves
// the WSL default version alone.
func NewSubsystemStep(runner ports.CommandRunner, cfg config.SubsystemConfig) *SubsystemStep {
	return &SubsystemStep{
		runner:         runner,
		features:       cfg.Features,
		defaultVersion: cfg.DefaultVersion,
	}
}

// Name returns the step name.
func (s *SubsystemStep) Name() string {
	return config.StepSubsystem
}

// Required returns false; required-ness is assigned by policy.
func (s *SubsystemStep) Required() bool {
	return false
}

// Check reports StatePresent when every feature is enabled. A pending
// enable (awaiting restart) counts as absent.
func (s *SubsystemStep) Check(ctx context.Context) (sequence.State, error) {
	for _, feature := range s.features {
		state, err := s.featureState(ctx, feature)
		if err != nil {
			return sequence.StateUnknown, err
		}
		if !strings.EqualFold(state, "Enabled") {
			return sequence.StateAbsent, nil
		}
	}
	return sequence.StatePresent, nil
}

func (s *SubsystemStep) featureState(ctx context.Context, feature string) (string, error) {
	result, err := commandutil.Run(ctx, s.runner, DISMCommand,
		"/online", "/english", "/get-featureinfo", "/featurename:"+feature)
	if err != nil {
		return "", fmt.Errorf("query feature %s: %w", feature, err)
	}
	m := featureStateRe.FindStringSubmatch(result.Stdout)
	if m == nil {
		return "", fmt.Errorf("query feature %s: no state in dism output", feature)
	}
	return m[1], nil
}

// Remediate enables every feature, then sets the default WSL version.
// A restart request from dism yields ErrRebootRequired.
func (s *SubsystemStep) Remediate(ctx context.Context) error {
	reboot := false
	for _, feature := range s.features {
		_, err := commandutil.Run(ctx, s.runner, DISMCommand,
			"/online", "/enable-feature", "/featurename:"+feature, "/all", "/norestart")
		switch {
		case err == nil:
		case commandutil.ExitCode(err) == exitRebootRequired:
			reboot = true
		default:
			return fmt.Errorf("enable feature %s: %w", feature, err)
		}
	}
	if reboot {
		return ErrRebootRequired
	}

	if s.defaultVersion == 0 {
		return nil
	}
	if _, err := RunWSL(ctx, s.runner, "--set-default-version", strconv.Itoa(s.defaultVersion)); err != nil {
		return fmt.Errorf("set default WSL version: %w", err)
	}
	return nil
}

var _ sequence.Step = (*SubsystemStep)(nil)
