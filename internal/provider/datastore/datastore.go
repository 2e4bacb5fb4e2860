// Package datastore provides the step that initializes the local
// App Engine datastore file inside the distribution.
package datastore

import (
	"context"
	"fmt"
	"path"

	"github.com/felixgeelhaar/wslboot/internal/domain/config"
	"github.com/felixgeelhaar/wslboot/internal/domain/sequence"
	"github.com/felixgeelhaar/wslboot/internal/provider/wsl"
	"github.com/felixgeelhaar/wslboot/internal/validation"
)

// Step creates an empty datastore file when none exists.
type Step struct {
	distro *wsl.Distro
	path   string
}

// NewStep creates a datastore Step for the file at path.
func NewStep(distro *wsl.Distro, path string) *Step {
	return &Step{distro: distro, path: path}
}

// Name returns the step name.
func (s *Step) Name() string {
	return config.StepDatastore
}

// Required returns false; required-ness is assigned by policy.
func (s *Step) Required() bool {
	return false
}

// Check tests for the file. An existing file is never touched, whatever
// its contents.
func (s *Step) Check(ctx context.Context) (sequence.State, error) {
	return s.distro.Test(ctx, "-e", s.path)
}

// Remediate creates the parent directory and an empty file.
func (s *Step) Remediate(ctx context.Context) error {
	if err := validation.ValidateLinuxPath(s.path); err != nil {
		return fmt.Errorf("invalid datastore path: %w", err)
	}
	script := fmt.Sprintf("mkdir -p %s && touch %s", wsl.Quote(path.Dir(s.path)), wsl.Quote(s.path))
	if _, err := s.distro.Script(ctx, script); err != nil {
		return fmt.Errorf("create datastore: %w", err)
	}
	return nil
}

var _ sequence.Step = (*Step)(nil)
