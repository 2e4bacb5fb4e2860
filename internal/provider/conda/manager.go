// Package conda provides the Miniconda environment manager and the
// per-runtime conda environment steps.
package conda

import (
	"context"
	"fmt"
	"regexp"

	"github.com/felixgeelhaar/wslboot/internal/domain/config"
	"github.com/felixgeelhaar/wslboot/internal/domain/platform"
	"github.com/felixgeelhaar/wslboot/internal/domain/sequence"
	"github.com/felixgeelhaar/wslboot/internal/ports"
	"github.com/felixgeelhaar/wslboot/internal/provider/commandutil"
	"github.com/felixgeelhaar/wslboot/internal/provider/wsl"
	"github.com/felixgeelhaar/wslboot/internal/validation"
	"golang.org/x/mod/semver"
)

// exitNotFound is the shell's exit status for a missing command.
const exitNotFound = 127

var condaVersionRe = regexp.MustCompile(`conda\s+(\d+(?:\.\d+){0,2})`)

// ManagerStep installs Miniconda inside the distribution.
type ManagerStep struct {
	distro     *wsl.Distro
	downloader ports.Downloader
	translator *platform.PathTranslator
	cfg        config.CondaConfig
	cacheDir   string
}

// NewManagerStep creates a ManagerStep. cacheDir is an absolute host path;
// the downloaded installer is handed to the distribution through its
// /mnt mapping.
func NewManagerStep(distro *wsl.Distro, downloader ports.Downloader, translator *platform.PathTranslator, cfg config.CondaConfig, cacheDir string) *ManagerStep {
	return &ManagerStep{
		distro:     distro,
		downloader: downloader,
		translator: translator,
		cfg:        cfg,
		cacheDir:   cacheDir,
	}
}

// Name returns the step name.
func (s *ManagerStep) Name() string {
	return config.StepEnvManager
}

// Required returns false; required-ness is assigned by policy.
func (s *ManagerStep) Required() bool {
	return false
}

// Check runs "conda --version". A conda older than the configured minimum
// counts as absent so the installer runs again in update mode.
func (s *ManagerStep) Check(ctx context.Context) (sequence.State, error) {
	result, err := s.distro.Script(ctx, condaBin(s.cfg.Home)+" --version")
	if err != nil {
		if commandutil.ExitCode(err) == exitNotFound {
			return sequence.StateAbsent, nil
		}
		return sequence.StateUnknown, err
	}
	if s.cfg.MinVersion == "" {
		return sequence.StatePresent, nil
	}

	m := condaVersionRe.FindStringSubmatch(result.Output())
	if m == nil {
		return sequence.StateUnknown, fmt.Errorf("unrecognized conda version output %q", result.Output())
	}
	if semver.Compare(config.CanonicalVersion(m[1]), config.CanonicalVersion(s.cfg.MinVersion)) < 0 {
		return sequence.StateAbsent, nil
	}
	return sequence.StatePresent, nil
}

// Remediate downloads the installer, runs it in batch mode and hooks conda
// into the user's shell.
func (s *ManagerStep) Remediate(ctx context.Context) error {
	if err := validation.ValidateLinuxPath(s.cfg.Home); err != nil {
		return fmt.Errorf("invalid conda home: %w", err)
	}

	installer, err := wsl.CachePath(s.cacheDir, s.cfg.InstallerURL)
	if err != nil {
		return err
	}
	if err := s.downloader.Download(ctx, s.cfg.InstallerURL, installer); err != nil {
		return err
	}
	script, err := s.translator.ToWSL(installer)
	if err != nil {
		return fmt.Errorf("map installer path: %w", err)
	}

	home := wsl.Quote(s.cfg.Home)
	install := fmt.Sprintf("mkdir -p %s && bash %s -b -u -p %s", home, wsl.Quote(script), home)
	if _, err := s.distro.Script(ctx, install); err != nil {
		return fmt.Errorf("install miniconda: %w", err)
	}
	if _, err := s.distro.Script(ctx, condaBin(s.cfg.Home)+" init "+s.distro.Shell()); err != nil {
		return fmt.Errorf("conda init: %w", err)
	}
	return nil
}

func condaBin(home string) string {
	return wsl.Quote(home + "/bin/conda")
}

var _ sequence.Step = (*ManagerStep)(nil)
