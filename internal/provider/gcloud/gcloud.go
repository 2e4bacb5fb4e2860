// Package gcloud provides the step that installs the Google Cloud CLI and
// its components inside the distribution.
package gcloud

import (
	"context"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/wslboot/internal/domain/config"
	"github.com/felixgeelhaar/wslboot/internal/domain/platform"
	"github.com/felixgeelhaar/wslboot/internal/domain/sequence"
	"github.com/felixgeelhaar/wslboot/internal/ports"
	"github.com/felixgeelhaar/wslboot/internal/provider/wsl"
	"github.com/felixgeelhaar/wslboot/internal/validation"
)

// Step installs the SDK from its release tarball and then any missing
// components.
type Step struct {
	distro     *wsl.Distro
	downloader ports.Downloader
	translator *platform.PathTranslator
	cfg        config.CloudSDKConfig
	cacheDir   string
}

// NewStep creates a cloud SDK Step. cacheDir is an absolute host path.
func NewStep(distro *wsl.Distro, downloader ports.Downloader, translator *platform.PathTranslator, cfg config.CloudSDKConfig, cacheDir string) *Step {
	return &Step{
		distro:     distro,
		downloader: downloader,
		translator: translator,
		cfg:        cfg,
		cacheDir:   cacheDir,
	}
}

// Name returns the step name.
func (s *Step) Name() string {
	return config.StepCloudSDK
}

// Required returns false; required-ness is assigned by policy.
func (s *Step) Required() bool {
	return false
}

// Check requires an executable gcloud and every configured component.
func (s *Step) Check(ctx context.Context) (sequence.State, error) {
	state, err := s.distro.Test(ctx, "-x", s.binary())
	if err != nil || state != sequence.StatePresent {
		return state, err
	}

	missing, err := s.missingComponents(ctx)
	if err != nil {
		return sequence.StateUnknown, err
	}
	if len(missing) > 0 {
		return sequence.StateAbsent, nil
	}
	return sequence.StatePresent, nil
}

// Remediate installs the SDK unless gcloud already runs, then installs
// the components it lacks.
func (s *Step) Remediate(ctx context.Context) error {
	if err := validation.ValidateLinuxPath(s.cfg.Home); err != nil {
		return fmt.Errorf("invalid cloud SDK home: %w", err)
	}
	for _, c := range s.cfg.Components {
		if err := validation.ValidateComponent(c); err != nil {
			return fmt.Errorf("invalid component: %w", err)
		}
	}

	state, err := s.distro.Test(ctx, "-x", s.binary())
	if err != nil {
		return err
	}
	if state != sequence.StatePresent {
		if err := s.install(ctx); err != nil {
			return err
		}
	}

	missing, err := s.missingComponents(ctx)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	args := make([]string, 0, len(missing))
	for _, c := range missing {
		args = append(args, wsl.Quote(c))
	}
	script := fmt.Sprintf("%s components install %s --quiet", wsl.Quote(s.binary()), strings.Join(args, " "))
	if _, err := s.distro.Script(ctx, script); err != nil {
		return fmt.Errorf("install components: %w", err)
	}
	return nil
}

func (s *Step) install(ctx context.Context) error {
	archive, err := wsl.CachePath(s.cacheDir, s.cfg.ArchiveURL)
	if err != nil {
		return err
	}
	if err := s.downloader.Download(ctx, s.cfg.ArchiveURL, archive); err != nil {
		return err
	}
	src, err := s.translator.ToWSL(archive)
	if err != nil {
		return fmt.Errorf("map archive path: %w", err)
	}

	home := wsl.Quote(s.cfg.Home)
	script := fmt.Sprintf("mkdir -p %s && tar -xzf %s -C %s --strip-components=1 && %s --quiet",
		home, wsl.Quote(src), home, wsl.Quote(s.cfg.Home+"/install.sh"))
	if _, err := s.distro.Script(ctx, script); err != nil {
		return fmt.Errorf("install cloud SDK: %w", err)
	}
	return nil
}

// missingComponents lists configured components not installed locally.
func (s *Step) missingComponents(ctx context.Context) ([]string, error) {
	if len(s.cfg.Components) == 0 {
		return nil, nil
	}
	script := wsl.Quote(s.binary()) + " components list --only-local-state --format='value(id)' --quiet"
	result, err := s.distro.Script(ctx, script)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}

	installed := make(map[string]bool)
	for _, id := range strings.Fields(result.Stdout) {
		installed[id] = true
	}
	var missing []string
	for _, c := range s.cfg.Components {
		if !installed[c] {
			missing = append(missing, c)
		}
	}
	return missing, nil
}

func (s *Step) binary() string {
	return s.cfg.Home + "/bin/gcloud"
}

var _ sequence.Step = (*Step)(nil)
