package wsl

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"path/filepath"

	"github.com/felixgeelhaar/wslboot/internal/domain/config"
	"github.com/felixgeelhaar/wslboot/internal/domain/platform"
	"github.com/felixgeelhaar/wslboot/internal/domain/sequence"
	"github.com/felixgeelhaar/wslboot/internal/ports"
	"github.com/felixgeelhaar/wslboot/internal/provider/commandutil"
)

// ErrForeignDistribution is returned when a distribution is registered under
// the configured name but reports a different os-release ID.
var ErrForeignDistribution = errors.New("registered distribution is not the configured one")

const osReleasePath = "/etc/os-release"

// DistributionStep installs the distribution from a release archive
// (ArchWSL's Arch.zip by default) and registers it with WSL.
type DistributionStep struct {
	distro     *Distro
	runner     ports.CommandRunner
	fs         ports.FileSystem
	translator *platform.PathTranslator
	downloader ports.Downloader
	extractor  ports.Extractor
	cfg        config.DistroConfig
	cacheDir   string
}

// NewDistributionStep creates a DistributionStep. cacheDir and
// cfg.InstallDir are host paths; fs reads the distribution's files through
// the \\wsl$ share.
func NewDistributionStep(distro *Distro, runner ports.CommandRunner, fs ports.FileSystem, downloader ports.Downloader, extractor ports.Extractor, cfg config.DistroConfig, cacheDir string) *DistributionStep {
	return &DistributionStep{
		distro:     distro,
		runner:     runner,
		fs:         fs,
		translator: platform.NewPathTranslator(distro.Name()),
		downloader: downloader,
		extractor:  extractor,
		cfg:        cfg,
		cacheDir:   cacheDir,
	}
}

// Name returns the step name.
func (s *DistributionStep) Name() string {
	return config.StepDistribution
}

// Required returns false; required-ness is assigned by policy.
func (s *DistributionStep) Required() bool {
	return false
}

// Check probes for the marker file inside the distribution. Any failure to
// reach the distribution, including a missing wsl.exe, means it is absent.
// A reachable distribution must also report the configured os-release ID.
func (s *DistributionStep) Check(ctx context.Context) (sequence.State, error) {
	installed, err := s.identify(ctx)
	switch {
	case err != nil:
		return sequence.StateUnknown, err
	case installed:
		return sequence.StatePresent, nil
	default:
		return sequence.StateAbsent, nil
	}
}

// Remediate downloads and unpacks the archive, runs its installer and
// creates the configured user when it is not root. It refuses to install
// over a registered distribution it cannot identify.
func (s *DistributionStep) Remediate(ctx context.Context) error {
	installed, err := s.identify(ctx)
	if err != nil {
		return err
	}
	if installed {
		return nil
	}

	archive, err := CachePath(s.cacheDir, s.cfg.ArchiveURL)
	if err != nil {
		return err
	}
	if err := s.downloader.Download(ctx, s.cfg.ArchiveURL, archive); err != nil {
		return err
	}
	if err := s.extractor.Extract(archive, s.cfg.InstallDir); err != nil {
		return err
	}

	installer := filepath.Join(s.cfg.InstallDir, s.cfg.Installer)
	if _, err := commandutil.Run(ctx, s.runner, installer); err != nil {
		return fmt.Errorf("install %s: %w", s.distro.Name(), err)
	}

	return s.ensureUser(ctx)
}

// identify reports whether the distribution is installed. The error is set
// when it is registered but its os-release is unreadable or names another
// distribution.
func (s *DistributionStep) identify(ctx context.Context) (bool, error) {
	if _, err := s.distro.exec(ctx, "", "test", "-e", s.cfg.Marker); err != nil {
		return false, nil
	}
	if s.cfg.ReleaseID == "" {
		return true, nil
	}

	data, err := s.fs.ReadFile(s.translator.SharePath(osReleasePath))
	if err != nil {
		return true, fmt.Errorf("read %s os-release: %w", s.distro.Name(), err)
	}
	release, err := platform.ParseOSRelease(data)
	if err != nil {
		return true, err
	}
	if !release.Matches(s.cfg.ReleaseID) {
		return true, fmt.Errorf("%w: %s reports %q, want %q", ErrForeignDistribution, s.distro.Name(), release.ID, s.cfg.ReleaseID)
	}
	return true, nil
}

func (s *DistributionStep) ensureUser(ctx context.Context) error {
	user := s.distro.User()
	if user == "" || user == "root" {
		return nil
	}
	if _, err := s.distro.ExecAsRoot(ctx, "id", "-u", user); err == nil {
		return nil
	}
	if _, err := s.distro.ExecAsRoot(ctx, "useradd", "--create-home", "--shell", "/bin/"+s.distro.Shell(), user); err != nil {
		return fmt.Errorf("create user %s: %w", user, err)
	}
	return nil
}

// CachePath returns where rawURL is cached inside cacheDir: the last
// element of the URL path.
func CachePath(cacheDir, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse download URL: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "", fmt.Errorf("download URL %s has no file name", rawURL)
	}
	return filepath.Join(cacheDir, name), nil
}

var _ sequence.Step = (*DistributionStep)(nil)
