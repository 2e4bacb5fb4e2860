// Package app wires configuration, providers and the step sequencer into
// the install and verify runs behind the wslboot command.
package app

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/felixgeelhaar/wslboot/internal/adapters/command"
	"github.com/felixgeelhaar/wslboot/internal/adapters/fetch"
	"github.com/felixgeelhaar/wslboot/internal/adapters/filesystem"
	"github.com/felixgeelhaar/wslboot/internal/adapters/logging"
	"github.com/felixgeelhaar/wslboot/internal/domain/config"
	"github.com/felixgeelhaar/wslboot/internal/domain/platform"
	"github.com/felixgeelhaar/wslboot/internal/domain/sequence"
	"github.com/felixgeelhaar/wslboot/internal/ports"
	"github.com/felixgeelhaar/wslboot/internal/provider/conda"
	"github.com/felixgeelhaar/wslboot/internal/provider/datastore"
	"github.com/felixgeelhaar/wslboot/internal/provider/gcloud"
	"github.com/felixgeelhaar/wslboot/internal/provider/shell"
	"github.com/felixgeelhaar/wslboot/internal/provider/wsl"
)

// Options selects what a run does.
type Options struct {
	// Install runs checks and remediations.
	Install bool
	// Verify runs a checks-only pass, after the install pass if both are set.
	Verify bool
}

// Empty reports whether no pass was requested.
func (o Options) Empty() bool {
	return !o.Install && !o.Verify
}

// WSLBoot is the application orchestrator.
type WSLBoot struct {
	runner     ports.CommandRunner
	fs         ports.FileSystem
	downloader ports.Downloader
	extractor  ports.Extractor
	logger     ports.Logger
	out        io.Writer
}

// New creates a WSLBoot backed by the real process runner, filesystem and
// downloader.
func New(out io.Writer) *WSLBoot {
	return &WSLBoot{
		runner:     command.NewRealRunner(),
		fs:         filesystem.NewRealFileSystem(),
		downloader: fetch.NewDownloader(),
		extractor:  fetch.NewExtractor(),
		logger:     logging.NewNopLogger(),
		out:        out,
	}
}

// WithRunner sets the command runner.
func (w *WSLBoot) WithRunner(runner ports.CommandRunner) *WSLBoot {
	w.runner = runner
	return w
}

// WithFileSystem sets the filesystem.
func (w *WSLBoot) WithFileSystem(fs ports.FileSystem) *WSLBoot {
	w.fs = fs
	return w
}

// WithFetcher sets the downloader and extractor.
func (w *WSLBoot) WithFetcher(downloader ports.Downloader, extractor ports.Extractor) *WSLBoot {
	w.downloader = downloader
	w.extractor = extractor
	return w
}

// WithLogger sets the logger. Runs attach it to their context, where
// steps and the downloader pick it up.
func (w *WSLBoot) WithLogger(logger ports.Logger) *WSLBoot {
	w.logger = logger
	return w
}

// Steps builds the ordered step list for cfg. Skipped steps are left out;
// every other step carries the configured failure policy.
func (w *WSLBoot) Steps(cfg *config.Config) ([]sequence.Step, error) {
	cacheDir, err := filepath.Abs(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("resolve cache dir: %w", err)
	}
	distroCfg := cfg.Distro
	if distroCfg.InstallDir, err = filepath.Abs(distroCfg.InstallDir); err != nil {
		return nil, fmt.Errorf("resolve install dir: %w", err)
	}

	distro := wsl.NewDistro(w.runner, distroCfg.Name, distroCfg.User, distroCfg.Shell)
	translator := platform.NewPathTranslator(distroCfg.Name)

	candidates := []sequence.Step{
		wsl.NewSubsystemStep(w.runner, cfg.Subsystem),
		wsl.NewDistributionStep(distro, w.runner, w.fs, w.downloader, w.extractor, distroCfg, cacheDir),
		conda.NewManagerStep(distro, w.downloader, translator, cfg.Conda, cacheDir),
	}
	for _, rt := range cfg.Runtimes {
		candidates = append(candidates, conda.NewRuntimeStep(distro, cfg.Conda.Home, rt))
	}
	candidates = append(candidates,
		datastore.NewStep(distro, cfg.Datastore.Path),
		shell.NewRCStep(w.fs, translator.SharePath(cfg.Shell.RCFile), cfg.Shell.Lines),
		gcloud.NewStep(distro, w.downloader, translator, cfg.CloudSDK, cacheDir),
	)

	steps := make([]sequence.Step, 0, len(candidates))
	for _, step := range candidates {
		if cfg.IsSkipped(step.Name()) {
			continue
		}
		steps = append(steps, sequence.Policy(step, cfg.IsRequired(step.Name())))
	}
	return steps, nil
}

// Run executes the requested passes and returns one report per pass. A
// verify pass is not started once ctx is cancelled.
func (w *WSLBoot) Run(ctx context.Context, cfg *config.Config, opts Options) ([]*sequence.Report, error) {
	steps, err := w.Steps(cfg)
	if err != nil {
		return nil, err
	}

	ctx = ports.ContextWithLogger(ctx, w.logger)
	var reports []*sequence.Report

	if opts.Install {
		w.logger.Info(ctx, "starting install", ports.F("steps", len(steps)), ports.F("distro", cfg.Distro.Name))
		reports = append(reports, sequence.NewSequencer().WithLogger(w.logger).Run(ctx, steps))
	}
	if opts.Verify && ctx.Err() == nil {
		w.logger.Info(ctx, "starting verify", ports.F("steps", len(steps)))
		reports = append(reports, sequence.NewSequencer().WithVerifyOnly(true).WithLogger(w.logger).Run(ctx, steps))
	}
	return reports, nil
}
