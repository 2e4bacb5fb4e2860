package wsl

import (
	"context"
	"errors"
	"io/fs"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/felixgeelhaar/wslboot/internal/domain/config"
	"github.com/felixgeelhaar/wslboot/internal/domain/sequence"
	"github.com/felixgeelhaar/wslboot/internal/ports"
	"github.com/felixgeelhaar/wslboot/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func distroConfig(user string) config.DistroConfig {
	return config.DistroConfig{
		Name:       "Arch",
		User:       user,
		Shell:      "bash",
		ArchiveURL: config.DefaultArchURL,
		InstallDir: filepath.Join("work", "arch"),
		Installer:  "Arch.exe",
		Marker:     "/usr/bin/pacman",
		ReleaseID:  "arch",
	}
}

const (
	osReleaseShare = `\\wsl$\Arch\etc\os-release`
	archRelease    = "NAME=\"Arch Linux\"\nPRETTY_NAME=\"Arch Linux\"\nID=arch\n"
	ubuntuRelease  = "NAME=\"Ubuntu\"\nID=ubuntu\nID_LIKE=debian\n"
	manjaroRelease = "NAME=\"Manjaro Linux\"\nID=manjaro\nID_LIKE=arch\n"
)

var markerArgs = []string{"-d", "Arch", "--", "test", "-e", "/usr/bin/pacman"}

func archFS() *mocks.FileSystem {
	fsys := mocks.NewFileSystem()
	fsys.AddFile(osReleaseShare, archRelease)
	return fsys
}

func newDistributionStep(runner *mocks.CommandRunner, fetcher *mocks.Fetcher, cfg config.DistroConfig) *DistributionStep {
	return newDistributionStepFS(runner, archFS(), fetcher, cfg)
}

func newDistributionStepFS(runner *mocks.CommandRunner, fsys *mocks.FileSystem, fetcher *mocks.Fetcher, cfg config.DistroConfig) *DistributionStep {
	distro := NewDistro(runner, cfg.Name, cfg.User, cfg.Shell)
	return NewDistributionStep(distro, runner, fsys, fetcher, fetcher, cfg, "cache")
}

func TestDistributionStep_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func(*mocks.CommandRunner)
		want  sequence.State
	}{
		{
			name:  "installed",
			setup: func(r *mocks.CommandRunner) { r.AddResult(Command, markerArgs, ports.CommandResult{}) },
			want:  sequence.StatePresent,
		},
		{
			name:  "marker missing",
			setup: func(r *mocks.CommandRunner) { r.AddResult(Command, markerArgs, ports.CommandResult{ExitCode: 1}) },
			want:  sequence.StateAbsent,
		},
		{
			name: "not registered",
			setup: func(r *mocks.CommandRunner) {
				r.AddResult(Command, markerArgs, ports.CommandResult{ExitCode: -1})
			},
			want: sequence.StateAbsent,
		},
		{
			name: "wsl missing",
			setup: func(r *mocks.CommandRunner) {
				r.AddError(Command, markerArgs, &exec.Error{Name: "wsl", Err: exec.ErrNotFound})
			},
			want: sequence.StateAbsent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			runner := mocks.NewCommandRunner()
			tt.setup(runner)

			state, err := newDistributionStep(runner, mocks.NewFetcher(), distroConfig("root")).Check(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
		})
	}
}

func TestDistributionStep_Check_Identity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		release   string
		releaseID string
		want      sequence.State
		wantErr   error
	}{
		{name: "arch", release: archRelease, releaseID: "arch", want: sequence.StatePresent},
		{name: "derived from arch", release: manjaroRelease, releaseID: "arch", want: sequence.StatePresent},
		{name: "other distribution", release: ubuntuRelease, releaseID: "arch", want: sequence.StateUnknown, wantErr: ErrForeignDistribution},
		{name: "identity not configured", release: ubuntuRelease, releaseID: "", want: sequence.StatePresent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			runner := mocks.NewCommandRunner()
			runner.AddResult(Command, markerArgs, ports.CommandResult{})
			fsys := mocks.NewFileSystem()
			fsys.AddFile(osReleaseShare, tt.release)
			cfg := distroConfig("root")
			cfg.ReleaseID = tt.releaseID

			state, err := newDistributionStepFS(runner, fsys, mocks.NewFetcher(), cfg).Check(context.Background())
			assert.Equal(t, tt.want, state)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDistributionStep_Check_UnreadableRelease(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult(Command, markerArgs, ports.CommandResult{})

	state, err := newDistributionStepFS(runner, mocks.NewFileSystem(), mocks.NewFetcher(), distroConfig("root")).Check(context.Background())
	assert.Equal(t, sequence.StateUnknown, state)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.ErrorContains(t, err, "read Arch os-release")
}

func TestDistributionStep_Remediate_RefusesForeignDistribution(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult(Command, markerArgs, ports.CommandResult{})
	fsys := mocks.NewFileSystem()
	fsys.AddFile(osReleaseShare, ubuntuRelease)
	fetcher := mocks.NewFetcher()

	err := newDistributionStepFS(runner, fsys, fetcher, distroConfig("root")).Remediate(context.Background())
	require.ErrorIs(t, err, ErrForeignDistribution)
	assert.Empty(t, fetcher.Transfers())
	assert.Equal(t, 1, runner.CallCount(Command, markerArgs...))
	assert.Len(t, runner.Calls(), 1)
}

func TestDistributionStep_Remediate_AlreadyInstalled(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult(Command, markerArgs, ports.CommandResult{})
	fetcher := mocks.NewFetcher()

	require.NoError(t, newDistributionStep(runner, fetcher, distroConfig("root")).Remediate(context.Background()))
	assert.Empty(t, fetcher.Transfers())
}

func TestDistributionStep_Remediate(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	fetcher := mocks.NewFetcher()
	cfg := distroConfig("root")
	installer := filepath.Join("work", "arch", "Arch.exe")
	runner.AddResult(Command, markerArgs, ports.CommandResult{ExitCode: 1})
	runner.AddResult(installer, nil, ports.CommandResult{Stdout: "Installation complete\n"})

	step := newDistributionStep(runner, fetcher, cfg)
	require.NoError(t, step.Remediate(context.Background()))

	archive := filepath.Join("cache", "Arch.zip")
	assert.Equal(t, []string{config.DefaultArchURL}, fetcher.Transfers())
	assert.Equal(t, []string{archive + " -> " + cfg.InstallDir}, fetcher.Extractions())
	assert.Equal(t, 1, runner.CallCount(installer))
	assert.Len(t, runner.Calls(), 2)
}

func TestDistributionStep_Remediate_CreatesUser(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	installer := filepath.Join("work", "arch", "Arch.exe")
	runner.AddResult(installer, nil, ports.CommandResult{})
	runner.AddResult(Command, []string{"-d", "Arch", "-u", "root", "--", "id", "-u", "fenris"},
		ports.CommandResult{ExitCode: 1, Stderr: "id: 'fenris': no such user"})
	useradd := []string{"-d", "Arch", "-u", "root", "--", "useradd", "--create-home", "--shell", "/bin/bash", "fenris"}
	runner.AddResult(Command, useradd, ports.CommandResult{})

	step := newDistributionStep(runner, mocks.NewFetcher(), distroConfig("fenris"))
	require.NoError(t, step.Remediate(context.Background()))
	assert.Equal(t, 1, runner.CallCount(Command, useradd...))
}

func TestDistributionStep_Remediate_ExistingUser(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	runner.AddResult(filepath.Join("work", "arch", "Arch.exe"), nil, ports.CommandResult{})
	runner.AddResult(Command, []string{"-d", "Arch", "-u", "root", "--", "id", "-u", "fenris"},
		ports.CommandResult{Stdout: "1000\n"})

	step := newDistributionStep(runner, mocks.NewFetcher(), distroConfig("fenris"))
	require.NoError(t, step.Remediate(context.Background()))
	assert.Len(t, runner.Calls(), 3, "marker probe, installer, id")
}

func TestDistributionStep_Remediate_Failures(t *testing.T) {
	t.Parallel()

	errOffline := errors.New("dial tcp: lookup github.com: no such host")
	installer := filepath.Join("work", "arch", "Arch.exe")

	tests := []struct {
		name    string
		setup   func(*mocks.CommandRunner, *mocks.Fetcher)
		wantErr string
	}{
		{
			name:    "download fails",
			setup:   func(_ *mocks.CommandRunner, f *mocks.Fetcher) { f.FailDownload(config.DefaultArchURL, errOffline) },
			wantErr: "no such host",
		},
		{
			name:    "extract fails",
			setup:   func(_ *mocks.CommandRunner, f *mocks.Fetcher) { f.FailExtract(errors.New("zip: not a valid zip file")) },
			wantErr: "not a valid zip file",
		},
		{
			name: "installer fails",
			setup: func(r *mocks.CommandRunner, _ *mocks.Fetcher) {
				r.AddResult(installer, nil, ports.CommandResult{ExitCode: 1, Stdout: "WslRegisterDistribution failed with error: 0x80370102"})
			},
			wantErr: "install Arch",
		},
		{
			name: "user creation fails",
			setup: func(r *mocks.CommandRunner, _ *mocks.Fetcher) {
				r.AddResult(installer, nil, ports.CommandResult{})
				r.AddResult(Command, []string{"-d", "Arch", "-u", "root", "--", "id", "-u", "fenris"}, ports.CommandResult{ExitCode: 1})
				r.AddResult(Command, []string{"-d", "Arch", "-u", "root", "--", "useradd", "--create-home", "--shell", "/bin/bash", "fenris"},
					ports.CommandResult{ExitCode: 9})
			},
			wantErr: "create user fenris",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			runner := mocks.NewCommandRunner()
			fetcher := mocks.NewFetcher()
			tt.setup(runner, fetcher)

			err := newDistributionStep(runner, fetcher, distroConfig("fenris")).Remediate(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCachePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: config.DefaultArchURL, want: filepath.Join("cache", "Arch.zip")},
		{url: "https://repo.anaconda.com/miniconda/Miniconda3-latest-Linux-x86_64.sh?x=1", want: filepath.Join("cache", "Miniconda3-latest-Linux-x86_64.sh")},
		{url: "https://example.com/", wantErr: true},
		{url: "https://example.com", wantErr: true},
		{url: "://bad", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			got, err := CachePath("cache", tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
