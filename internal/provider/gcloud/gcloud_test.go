package gcloud

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/wslboot/internal/domain/config"
	"github.com/felixgeelhaar/wslboot/internal/domain/platform"
	"github.com/felixgeelhaar/wslboot/internal/domain/sequence"
	"github.com/felixgeelhaar/wslboot/internal/ports"
	"github.com/felixgeelhaar/wslboot/internal/provider/wsl"
	"github.com/felixgeelhaar/wslboot/internal/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cacheDir = `C:\Users\fenris\Downloads\wslboot`

var (
	testArgs = []string{"-d", "Arch", "-u", "root", "--", "test", "-x", "/root/google-cloud-sdk/bin/gcloud"}
	listArgs = script("/root/google-cloud-sdk/bin/gcloud components list --only-local-state --format='value(id)' --quiet")
	install  = script("mkdir -p /root/google-cloud-sdk && tar -xzf /mnt/c/Users/fenris/Downloads/wslboot/google-cloud-cli-linux-x86_64.tar.gz" +
		" -C /root/google-cloud-sdk --strip-components=1 && /root/google-cloud-sdk/install.sh --quiet")
)

func script(s string) []string {
	return []string{"-d", "Arch", "-u", "root", "--", "bash", "-lc", s}
}

func newStep(runner *mocks.CommandRunner, fetcher *mocks.Fetcher, components ...string) *Step {
	cfg := config.CloudSDKConfig{
		Home:       "/root/google-cloud-sdk",
		ArchiveURL: config.DefaultCloudSDKURL,
		Components: components,
	}
	return NewStep(wsl.NewDistro(runner, "Arch", "root", "bash"), fetcher, platform.NewPathTranslator("Arch"), cfg, cacheDir)
}

func TestStep_Check(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		components []string
		setup      func(*mocks.CommandRunner)
		want       sequence.State
		wantErr    bool
	}{
		{
			name: "not installed",
			setup: func(r *mocks.CommandRunner) {
				r.AddResult(wsl.Command, testArgs, ports.CommandResult{ExitCode: 1})
			},
			want: sequence.StateAbsent,
		},
		{
			name: "installed without components",
			setup: func(r *mocks.CommandRunner) {
				r.AddResult(wsl.Command, testArgs, ports.CommandResult{})
			},
			want: sequence.StatePresent,
		},
		{
			name:       "components present",
			components: []string{"app-engine-python", "app-engine-python-extras"},
			setup: func(r *mocks.CommandRunner) {
				r.AddResult(wsl.Command, testArgs, ports.CommandResult{})
				r.AddResult(wsl.Command, listArgs, ports.CommandResult{Stdout: "app-engine-python\napp-engine-python-extras\nbq\ncore\n"})
			},
			want: sequence.StatePresent,
		},
		{
			name:       "component missing",
			components: []string{"app-engine-python", "app-engine-python-extras"},
			setup: func(r *mocks.CommandRunner) {
				r.AddResult(wsl.Command, testArgs, ports.CommandResult{})
				r.AddResult(wsl.Command, listArgs, ports.CommandResult{Stdout: "app-engine-python\nbq\ncore\n"})
			},
			want: sequence.StateAbsent,
		},
		{
			name:       "component listing fails",
			components: []string{"app-engine-python"},
			setup: func(r *mocks.CommandRunner) {
				r.AddResult(wsl.Command, testArgs, ports.CommandResult{})
				r.AddResult(wsl.Command, listArgs, ports.CommandResult{ExitCode: 1, Stderr: "ERROR: gcloud crashed"})
			},
			want:    sequence.StateUnknown,
			wantErr: true,
		},
		{
			name: "distribution unreachable",
			setup: func(r *mocks.CommandRunner) {
				r.AddResult(wsl.Command, testArgs, ports.CommandResult{ExitCode: -1})
			},
			want:    sequence.StateUnknown,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			runner := mocks.NewCommandRunner()
			tt.setup(runner)

			state, err := newStep(runner, mocks.NewFetcher(), tt.components...).Check(context.Background())
			assert.Equal(t, tt.want, state)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStep_Remediate_FreshInstall(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	fetcher := mocks.NewFetcher()
	runner.AddResult(wsl.Command, testArgs, ports.CommandResult{ExitCode: 1})
	runner.AddResult(wsl.Command, install, ports.CommandResult{})
	runner.AddResult(wsl.Command, listArgs, ports.CommandResult{Stdout: "bq\ncore\ngsutil\n"})
	components := script("/root/google-cloud-sdk/bin/gcloud components install app-engine-python --quiet")
	runner.AddResult(wsl.Command, components, ports.CommandResult{})

	step := newStep(runner, fetcher, "app-engine-python")
	require.NoError(t, step.Remediate(context.Background()))

	assert.Equal(t, []string{config.DefaultCloudSDKURL}, fetcher.Transfers())
	assert.Equal(t, 1, runner.CallCount(wsl.Command, install...))
	assert.Equal(t, 1, runner.CallCount(wsl.Command, components...))
	assert.Equal(t, config.StepCloudSDK, step.Name())
}

func TestStep_Remediate_OnlyMissingComponents(t *testing.T) {
	t.Parallel()

	runner := mocks.NewCommandRunner()
	fetcher := mocks.NewFetcher()
	runner.AddResult(wsl.Command, testArgs, ports.CommandResult{})
	runner.AddResult(wsl.Command, listArgs, ports.CommandResult{Stdout: "app-engine-python\ncore\n"})
	components := script("/root/google-cloud-sdk/bin/gcloud components install app-engine-python-extras --quiet")
	runner.AddResult(wsl.Command, components, ports.CommandResult{})

	step := newStep(runner, fetcher, "app-engine-python", "app-engine-python-extras")
	require.NoError(t, step.Remediate(context.Background()))

	assert.Empty(t, fetcher.Transfers())
	assert.Zero(t, runner.CallCount(wsl.Command, install...))
	assert.Equal(t, 1, runner.CallCount(wsl.Command, components...))
}

func TestStep_Remediate_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		components []string
		setup      func(*mocks.CommandRunner, *mocks.Fetcher)
		wantErr    string
	}{
		{
			name:       "invalid component",
			components: []string{"app-engine-python; rm -rf /"},
			setup:      func(*mocks.CommandRunner, *mocks.Fetcher) {},
			wantErr:    "invalid component",
		},
		{
			name: "download fails",
			setup: func(r *mocks.CommandRunner, f *mocks.Fetcher) {
				r.AddResult(wsl.Command, testArgs, ports.CommandResult{ExitCode: 1})
				f.FailDownload(config.DefaultCloudSDKURL, errors.New("bad response code: 503"))
			},
			wantErr: "503",
		},
		{
			name: "install script fails",
			setup: func(r *mocks.CommandRunner, _ *mocks.Fetcher) {
				r.AddResult(wsl.Command, testArgs, ports.CommandResult{ExitCode: 1})
				r.AddResult(wsl.Command, install, ports.CommandResult{ExitCode: 2, Stderr: "gzip: stdin: unexpected end of file"})
			},
			wantErr: "install cloud SDK",
		},
		{
			name:       "component install fails",
			components: []string{"app-engine-python"},
			setup: func(r *mocks.CommandRunner, _ *mocks.Fetcher) {
				r.AddResult(wsl.Command, testArgs, ports.CommandResult{})
				r.AddResult(wsl.Command, listArgs, ports.CommandResult{Stdout: "core\n"})
				r.AddResult(wsl.Command, script("/root/google-cloud-sdk/bin/gcloud components install app-engine-python --quiet"),
					ports.CommandResult{ExitCode: 1, Stderr: "ERROR: (gcloud.components.install) You cannot perform this action because the Google Cloud CLI component manager is disabled"})
			},
			wantErr: "component manager is disabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			runner := mocks.NewCommandRunner()
			fetcher := mocks.NewFetcher()
			tt.setup(runner, fetcher)

			err := newStep(runner, fetcher, tt.components...).Remediate(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
