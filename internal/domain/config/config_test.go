package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

func TestDefault_RendersDefaultLayout(t *testing.T) {
	t.Parallel()

	cfg := Default()
	require.NoError(t, cfg.Render())
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/root", cfg.Distro.Home)
	assert.Equal(t, "arch", cfg.Distro.ReleaseID)
	assert.Equal(t, "/root/.condahome", cfg.Conda.Home)
	assert.Equal(t, "/root/datastore.bin", cfg.Datastore.Path)
	assert.Equal(t, "/root/google-cloud-sdk", cfg.CloudSDK.Home)
	assert.Equal(t, "/root/.bashrc", cfg.Shell.RCFile)

	assert.Equal(t, []string{
		"# >>> Google Cloud SDK Environment variables >>>",
		"export CLOUDSDK_DEV_PYTHON='/root/.condahome/envs/py2/bin/python'",
		"export CLOUD_SDK_ROOT='/root/google-cloud-sdk'",
		"export CLOUDSDK_PYTHON_HOME='/root/.condahome/envs/py3'",
		"export CLOUDSDK_PYTHON='/root/.condahome/envs/py3/bin/python'",
		"export CLOUDSDK_DATASTORE='/root/datastore.bin'",
		"export APPLICATION_ID='dev~None'",
		DefaultShellLines[7],
		"# <<< Google Cloud SDK Environment variables <<<",
	}, cfg.Shell.Lines)
}

func TestDefault_IsFresh(t *testing.T) {
	t.Parallel()

	a := Default()
	a.Shell.Lines[0] = "mutated"
	assert.Equal(t, DefaultShellLines[0], Default().Shell.Lines[0])
}

func TestHomeFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/root", HomeFor("root"))
	assert.Equal(t, "/home/fenris", HomeFor("fenris"))
}

func TestConfig_StepNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"subsystem-enabled",
		"distribution-installed",
		"env-manager-installed",
		"runtime-py2-present",
		"runtime-py3-present",
		"datastore-present",
		"shell-config-updated",
		"cloud-sdk-installed",
	}, Default().StepNames())
}

func TestConfig_StepPolicy(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Steps = map[string]StepPolicy{
		StepDistribution: {Required: boolPtr(false)},
		StepCloudSDK:     {Required: boolPtr(true)},
		StepDatastore:    {Skip: true},
	}

	tests := []struct {
		step     string
		required bool
		skipped  bool
	}{
		{StepSubsystem, true, false},
		{StepDistribution, false, false},
		{StepEnvManager, true, false},
		{RuntimeStepName("py3"), false, false},
		{StepDatastore, false, true},
		{StepCloudSDK, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.required, cfg.IsRequired(tt.step))
			assert.Equal(t, tt.skipped, cfg.IsSkipped(tt.step))
		})
	}
}

func TestRender_CustomUserAndSprig(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Distro.User = "fenris"
	cfg.Shell.Lines = []string{
		"export WSL_USER={{ .User | upper }}",
		"export SDK={{ clean (printf \"%s/../google-cloud-sdk\" .CondaHome) }}",
		"plain line",
	}
	require.NoError(t, cfg.Render())

	assert.Equal(t, "/home/fenris/.condahome", cfg.Conda.Home)
	assert.Equal(t, []string{
		"export WSL_USER=FENRIS",
		"export SDK=/home/fenris/google-cloud-sdk",
		"plain line",
	}, cfg.Shell.Lines)
}

func TestRender_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		context string
	}{
		{
			name:    "parse error",
			mutate:  func(c *Config) { c.Conda.Home = "{{ .Home " },
			context: "conda.home",
		},
		{
			name:    "unknown field",
			mutate:  func(c *Config) { c.Datastore.Path = "{{ .Nope }}" },
			context: "datastore.path",
		},
		{
			name: "missing python2 runtime",
			mutate: func(c *Config) {
				c.Runtimes = []RuntimeConfig{{Name: "py3", Python: "3.11"}}
			},
			context: "shell.lines[1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Render()
			require.Error(t, err)
			ue := GetUserError(err)
			require.NotNil(t, ue)
			assert.Equal(t, ErrCodeTemplateInvalid, ue.Code)
			assert.Equal(t, tt.context, ue.Context)
		})
	}
}

func TestCanonicalVersion(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"3.11":    "v3.11",
		"v3.11.4": "v3.11.4",
		" 2.7 ":   "v2.7",
		"":        "",
		"latest":  "",
		"3.11.x":  "",
		"23.11.0": "v23.11.0",
	}
	for in, want := range tests {
		assert.Equal(t, want, CanonicalVersion(in), "input %q", in)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		fields []string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name: "empty distro",
			mutate: func(c *Config) {
				c.Distro.Name = ""
				c.Distro.Shell = ""
			},
			fields: []string{"distro.name", "distro.shell"},
		},
		{
			name: "skipped subsystem needs no features",
			mutate: func(c *Config) {
				c.Subsystem.Features = nil
				c.Steps = map[string]StepPolicy{StepSubsystem: {Skip: true}}
			},
		},
		{
			name:   "no features",
			mutate: func(c *Config) { c.Subsystem.Features = nil },
			fields: []string{"subsystem.features"},
		},
		{
			name:   "bad wsl version",
			mutate: func(c *Config) { c.Subsystem.DefaultVersion = 3 },
			fields: []string{"subsystem.default_version"},
		},
		{
			name: "bad urls",
			mutate: func(c *Config) {
				c.Distro.ArchiveURL = "Arch.zip"
				c.CloudSDK.ArchiveURL = ""
			},
			fields: []string{"distro.archive_url", "cloud_sdk.archive_url"},
		},
		{
			name:   "relative path",
			mutate: func(c *Config) { c.Datastore.Path = "datastore.bin" },
			fields: []string{"datastore.path"},
		},
		{
			name: "injection attempts",
			mutate: func(c *Config) {
				c.Distro.User = "root;reboot"
				c.Conda.Home = "/root/$(id)"
				c.CloudSDK.Components = []string{"--quiet"}
				c.Shell.Lines = append(c.Shell.Lines, "a\nb")
			},
			fields: []string{"distro.user", "conda.home", "shell.lines[9]", "cloud_sdk.components[0]"},
		},
		{
			name:   "unsupported shell",
			mutate: func(c *Config) { c.Distro.Shell = "pwsh" },
			fields: []string{"distro.shell"},
		},
		{
			name:   "bad min version",
			mutate: func(c *Config) { c.Conda.MinVersion = "new" },
			fields: []string{"conda.min_version"},
		},
		{
			name: "bad runtimes",
			mutate: func(c *Config) {
				c.Runtimes = []RuntimeConfig{
					{Name: "py3", Python: "3.11"},
					{Name: "py3", Python: "3.12"},
					{Name: "", Python: "three"},
				}
			},
			fields: []string{"runtimes[1].name", "runtimes[2].name", "runtimes[2].python"},
		},
		{
			name:   "release id",
			mutate: func(c *Config) { c.Distro.ReleaseID = "Arch Linux" },
			fields: []string{"distro.release_id"},
		},
		{
			name:   "release id check disabled",
			mutate: func(c *Config) { c.Distro.ReleaseID = "" },
		},
		{
			name: "unknown step policy",
			mutate: func(c *Config) {
				c.Steps = map[string]StepPolicy{"runtime-py4-present": {Skip: true}}
			},
			fields: []string{"steps.runtime-py4-present"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			require.NoError(t, cfg.Render())
			tt.mutate(cfg)

			err := cfg.Validate()
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			list, ok := err.(*ErrorList)
			require.True(t, ok)
			got := make([]string, 0, list.Len())
			for _, e := range list.Errors() {
				got = append(got, e.Context)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}
