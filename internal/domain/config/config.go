// Package config defines the wslboot configuration model, its defaults and
// its file loader.
package config

import (
	"fmt"
	"path"
)

// Step names, in provisioning order.
const (
	StepSubsystem    = "subsystem-enabled"
	StepDistribution = "distribution-installed"
	StepEnvManager   = "env-manager-installed"
	StepDatastore    = "datastore-present"
	StepShellConfig  = "shell-config-updated"
	StepCloudSDK     = "cloud-sdk-installed"
)

// RuntimeStepName returns the step name for the runtime environment name.
func RuntimeStepName(name string) string {
	return fmt.Sprintf("runtime-%s-present", name)
}

// Config is the complete wslboot configuration.
//
// Path and shell-line fields are text/template strings rendered by Render.
type Config struct {
	Distro    DistroConfig          `yaml:"distro" toml:"distro"`
	Subsystem SubsystemConfig       `yaml:"subsystem" toml:"subsystem"`
	Conda     CondaConfig           `yaml:"conda" toml:"conda"`
	Runtimes  []RuntimeConfig       `yaml:"runtimes" toml:"runtimes"`
	Datastore DatastoreConfig       `yaml:"datastore" toml:"datastore"`
	Shell     ShellConfig           `yaml:"shell" toml:"shell"`
	CloudSDK  CloudSDKConfig        `yaml:"cloud_sdk" toml:"cloud_sdk"`
	CacheDir  string                `yaml:"cache_dir" toml:"cache_dir"`
	Steps     map[string]StepPolicy `yaml:"steps" toml:"steps"`
}

// DistroConfig describes the WSL distribution to install and use.
type DistroConfig struct {
	Name       string `yaml:"name" toml:"name"`
	User       string `yaml:"user" toml:"user"`
	Home       string `yaml:"home" toml:"home"`
	Shell      string `yaml:"shell" toml:"shell"`
	ArchiveURL string `yaml:"archive_url" toml:"archive_url"`
	InstallDir string `yaml:"install_dir" toml:"install_dir"`
	Installer  string `yaml:"installer" toml:"installer"`
	Marker     string `yaml:"marker" toml:"marker"`
	// ReleaseID is the os-release ID the installed distribution must report.
	// Empty skips the identity check.
	ReleaseID  string `yaml:"release_id" toml:"release_id"`
}

// SubsystemConfig lists the Windows optional features WSL needs.
type SubsystemConfig struct {
	Features       []string `yaml:"features" toml:"features"`
	DefaultVersion int      `yaml:"default_version" toml:"default_version"`
}

// CondaConfig configures the Miniconda environment manager.
type CondaConfig struct {
	Home         string `yaml:"home" toml:"home"`
	InstallerURL string `yaml:"installer_url" toml:"installer_url"`
	MinVersion   string `yaml:"min_version" toml:"min_version"`
}

// RuntimeConfig pins one conda environment to a Python version.
type RuntimeConfig struct {
	Name   string `yaml:"name" toml:"name"`
	Python string `yaml:"python" toml:"python"`
}

// DatastoreConfig locates the local datastore file.
type DatastoreConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// ShellConfig configures the shell startup file patch.
type ShellConfig struct {
	RCFile string   `yaml:"rc_file" toml:"rc_file"`
	Lines  []string `yaml:"lines" toml:"lines"`
}

// CloudSDKConfig configures the Google Cloud CLI installation.
type CloudSDKConfig struct {
	Home       string   `yaml:"home" toml:"home"`
	ArchiveURL string   `yaml:"archive_url" toml:"archive_url"`
	Components []string `yaml:"components" toml:"components"`
}

// StepPolicy overrides a step's defaults. A nil Required keeps the default.
type StepPolicy struct {
	Required *bool `yaml:"required" toml:"required"`
	Skip     bool  `yaml:"skip" toml:"skip"`
}

// Default download locations.
const (
	DefaultArchURL      = "https://github.com/yuk7/ArchWSL/releases/download/24.3.11.0/Arch.zip"
	DefaultMinicondaURL = "https://repo.anaconda.com/miniconda/Miniconda3-latest-Linux-x86_64.sh"
	DefaultCloudSDKURL  = "https://dl.google.com/dl/cloudsdk/channels/rapid/downloads/google-cloud-cli-linux-x86_64.tar.gz"
)

// DefaultShellLines is the Google Cloud SDK environment block.
var DefaultShellLines = []string{
	"# >>> Google Cloud SDK Environment variables >>>",
	"export CLOUDSDK_DEV_PYTHON='{{ .CondaHome }}/envs/{{ .Envs.python2 }}/bin/python'",
	"export CLOUD_SDK_ROOT='{{ clean .CloudSDKHome }}'",
	"export CLOUDSDK_PYTHON_HOME='{{ .CondaHome }}/envs/{{ .Envs.python3 }}'",
	"export CLOUDSDK_PYTHON='{{ .CondaHome }}/envs/{{ .Envs.python3 }}/bin/python'",
	"export CLOUDSDK_DATASTORE='{{ .Datastore }}'",
	"export APPLICATION_ID='dev~None'",
	`alias runapp="python3 $CLOUD_SDK_ROOT/bin/dev_appserver.py --runtime_python_path='python27=$CLOUDSDK_DEV_PYTHON,python3=$CLOUDSDK_PYTHON' --python_virtualenv_path $CLOUDSDK_PYTHON_HOME --datastore_path=$CLOUDSDK_DATASTORE"`,
	"# <<< Google Cloud SDK Environment variables <<<",
}

// Default returns the built-in configuration. Its templates are not yet
// rendered.
func Default() *Config {
	return &Config{
		Distro: DistroConfig{
			Name:       "Arch",
			User:       "root",
			Shell:      "bash",
			ArchiveURL: DefaultArchURL,
			InstallDir: "arch",
			Installer:  "Arch.exe",
			Marker:     "/usr/bin/pacman",
			ReleaseID:  "arch",
		},
		Subsystem: SubsystemConfig{
			Features:       []string{"Microsoft-Windows-Subsystem-Linux", "VirtualMachinePlatform"},
			DefaultVersion: 2,
		},
		Conda: CondaConfig{
			Home:         "{{ .Home }}/.condahome",
			InstallerURL: DefaultMinicondaURL,
		},
		Runtimes: []RuntimeConfig{
			{Name: "py2", Python: "2.7"},
			{Name: "py3", Python: "3.11"},
		},
		Datastore: DatastoreConfig{Path: "{{ .Home }}/datastore.bin"},
		Shell: ShellConfig{
			RCFile: "{{ .Home }}/.{{ .Shell }}rc",
			Lines:  append([]string(nil), DefaultShellLines...),
		},
		CloudSDK: CloudSDKConfig{
			Home:       "{{ .Home }}/google-cloud-sdk",
			ArchiveURL: DefaultCloudSDKURL,
			Components: []string{"app-engine-python"},
		},
		CacheDir: "downloads",
		Steps:    map[string]StepPolicy{},
	}
}

// HomeFor returns the conventional home directory of a Linux user.
func HomeFor(user string) string {
	if user == "root" {
		return "/root"
	}
	return path.Join("/home", user)
}

// StepNames returns every step name this configuration produces, in order.
func (c *Config) StepNames() []string {
	names := []string{StepSubsystem, StepDistribution, StepEnvManager}
	for _, rt := range c.Runtimes {
		names = append(names, RuntimeStepName(rt.Name))
	}
	return append(names, StepDatastore, StepShellConfig, StepCloudSDK)
}

// IsRequired reports whether a step aborts the run on failure. The
// subsystem, distribution and environment manager are required by default
// since every later step runs inside them.
func (c *Config) IsRequired(step string) bool {
	if p, ok := c.Steps[step]; ok && p.Required != nil {
		return *p.Required
	}
	switch step {
	case StepSubsystem, StepDistribution, StepEnvManager:
		return true
	}
	return false
}

// IsSkipped reports whether a step is excluded from the run.
func (c *Config) IsSkipped(step string) bool {
	return c.Steps[step].Skip
}
