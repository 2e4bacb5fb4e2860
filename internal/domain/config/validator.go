package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/wslboot/internal/validation"
)

// Shells wslboot knows how to drive with "<shell> -lc" and "conda init".
var supportedShells = map[string]bool{"bash": true, "zsh": true, "fish": true}

type field struct {
	name  string
	value string
}

// Validate checks a rendered configuration and returns every problem found.
// Names and paths end up inside shell scripts run in the distribution, so
// they are held to the validation package's injection-safe formats.
func (c *Config) Validate() error {
	errs := NewErrorList()
	check := func(name string, err error, suggestion string) {
		if err != nil {
			errs.AddValidation(name, err.Error(), suggestion)
		}
	}

	check("distro.name", validation.ValidateDistroName(c.Distro.Name), "Set the WSL distribution name, e.g. Arch.")
	check("distro.user", validation.ValidateUserName(c.Distro.User), "Set the Linux user commands run as, e.g. root.")
	if !supportedShells[c.Distro.Shell] {
		errs.AddValidation("distro.shell", fmt.Sprintf("unsupported shell %q", c.Distro.Shell), "Use bash, zsh or fish.")
	}
	check("distro.home", validation.ValidateLinuxPath(c.Distro.Home), "")
	if c.Distro.ReleaseID != "" {
		check("distro.release_id", validation.ValidateReleaseID(c.Distro.ReleaseID), "Use the ID from the distribution's /etc/os-release, e.g. arch.")
	}

	if !c.IsSkipped(StepSubsystem) && len(c.Subsystem.Features) == 0 {
		errs.AddValidation("subsystem.features", "must list at least one feature", "Use Microsoft-Windows-Subsystem-Linux and VirtualMachinePlatform.")
	}
	for i, feature := range c.Subsystem.Features {
		check(fmt.Sprintf("subsystem.features[%d]", i), validation.ValidateFeatureName(feature), "")
	}
	if v := c.Subsystem.DefaultVersion; v != 0 && v != 1 && v != 2 {
		errs.AddValidation("subsystem.default_version", fmt.Sprintf("must be 1 or 2, got %d", v), "")
	}

	for _, f := range []field{
		{"distro.archive_url", c.Distro.ArchiveURL},
		{"conda.installer_url", c.Conda.InstallerURL},
		{"cloud_sdk.archive_url", c.CloudSDK.ArchiveURL},
	} {
		check(f.name, validation.ValidateURL(f.value), "Use an absolute http(s) URL.")
	}

	for _, f := range []field{
		{"conda.home", c.Conda.Home},
		{"datastore.path", c.Datastore.Path},
		{"cloud_sdk.home", c.CloudSDK.Home},
		{"shell.rc_file", c.Shell.RCFile},
	} {
		check(f.name, validation.ValidateLinuxPath(f.value), "")
	}

	if c.Conda.MinVersion != "" && CanonicalVersion(c.Conda.MinVersion) == "" {
		errs.AddValidation("conda.min_version", fmt.Sprintf("invalid version %q", c.Conda.MinVersion), "Use a version like 23.1.0.")
	}

	seen := make(map[string]bool, len(c.Runtimes))
	for i, rt := range c.Runtimes {
		prefix := fmt.Sprintf("runtimes[%d]", i)
		if err := validation.ValidateEnvName(rt.Name); err != nil {
			check(prefix+".name", err, "")
		} else if seen[rt.Name] {
			errs.AddValidation(prefix+".name", fmt.Sprintf("duplicate runtime %q", rt.Name), "Give each runtime a unique environment name.")
		}
		seen[rt.Name] = true
		if CanonicalVersion(rt.Python) == "" {
			errs.AddValidation(prefix+".python", fmt.Sprintf("invalid Python version %q", rt.Python), "Use a version like 3.11.")
		}
	}

	for i, line := range c.Shell.Lines {
		check(fmt.Sprintf("shell.lines[%d]", i), validation.ValidateShellLine(line), "Put each line in its own list entry.")
	}
	for i, component := range c.CloudSDK.Components {
		check(fmt.Sprintf("cloud_sdk.components[%d]", i), validation.ValidateComponent(component), "")
	}

	known := make(map[string]bool)
	for _, name := range c.StepNames() {
		known[name] = true
	}
	names := make([]string, 0, len(c.Steps))
	for name := range c.Steps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !known[name] {
			errs.AddValidation("steps."+name, "unknown step", "Known steps: "+strings.Join(c.StepNames(), ", "))
		}
	}

	return errs.AsError()
}
