package config

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/mod/semver"
)

// Vars are the values available to configuration templates.
type Vars struct {
	User         string
	Home         string
	Shell        string
	Distro       string
	CondaHome    string
	CloudSDKHome string
	Datastore    string
	// Envs maps "python<major>" to the first runtime pinned to that major.
	Envs map[string]string
}

// Render expands every template field in place. Paths are rendered first so
// shell lines can reference them.
func (c *Config) Render() error {
	if c.Distro.Home == "" {
		c.Distro.Home = HomeFor(c.Distro.User)
	}

	vars := Vars{
		User:   c.Distro.User,
		Home:   c.Distro.Home,
		Shell:  c.Distro.Shell,
		Distro: c.Distro.Name,
		Envs:   runtimeEnvs(c.Runtimes),
	}

	paths := []struct {
		field string
		value *string
	}{
		{"conda.home", &c.Conda.Home},
		{"datastore.path", &c.Datastore.Path},
		{"cloud_sdk.home", &c.CloudSDK.Home},
		{"shell.rc_file", &c.Shell.RCFile},
	}
	for _, p := range paths {
		out, err := renderString(p.field, *p.value, vars)
		if err != nil {
			return err
		}
		*p.value = out
	}

	vars.CondaHome = c.Conda.Home
	vars.CloudSDKHome = c.CloudSDK.Home
	vars.Datastore = c.Datastore.Path

	lines := make([]string, 0, len(c.Shell.Lines))
	for i, line := range c.Shell.Lines {
		out, err := renderString(fmt.Sprintf("shell.lines[%d]", i), line, vars)
		if err != nil {
			return err
		}
		lines = append(lines, out)
	}
	c.Shell.Lines = lines

	return nil
}

func renderString(field, text string, vars Vars) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New(field).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return "", NewTemplateInvalidError(field, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", NewTemplateInvalidError(field, err)
	}
	return buf.String(), nil
}

func runtimeEnvs(runtimes []RuntimeConfig) map[string]string {
	envs := make(map[string]string, len(runtimes))
	for _, rt := range runtimes {
		major := semver.Major(CanonicalVersion(rt.Python))
		if major == "" {
			continue
		}
		key := "python" + strings.TrimPrefix(major, "v")
		if _, ok := envs[key]; !ok {
			envs[key] = rt.Name
		}
	}
	return envs
}

// CanonicalVersion turns "3.11" or "v3.11.4" into a semver string ("v3.11").
// Invalid input yields "".
func CanonicalVersion(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}
