package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileNames are searched, in order, when no config path is given.
var FileNames = []string{"wslboot.yaml", "wslboot.yml", "wslboot.toml"}

// Loader loads configuration from the filesystem.
type Loader struct{}

// NewLoader creates a new Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Discover returns the first config file from FileNames present in dir,
// or "" if there is none.
func (l *Loader) Discover(dir string) string {
	for _, name := range FileNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// Load reads the config file at path over the defaults, renders templates
// and validates the result. An empty path yields the rendered defaults.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, NewConfigNotFoundError(path)
			}
			return nil, err
		}
		if err := Parse(cfg, path, data); err != nil {
			return nil, err
		}
	}

	if err := cfg.Render(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data onto cfg. The format is chosen by the extension of
// path. Lists present in the document replace the defaults entirely.
func Parse(cfg *Config, path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return NewYAMLParseError(path, err)
		}
		return nil

	case ".toml":
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return NewTOMLParseError(path, err)
		}
		cfg.resetLists(doc)

		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return NewTOMLParseError(path, err)
		}
		return nil

	default:
		return NewUnsupportedFormatError(path)
	}
}

// resetLists clears default lists the document sets, because the TOML
// decoder appends array tables to an existing slice.
func (c *Config) resetLists(doc map[string]any) {
	has := func(table, key string) bool {
		if table == "" {
			_, ok := doc[key]
			return ok
		}
		t, ok := doc[table].(map[string]any)
		if !ok {
			return false
		}
		_, ok = t[key]
		return ok
	}

	if has("", "runtimes") {
		c.Runtimes = nil
	}
	if has("subsystem", "features") {
		c.Subsystem.Features = nil
	}
	if has("shell", "lines") {
		c.Shell.Lines = nil
	}
	if has("cloud_sdk", "components") {
		c.CloudSDK.Components = nil
	}
}
