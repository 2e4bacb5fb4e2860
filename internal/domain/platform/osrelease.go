package platform

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/ini.v1"
)

// OSRelease holds the identifying fields of an os-release(5) file.
type OSRelease struct {
	ID         string
	IDLike     string
	Name       string
	PrettyName string
	VersionID  string
}

// ParseOSRelease parses os-release content. Values may be quoted.
func ParseOSRelease(data []byte) (OSRelease, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}, data)
	if err != nil {
		return OSRelease{}, fmt.Errorf("parse os-release: %w", err)
	}

	sec := cfg.Section(ini.DefaultSection)
	return OSRelease{
		ID:         sec.Key("ID").String(),
		IDLike:     sec.Key("ID_LIKE").String(),
		Name:       sec.Key("NAME").String(),
		PrettyName: sec.Key("PRETTY_NAME").String(),
		VersionID:  sec.Key("VERSION_ID").String(),
	}, nil
}

// ReadOSRelease parses the os-release file at path.
func ReadOSRelease(path string) (OSRelease, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OSRelease{}, err
	}
	return ParseOSRelease(data)
}

// Matches reports whether the release is id or lists it in ID_LIKE.
func (r OSRelease) Matches(id string) bool {
	if r.ID == id {
		return true
	}
	for _, like := range strings.Fields(r.IDLike) {
		if like == id {
			return true
		}
	}
	return false
}

// IsArch reports whether the release is Arch Linux or derived from it.
func (r OSRelease) IsArch() bool {
	return r.Matches("arch")
}
