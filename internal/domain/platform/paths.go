package platform

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// PathTranslator maps paths between a Windows host and one WSL distribution.
type PathTranslator struct {
	distro string
}

// NewPathTranslator creates a path translator for the named distribution.
func NewPathTranslator(distro string) *PathTranslator {
	return &PathTranslator{distro: distro}
}

// windowsPathRegex matches Windows paths like C:\Users or C:/Users.
var windowsPathRegex = regexp.MustCompile(`^([A-Za-z]):[/\\]?(.*)$`)

// ToWSL converts a Windows path to its WSL equivalent.
// e.g., C:\Users\name -> /mnt/c/Users/name
func (t *PathTranslator) ToWSL(windowsPath string) (string, error) {
	if windowsPath == "" {
		return "", fmt.Errorf("empty path")
	}

	if strings.HasPrefix(windowsPath, "/") {
		return windowsPath, nil
	}

	if linuxPath, ok := t.fromShare(windowsPath); ok {
		return linuxPath, nil
	}

	matches := windowsPathRegex.FindStringSubmatch(windowsPath)
	if matches == nil {
		return "", fmt.Errorf("invalid Windows path: %s", windowsPath)
	}

	driveLetter := strings.ToLower(matches[1])
	relativePath := strings.ReplaceAll(matches[2], "\\", "/")

	return path.Clean(fmt.Sprintf("/mnt/%s/%s", driveLetter, relativePath)), nil
}

// ToWindows converts a WSL path to its Windows equivalent. Drive mounts map
// back to the drive; every other path maps onto the \\wsl$ share.
// e.g., /mnt/c/Users/name -> C:\Users\name, /root/.bashrc -> \\wsl$\Arch\root\.bashrc
func (t *PathTranslator) ToWindows(wslPath string) (string, error) {
	if wslPath == "" {
		return "", fmt.Errorf("empty path")
	}
	if !strings.HasPrefix(wslPath, "/") {
		return "", fmt.Errorf("not an absolute WSL path: %s", wslPath)
	}

	if !IsWSLMountPath(wslPath) {
		return t.SharePath(wslPath), nil
	}

	parts := strings.SplitN(strings.TrimPrefix(wslPath, "/mnt/"), "/", 2)
	driveLetter := strings.ToUpper(parts[0])
	var relativePath string
	if len(parts) > 1 {
		relativePath = parts[1]
	}

	return fmt.Sprintf("%s:\\%s", driveLetter, strings.ReplaceAll(relativePath, "/", "\\")), nil
}

// SharePath returns the \\wsl$ UNC path of a path inside the distribution.
func (t *PathTranslator) SharePath(linuxPath string) string {
	clean := path.Clean("/" + linuxPath)
	return `\\wsl$\` + t.distro + strings.ReplaceAll(clean, "/", `\`)
}

func (t *PathTranslator) fromShare(p string) (string, bool) {
	prefix := `\\wsl$\` + t.distro
	if !strings.HasPrefix(strings.ToLower(p), strings.ToLower(prefix)) {
		return "", false
	}
	rest := strings.ReplaceAll(p[len(prefix):], `\`, "/")
	return path.Clean("/" + rest), true
}

// IsWindowsPath returns true if the path looks like a Windows path.
func IsWindowsPath(p string) bool {
	return windowsPathRegex.MatchString(p)
}

// IsWSLMountPath returns true if the path is a WSL Windows drive mount.
func IsWSLMountPath(p string) bool {
	if !strings.HasPrefix(p, "/mnt/") || len(p) < 6 {
		return false
	}
	if len(p) > 6 && p[6] != '/' {
		return false
	}
	driveLetter := p[5]
	return (driveLetter >= 'a' && driveLetter <= 'z') || (driveLetter >= 'A' && driveLetter <= 'Z')
}
