// Package validation provides input validation utilities that keep
// configured names and paths from injecting commands into the shell
// scripts run inside a WSL distribution.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Common validation errors.
var (
	ErrEmptyInput         = errors.New("input cannot be empty")
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidDistroName  = errors.New("invalid distribution name")
	ErrInvalidUserName    = errors.New("invalid Linux user name")
	ErrInvalidEnvName     = errors.New("invalid conda environment name")
	ErrInvalidFeatureName = errors.New("invalid Windows feature name")
	ErrInvalidComponent   = errors.New("invalid cloud SDK component")
	ErrInvalidReleaseID   = errors.New("invalid os-release ID")
	ErrPathTraversal      = errors.New("path traversal detected")
	ErrInvalidPath        = errors.New("invalid path")
	ErrCommandInjection   = errors.New("potential command injection detected")
	ErrNewlineInjection   = errors.New("newline injection detected")
	ErrInvalidURL         = errors.New("invalid URL")
)

// Compiled regex patterns for validation (compiled once for performance).
var (
	// distroNameRegex matches WSL distribution names.
	// Examples: "Arch", "Ubuntu-22.04", "openSUSE-Leap-15.5"
	distroNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

	// userNameRegex matches POSIX-portable login names.
	// Examples: "root", "fenris", "dev_user"
	userNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_-]*$`)

	// envNameRegex matches conda environment names.
	// Examples: "py2", "Tummee_PY3", "app-engine-3.11"
	envNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

	// featureNameRegex matches DISM optional feature names.
	// Examples: "Microsoft-Windows-Subsystem-Linux", "VirtualMachinePlatform"
	featureNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9.-]*$`)

	// componentRegex matches gcloud component IDs.
	// Examples: "app-engine-python", "cloud-datastore-emulator"
	componentRegex = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

	// releaseIDRegex matches the ID field of os-release(5).
	// Examples: "arch", "ubuntu", "opensuse-leap"
	releaseIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

	// urlRegex matches http(s) URLs without whitespace.
	urlRegex = regexp.MustCompile(`^https?://[^\s/$.?#][^\s]*$`)

	// shellMetaChars contains shell metacharacters that could enable injection
	shellMetaChars = []string{";", "|", "&", "$", "`", "(", ")", "{", "}", "<", ">", "\n", "\r", "\\", "'", "\""}
)

func validateName(value string, max int, re *regexp.Regexp, kind error) error {
	if value == "" {
		return ErrEmptyInput
	}
	if len(value) > max {
		return fmt.Errorf("%w: %q is too long (max %d characters)", kind, value, max)
	}
	if !re.MatchString(value) {
		return fmt.Errorf("%w: %q contains invalid characters", kind, value)
	}
	return nil
}

// ValidateDistroName validates a WSL distribution name.
func ValidateDistroName(name string) error {
	return validateName(name, 64, distroNameRegex, ErrInvalidDistroName)
}

// ValidateUserName validates a Linux login name.
func ValidateUserName(name string) error {
	return validateName(name, 32, userNameRegex, ErrInvalidUserName)
}

// ValidateEnvName validates a conda environment name.
func ValidateEnvName(name string) error {
	return validateName(name, 128, envNameRegex, ErrInvalidEnvName)
}

// ValidateFeatureName validates a DISM optional feature name.
func ValidateFeatureName(name string) error {
	return validateName(name, 128, featureNameRegex, ErrInvalidFeatureName)
}

// ValidateComponent validates a gcloud component ID.
func ValidateComponent(name string) error {
	return validateName(name, 128, componentRegex, ErrInvalidComponent)
}

// ValidateReleaseID validates an os-release ID.
func ValidateReleaseID(id string) error {
	return validateName(id, 64, releaseIDRegex, ErrInvalidReleaseID)
}

// ValidateURL validates an http(s) download URL.
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return ErrEmptyInput
	}

	if len(urlStr) > 2048 {
		return fmt.Errorf("%w: URL too long", ErrInvalidURL)
	}

	if !urlRegex.MatchString(urlStr) {
		return fmt.Errorf("%w: %q must be a valid HTTP/HTTPS URL", ErrInvalidURL, urlStr)
	}

	return nil
}

// ValidateLinuxPath validates an absolute path inside the distribution.
func ValidateLinuxPath(p string) error {
	if p == "" {
		return ErrEmptyInput
	}

	if strings.Contains(p, "\x00") {
		return fmt.Errorf("%w: path contains null byte", ErrInvalidPath)
	}

	if !strings.HasPrefix(p, "/") {
		return fmt.Errorf("%w: %q must be absolute", ErrInvalidPath, p)
	}

	if containsPathTraversal(p) {
		return fmt.Errorf("%w: %q contains traversal sequence", ErrPathTraversal, p)
	}

	if containsShellMeta(p) {
		return fmt.Errorf("%w: %q contains shell metacharacters", ErrCommandInjection, p)
	}

	return nil
}

// ValidateShellLine validates one line appended to a shell startup file.
// Shell syntax is allowed; only line breaks and control characters are not.
func ValidateShellLine(line string) error {
	if strings.ContainsAny(line, "\n\r") {
		return fmt.Errorf("%w: %q spans multiple lines", ErrNewlineInjection, line)
	}
	for _, r := range line {
		if (r < 0x20 && r != '\t') || r == 0x7f {
			return fmt.Errorf("%w: %q contains control characters", ErrCommandInjection, line)
		}
	}
	return nil
}

// containsShellMeta checks if a string contains shell metacharacters.
func containsShellMeta(s string) bool {
	for _, char := range shellMetaChars {
		if strings.Contains(s, char) {
			return true
		}
	}
	return false
}

// containsPathTraversal checks for ".." segments, plain or URL-encoded.
func containsPathTraversal(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return true
		}
	}

	return strings.Contains(strings.ToLower(p), "%2e%2e")
}
