// Package platform provides host detection and the path conventions that
// connect a Windows host to its WSL distributions.
package platform

import (
	"os"
	"runtime"
	"strings"
	"sync"
)

// OS represents the operating system type.
type OS string

const (
	// OSDarwin is macOS.
	OSDarwin OS = "darwin"
	// OSLinux is Linux (native or WSL).
	OSLinux OS = "linux"
	// OSWindows is Windows.
	OSWindows OS = "windows"
	// OSUnknown is an unsupported OS.
	OSUnknown OS = "unknown"
)

// Environment represents the execution environment.
type Environment string

const (
	// EnvNative is a native OS environment.
	EnvNative Environment = "native"
	// EnvWSL1 is Windows Subsystem for Linux version 1.
	EnvWSL1 Environment = "wsl1"
	// EnvWSL2 is Windows Subsystem for Linux version 2.
	EnvWSL2 Environment = "wsl2"
)

// Platform contains detected platform information.
type Platform struct {
	os          OS
	arch        string
	environment Environment
	release     OSRelease
}

var (
	detected     *Platform
	detectOnce   sync.Once
	testPlatform *Platform
)

// Detect returns the current platform information.
// Results are cached after the first call.
func Detect() *Platform {
	if testPlatform != nil {
		return testPlatform
	}

	detectOnce.Do(func() {
		detected = detect("/")
	})
	return detected
}

// SetTestPlatform sets a mock platform for testing.
// Pass nil to reset to actual detection.
func SetTestPlatform(p *Platform) {
	testPlatform = p
}

// detect inspects the host. root prefixes every probed Linux path.
func detect(root string) *Platform {
	p := &Platform{
		arch:        runtime.GOARCH,
		environment: EnvNative,
	}

	switch runtime.GOOS {
	case "darwin":
		p.os = OSDarwin
	case "linux":
		p.os = OSLinux
		p.detectLinux(root)
	case "windows":
		p.os = OSWindows
	default:
		p.os = OSUnknown
	}

	return p
}

func (p *Platform) detectLinux(root string) {
	if rel, err := ReadOSRelease(joinRoot(root, "etc/os-release")); err == nil {
		p.release = rel
	}

	data, err := os.ReadFile(joinRoot(root, "proc/version"))
	if err != nil {
		return
	}
	p.environment = wslEnvironment(string(data), exists(joinRoot(root, "run/WSL")))
}

// wslEnvironment classifies a /proc/version string.
func wslEnvironment(procVersion string, hasRunWSL bool) Environment {
	version := strings.ToLower(procVersion)
	if !strings.Contains(version, "microsoft") && !strings.Contains(version, "wsl") {
		return EnvNative
	}
	if hasRunWSL || strings.Contains(version, "wsl2") {
		return EnvWSL2
	}
	return EnvWSL1
}

func joinRoot(root, rel string) string {
	return strings.TrimSuffix(root, "/") + "/" + rel
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// OS returns the operating system.
func (p *Platform) OS() OS {
	return p.os
}

// Arch returns the architecture.
func (p *Platform) Arch() string {
	return p.arch
}

// Environment returns the execution environment.
func (p *Platform) Environment() Environment {
	return p.environment
}

// Release returns the parsed /etc/os-release (zero outside Linux).
func (p *Platform) Release() OSRelease {
	return p.release
}

// IsWindows returns true if running on Windows (native).
func (p *Platform) IsWindows() bool {
	return p.os == OSWindows
}

// IsWSL returns true if running in WSL (1 or 2).
func (p *Platform) IsWSL() bool {
	return p.environment == EnvWSL1 || p.environment == EnvWSL2
}

// CanProvision reports whether wslboot can drive WSL from this host.
func (p *Platform) CanProvision() bool {
	return p.IsWindows() && p.arch == "amd64"
}

// String returns a human-readable description.
func (p *Platform) String() string {
	parts := []string{string(p.os), p.arch}

	if p.environment != EnvNative {
		parts = append(parts, string(p.environment))
	}
	if p.release.ID != "" {
		parts = append(parts, p.release.ID)
	}

	return strings.Join(parts, "/")
}

// New creates a Platform with specified values (for testing).
func New(os OS, arch string, env Environment) *Platform {
	return &Platform{
		os:          os,
		arch:        arch,
		environment: env,
	}
}

// NewWSL creates a Platform for WSL testing.
func NewWSL(version Environment, release OSRelease) *Platform {
	return &Platform{
		os:          OSLinux,
		arch:        "amd64",
		environment: version,
		release:     release,
	}
}
