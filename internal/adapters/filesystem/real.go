// Package filesystem provides file system adapters.
package filesystem

import (
	"os"

	"github.com/felixgeelhaar/wslboot/internal/ports"
)

// RealFileSystem implements ports.FileSystem using actual file system
// operations. On a Windows host it also serves \\wsl$\<distro> share paths.
type RealFileSystem struct{}

// NewRealFileSystem creates a new RealFileSystem.
func NewRealFileSystem() *RealFileSystem {
	return &RealFileSystem{}
}

// ReadFile reads a file and returns its contents.
func (fs *RealFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a file, keeping the mode of an existing file.
func (fs *RealFileSystem) WriteFile(path string, data []byte, perm os.FileMode) error {
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	return os.WriteFile(path, data, perm)
}

// Remove removes a file or empty directory.
func (fs *RealFileSystem) Remove(path string) error {
	return os.Remove(path)
}

// Rename moves oldPath over newPath. A replaced file's permission bits are
// carried over to the new content.
func (fs *RealFileSystem) Rename(oldPath, newPath string) error {
	if info, err := os.Stat(newPath); err == nil {
		if err := os.Chmod(oldPath, info.Mode().Perm()); err != nil {
			return err
		}
	}
	return os.Rename(oldPath, newPath)
}

var _ ports.FileSystem = (*RealFileSystem)(nil)
