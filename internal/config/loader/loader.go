// Package loader reads configuration sources into plain maps: TOML files,
// with @include support, and prefixed environment variables.
package loader

import (
	"io/fs"
	"os"
)

// Loader produces one configuration layer.
type Loader interface {
	// Load returns nil, nil when the source is absent.
	Load() (map[string]any, error)
}

// FileSystem is the file access TOMLLoader needs; tests substitute an
// in-memory one.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
}

// OSFS reads from the operating system.
type OSFS struct{}

func (OSFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (OSFS) Stat(path string) (fs.FileInfo, error) { return os.Stat(path) }

// DefaultFS returns OSFS.
func DefaultFS() FileSystem { return OSFS{} }

var (
	_ Loader = (*TOMLLoader)(nil)
	_ Loader = (*EnvLoader)(nil)
)
