//go:build !windows

package config

import (
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// AtomicWrite replaces path with data in one rename, creating the parent
// directory. An existing file keeps its permissions.
func AtomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}

	perm := os.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}
	return renameio.WriteFile(path, data, perm)
}
