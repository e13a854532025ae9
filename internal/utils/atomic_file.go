package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	temporaryFilePattern = ".jdoc-*.tmp"
	defaultFileMode      = fs.FileMode(0o644)
)

// WriteFileAtomic replaces path with data. The bytes go to a temporary file in
// the same directory that is renamed over path, so readers see either the old or
// the new content. An existing file keeps its permission bits.
func WriteFileAtomic(path string, data []byte) (err error) {
	mode := defaultFileMode
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return fmt.Errorf("inspect %s: %w", path, statErr)
	}

	temporary, createErr := os.CreateTemp(filepath.Dir(path), temporaryFilePattern)
	if createErr != nil {
		return fmt.Errorf("create temporary file for %s: %w", path, createErr)
	}
	temporaryPath := temporary.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(temporaryPath)
		}
	}()

	if _, writeErr := temporary.Write(data); writeErr != nil {
		_ = temporary.Close()
		return fmt.Errorf("write temporary file for %s: %w", path, writeErr)
	}
	if syncErr := temporary.Sync(); syncErr != nil {
		_ = temporary.Close()
		return fmt.Errorf("sync temporary file for %s: %w", path, syncErr)
	}
	if closeErr := temporary.Close(); closeErr != nil {
		return fmt.Errorf("close temporary file for %s: %w", path, closeErr)
	}
	if chmodErr := os.Chmod(temporaryPath, mode); chmodErr != nil {
		return fmt.Errorf("set mode on temporary file for %s: %w", path, chmodErr)
	}
	if renameErr := os.Rename(temporaryPath, path); renameErr != nil {
		return fmt.Errorf("replace %s: %w", path, renameErr)
	}
	return nil
}
