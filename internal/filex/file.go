// Package filex provides small filesystem helpers: directory bootstrap,
// atomic whole-file replacement, and quarantine of corrupted files.
package filex

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// EnsureSubDir creates (if needed) a subdirectory of the current working
// directory and returns its absolute path.
func EnsureSubDir(dirName string) (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getwd: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	if err := os.MkdirAll(dir, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// AtomicWrite replaces the file at path with data using a
// write-to-temp-then-rename sequence. A reader concurrent with a crash sees
// either the old complete file or the new complete file, never a mix.
//
// The temp file carries a unique suffix so concurrent writers to the same
// path never clobber each other's temp files; last rename wins.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())

	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("write temp %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", path, err)
	}

	return nil
}

// Quarantine moves a corrupted file aside so the caller can start fresh
// without destroying evidence. Returns the quarantine path.
func Quarantine(path string) (string, error) {
	dst := path + ".corrupt.bak"
	if err := os.Rename(path, dst); err != nil {
		return "", fmt.Errorf("quarantine %s: %w", path, err)
	}
	return dst, nil
}
