// Package filelock keeps two bundler runs from writing the same output
// directory and writes artifacts through a temp file and rename.
package filelock

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"codebundle/internal/errors"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
)

// LockFileName is created inside the directory being written
const LockFileName = ".codebundle.lock"

// tempPrefix names the files AtomicWrite stages before renaming.
const tempPrefix = ".tmp-"

// IsArtifact reports whether name is a lock or staging file left by a run.
func IsArtifact(name string) bool {
	return name == LockFileName || strings.HasPrefix(name, tempPrefix)
}

// FileLock wraps a flock file lock for coordinating access to a directory.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// NewFileLock creates a new file lock for the given path.
func NewFileLock(path string) *FileLock {
	return &FileLock{
		flock: flock.New(path),
		path:  path,
	}
}

// TryLock attempts to acquire an exclusive lock without blocking.
func (fl *FileLock) TryLock() (bool, error) {
	acquired, err := fl.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to try lock on %s: %w", fl.path, err)
	}
	return acquired, nil
}

// Unlock removes the lock file and then releases the lock, so the file is
// never unlinked while another run holds it.
func (fl *FileLock) Unlock() error {
	removeErr := os.Remove(fl.path)
	if err := fl.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", fl.path, err)
	}
	if removeErr != nil && !os.IsNotExist(removeErr) {
		return fmt.Errorf("failed to remove lock file %s: %w", fl.path, removeErr)
	}
	return nil
}

// Path returns the lock file location
func (fl *FileLock) Path() string {
	return fl.path
}

// Acquire takes the exclusive lock for dir on the real filesystem, creating
// dir when needed. A lock held by another run is reported immediately.
func Acquire(dir string) (*FileLock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Filesystem("creating directory", dir, err)
	}

	lock := NewFileLock(filepath.Join(dir, LockFileName))
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, errors.Filesystem("locking directory", dir, err)
	}
	if !acquired {
		return nil, errors.Filesystem("directory is locked by another run", lock.path, nil)
	}
	return lock, nil
}

// AtomicWrite writes data next to path and renames it into place, so readers
// never observe a half written artifact. Parent directories are created.
func AtomicWrite(fsys afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tempFile, err := afero.TempFile(fsys, dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	defer func() {
		if tempFile != nil {
			tempFile.Close()
			fsys.Remove(tempPath)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := fsys.Chmod(tempPath, 0644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := fsys.Rename(tempPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}

	tempFile = nil
	return nil
}
