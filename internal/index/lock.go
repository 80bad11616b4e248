package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/Aman-CERP/choralmind/internal/errors"
)

// LockFile is the name of the ingestion lock inside a language directory.
const LockFile = ".ingest.lock"

// FileLock provides cross-process file locking using gofrs/flock.
// It prevents two ingestion runs from building the same language at once.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFileLock creates a lock for the language directory dir.
// The lock file will be created at <dir>/.ingest.lock
func NewFileLock(dir string) *FileLock {
	lockPath := filepath.Join(dir, LockFile)
	return &FileLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Lock acquires an exclusive lock on the file, blocking until available.
func (l *FileLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false if it's held by another process.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// MustTryLock acquires the lock or returns ErrCodeIngestLocked.
func (l *FileLock) MustTryLock() error {
	ok, err := l.TryLock()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New(errors.ErrCodeIngestLocked, "another ingestion is already running for this index", nil).
			WithDetail("lock", l.path).
			WithSuggestion("Wait for the other 'choralmind ingest' to finish")
	}
	return nil
}

// Unlock releases the file lock.
// It's safe to call Unlock multiple times or on an unlocked FileLock.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.path
}

// IsLocked returns true if the lock is currently held.
func (l *FileLock) IsLocked() bool {
	return l.locked
}
