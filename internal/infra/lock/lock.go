// Package lock provides the single-instance guard for the daemon.
//
// The guard is an advisory lock on a file. The lock is tied to the open file
// descriptor, so it is released when the process exits for any reason and a
// stale lock file left on disk never blocks a new instance.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ErrHeld is returned when another process holds the lock
var ErrHeld = errors.New("lock held by another process")

// Guard is a held single-instance lock
type Guard struct {
	path string
	file *os.File
}

// Acquire takes the lock at path without blocking. It reports false when the
// lock is held elsewhere or the file cannot be created.
func Acquire(path string) (*Guard, bool) {
	g, err := TryAcquire(path)
	if err != nil {
		return nil, false
	}
	return g, true
}

// TryAcquire is Acquire with the failure reason
func TryAcquire(path string) (*Guard, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := tryLock(f); err != nil {
		f.Close()
		return nil, err
	}

	// PID is informational only; the lock itself is the source of truth
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}

	return &Guard{path: path, file: f}, nil
}

// IsHeld reports whether another process currently holds the lock at path
func IsHeld(path string) bool {
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return false
	}
	defer f.Close()

	if err := tryLock(f); err != nil {
		return errors.Is(err, ErrHeld)
	}
	_ = unlock(f)
	return false
}

// Path returns the lock file path
func (g *Guard) Path() string {
	return g.path
}

// Release unlocks and closes the lock file. The file is left on disk.
func (g *Guard) Release() error {
	if g == nil || g.file == nil {
		return nil
	}
	err := unlock(g.file)
	if cerr := g.file.Close(); err == nil {
		err = cerr
	}
	g.file = nil
	return err
}
