package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"
)

// StateDir names the application's directory under the XDG state home.
const StateDir = "gosync"

// ErrInstanceLocked means another gosync process holds the lock.
var ErrInstanceLocked = errors.New("another gosync instance is already running")

// LogPath returns <XDG state home>/gosync/gosync.log, creating the directory.
func LogPath() (string, error) {
	return stateFile("gosync.log")
}

// HistoryPath returns <XDG state home>/gosync/history.db, creating the directory.
func HistoryPath() (string, error) {
	return stateFile("history.db")
}

func stateFile(name string) (string, error) {
	path, err := xdg.StateFile(filepath.Join(StateDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s path: %w", name, err)
	}

	return path, nil
}

// InstanceLock keeps a second process from syncing the same folder.
type InstanceLock struct {
	flock *flock.Flock
}

// NewInstanceLock creates a lock at path. An empty path uses the state directory.
func NewInstanceLock(path string) (*InstanceLock, error) {
	if path == "" {
		var err error

		path, err = stateFile("gosync.lock")
		if err != nil {
			return nil, err
		}
	}

	return &InstanceLock{flock: flock.New(path)}, nil
}

// Lock takes the lock without waiting. It returns ErrInstanceLocked when
// another process holds it.
func (l *InstanceLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.flock.Path()), 0o700); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", l.flock.Path(), err)
	}

	locked, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to take instance lock: %w", err)
	}

	if !locked {
		return ErrInstanceLocked
	}

	return nil
}

// Unlock releases the lock and removes the lock file if this process holds it.
func (l *InstanceLock) Unlock() error {
	if !l.flock.Locked() {
		return nil
	}

	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release instance lock: %w", err)
	}

	return os.Remove(l.flock.Path())
}
