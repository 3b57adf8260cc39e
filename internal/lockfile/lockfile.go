// Package lockfile provides directory-based locking to prevent multiple CallBook instances.
//
// Two processes sharing one state directory would also share the SQLite token
// database, so the state directory is guarded with a syscall-level lock that
// is released automatically when the process exits (gracefully or not).
package lockfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// LockFileName is the name of the lock file created in the state directory
const LockFileName = "callbook.lock"

// Lock represents an active directory lock
type Lock struct {
	file     *os.File
	path     string
	acquired bool
}

// LockError reports that the state directory is already locked by another
// process.
type LockError struct {
	Path     string
	LockInfo string
}

func (e *LockError) Error() string {
	if e.LockInfo != "" {
		return fmt.Sprintf("state directory is locked by another CallBook instance (%s): %s", e.LockInfo, e.Path)
	}
	return fmt.Sprintf("state directory is locked by another CallBook instance: %s", e.Path)
}

// AcquireLock attempts to acquire an exclusive lock on the state directory.
// Returns a Lock instance if successful, or an error describing the
// conflicting process if the lock is already held.
func AcquireLock(stateDir string) (*Lock, error) {
	lockPath := filepath.Join(stateDir, LockFileName)
	slog.Debug("Attempting to acquire lock", "lock_path", lockPath, "state_dir", stateDir)

	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory for lock", "error", err, "state_dir", stateDir)
		return nil, fmt.Errorf("failed to create state directory %s: %w", stateDir, err)
	}

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		slog.Error("Failed to open lock file", "error", err, "lock_path", lockPath)
		return nil, fmt.Errorf("failed to open lock file %s: %w", lockPath, err)
	}

	// flock fails immediately when another process holds the lock
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		lockInfo := readExistingLockInfo(lockPath)
		slog.Error("Failed to acquire lock - another CallBook instance is running",
			"error", err, "lock_path", lockPath, "existing_lock_info", lockInfo)
		return nil, &LockError{Path: lockPath, LockInfo: lockInfo}
	}

	// Record our PID for diagnostics when another process hits the lock
	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		slog.Warn("Failed to write PID to lock file", "error", err, "lock_path", lockPath)
	}

	slog.Debug("Lock acquired", "lock_path", lockPath, "pid", os.Getpid())
	return &Lock{file: file, path: lockPath, acquired: true}, nil
}

// Release unlocks and removes the lock file. Safe to call more than once.
func (l *Lock) Release() error {
	if !l.acquired {
		return nil
	}
	l.acquired = false

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		slog.Warn("Failed to unlock lock file", "error", err, "lock_path", l.path)
	}
	if err := l.file.Close(); err != nil {
		slog.Warn("Failed to close lock file", "error", err, "lock_path", l.path)
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove lock file", "error", err, "lock_path", l.path)
		return err
	}
	slog.Debug("Lock released", "lock_path", l.path)
	return nil
}

// readExistingLockInfo reads the PID recorded in an existing lock file for a
// more helpful error message.
func readExistingLockInfo(lockPath string) string {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return ""
	}
	pidStr := strings.TrimSpace(string(data))
	if pidStr == "" {
		return ""
	}
	if pid, err := strconv.Atoi(pidStr); err == nil {
		return fmt.Sprintf("pid %d", pid)
	}
	return pidStr
}
