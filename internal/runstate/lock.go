package runstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// LockFileName is the advisory lock file inside a run directory.
const LockFileName = "run.lock"

// ErrLockHeld means another live process is already driving this run.
var ErrLockHeld = errors.New("run lock is held")

type lockInfo struct {
	PID       int       `json:"pid"`
	StartedAt time.Time `json:"started_at"`
	RunID     string    `json:"run_id"`
}

// AcquireLock takes the advisory lock for a run directory. Exactly one
// orchestrator process may drive a run at a time; a lock left behind by a
// dead process is treated as stale and replaced. The returned release
// function removes the lock file.
func AcquireLock(runDir, runID string) (func() error, error) {
	lockPath := filepath.Join(runDir, LockFileName)
	pid := os.Getpid()

	info := lockInfo{PID: pid, StartedAt: time.Now().UTC(), RunID: runID}
	data, err := json.MarshalIndent(info, "", "    ")
	if err != nil {
		return nil, err
	}

	// O_EXCL fails if the lock file already exists.
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			if b, readErr := os.ReadFile(lockPath); readErr == nil {
				var existing lockInfo
				if json.Unmarshal(b, &existing) == nil && existing.PID > 0 {
					if processAlive(existing.PID) {
						return nil, fmt.Errorf("%w by pid %d (run_id=%s)", ErrLockHeld, existing.PID, existing.RunID)
					}
					// Holder is dead; clear the stale lock and retry once.
					if removeErr := os.Remove(lockPath); removeErr == nil {
						return AcquireLock(runDir, runID)
					}
				}
			}
			return nil, fmt.Errorf("%w (lock file exists)", ErrLockHeld)
		}
		return nil, err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(lockPath)
		return nil, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(lockPath)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(lockPath)
		return nil, err
	}

	release := func() error {
		return os.Remove(lockPath)
	}
	return release, nil
}

func processAlive(pid int) bool {
	// On unix, signal 0 checks existence/permission.
	err := syscall.Kill(pid, 0)
	return err == nil
}
