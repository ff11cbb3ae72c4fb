// Package outlock serializes kla processes that write into the same output
// directory.
//
// The lock is an advisory flock on <dir>/.kla.lock. While held, the file
// records who holds it so a second process can report the owner instead of
// just "locked".
package outlock

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/Iron-Ham/kla/internal/errors"
	"github.com/Iron-Ham/kla/internal/logging"
)

// LockFileName is the name of the lock file within an output directory
const LockFileName = ".kla.lock"

// ErrLocked is returned when another process holds the output directory.
var ErrLocked = errors.New("output directory is locked by another process")

// retryInterval is how often TryLockContext re-attempts the flock.
const retryInterval = 100 * time.Millisecond

// Holder describes the process holding the lock.
type Holder struct {
	RunID     string    `json:"run_id"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`
}

// Lock is an acquired output directory lock.
type Lock struct {
	Holder

	path   string
	flock  *flock.Flock
	logger *logging.Logger
}

// Acquire takes the exclusive lock on dir, waiting up to timeout for another
// holder to finish. A zero timeout tries exactly once. The logger may be nil.
func Acquire(ctx context.Context, dir, runID string, timeout time.Duration, logger *logging.Logger) (*Lock, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, LockFileName)
	fl := flock.New(path)

	locked, err := tryLock(ctx, fl, timeout)
	if err != nil {
		return nil, fmt.Errorf("acquiring output lock: %w", err)
	}
	if !locked {
		reason := "held by another process"
		if holder, err := ReadHolder(dir); err == nil {
			reason = fmt.Sprintf("held by PID %d on %s", holder.PID, holder.Hostname)
		}
		logger.Error("failed to acquire output lock", "dir", dir, "reason", reason)
		return nil, errors.NewTimeoutError("waiting for output lock", timeout).
			WithCause(fmt.Errorf("%w: %s", ErrLocked, reason))
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	lock := &Lock{
		Holder: Holder{
			RunID:     runID,
			PID:       os.Getpid(),
			Hostname:  hostname,
			StartedAt: time.Now(),
		},
		path:   path,
		flock:  fl,
		logger: logger,
	}

	if err := lock.writeHolder(); err != nil {
		_ = fl.Unlock()
		return nil, err
	}

	logger.Info("output lock acquired", "dir", dir, "pid", lock.PID)
	return lock, nil
}

func tryLock(ctx context.Context, fl *flock.Flock, timeout time.Duration) (bool, error) {
	if timeout <= 0 {
		return fl.TryLock()
	}
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, retryInterval)
	if err != nil && lockCtx.Err() != nil && ctx.Err() == nil {
		// Our own deadline expired; report as not acquired.
		return false, nil
	}
	return locked, err
}

// writeHolder records the holder in the lock file. The flock lives on the
// open descriptor, so truncating and rewriting the content is safe.
func (l *Lock) writeHolder() error {
	data, err := json.MarshalIndent(l.Holder, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal lock: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	return nil
}

// Release drops the lock. Safe to call multiple times and on a nil Lock.
// The lock file itself is left in place; removing it would let a waiter
// lock a different inode than a newcomer.
func (l *Lock) Release() error {
	if l == nil || l.flock == nil {
		return nil
	}
	_ = os.Truncate(l.path, 0)
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("releasing output lock: %w", err)
	}
	l.flock = nil
	l.logger.Info("output lock released", "path", l.path)
	return nil
}

// ReadHolder reads the holder recorded in dir's lock file.
func ReadHolder(dir string) (*Holder, error) {
	data, err := os.ReadFile(filepath.Join(dir, LockFileName))
	if err != nil {
		return nil, err
	}

	var holder Holder
	if err := json.Unmarshal(data, &holder); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	return &holder, nil
}
