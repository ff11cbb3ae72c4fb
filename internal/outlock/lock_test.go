package outlock

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Iron-Ham/kla/internal/errors"
)

func TestAcquire(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	lock, err := Acquire(context.Background(), dir, "run-1", 0, nil)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer func() { _ = lock.Release() }()

	if _, err := os.Stat(filepath.Join(dir, LockFileName)); err != nil {
		t.Errorf("lock file missing: %v", err)
	}

	holder, err := ReadHolder(dir)
	if err != nil {
		t.Fatalf("ReadHolder() error = %v", err)
	}
	if holder.RunID != "run-1" {
		t.Errorf("holder.RunID = %q, want %q", holder.RunID, "run-1")
	}
	if holder.PID != os.Getpid() {
		t.Errorf("holder.PID = %d, want %d", holder.PID, os.Getpid())
	}
}

func TestAcquire_Contended(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(context.Background(), dir, "first", 0, nil)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	start := time.Now()
	_, err = Acquire(context.Background(), dir, "second", 250*time.Millisecond, nil)
	if err == nil {
		t.Fatal("second Acquire() succeeded, want error")
	}
	if !errors.Is(err, ErrLocked) {
		t.Errorf("Acquire() error = %v, want ErrLocked", err)
	}
	if !errors.Is(err, errors.ErrTimeout) {
		t.Errorf("Acquire() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("second Acquire() returned after %v, want it to wait for the timeout", elapsed)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}

	second, err := Acquire(context.Background(), dir, "second", 0, nil)
	if err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
	_ = second.Release()
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(context.Background(), dir, "first", 0, nil)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	go func() {
		time.Sleep(150 * time.Millisecond)
		_ = first.Release()
	}()

	second, err := Acquire(context.Background(), dir, "second", 2*time.Second, nil)
	if err != nil {
		t.Fatalf("Acquire() error = %v, want success once first is released", err)
	}
	_ = second.Release()
}

func TestAcquire_ContextCanceled(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(context.Background(), dir, "first", 0, nil)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer func() { _ = first.Release() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Acquire(ctx, dir, "second", time.Second, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestRelease_Idempotent(t *testing.T) {
	var nilLock *Lock
	if err := nilLock.Release(); err != nil {
		t.Errorf("nil Release() = %v", err)
	}

	lock, err := Acquire(context.Background(), t.TempDir(), "r", 0, nil)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Release() = %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release() = %v", err)
	}
}
