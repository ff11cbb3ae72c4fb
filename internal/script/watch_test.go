package script

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/kla/internal/errors"
	"github.com/Iron-Ham/kla/internal/testutil"
)

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "demo.yaml", sampleYAML)
	other := filepath.Join(dir, "other.yaml")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func() error {
			calls.Add(1)
			return nil
		})
	}()

	// Give the watcher time to register before producing events.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(other, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(3 * watchDebounce)
	if got := calls.Load(); got != 0 {
		t.Fatalf("calls after unrelated write = %d, want 0", got)
	}

	for range 3 {
		if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	testutil.Eventually(t, 2*time.Second, "fn called after write", func() bool {
		return calls.Load() >= 1
	})

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Watch() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_StopsOnCallbackError(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "demo.toml", sampleTOML)
	want := errors.New("reload failed")

	done := make(chan error, 1)
	go func() {
		done <- Watch(context.Background(), path, nil, func() error { return want })
	}()

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(sampleTOML), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, want) {
			t.Errorf("Watch() = %v, want %v", err, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return the callback error")
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "gone", "demo.yaml"), nil, func() error { return nil })
	if err == nil {
		t.Fatal("Watch() on missing directory returned nil")
	}
}
