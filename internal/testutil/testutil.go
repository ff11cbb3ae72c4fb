// Package testutil provides testing utilities for kla tests.
package testutil

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/creack/pty"
)

// TestShell is the shell used by tests that spawn a real session.
// /bin/sh is used instead of the user's shell so prompts and rc files
// don't leak into assertions.
const TestShell = "/bin/sh"

// SkipIfNoPTY skips the test if pseudo-terminals cannot be allocated,
// which is common in sandboxed CI containers. It also skips in -short mode.
func SkipIfNoPTY(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PTY test in short mode")
	}

	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("pseudo-terminals unavailable: %v", err)
	}
	_ = tty.Close()
	_ = ptmx.Close()

	if _, err := exec.LookPath(TestShell); err != nil {
		t.Skipf("%s not found, skipping test", TestShell)
	}
}

// SkipIfNoFFmpeg skips the test if ffmpeg is not installed.
func SkipIfNoFFmpeg(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
}

// WriteFile writes content to name inside dir, creating parent directories,
// and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", name, err)
	}
	return path
}

// Eventually polls cond every 10ms until it returns true or timeout elapses,
// failing the test in the latter case.
func Eventually(t *testing.T, timeout time.Duration, msg string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %v: %s", timeout, msg)
	}
}
