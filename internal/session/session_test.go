package session

import (
	"bytes"
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/kla/internal/errors"
	"github.com/Iron-Ham/kla/internal/testutil"
)

// outputRecorder drains a session's output in the background.
type outputRecorder struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func record(s *Session) *outputRecorder {
	r := &outputRecorder{}
	go func() {
		chunk := make([]byte, 1024)
		for {
			n, err := s.Output().Read(chunk)
			if n > 0 {
				r.mu.Lock()
				r.buf.Write(chunk[:n])
				r.mu.Unlock()
			}
			if err != nil {
				return
			}
		}
	}()
	return r
}

func (r *outputRecorder) contains(s string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return bytes.Contains(r.buf.Bytes(), []byte(s))
}

func startTestSession(t *testing.T, width, height int) *Session {
	t.Helper()
	testutil.SkipIfNoPTY(t)

	s, err := Start(context.Background(), Options{
		Shell:  testutil.TestShell,
		Width:  width,
		Height: height,
		Env:    []string{"PS1=$ "},
	}, nil)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Terminate() })
	return s
}

func TestStart_InvalidSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"zero width", 0, 24},
		{"zero height", 80, 0},
		{"negative", -1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Start(context.Background(), Options{Shell: "sh", Width: tt.width, Height: tt.height}, nil)
			if !errors.Is(err, errors.ErrSpawnFailed) {
				t.Errorf("Start() error = %v, want ErrSpawnFailed", err)
			}
			if !errors.Is(err, errors.ErrInvalidSize) {
				t.Errorf("Start() error = %v, want ErrInvalidSize", err)
			}
		})
	}
}

func TestStart_ShellNotFound(t *testing.T) {
	_, err := Start(context.Background(), Options{
		Shell:  "kla-definitely-not-a-shell",
		Width:  80,
		Height: 24,
	}, nil)

	if !errors.Is(err, errors.ErrSpawnFailed) {
		t.Errorf("Start() error = %v, want ErrSpawnFailed", err)
	}
	if !errors.Is(err, errors.ErrShellNotFound) {
		t.Errorf("Start() error = %v, want ErrShellNotFound", err)
	}
	var sessErr *errors.SessionError
	if !errors.As(err, &sessErr) || sessErr.Shell != "kla-definitely-not-a-shell" {
		t.Errorf("Start() error = %v, want SessionError with shell", err)
	}
}

func TestStart_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Start(ctx, Options{Shell: "sh", Width: 80, Height: 24}, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Start() error = %v, want context.Canceled", err)
	}
}

func TestBuildEnv(t *testing.T) {
	base := []string{"HOME=/home/u", "TERM=dumb", "PATH=/bin"}

	got := buildEnv(base, "", []string{"FOO=bar"})
	want := []string{"HOME=/home/u", "PATH=/bin", "TERM=xterm-256color", "FOO=bar"}
	if !slices.Equal(got, want) {
		t.Errorf("buildEnv() = %v, want %v", got, want)
	}

	got = buildEnv(base, "vt100", nil)
	if !slices.Contains(got, "TERM=vt100") || slices.Contains(got, "TERM=dumb") {
		t.Errorf("buildEnv() = %v, want TERM=vt100 only", got)
	}
}

func TestSession_WriteReachesShell(t *testing.T) {
	s := startTestSession(t, 80, 24)
	out := record(s)

	if err := s.WriteString("echo kla-$((40+2))\n"); err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}

	testutil.Eventually(t, 5*time.Second, "shell output contains kla-42", func() bool {
		return out.contains("kla-42")
	})
}

func TestSession_Resize(t *testing.T) {
	s := startTestSession(t, 80, 24)
	out := record(s)

	if err := s.Resize(100, 40); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if w, h := s.Size(); w != 100 || h != 40 {
		t.Errorf("Size() = %dx%d, want 100x40", w, h)
	}

	if err := s.WriteString("stty size\n"); err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}
	testutil.Eventually(t, 5*time.Second, "stty reports 40 100", func() bool {
		return out.contains("40 100")
	})

	if err := s.Resize(0, 10); !errors.Is(err, errors.ErrInvalidSize) {
		t.Errorf("Resize(0, 10) error = %v, want ErrInvalidSize", err)
	}
}

func TestSession_ExitCode(t *testing.T) {
	s := startTestSession(t, 80, 24)
	record(s)

	if code := s.ExitCode(); code != -1 {
		t.Errorf("ExitCode() while running = %d, want -1", code)
	}
	if err := s.WriteString("exit 3\n"); err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("shell did not exit")
	}
	if code := s.ExitCode(); code != 3 {
		t.Errorf("ExitCode() = %d, want 3", code)
	}
}

func TestSession_Terminate(t *testing.T) {
	s := startTestSession(t, 80, 24)
	record(s)

	if err := s.Terminate(); err != nil {
		t.Fatalf("Terminate() error = %v", err)
	}

	select {
	case <-s.Done():
	default:
		t.Error("Done() not closed after Terminate")
	}

	// Idempotent.
	if err := s.Terminate(); err != nil {
		t.Errorf("second Terminate() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if err := s.WriteString("echo late\n"); !errors.Is(err, errors.ErrSessionClosed) {
		t.Errorf("WriteString() after Terminate error = %v, want ErrSessionClosed", err)
	}
	if err := s.Resize(90, 30); !errors.Is(err, errors.ErrSessionClosed) {
		t.Errorf("Resize() after Terminate error = %v, want ErrSessionClosed", err)
	}
}

func TestSession_ConcurrentTerminate(t *testing.T) {
	s := startTestSession(t, 80, 24)
	record(s)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Terminate()
		}()
	}
	wg.Wait()

	select {
	case <-s.Done():
	default:
		t.Error("Done() not closed after concurrent Terminate")
	}
}
