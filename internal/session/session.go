// Package session spawns a shell inside a pseudo-terminal and owns its
// lifetime.
//
// A Session is the only handle to the child process. Callers defer
// Terminate immediately after a successful Start; Terminate kills the shell
// and its jobs, reaps the shell, and closes the PTY exactly once no matter
// how many times or from where it is called.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/creack/pty"
	"github.com/google/uuid"

	"github.com/Iron-Ham/kla/internal/errors"
	"github.com/Iron-Ham/kla/internal/logging"
)

// DefaultTerm is exported as TERM when Options.Term is empty.
const DefaultTerm = "xterm-256color"

// Options configures a new session.
type Options struct {
	// Shell is the program to run, resolved through PATH.
	Shell string
	// Args are passed to the shell.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Width and Height are the initial terminal size in cells.
	Width  int
	Height int
	// Term overrides TERM in the child environment.
	Term string
	// Env is appended to the current process environment.
	Env []string
}

// Session is a running shell attached to a PTY master.
type Session struct {
	id     string
	cmd    *exec.Cmd
	ptmx   *os.File
	logger *logging.Logger

	mu     sync.Mutex
	width  int
	height int
	closed bool

	done     chan struct{}
	exitCode int

	terminateOnce sync.Once
	terminateErr  error
}

// Start spawns opts.Shell in a new PTY of opts.Width x opts.Height.
// The shell becomes a session leader, so every job it starts shares its
// session id and Terminate can find them.
func Start(ctx context.Context, opts Options, logger *logging.Logger) (*Session, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	id := uuid.NewString()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.NewSessionError(
			fmt.Sprintf("terminal size %dx%d", opts.Width, opts.Height),
			fmt.Errorf("%w: %w", errors.ErrSpawnFailed, errors.ErrInvalidSize),
		).WithSessionID(id)
	}

	path, err := exec.LookPath(opts.Shell)
	if err != nil {
		return nil, errors.NewSessionError("shell not found",
			fmt.Errorf("%w: %w: %w", errors.ErrSpawnFailed, errors.ErrShellNotFound, err),
		).WithSessionID(id).WithShell(opts.Shell)
	}

	cmd := exec.Command(path, opts.Args...)
	cmd.Dir = opts.Dir
	cmd.Env = buildEnv(os.Environ(), opts.Term, opts.Env)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(opts.Height),
		Cols: uint16(opts.Width),
	})
	if err != nil {
		return nil, errors.NewSessionError("failed to start shell",
			fmt.Errorf("%w: %w", errors.ErrSpawnFailed, err),
		).WithSessionID(id).WithShell(path)
	}

	s := &Session{
		id:     id,
		cmd:    cmd,
		ptmx:   ptmx,
		logger: logger.WithSession(id),
		width:  opts.Width,
		height: opts.Height,
		done:   make(chan struct{}),
	}
	go s.reap()

	s.logger.Info("session started",
		"shell", path,
		"pid", cmd.Process.Pid,
		"width", opts.Width,
		"height", opts.Height,
		"dir", opts.Dir,
	)
	return s, nil
}

// buildEnv returns base with TERM replaced and extra appended.
func buildEnv(base []string, term string, extra []string) []string {
	if term == "" {
		term = DefaultTerm
	}
	env := make([]string, 0, len(base)+len(extra)+1)
	for _, kv := range base {
		if strings.HasPrefix(kv, "TERM=") {
			continue
		}
		env = append(env, kv)
	}
	env = append(env, "TERM="+term)
	return append(env, extra...)
}

// reap waits for the shell and records its exit status.
func (s *Session) reap() {
	err := s.cmd.Wait()
	code := -1
	if s.cmd.ProcessState != nil {
		code = s.cmd.ProcessState.ExitCode()
	}
	s.mu.Lock()
	s.exitCode = code
	s.mu.Unlock()
	close(s.done)
	if err != nil {
		s.logger.Debug("shell exited", "exit_code", code, "status", err.Error())
		return
	}
	s.logger.Debug("shell exited", "exit_code", code)
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// PID returns the shell's process ID.
func (s *Session) PID() int { return s.cmd.Process.Pid }

// Size returns the current terminal size.
func (s *Session) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Write sends p to the shell verbatim.
func (s *Session) Write(p []byte) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errors.ErrSessionClosed
	}

	if _, err := s.ptmx.Write(p); err != nil {
		return errors.NewSessionError("write failed",
			fmt.Errorf("%w: %w", errors.ErrSessionIO, err),
		).WithSessionID(s.id)
	}
	return nil
}

// WriteString sends str to the shell verbatim.
func (s *Session) WriteString(str string) error {
	return s.Write([]byte(str))
}

// Resize changes the terminal size; the shell receives SIGWINCH.
func (s *Session) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.NewSessionError(fmt.Sprintf("terminal size %dx%d", width, height), errors.ErrInvalidSize).
			WithSessionID(s.id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSessionClosed
	}
	if err := pty.Setsize(s.ptmx, &pty.Winsize{Rows: uint16(height), Cols: uint16(width)}); err != nil {
		return errors.NewSessionError("resize failed", fmt.Errorf("%w: %w", errors.ErrSessionIO, err)).
			WithSessionID(s.id)
	}
	s.width, s.height = width, height
	return nil
}

// Output returns the reader end of the PTY. It yields everything the shell
// prints until Terminate closes it.
func (s *Session) Output() io.Reader {
	return s.ptmx
}

// Done is closed once the shell process has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// ExitCode returns the shell's exit code, or -1 while it is still running
// or when it was killed by a signal.
func (s *Session) ExitCode() int {
	select {
	case <-s.done:
	default:
		return -1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// Terminate kills the shell together with every job it started, waits for
// the reaper, and closes the PTY. Only the first call does any work; later calls return the
// same result.
func (s *Session) Terminate() error {
	s.terminateOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		select {
		case <-s.done:
		default:
			if err := killGroup(s.cmd.Process); err != nil {
				s.logger.Warn("failed to kill shell session", "pid", s.PID(), "error", err.Error())
			}
			<-s.done
		}

		if err := s.ptmx.Close(); err != nil {
			s.terminateErr = errors.NewSessionError("failed to close pty", fmt.Errorf("%w: %w", errors.ErrSessionIO, err)).
				WithSessionID(s.id)
		}
		s.logger.Info("session terminated", "exit_code", s.ExitCode())
	})
	return s.terminateErr
}

// Close is an alias for Terminate so Session satisfies io.Closer.
func (s *Session) Close() error {
	return s.Terminate()
}
