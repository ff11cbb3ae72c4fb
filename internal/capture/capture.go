// Package capture collects everything a terminal session prints.
//
// A Capture owns one background goroutine that drains the PTY into a
// Buffer. Readers never block the goroutine for longer than one copy, and
// the goroutine never blocks on readers.
package capture

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/Iron-Ham/kla/internal/errors"
	"github.com/Iron-Ham/kla/internal/logging"
)

// Default tuning values.
const (
	DefaultChunkSize    = 4096
	DefaultPollInterval = 100 * time.Millisecond
)

// Config tunes a Capture.
type Config struct {
	// ChunkSize is the largest single read from the source.
	ChunkSize int
	// PollInterval is how often WaitForPattern re-checks the buffer.
	PollInterval time.Duration
}

// DefaultConfig returns the stock capture settings.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    DefaultChunkSize,
		PollInterval: DefaultPollInterval,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ChunkSize <= 0 {
		c.ChunkSize = d.ChunkSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	return c
}

// Capture drains a reader into a Buffer in the background.
type Capture struct {
	buf    *Buffer
	cfg    Config
	logger *logging.Logger

	done chan struct{}

	closeOnce sync.Once
	closed    chan struct{}
}

// Start begins draining r. The goroutine exits quietly on EOF or any read
// error (a PTY master returns EIO once the shell is gone) and then closes
// Done.
func Start(r io.Reader, cfg Config, logger *logging.Logger) *Capture {
	if logger == nil {
		logger = logging.NopLogger()
	}
	c := &Capture{
		buf:    &Buffer{},
		cfg:    cfg.withDefaults(),
		logger: logger,
		done:   make(chan struct{}),
		closed: make(chan struct{}),
	}
	go c.readLoop(r)
	return c
}

func (c *Capture) readLoop(r io.Reader) {
	defer close(c.done)

	chunk := make([]byte, c.cfg.ChunkSize)
	var total int
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			c.buf.Append(chunk[:n])
			total += n
		}
		if err != nil {
			c.logger.Debug("capture reader stopped", "bytes", total, "reason", err.Error())
			return
		}
	}
}

// Buffer returns the underlying buffer.
func (c *Capture) Buffer() *Buffer { return c.buf }

// Done is closed once the reader goroutine has exited.
func (c *Capture) Done() <-chan struct{} { return c.done }

// Snapshot returns a copy of everything captured in the current epoch.
func (c *Capture) Snapshot() []byte { return c.buf.Snapshot() }

// Clear discards captured output. The session keeps running.
func (c *Capture) Clear() { c.buf.Clear() }

// ReadFrom returns the bytes captured since cur.
func (c *Capture) ReadFrom(cur Cursor) ([]byte, Cursor) { return c.buf.ReadFrom(cur) }

// WaitForPattern polls until pattern appears in the captured output or
// timeout elapses. Not finding the pattern is reported as false, not as an
// error. The only errors are ErrSessionClosed after Close and ctx.Err().
func (c *Capture) WaitForPattern(ctx context.Context, pattern string, timeout time.Duration) (bool, error) {
	needle := []byte(pattern)

	// A miss at generation g stays a miss until something is appended:
	// Clear only removes bytes.
	var (
		checked bool
		lastGen uint64
	)
	check := func() (bool, error) {
		select {
		case <-c.closed:
			return false, errors.ErrSessionClosed
		default:
		}
		if checked && c.buf.Generation() == lastGen {
			return false, nil
		}
		found, gen := c.buf.ContainsAt(needle)
		checked, lastGen = true, gen
		return found, nil
	}

	if found, err := check(); found || err != nil {
		return found, err
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-c.closed:
			return false, errors.ErrSessionClosed
		case <-deadline.C:
			// One last look so a match that landed with the deadline counts.
			return check()
		case <-ticker.C:
			if found, err := check(); found || err != nil {
				return found, err
			}
		}
	}
}

// Close detaches the capture from its callers. Pending and later
// WaitForPattern calls return ErrSessionClosed. The reader goroutine exits
// on its own once the source is closed.
func (c *Capture) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}
