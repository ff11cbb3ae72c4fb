// Package engine runs scripts against a terminal session.
//
// An Engine executes the steps of a script strictly in order on the
// calling goroutine. It writes keystrokes to the session, keeps a
// terminal model in sync with the captured output, and asks a Recorder
// for stills and animations. Sleeps are context-aware, so canceling the
// context stops a run between or inside waits.
package engine

import (
	"context"
	"time"

	"github.com/Iron-Ham/kla/internal/capture"
	"github.com/Iron-Ham/kla/internal/errors"
	"github.com/Iron-Ham/kla/internal/logging"
	"github.com/Iron-Ham/kla/internal/script"
	"github.com/Iron-Ham/kla/internal/terminal"
)

// Input receives keystrokes. *session.Session satisfies it.
type Input interface {
	Write(p []byte) error
}

// Feed yields captured output incrementally. *capture.Capture satisfies it.
type Feed interface {
	ReadFrom(capture.Cursor) ([]byte, capture.Cursor)
}

// Recorder performs captures. *recording.Coordinator satisfies it.
type Recorder interface {
	Snapshot(name string) (string, error)
	StartRecording() error
	CaptureFrame() error
	StopRecording(name string) (path string, recorded bool, err error)
	CancelRecording()
}

// Prompter gates each step in interactive demo mode. Returning an error
// stops the run.
type Prompter interface {
	Confirm(ctx context.Context, index, total int, step script.Step) error
}

// Reporter observes progress. All methods run on the engine goroutine.
type Reporter interface {
	StepStarted(index, total int, step script.Step)
	StepSkipped(index int, step script.Step)
	Captured(index int, step script.Step, path string)
	StepFailed(index int, step script.Step, err error)
}

// Mode selects how capture steps are treated.
type Mode int

const (
	// ModeRecord executes every step.
	ModeRecord Mode = iota
	// ModeDemo skips screenshot and record_gif steps.
	ModeDemo
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeRecord:
		return "record"
	case ModeDemo:
		return "demo"
	default:
		return "unknown"
	}
}

// DefaultFrameInterval is the gap between animation frames.
const DefaultFrameInterval = 500 * time.Millisecond

// Options configure an Engine.
type Options struct {
	Session  Input
	Capture  Feed
	Terminal *terminal.State
	Recorder Recorder
	Mode     Mode
	// Prompter, when set, is consulted before each step in ModeDemo.
	Prompter Prompter
	Reporter Reporter
	// ContinueOnError runs the remaining steps after a failure and
	// returns all failures joined at the end.
	ContinueOnError bool
	FrameInterval   time.Duration
	Logger          *logging.Logger
}

// Engine runs one script at a time. It is not safe for concurrent use.
type Engine struct {
	opts   Options
	logger *logging.Logger
	cursor capture.Cursor

	index int
	total int
}

// New returns an Engine. Capture and Terminal may be nil when no screen
// model is needed; Recorder may be nil in ModeDemo.
func New(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = logging.NopLogger()
	}
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	return &Engine{opts: opts, logger: opts.Logger.WithPhase("run")}
}

// Position returns the index of the next step and the step count of the
// current script. After a completed run index equals total.
func (e *Engine) Position() (index, total int) {
	return e.index, e.total
}

// Sync feeds output captured since the last call into the terminal model.
func (e *Engine) Sync() {
	if e.opts.Capture == nil || e.opts.Terminal == nil {
		return
	}
	data, next := e.opts.Capture.ReadFrom(e.cursor)
	e.cursor = next
	if len(data) > 0 {
		e.opts.Terminal.Process(data)
	}
}

// Run executes s. By default the first failing step stops the run and its
// *errors.StepError is returned. With ContinueOnError every failure is
// collected and the joined result returned after the last step. Context
// cancellation always stops the run and returns ctx.Err().
func (e *Engine) Run(ctx context.Context, s *script.Script) error {
	e.index, e.total = 0, len(s.Steps)
	e.logger.Info("script started", "name", s.Name, "steps", e.total, "mode", e.opts.Mode.String())

	var failures []error
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		if e.opts.Mode == ModeDemo && e.opts.Prompter != nil {
			if err := e.opts.Prompter.Confirm(ctx, i, e.total, step); err != nil {
				return err
			}
		}

		if e.opts.Mode == ModeDemo && isCapture(step) {
			e.logger.Debug("capture step skipped in demo mode", logging.KeyStep, i, "kind", step.Kind())
			e.opts.Reporter.StepSkipped(i, step)
			e.index++
			continue
		}

		e.opts.Reporter.StepStarted(i, e.total, step)
		err := e.execute(ctx, i, step)
		e.Sync()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			stepErr := errors.NewStepError(i, step.Kind(), err)
			e.opts.Reporter.StepFailed(i, step, stepErr)
			e.logger.Error("step failed", logging.KeyStep, i, "kind", step.Kind(), "error", err.Error())
			if !e.opts.ContinueOnError {
				return stepErr
			}
			failures = append(failures, stepErr)
		}
		e.index++
	}

	if len(failures) > 0 {
		e.logger.Warn("script finished with failures", "name", s.Name, "failed", len(failures))
		return errors.Join(failures...)
	}
	e.logger.Info("script finished", "name", s.Name)
	return nil
}

// execute dispatches one step. The switch covers every script.Step.
func (e *Engine) execute(ctx context.Context, i int, step script.Step) error {
	log := e.logger.WithStep(i)
	switch st := step.(type) {
	case script.Command:
		log.Debug("command", "text", st.Text, "wait", st.Wait.String())
		if err := e.opts.Session.Write([]byte(st.Text + "\n")); err != nil {
			return err
		}
		return sleep(ctx, st.Wait)

	case script.Type:
		log.Debug("type", "runes", len([]rune(st.Text)), "speed", st.Speed.String())
		return e.typeText(ctx, st.Text, st.Speed)

	case script.Screenshot:
		if err := e.requireRecorder(); err != nil {
			return err
		}
		e.Sync()
		path, err := e.opts.Recorder.Snapshot(st.Name)
		if err != nil {
			return err
		}
		e.opts.Reporter.Captured(i, step, path)
		return nil

	case script.RecordGif:
		if err := e.requireRecorder(); err != nil {
			return err
		}
		path, err := e.record(ctx, st)
		if err != nil {
			return err
		}
		e.opts.Reporter.Captured(i, step, path)
		return nil

	default:
		return errors.ErrUnknownStep
	}
}

// typeText writes text one rune at a time with speed between runes.
func (e *Engine) typeText(ctx context.Context, text string, speed time.Duration) error {
	first := true
	for _, r := range text {
		if !first {
			if err := sleep(ctx, speed); err != nil {
				return err
			}
		}
		first = false
		if err := e.opts.Session.Write([]byte(string(r))); err != nil {
			return err
		}
	}
	return nil
}

// record captures a frame immediately and then once per frame interval
// until st.Duration has elapsed, then finalizes the animation.
func (e *Engine) record(ctx context.Context, st script.RecordGif) (string, error) {
	rec := e.opts.Recorder
	if err := rec.StartRecording(); err != nil {
		return "", err
	}

	grab := func() error {
		e.Sync()
		return rec.CaptureFrame()
	}
	if err := grab(); err != nil {
		rec.CancelRecording()
		return "", err
	}

	ticker := time.NewTicker(e.opts.FrameInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(st.Duration)
	defer deadline.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			rec.CancelRecording()
			return "", ctx.Err()
		case <-deadline.C:
			break loop
		case <-ticker.C:
			if err := grab(); err != nil {
				rec.CancelRecording()
				return "", err
			}
		}
	}

	path, _, err := rec.StopRecording(st.Name)
	return path, err
}

func (e *Engine) requireRecorder() error {
	if e.opts.Recorder == nil {
		return errors.NewValidationError("capture step needs a recorder")
	}
	return nil
}

func isCapture(step script.Step) bool {
	switch step.(type) {
	case script.Screenshot, script.RecordGif:
		return true
	default:
		return false
	}
}

// sleep waits for d or until ctx is done. Non-positive d returns at once.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type nopReporter struct{}

func (nopReporter) StepStarted(int, int, script.Step)  {}
func (nopReporter) StepSkipped(int, script.Step)       {}
func (nopReporter) Captured(int, script.Step, string)  {}
func (nopReporter) StepFailed(int, script.Step, error) {}
