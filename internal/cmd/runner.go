package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Iron-Ham/kla/internal/capture"
	"github.com/Iron-Ham/kla/internal/config"
	"github.com/Iron-Ham/kla/internal/engine"
	"github.com/Iron-Ham/kla/internal/logging"
	"github.com/Iron-Ham/kla/internal/media"
	"github.com/Iron-Ham/kla/internal/recording"
	"github.com/Iron-Ham/kla/internal/script"
	"github.com/Iron-Ham/kla/internal/session"
	"github.com/Iron-Ham/kla/internal/terminal"
)

// runRequest describes one script execution.
type runRequest struct {
	Script *script.Script
	Mode   engine.Mode

	// Record mode only.
	OutputDir string
	Format    media.Format

	ContinueOnError bool
	Prompter        engine.Prompter
	// Settle bounds the wait for the shell's first output before the
	// first step. Zero starts immediately.
	Settle time.Duration
	// Transcript is where the raw session output is saved. Empty skips it.
	Transcript string
	Out        io.Writer
}

// runResult is what a finished execution produced.
type runResult struct {
	Artifacts  []recording.Artifact
	Transcript string
	Elapsed    time.Duration
}

// CreateLogger builds the logger for one run from the logging config.
// Failures degrade to a no-op logger so a bad log directory never blocks a
// run.
func CreateLogger(cfg *config.Config, runID string) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	rotationConfig := logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	}

	logger, err := logging.NewLoggerWithRotation(cfg.Logging.ResolveDir(), cfg.Logging.Level, rotationConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)
		return logging.NopLogger()
	}
	return logger.WithRun(runID)
}

// scriptDefaults layers the terminal section of the config over the
// built-in defaults.
func scriptDefaults(cfg *config.Config) script.Defaults {
	return script.ResolveDefaults(os.Getenv).Merge(script.Defaults{
		Width:  cfg.Terminal.Width,
		Height: cfg.Terminal.Height,
		Shell:  cfg.Terminal.Shell,
		Theme:  cfg.Terminal.Theme,
	})
}

func loadScript(cfg *config.Config, path string) (*script.Script, error) {
	return script.NewLoader(scriptDefaults(cfg)).LoadFile(path)
}

// resolveTheme finds name among the built-in and custom themes. Broken
// custom theme files are reported and skipped.
func resolveTheme(cfg *config.Config, name string, logger *logging.Logger) (*media.Theme, error) {
	set, errs := media.DiscoverThemes(cfg.Render.ResolveThemesDir())
	for _, err := range errs {
		logger.Warn("skipping theme file", "error", err.Error())
	}
	return set.Lookup(name)
}

func renderOptions(cfg *config.Config) media.RenderOptions {
	return media.RenderOptions{
		Padding:    cfg.Render.Padding,
		LineHeight: cfg.Render.LineHeight,
		ShowCursor: cfg.Render.ShowCursor,
	}
}

// newCoordinator wires the renderer, encoder and output directory for a
// record run.
func newCoordinator(cfg *config.Config, req runRequest, term *terminal.State, logger *logging.Logger) (*recording.Coordinator, error) {
	theme, err := resolveTheme(cfg, req.Script.Settings.Theme, logger)
	if err != nil {
		return nil, err
	}
	encoder, err := media.NewEncoder(req.Format)
	if err != nil {
		return nil, err
	}
	sink, err := media.NewDirSink(req.OutputDir)
	if err != nil {
		return nil, err
	}
	renderer := media.NewPNGRenderer(theme, renderOptions(cfg))
	return recording.New(term, renderer, encoder, sink, logger, recording.WithFrameDelay(cfg.Render.FrameDelay())), nil
}

// runScript spawns a shell, runs req.Script against it, and tears the
// shell down again on every path out.
func runScript(ctx context.Context, cfg *config.Config, logger *logging.Logger, req runRequest) (*runResult, error) {
	s := req.Script
	start := time.Now()
	term := terminal.New(s.Settings.Width, s.Settings.Height)

	var coord *recording.Coordinator
	if req.Mode == engine.ModeRecord {
		var err error
		if coord, err = newCoordinator(cfg, req, term, logger); err != nil {
			return nil, err
		}
	}

	sess, err := session.Start(ctx, session.Options{
		Shell:  s.Settings.Shell,
		Dir:    s.Settings.WorkingDir,
		Width:  s.Settings.Width,
		Height: s.Settings.Height,
		Term:   cfg.Terminal.Term,
	}, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Terminate() }()

	sessLogger := logger.WithSession(sess.ID())
	capt := capture.Start(sess.Output(), capture.Config{
		ChunkSize:    cfg.Capture.ChunkSize,
		PollInterval: cfg.Capture.PollInterval(),
	}, sessLogger)
	defer func() { _ = capt.Close() }()

	if req.Settle > 0 && !waitForOutput(ctx, capt, req.Settle, cfg.Capture.PollInterval()) {
		sessLogger.Warn("shell printed nothing before the first step", "timeout", req.Settle.String())
	}

	opts := engine.Options{
		Session:         sess,
		Capture:         capt,
		Terminal:        term,
		Mode:            req.Mode,
		Prompter:        req.Prompter,
		Reporter:        newProgress(req.Out),
		ContinueOnError: req.ContinueOnError,
		FrameInterval:   cfg.Engine.FrameInterval(),
		Logger:          sessLogger,
	}
	if coord != nil {
		opts.Recorder = coord
	}

	eng := engine.New(opts)
	runErr := eng.Run(ctx, s)
	if runErr != nil {
		index, total := eng.Position()
		sessLogger.Warn("run stopped early", "step", index, "steps", total, "error", runErr.Error())
	}

	result := &runResult{Elapsed: time.Since(start)}
	if coord != nil {
		result.Artifacts = coord.Artifacts()
	}
	if req.Transcript != "" {
		if err := saveTranscript(req.Transcript, s, capt.Snapshot()); err != nil {
			sessLogger.Error("failed to save transcript", "path", req.Transcript, "error", err.Error())
		} else {
			result.Transcript = req.Transcript
		}
	}
	return result, runErr
}

// waitForOutput polls until the capture holds any bytes or timeout
// elapses.
func waitForOutput(ctx context.Context, c *capture.Capture, timeout, poll time.Duration) bool {
	if poll <= 0 {
		poll = capture.DefaultPollInterval
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		if c.Buffer().Len() > 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return c.Buffer().Len() > 0
		case <-ticker.C:
		}
	}
}

func saveTranscript(path string, s *script.Script, data []byte) error {
	var buf bytes.Buffer
	header := capture.TranscriptHeader{
		Name:       s.Name,
		Width:      s.Settings.Width,
		Height:     s.Settings.Height,
		RecordedAt: time.Now().UTC(),
	}
	if err := capture.WriteTranscript(&buf, header, data); err != nil {
		return err
	}
	return media.WriteFileAtomic(path, buf.Bytes(), 0644)
}

// transcriptPath names the transcript after the script file:
// demo.yaml becomes <dir>/demo.kla.zst.
func transcriptPath(dir, scriptPath string) string {
	base := filepath.Base(scriptPath)
	for _, ext := range []string{".kla.yaml", ".yaml", ".yml", ".toml"} {
		if strings.HasSuffix(base, ext) {
			base = strings.TrimSuffix(base, ext)
			break
		}
	}
	return filepath.Join(dir, base+capture.TranscriptExt)
}
