package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Iron-Ham/kla/internal/config"
	"github.com/Iron-Ham/kla/internal/engine"
	"github.com/Iron-Ham/kla/internal/errors"
	"github.com/Iron-Ham/kla/internal/logging"
	"github.com/Iron-Ham/kla/internal/media"
	"github.com/Iron-Ham/kla/internal/outlock"
	"github.com/Iron-Ham/kla/internal/script"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record <script>",
	Short: "Run a script and save its screenshots and recordings",
	Long: `Run a YAML or TOML script in a fresh shell and save every screenshot
and record_gif capture into the output directory.

Only one kla process writes to an output directory at a time; a second
one waits up to output.lock_timeout_ms for the first to finish.

Examples:
  kla record demo.yaml
  kla record demo.yaml --output shots --format mp4
  kla record demo.toml --watch`,
	Args: cobra.ExactArgs(1),
	RunE: runRecord,
}

var (
	recordOutput          string
	recordFormat          = media.FormatGIF
	recordWatch           bool
	recordContinueOnError bool
)

func init() {
	rootCmd.AddCommand(recordCmd)

	recordCmd.Flags().StringVarP(&recordOutput, "output", "o", "", "Output directory (default: output.dir)")
	recordCmd.Flags().VarP(&recordFormat, "format", "f", "Animation format: png, gif or mp4 (default: output.format)")
	recordCmd.Flags().BoolVarP(&recordWatch, "watch", "w", false, "Re-run the script every time the file changes")
	recordCmd.Flags().BoolVar(&recordContinueOnError, "continue-on-error", false, "Keep running after a failed step and report all failures at the end")
}

// commandContext returns the command's context canceled on SIGINT or
// SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runRecord(cmd *cobra.Command, args []string) error {
	scriptPath := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	outputDir := cfg.Output.ResolveDir()
	if cmd.Flags().Changed("output") {
		outputDir = recordOutput
	}
	format, err := media.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("format") {
		format = recordFormat
	}

	runID := uuid.NewString()
	logger := CreateLogger(cfg, runID).WithPhase("record")
	defer func() { _ = logger.Close() }()

	ctx, stop := commandContext(cmd)
	defer stop()

	lock, err := outlock.Acquire(ctx, outputDir, runID, cfg.Output.LockTimeout(), logger)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	out := cmd.OutOrStdout()
	once := func() error {
		s, err := loadScript(cfg, scriptPath)
		if err != nil {
			return err
		}

		fmt.Fprintln(out, recordBanner(s, format))

		req := runRequest{
			Script:          s,
			Mode:            engine.ModeRecord,
			OutputDir:       outputDir,
			Format:          format,
			ContinueOnError: cfg.Engine.ContinueOnError || recordContinueOnError,
			Out:             out,
		}
		if cfg.Output.SaveTranscript {
			req.Transcript = transcriptPath(outputDir, scriptPath)
		}

		res, err := runScript(ctx, cfg, logger, req)
		if err != nil {
			return err
		}
		printSummary(out, res, outputDir)
		return nil
	}

	err = once()
	if !recordWatch {
		return err
	}
	if err != nil {
		printFailure(cmd.ErrOrStderr(), err)
	}

	return watchScript(ctx, cmd, scriptPath, logger, once)
}

// watchScript re-runs once after each change to path until interrupted.
// Run failures are printed and watching continues.
func watchScript(ctx context.Context, cmd *cobra.Command, path string, logger *logging.Logger, once func() error) error {
	out := cmd.OutOrStdout()
	announce := func() {
		fmt.Fprintf(out, "\n%s %s %s\n", titleStyle.Render("Watching"), path, mutedStyle.Render("(Ctrl+C to stop)"))
	}
	announce()

	err := script.Watch(ctx, path, logger, func() error {
		fmt.Fprintf(out, "\n%s %s\n", warningStyle.Render("Changed:"), path)
		if err := once(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			printFailure(cmd.ErrOrStderr(), err)
		}
		announce()
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// recordBanner summarizes a script before it runs. The time is the sum of
// scripted waits and typing delays, so real runs take a little longer.
func recordBanner(s *script.Script, format media.Format) string {
	return fmt.Sprintf("%s %s %s", titleStyle.Render("Recording"), s.Name,
		mutedStyle.Render(fmt.Sprintf("(%d steps, %d captures, %s, ~%s)",
			len(s.Steps), s.CaptureCount(), format, s.Duration().Round(100*time.Millisecond))))
}
