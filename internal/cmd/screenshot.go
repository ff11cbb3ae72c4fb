package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/kla/internal/config"
	"github.com/Iron-Ham/kla/internal/engine"
	"github.com/Iron-Ham/kla/internal/errors"
	"github.com/Iron-Ham/kla/internal/media"
	"github.com/Iron-Ham/kla/internal/script"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var screenshotCmd = &cobra.Command{
	Use:   "screenshot <command>",
	Short: "Run one command and save a PNG of the terminal",
	Long: `Run a single command in a fresh shell, let it run briefly, and save a
PNG screenshot of the terminal.

Examples:
  kla screenshot "ls -la"
  kla screenshot "git log --oneline -5" --output log.png`,
	Args: cobra.ExactArgs(1),
	RunE: runScreenshot,
}

var screenshotOutput string

func init() {
	rootCmd.AddCommand(screenshotCmd)

	screenshotCmd.Flags().StringVarP(&screenshotOutput, "output", "o", "screenshot.png", "Output PNG file")
}

// splitPNGPath splits an output path into the directory and the capture
// name the coordinator appends ".png" to.
func splitPNGPath(path string) (dir, name string, err error) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if !strings.EqualFold(ext, ".png") {
		return "", "", fmt.Errorf("%w: screenshot output must end in .png, got %q", errors.ErrUnsupportedFormat, path)
	}
	name = strings.TrimSuffix(base, ext)
	if name == "" {
		return "", "", errors.NewValidationError("screenshot output needs a file name").WithField("output").WithValue(path)
	}
	return filepath.Dir(path), name, nil
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	command := args[0]

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dir, name, err := splitPNGPath(screenshotOutput)
	if err != nil {
		return err
	}

	logger := CreateLogger(cfg, uuid.NewString()).WithPhase("screenshot")
	defer func() { _ = logger.Close() }()

	ctx, stop := commandContext(cmd)
	defer stop()

	s := script.SingleCommand(command, scriptDefaults(cfg))
	s.Steps = append(s.Steps, script.Screenshot{Name: name})

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", titleStyle.Render("Screenshot of"), command)

	res, err := runScript(ctx, cfg, logger, runRequest{
		Script:    s,
		Mode:      engine.ModeRecord,
		OutputDir: dir,
		Format:    media.FormatPNG,
		Settle:    cfg.Capture.SettleTimeout(),
		Out:       out,
	})
	if err != nil {
		return err
	}
	if len(res.Artifacts) == 0 {
		return errors.NewCaptureError("no screenshot was generated", errors.ErrNoFrames).WithName(name)
	}

	fmt.Fprintf(out, "%s %s\n", successStyle.Render("Screenshot saved:"), res.Artifacts[0].Path)
	return nil
}
