package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/kla/internal/capture"
	"github.com/Iron-Ham/kla/internal/config"
	"github.com/Iron-Ham/kla/internal/errors"
	"github.com/Iron-Ham/kla/internal/logging"
	"github.com/Iron-Ham/kla/internal/media"
	"github.com/Iron-Ham/kla/internal/script"
	"github.com/Iron-Ham/kla/internal/terminal"
	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Convert scripts, transcripts and recordings",
	Long: `Convert between the file formats kla reads and writes. The conversion is
picked from the two file extensions:

  script.yaml  -> script.toml   script format (and back)
  run.kla.zst  -> run.txt       transcript as plain text
  run.kla.zst  -> run.png       final screen of a transcript
  anim.gif     -> anim.png      first frame of a recording`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	kind, err := convertFile(cfg, args[0], args[1], logging.NopLogger())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s %s\n", successStyle.Render("Converted"), args[0], args[1], mutedStyle.Render("("+kind+")"))
	return nil
}

func isScriptPath(path string) bool {
	_, err := script.FormatFromPath(path)
	return err == nil
}

// convertFile converts in to out and returns a short description of the
// conversion it performed.
func convertFile(cfg *config.Config, in, out string, logger *logging.Logger) (string, error) {
	inLower, outExt := strings.ToLower(in), strings.ToLower(filepath.Ext(out))

	switch {
	case isScriptPath(in) && isScriptPath(out):
		s, err := loadScript(cfg, in)
		if err != nil {
			return "", err
		}
		if err := script.Save(out, s); err != nil {
			return "", err
		}
		return "script", nil

	case strings.HasSuffix(inLower, capture.TranscriptExt) && outExt == ".txt":
		header, data, err := readTranscriptFile(in)
		if err != nil {
			return "", err
		}
		text := strings.TrimRight(replayTranscript(cfg, header, data).Text(), "\n") + "\n"
		if err := media.WriteFileAtomic(out, []byte(text), 0644); err != nil {
			return "", err
		}
		return "transcript text", nil

	case strings.HasSuffix(inLower, capture.TranscriptExt) && outExt == ".png":
		header, data, err := readTranscriptFile(in)
		if err != nil {
			return "", err
		}
		png, err := renderTranscript(cfg, header, data, logger)
		if err != nil {
			return "", err
		}
		if err := media.WriteFileAtomic(out, png, 0644); err != nil {
			return "", err
		}
		return "transcript screen", nil

	case strings.HasSuffix(inLower, ".gif") && outExt == ".png":
		data, err := os.ReadFile(in)
		if err != nil {
			return "", errors.Wrap(err, "reading recording")
		}
		png, err := media.FirstFrame(data)
		if err != nil {
			return "", err
		}
		if err := media.WriteFileAtomic(out, png, 0644); err != nil {
			return "", err
		}
		return "first frame", nil
	}

	return "", fmt.Errorf("%w: cannot convert %s to %s", errors.ErrUnsupportedFormat, filepath.Base(in), filepath.Base(out))
}

func readTranscriptFile(path string) (capture.TranscriptHeader, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return capture.TranscriptHeader{}, nil, errors.Wrap(err, "opening transcript")
	}
	defer func() { _ = f.Close() }()
	h, data, err := capture.ReadTranscript(f)
	if err != nil {
		return capture.TranscriptHeader{}, nil, errors.Wrapf(err, "reading transcript %s", filepath.Base(path))
	}
	return h, data, nil
}

// replayTranscript feeds a transcript into a terminal of the recorded size,
// falling back to the configured size for headers without one.
func replayTranscript(cfg *config.Config, h capture.TranscriptHeader, data []byte) *terminal.State {
	width, height := h.Width, h.Height
	if width <= 0 || height <= 0 {
		width, height = cfg.Terminal.Width, cfg.Terminal.Height
	}
	term := terminal.New(width, height)
	term.Process(data)
	return term
}

// renderTranscript renders the final screen of a transcript.
func renderTranscript(cfg *config.Config, h capture.TranscriptHeader, data []byte, logger *logging.Logger) ([]byte, error) {
	term := replayTranscript(cfg, h, data)

	theme, err := resolveTheme(cfg, cfg.Terminal.Theme, logger)
	if err != nil {
		return nil, err
	}
	return media.NewPNGRenderer(theme, renderOptions(cfg)).Render(term.Frame())
}
