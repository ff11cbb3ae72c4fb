package cmd

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/kla/internal/config"
	"github.com/Iron-Ham/kla/internal/engine"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var demoCmd = &cobra.Command{
	Use:   "demo <script>",
	Short: "Run a script without capturing anything",
	Long: `Run a script's command and type steps in a fresh shell. Screenshot and
record_gif steps are skipped, nothing is written to disk.

With --interactive, kla waits for Enter before each step. Prompts are only
shown when stdin is a terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: runDemo,
}

var demoInteractive bool

// stdinIsTerminal is swapped out in tests.
var stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().BoolVarP(&demoInteractive, "interactive", "i", false, "Wait for Enter before each step")
}

func runDemo(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	s, err := loadScript(cfg, args[0])
	if err != nil {
		return err
	}

	logger := CreateLogger(cfg, uuid.NewString()).WithPhase("demo")
	defer func() { _ = logger.Close() }()

	ctx, stop := commandContext(cmd)
	defer stop()

	out := cmd.OutOrStdout()
	req := runRequest{
		Script:          s,
		Mode:            engine.ModeDemo,
		ContinueOnError: cfg.Engine.ContinueOnError,
		Out:             out,
	}
	if demoInteractive {
		if stdinIsTerminal() {
			req.Prompter = newLinePrompter(cmd.InOrStdin(), out)
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), warningStyle.Render("stdin is not a terminal, running without prompts"))
		}
	}

	fmt.Fprintf(out, "%s %s %s\n", titleStyle.Render("Demo"), s.Name, mutedStyle.Render(fmt.Sprintf("(%d steps)", len(s.Steps))))
	res, err := runScript(ctx, cfg, logger, req)
	if err != nil {
		return err
	}
	printSummary(out, res, "")
	return nil
}
