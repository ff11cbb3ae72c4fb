package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Iron-Ham/kla/internal/errors"
	"github.com/Iron-Ham/kla/internal/script"
	"github.com/Iron-Ham/kla/internal/util"
	"github.com/charmbracelet/lipgloss"
)

var (
	primaryColor = lipgloss.Color("#A78BFA")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#F87171")
	mutedColor   = lipgloss.Color("#9CA3AF")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	kindStyle    = lipgloss.NewStyle().Bold(true).Width(11)
)

// maxStepWidth caps the step text shown on one progress line.
const maxStepWidth = 60

// describeStep renders a step for progress and prompt lines.
func describeStep(step script.Step) string {
	kind := kindStyle.Render(step.Kind())
	switch st := step.(type) {
	case script.Command:
		return kind + util.Describe(st.Text, maxStepWidth)
	case script.Type:
		return kind + util.Describe(st.Text, maxStepWidth)
	case script.Screenshot:
		return kind + st.Name
	case script.RecordGif:
		return kind + fmt.Sprintf("%s (%s)", st.Name, script.FormatDuration(st.Duration))
	default:
		return kind
	}
}

// progress prints one line per engine event.
type progress struct {
	w io.Writer
}

func newProgress(w io.Writer) *progress {
	if w == nil {
		w = io.Discard
	}
	return &progress{w: w}
}

func (p *progress) StepStarted(index, total int, step script.Step) {
	counter := mutedStyle.Render(fmt.Sprintf("[%d/%d]", index+1, total))
	fmt.Fprintf(p.w, "%s %s\n", counter, describeStep(step))
}

func (p *progress) StepSkipped(index int, step script.Step) {
	fmt.Fprintf(p.w, "%s %s\n", mutedStyle.Render(fmt.Sprintf("[%d] skipped", index+1)), mutedStyle.Render(step.Kind()))
}

func (p *progress) Captured(_ int, _ script.Step, path string) {
	fmt.Fprintf(p.w, "      %s %s\n", successStyle.Render("saved"), path)
}

func (p *progress) StepFailed(_ int, _ script.Step, err error) {
	fmt.Fprintf(p.w, "      %s %v\n", errorStyle.Render("failed"), err)
}

// linePrompter waits for Enter before each demo step.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	return &linePrompter{in: bufio.NewReader(in), out: out}
}

// Confirm returns ErrCanceled when input ends and ctx.Err() when the run
// is canceled while waiting.
func (p *linePrompter) Confirm(ctx context.Context, index, total int, step script.Step) error {
	fmt.Fprintf(p.out, "\n%s %s\n", titleStyle.Render(fmt.Sprintf("Next step %d/%d:", index+1, total)), describeStep(step))
	fmt.Fprint(p.out, mutedStyle.Render("Press Enter to continue..."))

	done := make(chan error, 1)
	go func() {
		_, err := p.in.ReadString('\n')
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		fmt.Fprintln(p.out)
		if errors.Is(err, io.EOF) {
			return errors.ErrCanceled
		}
		return err
	}
}

// printSummary reports the artifacts of a finished run.
func printSummary(w io.Writer, res *runResult, outputDir string) {
	if res == nil {
		return
	}
	var b strings.Builder
	switch n := len(res.Artifacts); n {
	case 0:
		b.WriteString("no captures")
	case 1:
		b.WriteString("1 capture")
	default:
		fmt.Fprintf(&b, "%d captures", n)
	}
	fmt.Fprintf(w, "%s %s in %s\n", successStyle.Render("Done:"), b.String(), res.Elapsed.Round(100*time.Millisecond))
	if outputDir != "" {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("output:"), outputDir)
	}
	if res.Transcript != "" {
		fmt.Fprintf(w, "  %s %s\n", mutedStyle.Render("transcript:"), res.Transcript)
	}
}

// printFailure reports the error of a failed run on w.
func printFailure(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", warningStyle.Render("Run failed:"), err)
}
