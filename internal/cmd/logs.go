package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/Iron-Ham/kla/internal/config"
	"github.com/Iron-Ham/kla/internal/logging"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View kla debug logs",
	Long: `View and filter the debug log written by record, screenshot and demo
runs, including rotated backups.

Examples:
  # Show the last 50 entries
  kla logs

  # Show everything from one run
  kla logs --run 3f1c... -n 0

  # Only warnings and errors from the last hour
  kla logs --level warn --since 1h

  # Search messages and attributes
  kla logs --grep "render|encode"

  # Follow new entries as they are written
  kla logs -f

  # Save one run's entries as CSV
  kla logs --run 3f1c... -n 0 --format csv --output run.csv`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

var (
	logsTail   int
	logsFollow bool
	logsLevel  string
	logsSince  string
	logsGrep   string
	logsRunID  string
	logsPhase  string
	logsFormat string
	logsOutput string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter entries matching pattern (regex)")
	logsCmd.Flags().StringVar(&logsRunID, "run", "", "Only show entries from this run ID")
	logsCmd.Flags().StringVar(&logsPhase, "phase", "", "Only show entries from this phase (record, run, capture, ...)")
	logsCmd.Flags().StringVar(&logsFormat, "format", "pretty", "Output format: pretty, text, json or csv")
	logsCmd.Flags().StringVarP(&logsOutput, "output", "o", "", "Write entries to this file instead of stdout (text, json or csv)")
}

var (
	logTimeStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	logFieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#22D3EE"))
)

func levelStyle(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return mutedStyle
	case logging.LevelInfo:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))
	case logging.LevelWarn:
		return warningStyle
	case logging.LevelError:
		return errorStyle
	default:
		return lipgloss.NewStyle()
	}
}

// formatLogEntry formats a log entry for terminal output
func formatLogEntry(entry logging.LogEntry) string {
	var sb strings.Builder

	sb.WriteString(logTimeStyle.Render("[" + entry.Timestamp.Format("15:04:05.000") + "]"))
	sb.WriteString(" ")
	sb.WriteString(levelStyle(entry.Level).Render("[" + strings.ToUpper(entry.Level) + "]"))
	sb.WriteString(" ")
	sb.WriteString(entry.Message)

	if entry.Phase != "" {
		sb.WriteString(" " + logFieldStyle.Render("phase="+entry.Phase))
	}
	if entry.Step != nil {
		sb.WriteString(" " + logFieldStyle.Render(fmt.Sprintf("step=%d", *entry.Step)))
	}
	for _, key := range sortedKeys(entry.Attrs) {
		sb.WriteString(" " + logFieldStyle.Render(key+"=") + fmt.Sprintf("%v", entry.Attrs[key]))
	}

	return sb.String()
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}

// logQuery is the parsed form of the logs flags.
type logQuery struct {
	filter logging.LogFilter
	grep   *regexp.Regexp
	tail   int
}

func buildLogQuery(now time.Time) (logQuery, error) {
	q := logQuery{
		filter: logging.LogFilter{
			RunID: logsRunID,
			Phase: logsPhase,
		},
		tail: logsTail,
	}

	if logsLevel != "" {
		if !slices.Contains(logging.ValidLevels(), strings.ToUpper(logsLevel)) {
			return q, fmt.Errorf("invalid level %q (valid: debug, info, warn, error)", logsLevel)
		}
		q.filter.Level = logging.ParseLevel(logsLevel)
	}

	if logsSince != "" {
		duration, err := time.ParseDuration(logsSince)
		if err != nil {
			return q, fmt.Errorf("invalid duration format: %w", err)
		}
		q.filter.StartTime = now.Add(-duration)
	}

	if logsGrep != "" {
		re, err := regexp.Compile(logsGrep)
		if err != nil {
			return q, fmt.Errorf("invalid grep pattern: %w", err)
		}
		q.grep = re
	}
	return q, nil
}

// matches applies the grep pattern to the message and attribute values.
func (q logQuery) matches(entry logging.LogEntry) bool {
	if q.grep == nil {
		return true
	}
	searchText := entry.Message
	for _, v := range entry.Attrs {
		searchText += " " + fmt.Sprintf("%v", v)
	}
	return q.grep.MatchString(searchText)
}

// apply filters entries and keeps the last q.tail of them.
func (q logQuery) apply(entries []logging.LogEntry) []logging.LogEntry {
	entries = logging.FilterLogs(entries, q.filter)
	if q.grep != nil {
		kept := entries[:0:0]
		for _, e := range entries {
			if q.matches(e) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	if q.tail > 0 && len(entries) > q.tail {
		entries = entries[len(entries)-q.tail:]
	}
	return entries
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	logDir := cfg.Logging.ResolveDir()
	logPath := filepath.Join(logDir, logging.LogFileName)
	out := cmd.OutOrStdout()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "No logs found.")
		fmt.Fprintln(out, "Logs are stored at:", logPath)
		return nil
	}

	q, err := buildLogQuery(time.Now())
	if err != nil {
		return err
	}

	if logsFollow {
		ctx, stop := commandContext(cmd)
		defer stop()
		return followLogs(ctx, out, logPath, q)
	}

	entries, err := logging.AggregateLogs(logDir)
	if err != nil {
		return err
	}
	entries = q.apply(entries)

	if logsOutput != "" {
		return exportLogs(out, entries, logsOutput, logsFormat)
	}
	return displayLogs(out, entries, logsFormat)
}

// exportLogs writes entries to path. The pretty format is terminal-only, so
// files get plain text instead.
func exportLogs(w io.Writer, entries []logging.LogEntry, path, format string) error {
	if format == "pretty" {
		format = "text"
	}
	if err := logging.ExportLogEntries(entries, path, format); err != nil {
		return err
	}
	fmt.Fprintf(w, "Exported %d entries to %s\n", len(entries), path)
	return nil
}

// displayLogs writes entries in the requested format.
func displayLogs(w io.Writer, entries []logging.LogEntry, format string) error {
	if format != "pretty" {
		return logging.WriteLogEntries(w, entries, format)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No matching log entries found.")
		return nil
	}
	for _, entry := range entries {
		fmt.Fprintln(w, formatLogEntry(entry))
	}
	return nil
}

// followLogs implements tail -f behavior for the log file
func followLogs(ctx context.Context, w io.Writer, logPath string, q logQuery) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	fmt.Fprintf(w, "Following logs... (Ctrl+C to stop)\n\n")

	reader := bufio.NewReader(file)
	var partial string
	for {
		chunk, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				return fmt.Errorf("error reading log file: %w", err)
			}
			// Keep a half-written line until the rest arrives
			partial += chunk
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		line := strings.TrimSpace(partial + chunk)
		partial = ""
		if line == "" {
			continue
		}

		entry, err := logging.ParseLogEntry(line)
		if err != nil {
			// If we can't parse as JSON, display raw line
			fmt.Fprintln(w, line)
			continue
		}
		if len(q.apply([]logging.LogEntry{entry})) == 0 {
			continue
		}
		fmt.Fprintln(w, formatLogEntry(entry))
	}
}
