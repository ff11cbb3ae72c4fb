package logging

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// LogEntry represents a parsed log entry with all structured fields.
type LogEntry struct {
	Timestamp time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	RunID     string         `json:"run_id,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Step      *int           `json:"step,omitempty"`
	Phase     string         `json:"phase,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// LogFilter defines criteria for filtering log entries.
// Zero-valued fields do not filter.
type LogFilter struct {
	// Level keeps entries at or above this level (DEBUG < INFO < WARN < ERROR).
	Level string

	StartTime time.Time
	EndTime   time.Time

	RunID     string
	SessionID string
	Phase     string

	// MessageContains keeps entries whose message contains this substring.
	MessageContains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

var standardFields = map[string]bool{
	"time":       true,
	"level":      true,
	"msg":        true,
	KeyRunID:     true,
	KeySessionID: true,
	KeyStep:      true,
	KeyPhase:     true,
}

// AggregateLogs reads every log entry in dir: debug.log plus any rotated
// backups (debug.log.N and debug.log.N.gz). Unparseable lines are skipped.
// Entries are returned sorted by timestamp in ascending order.
func AggregateLogs(dir string) ([]LogEntry, error) {
	logPath := filepath.Join(dir, LogFileName)
	if _, err := os.Stat(logPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no log file found in %s: %w", dir, err)
		}
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	paths := []string{logPath}
	backups, _ := filepath.Glob(logPath + ".*")
	paths = append(paths, backups...)

	var entries []LogEntry
	for _, path := range paths {
		fileEntries, err := readLogFile(path)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fileEntries...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	return entries, nil
}

func readLogFile(path string) ([]LogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var r io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open compressed log %s: %w", path, err)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}

	var entries []LogEntry
	scanner := bufio.NewScanner(r)

	// Long lines happen when a step logs a large transcript excerpt.
	const maxScanTokenSize = 1024 * 1024
	scanner.Buffer(make([]byte, maxScanTokenSize), maxScanTokenSize)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := ParseLogEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file %s: %w", path, err)
	}
	return entries, nil
}

// ParseLogEntry parses a single JSON log line into a LogEntry.
func ParseLogEntry(line string) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	entry := LogEntry{
		Attrs: make(map[string]any),
	}

	if timeStr, ok := raw["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, timeStr); err == nil {
			entry.Timestamp = t
		}
	}
	entry.Level, _ = raw["level"].(string)
	entry.Message, _ = raw["msg"].(string)
	entry.RunID, _ = raw[KeyRunID].(string)
	entry.SessionID, _ = raw[KeySessionID].(string)
	entry.Phase, _ = raw[KeyPhase].(string)
	if step, ok := raw[KeyStep].(float64); ok {
		idx := int(step)
		entry.Step = &idx
	}

	for k, v := range raw {
		if !standardFields[k] {
			entry.Attrs[k] = v
		}
	}

	return entry, nil
}

// FilterLogs filters log entries based on the provided filter criteria.
// Multiple filter criteria are combined with AND logic.
func FilterLogs(entries []LogEntry, filter LogFilter) []LogEntry {
	if filter == (LogFilter{}) {
		return entries
	}

	var filtered []LogEntry
	for _, entry := range entries {
		if matchesFilter(entry, filter) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func matchesFilter(entry LogEntry, filter LogFilter) bool {
	if filter.Level != "" {
		filterLevelOrder, filterOk := levelOrder[strings.ToUpper(filter.Level)]
		entryLevelOrder, entryOk := levelOrder[entry.Level]
		if filterOk && entryOk && entryLevelOrder < filterLevelOrder {
			return false
		}
	}

	if !filter.StartTime.IsZero() && entry.Timestamp.Before(filter.StartTime) {
		return false
	}
	if !filter.EndTime.IsZero() && entry.Timestamp.After(filter.EndTime) {
		return false
	}
	if filter.RunID != "" && entry.RunID != filter.RunID {
		return false
	}
	if filter.SessionID != "" && entry.SessionID != filter.SessionID {
		return false
	}
	if filter.Phase != "" && entry.Phase != filter.Phase {
		return false
	}
	if filter.MessageContains != "" && !strings.Contains(entry.Message, filter.MessageContains) {
		return false
	}
	return true
}

// ExportLogEntries writes entries to outputPath in the given format.
// Supported formats: "json", "text", "csv".
func ExportLogEntries(entries []LogEntry, outputPath string, format string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return WriteLogEntries(file, entries, format)
}

// WriteLogEntries writes entries to w in the given format.
func WriteLogEntries(w io.Writer, entries []LogEntry, format string) error {
	switch strings.ToLower(format) {
	case "json":
		return exportJSON(w, entries)
	case "text":
		return exportText(w, entries)
	case "csv":
		return exportCSV(w, entries)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: json, text, csv)", format)
	}
}

func exportJSON(w io.Writer, entries []LogEntry) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

// FormatEntry renders one entry as
// [TIMESTAMP] LEVEL - MESSAGE (context) {attrs}.
func FormatEntry(entry LogEntry) string {
	parts := []string{
		fmt.Sprintf("[%s]", entry.Timestamp.Format("2006-01-02 15:04:05.000")),
		entry.Level,
		"-",
		entry.Message,
	}

	if ctx := contextFields(entry); len(ctx) > 0 {
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(ctx, ", ")))
	}

	if len(entry.Attrs) > 0 {
		attrsJSON, _ := json.Marshal(entry.Attrs)
		parts = append(parts, string(attrsJSON))
	}

	return strings.Join(parts, " ")
}

func contextFields(entry LogEntry) []string {
	var ctx []string
	if entry.RunID != "" {
		ctx = append(ctx, "run="+entry.RunID)
	}
	if entry.SessionID != "" {
		ctx = append(ctx, "session="+entry.SessionID)
	}
	if entry.Step != nil {
		ctx = append(ctx, "step="+strconv.Itoa(*entry.Step))
	}
	if entry.Phase != "" {
		ctx = append(ctx, "phase="+entry.Phase)
	}
	return ctx
}

func exportText(w io.Writer, entries []LogEntry) error {
	for _, entry := range entries {
		if _, err := io.WriteString(w, FormatEntry(entry)+"\n"); err != nil {
			return fmt.Errorf("failed to write text entry: %w", err)
		}
	}
	return nil
}

func exportCSV(w io.Writer, entries []LogEntry) error {
	writer := csv.NewWriter(w)

	headers := []string{"timestamp", "level", "message", "run_id", "session_id", "step", "phase", "attrs"}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, entry := range entries {
		attrsJSON := ""
		if len(entry.Attrs) > 0 {
			if b, err := json.Marshal(entry.Attrs); err == nil {
				attrsJSON = string(b)
			}
		}
		step := ""
		if entry.Step != nil {
			step = strconv.Itoa(*entry.Step)
		}

		record := []string{
			entry.Timestamp.Format(time.RFC3339Nano),
			entry.Level,
			entry.Message,
			entry.RunID,
			entry.SessionID,
			step,
			entry.Phase,
			attrsJSON,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
