package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "terminal.width")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Terminal dimensions beyond these produce images no encoder handles well.
const (
	maxTerminalWidth  = 1000
	maxTerminalHeight = 500
)

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateTerminal()...)
	errors = append(errors, c.validateCapture()...)
	errors = append(errors, c.validateEngine()...)
	errors = append(errors, c.validateRender()...)
	errors = append(errors, c.validateOutput()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func positive(field string, value int) []ValidationError {
	if value > 0 {
		return nil
	}
	return []ValidationError{{Field: field, Value: value, Message: "must be positive"}}
}

// validateTerminal validates the TerminalConfig
func (c *Config) validateTerminal() []ValidationError {
	var errors []ValidationError

	errors = append(errors, positive("terminal.width", c.Terminal.Width)...)
	errors = append(errors, positive("terminal.height", c.Terminal.Height)...)

	if c.Terminal.Width > maxTerminalWidth {
		errors = append(errors, ValidationError{
			Field:   "terminal.width",
			Value:   c.Terminal.Width,
			Message: fmt.Sprintf("exceeds maximum of %d columns", maxTerminalWidth),
		})
	}
	if c.Terminal.Height > maxTerminalHeight {
		errors = append(errors, ValidationError{
			Field:   "terminal.height",
			Value:   c.Terminal.Height,
			Message: fmt.Sprintf("exceeds maximum of %d rows", maxTerminalHeight),
		})
	}

	if strings.TrimSpace(c.Terminal.Theme) == "" {
		errors = append(errors, ValidationError{
			Field:   "terminal.theme",
			Value:   c.Terminal.Theme,
			Message: "must not be empty",
		})
	}

	return errors
}

// validateCapture validates the CaptureConfig
func (c *Config) validateCapture() []ValidationError {
	var errors []ValidationError

	errors = append(errors, positive("capture.poll_interval_ms", c.Capture.PollIntervalMs)...)
	errors = append(errors, positive("capture.chunk_size", c.Capture.ChunkSize)...)

	if c.Capture.SettleTimeoutMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "capture.settle_timeout_ms",
			Value:   c.Capture.SettleTimeoutMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateEngine validates the EngineConfig
func (c *Config) validateEngine() []ValidationError {
	return positive("engine.frame_interval_ms", c.Engine.FrameIntervalMs)
}

// validateRender validates the RenderConfig
func (c *Config) validateRender() []ValidationError {
	var errors []ValidationError

	if c.Render.Padding < 0 {
		errors = append(errors, ValidationError{
			Field:   "render.padding",
			Value:   c.Render.Padding,
			Message: "must be non-negative",
		})
	}

	if c.Render.LineHeight < 1 || c.Render.LineHeight > 3 {
		errors = append(errors, ValidationError{
			Field:   "render.line_height",
			Value:   c.Render.LineHeight,
			Message: "must be between 1 and 3",
		})
	}

	errors = append(errors, positive("render.frame_delay_cs", c.Render.FrameDelayCs)...)

	return errors
}

// validateOutput validates the OutputConfig
func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Output.Dir) == "" {
		errors = append(errors, ValidationError{
			Field:   "output.dir",
			Value:   c.Output.Dir,
			Message: "must not be empty",
		})
	}

	if !slices.Contains(ValidOutputFormats(), c.Output.Format) {
		errors = append(errors, ValidationError{
			Field:   "output.format",
			Value:   c.Output.Format,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidOutputFormats(), ", ")),
		})
	}

	if c.Output.LockTimeoutMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "output.lock_timeout_ms",
			Value:   c.Output.LockTimeoutMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be positive",
		})
	}

	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	return errors
}
