// Package errors provides centralized error definitions and error handling utilities
// for kla. It defines domain-specific errors, semantic error types, error
// constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// Domain-specific errors represent errors from specific subsystems:
//   - SessionError: spawning, writing to, or resizing the pseudo-terminal session
//   - ScriptError: loading, parsing, or validating a script document
//   - CaptureError: rendering, encoding, or saving a capture artifact
//   - StepError: a script step that failed while the engine was running it
//
// Semantic errors represent common error conditions:
//   - NotFoundError: resource not found
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
//	err := errors.NewSessionError("failed to start shell", errors.ErrSpawnFailed).
//		WithShell("/bin/zsh")
//
//	if errors.Is(err, errors.ErrSpawnFailed) { ... }
//
//	var scriptErr *errors.ScriptError
//	if errors.As(err, &scriptErr) { ... }
//
// A failed wait for terminal output is not an error in kla: pattern waits
// report absence with a false return value and leave the decision to the caller.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Session-related sentinel errors
var (
	// ErrSpawnFailed indicates that the pseudo-terminal or shell could not be created.
	ErrSpawnFailed = New("failed to spawn session")
	// ErrSessionIO indicates a read or write failure against a live session.
	ErrSessionIO = New("session i/o failed")
	// ErrSessionClosed indicates an operation on a session that was already torn down.
	ErrSessionClosed = New("session is closed")
	// ErrShellNotFound indicates that the configured shell is not on PATH.
	ErrShellNotFound = New("shell not found")
	// ErrInvalidSize indicates a non-positive terminal dimension.
	ErrInvalidSize = New("invalid terminal size")
)

// Script-related sentinel errors
var (
	// ErrScriptParse indicates that a script document is malformed.
	ErrScriptParse = New("malformed script")
	// ErrInvalidDuration indicates duration text without a valid ms or s suffix.
	ErrInvalidDuration = New("invalid duration")
	// ErrUnknownStep indicates a step record with an unrecognized type tag.
	ErrUnknownStep = New("unknown step type")
	// ErrUnsupportedFormat indicates a file extension kla cannot read or write.
	ErrUnsupportedFormat = New("unsupported format")
)

// Capture-related sentinel errors
var (
	// ErrRenderFailed indicates that the renderer could not produce an image.
	ErrRenderFailed = New("render failed")
	// ErrEncodeFailed indicates that the encoder could not produce an animation.
	ErrEncodeFailed = New("encode failed")
	// ErrSaveFailed indicates that an artifact could not be written out.
	ErrSaveFailed = New("save failed")
	// ErrAlreadyRecording indicates a recording start while one is active.
	ErrAlreadyRecording = New("recording already active")
	// ErrNotRecording indicates a frame capture while no recording is active.
	ErrNotRecording = New("no active recording")
	// ErrNoFrames indicates an encode request with an empty frame sequence.
	ErrNoFrames = New("no frames to encode")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// KlaError is the base interface for all kla errors.
type KlaError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// format renders "<kind> [k=v, ...]: message: cause".
func (e *baseError) format(kind string, parts []string) string {
	prefix := kind
	if len(parts) > 0 {
		prefix = fmt.Sprintf("%s [%s]", kind, strings.Join(parts, ", "))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// SessionError represents errors from the pseudo-terminal session.
//
// Example:
//
//	err := errors.NewSessionError("write failed", errors.ErrSessionIO).WithSessionID("4f1c")
//	fmt.Println(err) // "session error [session=4f1c]: write failed: session i/o failed"
type SessionError struct {
	baseError
	SessionID string
	Shell     string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithSessionID adds a session ID to the error context.
func (e *SessionError) WithSessionID(id string) *SessionError {
	e.SessionID = id
	return e
}

// WithShell adds the shell path to the error context.
func (e *SessionError) WithShell(shell string) *SessionError {
	e.Shell = shell
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	var parts []string
	if e.SessionID != "" {
		parts = append(parts, fmt.Sprintf("session=%s", e.SessionID))
	}
	if e.Shell != "" {
		parts = append(parts, fmt.Sprintf("shell=%s", e.Shell))
	}
	return e.format("session error", parts)
}

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ScriptError represents errors loading or validating a script.
//
// Example:
//
//	err := errors.NewScriptError("bad wait", errors.ErrInvalidDuration).
//		WithPath("demo.kla.yaml").WithStep(2).WithField("wait")
//	fmt.Println(err) // "script error [path=demo.kla.yaml, step=2, field=wait]: bad wait: invalid duration"
type ScriptError struct {
	baseError
	Path  string
	Step  int
	Field string
}

// NewScriptError creates a new ScriptError.
func NewScriptError(message string, cause error) *ScriptError {
	return &ScriptError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		Step: -1, // -1 indicates not set
	}
}

// WithPath adds the script file path to the error context.
func (e *ScriptError) WithPath(path string) *ScriptError {
	e.Path = path
	return e
}

// WithStep adds the zero-based step index to the error context.
func (e *ScriptError) WithStep(idx int) *ScriptError {
	e.Step = idx
	return e
}

// WithField adds the offending field name to the error context.
func (e *ScriptError) WithField(field string) *ScriptError {
	e.Field = field
	return e
}

// Error returns the formatted error message.
func (e *ScriptError) Error() string {
	var parts []string
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("path=%s", e.Path))
	}
	if e.Step >= 0 {
		parts = append(parts, fmt.Sprintf("step=%d", e.Step))
	}
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	return e.format("script error", parts)
}

// Is checks if this error matches the target.
func (e *ScriptError) Is(target error) bool {
	if _, ok := target.(*ScriptError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// CaptureError represents errors turning terminal state into an artifact.
//
// Example:
//
//	err := errors.NewCaptureError("gif encoding failed", errors.ErrEncodeFailed).
//		WithName("intro").WithStage("encode")
type CaptureError struct {
	baseError
	Name  string
	Stage string
}

// NewCaptureError creates a new CaptureError.
func NewCaptureError(message string, cause error) *CaptureError {
	return &CaptureError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithName adds the artifact name to the error context.
func (e *CaptureError) WithName(name string) *CaptureError {
	e.Name = name
	return e
}

// WithStage adds the pipeline stage (render, encode, save) to the error context.
func (e *CaptureError) WithStage(stage string) *CaptureError {
	e.Stage = stage
	return e
}

// Error returns the formatted error message.
func (e *CaptureError) Error() string {
	var parts []string
	if e.Name != "" {
		parts = append(parts, fmt.Sprintf("name=%s", e.Name))
	}
	if e.Stage != "" {
		parts = append(parts, fmt.Sprintf("stage=%s", e.Stage))
	}
	return e.format("capture error", parts)
}

// Is checks if this error matches the target.
func (e *CaptureError) Is(target error) bool {
	if _, ok := target.(*CaptureError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// StepError wraps the failure of one script step.
//
// Example:
//
//	err := errors.NewStepError(3, "screenshot", cause)
//	fmt.Println(err) // "step error [step=3, kind=screenshot]: step failed: <cause>"
type StepError struct {
	baseError
	Index int
	Kind  string
}

// NewStepError creates a new StepError for the zero-based step index.
func NewStepError(index int, kind string, cause error) *StepError {
	return &StepError{
		baseError: baseError{
			message:    "step failed",
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		Index: index,
		Kind:  kind,
	}
}

// Error returns the formatted error message.
func (e *StepError) Error() string {
	parts := []string{fmt.Sprintf("step=%d", e.Index)}
	if e.Kind != "" {
		parts = append(parts, fmt.Sprintf("kind=%s", e.Kind))
	}
	return e.format("step error", parts)
}

// Is checks if this error matches the target.
func (e *StepError) Is(target error) bool {
	if _, ok := target.(*StepError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a resource that could not be found.
//
// Example:
//
//	err := errors.NewNotFoundError("theme", "solarized")
//	fmt.Println(err) // "theme 'solarized' not found"
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s '%s' not found", resourceType, resourceID),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s '%s' not found: %v", e.ResourceType, e.ResourceID, e.cause)
	}
	return fmt.Sprintf("%s '%s' not found", e.ResourceType, e.ResourceID)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("width must be positive").WithField("settings.width").WithValue(0)
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}
	return e.format("validation error", parts)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for output lock", 2*time.Second)
//	fmt.Println(err) // "timeout error: waiting for output lock (timeout: 2s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. kla never retries on its own; this is for callers.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var klaErr KlaError
	if As(err, &klaErr) {
		return klaErr.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var klaErr KlaError
	return As(err, &klaErr) && klaErr.IsUserFacing()
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement KlaError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var klaErr KlaError
	if As(err, &klaErr) {
		return klaErr.Severity()
	}

	return SeverityError
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to load script")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to save %s", name)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
