// Package logging provides structured logging for kla runs.
//
// It wraps log/slog to write JSON lines that can be filtered after the fact
// with the kla logs command. Every script execution gets a run ID, and the
// engine tags each step's messages with the step index so a failing
// recording can be traced back to the keystroke that caused it.
//
// # Basic Usage
//
//	logger, err := logging.NewLoggerWithRotation(dir, "INFO", logging.DefaultRotationConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	runLogger := logger.WithRun(runID).WithPhase("run")
//	runLogger.WithStep(3).Info("step finished", "kind", "command", "duration_ms", 512)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"step finished","run_id":"...","phase":"run","step":3,"kind":"command","duration_ms":512}
//
// # Log Rotation
//
// Rotated files are named debug.log.1, debug.log.2, and so on, where .1 is
// the most recent backup. With compression enabled they become
// debug.log.1.gz and are still read back by [AggregateLogs].
//
// # Thread Safety
//
// [Logger] and [RotatingWriter] are safe for concurrent use. Child loggers
// created via the With* methods share the parent's writer.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] with a
// bytes.Buffer to assert on emitted lines.
package logging
