package script

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/kla/internal/logging"
)

// watchDebounce coalesces the burst of events editors produce per save.
const watchDebounce = 100 * time.Millisecond

// Watch calls fn each time the file at path is written or replaced, until
// ctx is done. fn runs on the watching goroutine, so a slow fn delays
// later notifications rather than overlapping with them. Watch returns
// ctx.Err() on cancellation or the first error from fn.
func Watch(ctx context.Context, path string, logger *logging.Logger, fn func() error) error {
	if logger == nil {
		logger = logging.NopLogger()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	// Editors often save by renaming a temp file over the original, which
	// drops a watch on the file itself. Watching the directory survives it.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	debounce := time.NewTimer(0)
	<-debounce.C
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			logger.Info("script changed", "path", abs)
			if err := fn(); err != nil {
				return err
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "path", abs, "error", err.Error())
		}
	}
}
