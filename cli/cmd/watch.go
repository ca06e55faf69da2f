package cmd

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/halc-lang/halc/log"
)

// watchDebounce coalesces the event bursts editors produce on save.
const watchDebounce = 100 * time.Millisecond

// watchSource runs fn once, then again each time the file at path changes,
// until ctx is done. The parent directory is watched rather than the file
// itself, since editors that save via rename replace the watched inode.
func watchSource(ctx context.Context, path string, fn func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return ErrWatch.
			With(slog.String("file", path)).
			Wrap(err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ErrWatch.Wrap(err)
	}
	defer watcher.Close()

	err = watcher.Add(filepath.Dir(abs))
	if err != nil {
		return ErrWatch.
			With(slog.String("dir", filepath.Dir(abs))).
			Wrap(err)
	}

	fn()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Name != abs ||
				!event.Op.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}

			log.TraceContext(ctx, "source changed",
				slog.String("file", event.Name),
				slog.String("op", event.Op.String()),
			)

			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}

			pending = timer.C

		case <-pending:
			pending = nil

			fn()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			return ErrWatch.Wrap(err)
		}
	}
}
