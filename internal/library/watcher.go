package library

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/shelf/internal/storage"
)

const reloadDebounce = 200 * time.Millisecond

// Watch follows the storage document at path and reloads s whenever it is
// modified by something other than s itself. It returns when ctx is
// cancelled.
//
// The parent directory is watched rather than the file: atomic writes
// replace the file through a rename, which would drop a file-level watch.
func Watch(ctx context.Context, s *Store, detector storage.ChangeDetector, path string, logger *slog.Logger) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("path", abs))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(reloadDebounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(reloadDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reloadCh:
			reloadIfChanged(ctx, s, detector, logger)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("watcher: event", slog.String("op", ev.Op.String()))
			scheduleReload()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reloadIfChanged(ctx context.Context, s *Store, detector storage.ChangeDetector, logger *slog.Logger) {
	changed, err := detector.Changed()
	if err != nil {
		logger.Warn("watcher: change check failed", slog.String("error", err.Error()))
		return
	}
	if !changed {
		return
	}
	if _, err := s.Reload(ctx); err != nil {
		logger.Warn("watcher: reload failed", slog.String("error", err.Error()))
	}
}
