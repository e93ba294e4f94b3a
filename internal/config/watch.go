package config

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors path for changes and calls onChange with the newly loaded
// Config each time the file is written. It runs until ctx is cancelled.
//
// If a reload fails (e.g., invalid YAML), the error is logged and the
// previous config remains active. Watch does not call onChange in that case.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	return WatchFiles(ctx, []string{path}, func(string) {
		cfg, err := Load(path)
		if err != nil {
			slog.Error("config: reload failed, keeping previous config",
				"path", path, "err", err)
			return
		}
		slog.Info("config: reloaded", "path", path)
		onChange(cfg)
	})
}

// WatchFiles calls onWrite with the path of any file in paths that is
// written or re-created. It blocks until ctx is cancelled.
func WatchFiles(ctx context.Context, paths []string, onWrite func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: new watcher: %w", err)
	}
	defer watcher.Close()

	for _, p := range paths {
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("config: watch %q: %w", p, err)
		}
		slog.Info("config: watching for changes", "path", p)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so Create counts as a write.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			onWrite(event.Name)

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
