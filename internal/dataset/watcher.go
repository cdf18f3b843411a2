package dataset

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch clears soft-delete marks when a dataset file changes on disk behind
// the server's back: ordinals recorded before the change no longer line up
// with the rewritten file. Watching stops when ctx is cancelled.
func Watch(ctx context.Context, logger *slog.Logger, root string, deletes *SoftDeletes) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watchTree(watcher, root); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer func() { _ = watcher.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						if err := watchTree(watcher, event.Name); err != nil {
							logger.Warn("watch new data directory", slog.String("dir", event.Name), slog.Any("error", err))
						}
						continue
					}
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				if _, err := DetectFormat(event.Name); err != nil {
					continue
				}
				path := event.Name
				if resolved, err := filepath.EvalSymlinks(path); err == nil {
					path = resolved
				}
				deletes.Clear(path)
				logger.Debug("cleared session deletes after external change",
					slog.String("file", event.Name),
					slog.String("op", event.Op.String()),
				)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("data watcher error", slog.Any("error", err))
			}
		}
	}()
	return nil
}

func watchTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		return watcher.Add(path)
	})
}
