package rules

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the rule file whenever it changes and hands the new set to
// onChange. It blocks until ctx is done. A file that fails to load keeps the
// previous set in effect.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(*Set)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file, which drops a
	// watch registered on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			set, err := Load(path)
			if err != nil {
				logger.Error("rule reload failed", slog.String("error", err.Error()))
				continue
			}
			logger.Info("reaction rules reloaded",
				slog.Int("keywords", len(set.Keywords)),
				slog.Int("suffixes", len(set.Suffixes)))
			onChange(set)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("rule watcher error", slog.String("error", err.Error()))
		}
	}
}
