package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// StartWatcher watches filePath for changes and reloads it in place,
// publishing the new Config via Get. Unlike a poll loop, fsnotify only
// wakes the goroutine when the file actually changes.
func StartWatcher(ctx context.Context, filePath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	if err := watcher.Add(filePath); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				newCfg, err := Load(filePath)
				if err != nil {
					slog.Error("config reload failed", "error", err)
					continue
				}
				globalConfig.Store(newCfg)
				slog.Info("config reloaded", "file", filePath)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("config watcher error", "error", err)
			}
		}
	}()

	return nil
}
