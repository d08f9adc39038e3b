package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/shhayash-work/copilot-qna/pkg/telemetry"
)

// Watch reloads the config file at path whenever it changes and swaps it in
// as Current. The directory is watched so that editors which replace the
// file on save are also seen. Configs already handed out are never mutated.
// onChange, if set, is called with each successfully loaded config.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: creating watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("config: watching %s: %w", dir, err)
	}

	logger := telemetry.FromContext(ctx)
	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					logger.Warn("config: reload failed", slog.String("path", path), slog.String("err", err.Error()))
					continue
				}
				logger.Info("config: reloaded", slog.String("path", path), slog.String("agent_url", cfg.Agent.URL))
				if onChange != nil {
					onChange(cfg)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config: watcher error", slog.String("err", err.Error()))
			}
		}
	}()

	return nil
}
