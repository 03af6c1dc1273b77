package config

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"

	"github.com/flexcrm/engage/pkg/logger"
)

// Watcher reloads the config file on change and pushes the new score
// weights to a callback. Only the weight table is hot-reloaded; other
// fields require a restart.
type Watcher struct {
	path     string
	onReload func(weights map[string]int)
	log      logger.Logger
	fsw      *fsnotify.Watcher
}

// NewWatcher creates a Watcher over the file named by ENGAGE_CONFIG.
// Returns nil without error when no config file is configured.
func NewWatcher(onReload func(weights map[string]int)) (*Watcher, error) {
	path := os.Getenv(EnvConfigPath)
	if path == "" {
		return nil, nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := fsw.Add(path); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	return &Watcher{
		path:     path,
		onReload: onReload,
		log:      logger.Get().Named("config-watch"),
		fsw:      fsw,
	}, nil
}

// Run blocks until ctx is canceled, invoking the callback after each
// successful reload. Reload failures keep the previous weights.
func (w *Watcher) Run(ctx context.Context) {
	defer func() {
		_ = w.fsw.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(ctx)
			if err != nil {
				w.log.Warn(ctx, "config reload failed; keeping previous weights",
					logger.String("path", w.path),
					logger.Error(err),
				)
				continue
			}
			w.log.Info(ctx, "score weights reloaded",
				logger.Int("subtypes", len(cfg.ScoreWeights)),
			)
			w.onReload(cfg.ScoreWeights)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn(ctx, "config watch error", logger.Error(err))
		}
	}
}
