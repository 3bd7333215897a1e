package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounce interval for editors that write config files in several events.
const watchDebounce = 200 * time.Millisecond

// Watch reloads the config file on change and calls onReload with each
// successfully parsed and validated config. It blocks until ctx is done.
// Reload failures are logged and the previous config stays in effect.
func Watch(ctx context.Context, path string, log *zap.SugaredLogger, onReload func(*Config)) error {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: editors replace files, which drops a watch on
	// the file itself.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}
	base := filepath.Base(path)

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			cfg, err := Load(path)
			if err == nil {
				err = cfg.Validate()
			}
			if err != nil {
				log.Warnw("config reload failed, keeping previous", "path", path, "err", err)
				continue
			}
			log.Infow("config reloaded", "path", path)
			onReload(cfg)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warnw("config watcher error", "err", err)
		}
	}
}
