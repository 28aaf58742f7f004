package config

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors the YAML config file and invokes reload with a freshly
// loaded Config whenever it changes. Returns without starting anything when
// no config file is set. Editors tend to fire several events per save, so
// writes are debounced.
func Watch(ctx context.Context, cfg Config, reload func(Config)) error {
	if cfg.ConfigFile == "" {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	go func() {
		defer watcher.Close()
		var pending *time.Timer
		fire := make(chan struct{}, 1)
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-watcher.Events:
				if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if filepath.Base(evt.Name) != filepath.Base(cfg.ConfigFile) {
					continue
				}
				if pending != nil {
					pending.Stop()
				}
				pending = time.AfterFunc(250*time.Millisecond, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			case <-fire:
				next := cfg
				if err := next.applyFile(cfg.ConfigFile); err != nil {
					log.Printf("config: reload failed: %v", err)
					continue
				}
				log.Printf("config: reloaded %s", cfg.ConfigFile)
				reload(next)
			case err := <-watcher.Errors:
				log.Printf("config: watcher error: %v", err)
			}
		}
	}()
	// Watch the directory, not the file: renames on save would otherwise
	// drop the watch.
	return watcher.Add(filepath.Dir(cfg.ConfigFile))
}
