package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the configuration whenever the config file changes and
// invokes onReload with the fresh config. It blocks until ctx is done.
//
// Editors and config management tools often replace files rather than
// write them in place, so the parent directory is watched and events are
// filtered by filename.
func Watch(ctx context.Context, onReload func(*Config)) error {
	cfgFile := Get().ConfigFilePath()
	if cfgFile == "" {
		return fmt.Errorf("no config file path to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(cfgFile)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	log.Printf("Watching %s for configuration changes", cfgFile)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != cfgFile {
				continue
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if err := Reload(); err != nil {
					fmt.Fprintf(os.Stderr, "Failed to reload configuration: %v\n", err)
					continue
				}
				log.Printf("Configuration reloaded from %s", cfgFile)
				if onReload != nil {
					onReload(Get())
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watcher error: %v\n", err)
		}
	}
}
