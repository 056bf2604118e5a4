package library

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/1mb-dev/homespin/internal/audio"
)

// Watch observes the library root for audio file changes and invokes
// onChange after a quiet period. fsnotify does not recurse, so every
// subdirectory is registered, including ones created while watching.
// Blocks until ctx is cancelled.
func Watch(ctx context.Context, root string, exts []string, debounce time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if len(exts) == 0 {
		exts = audio.DefaultExtensions
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	addRecursive := func(dir string) {
		_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return nil
			}
			if d.IsDir() {
				if err := watcher.Add(path); err != nil {
					log.Printf("library: failed to watch %s: %v", path, err)
				}
			}
			return nil
		})
	}
	addRecursive(root)

	var debounceMu sync.Mutex
	var debounceTimer *time.Timer

	trigger := func() {
		debounceMu.Lock()
		defer debounceMu.Unlock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceTimer = time.AfterFunc(debounce, onChange)
	}
	defer func() {
		debounceMu.Lock()
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		debounceMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// New directories join the watch set so tracks dropped into
			// them later are seen.
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					addRecursive(event.Name)
					trigger()
					continue
				}
			}
			if !audio.Recognized(event.Name, exts) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) != 0 {
				trigger()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("library: watch error: %v", err)
		}
	}
}
