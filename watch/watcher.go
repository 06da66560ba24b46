// Package watch provides file system watching with debouncing for the plugin sources.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Extensions lists the file extensions that trigger a rebuild.
var Extensions = []string{".js", ".mjs", ".cjs", ".ts", ".mts", ".cts", ".json"}

// Watcher monitors the project root for source changes and sends notifications.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	log       *zerolog.Logger
	root      string
	skip      map[string]bool
	ignore    map[string]bool
	debounce  time.Duration
	onChange  chan struct{}
	done      chan struct{}
}

// Config holds watcher configuration options.
type Config struct {
	// Root is the directory that is watched recursively.
	Root string
	// Skip lists directories that are not watched, such as the output directory. Directories named node_modules and
	// directories starting with a dot are always skipped.
	Skip []string
	// Ignore lists files whose changes never trigger a rebuild, such as the artifacts themselves. This matters when the
	// output directory is watched, e.g. because it is the root.
	Ignore      []string
	DebounceDur time.Duration
	Log         *zerolog.Logger
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(root string, skip ...string) Config {
	log := zerolog.Nop()
	return Config{
		Root:        root,
		Skip:        skip,
		DebounceDur: 200 * time.Millisecond,
		Log:         &log,
	}
}

// New creates a new source watcher.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	log := cfg.Log
	if log == nil {
		l := zerolog.Nop()
		log = &l
	}
	skip := make(map[string]bool, len(cfg.Skip))
	for _, s := range cfg.Skip {
		skip[filepath.Clean(s)] = true
	}

	ignore := make(map[string]bool, len(cfg.Ignore))
	for _, f := range cfg.Ignore {
		ignore[filepath.Clean(f)] = true
	}

	return &Watcher{
		fsWatcher: fsw,
		log:       log,
		root:      filepath.Clean(cfg.Root),
		skip:      skip,
		ignore:    ignore,
		debounce:  cfg.DebounceDur,
		onChange:  make(chan struct{}, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching the project root and all of its directories.
// Returns a channel that receives a signal when a source file changes.
func (w *Watcher) Start() (<-chan struct{}, error) {
	if err := w.addTree(w.root); err != nil {
		return nil, err
	}

	go w.loop()

	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// addTree adds dir and every directory below it that is not skipped.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.skipped(path) {
			return filepath.SkipDir
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("watching directory %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) skipped(dir string) bool {
	base := filepath.Base(dir)
	return w.skip[filepath.Clean(dir)] || base == "node_modules" || strings.HasPrefix(base, ".")
}

// loop processes file system events with debouncing.
func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}

			// New directories are watched as well.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !w.skipped(event.Name) {
					if err := w.addTree(event.Name); err != nil {
						w.log.Warn().Msgf("Unable to watch new directory: %v", err)
					}
				}
			}

			if !w.isRelevantEvent(event) {
				continue
			}
			w.log.Debug().Msgf("Detected change in '%s'.", event.Name)

			// Reset or start debounce timer
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = true

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if pending {
				// Non-blocking send - drop if a rebuild is already queued
				select {
				case w.onChange <- struct{}{}:
				default:
				}
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn().Msgf("File watcher error: %v", err)

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isRelevantEvent checks if the event should trigger a rebuild.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	// Hidden files include the temporary files artifacts are written to.
	if w.ignore[filepath.Clean(event.Name)] || strings.HasPrefix(filepath.Base(event.Name), ".") {
		return false
	}
	for dir := filepath.Dir(event.Name); dir != w.root && len(dir) > len(w.root); dir = filepath.Dir(dir) {
		if w.skipped(dir) {
			return false
		}
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
