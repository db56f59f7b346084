// Package watcher watches the task database file and signals, after a
// debounce window, that the loader should resync.
package watcher

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Config holds watcher configuration options.
type Config struct {
	DBPath      string
	DebounceDur time.Duration
}

// DefaultConfig returns sensible defaults for the watcher.
func DefaultConfig(dbPath string) Config {
	return Config{
		DBPath:      dbPath,
		DebounceDur: time.Second,
	}
}

// Watcher coalesces bursts of file system events on the database into single
// change notifications.
type Watcher struct {
	fs       *fsnotify.Watcher
	dbPath   string
	debounce time.Duration
	onChange chan struct{}
	done     chan struct{}
}

// New creates a watcher for the database named in cfg.
func New(cfg Config) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		fs:       fs,
		dbPath:   cfg.DBPath,
		debounce: cfg.DebounceDur,
		onChange: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching and returns the notification channel. The channel
// receives at most one pending signal; an unread signal absorbs later ones.
func (w *Watcher) Start() (<-chan struct{}, error) {
	// Watch the directory, not the file: sqlite replaces and recreates the
	// db and WAL files, which drops a file-level watch.
	dir := filepath.Dir(w.dbPath)
	if err := w.fs.Add(dir); err != nil {
		return nil, fmt.Errorf("watching directory %s: %w", dir, err)
	}

	go w.run()
	return w.onChange, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fs.Close()
}

func (w *Watcher) run() {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)

	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
				continue
			}
			if !timer.Stop() {
				// Drain a fire that raced the reset.
				select {
				case <-fire:
				default:
				}
			}
			timer.Reset(w.debounce)

		case <-fire:
			timer = nil
			fire = nil
			select {
			case w.onChange <- struct{}{}:
			default:
			}

		case _, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			// Keep watching; a transient error loses events, not the watch.

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// relevant reports whether the event touches the database file or its WAL
// sidecar with a write or create.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	dbBase := filepath.Base(w.dbPath)
	return base == dbBase || base == dbBase+"-wal"
}
