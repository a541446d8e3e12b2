// Package watch reports when the file holding a task list is rewritten, so an
// open screen can pick up changes made by another process.
package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDelay collapses the burst of events one atomic rewrite produces.
const DefaultDelay = 100 * time.Millisecond

// Watcher signals on Changes after the watched file is written or replaced.
type Watcher struct {
	fs     *fsnotify.Watcher
	name   string
	delay  time.Duration
	logger *log.Logger

	changes chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

// File watches path. The parent directory is watched rather than the file
// itself, because writes replace the file by rename.
func File(path string, delay time.Duration, logger *log.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	w := &Watcher{
		fs:      fsw,
		name:    filepath.Clean(path),
		delay:   delay,
		logger:  logger,
		changes: make(chan struct{}, 1),
	}
	go w.loop()
	logger.Debug("watching for changes", "path", w.name)
	return w, nil
}

// Changes receives one value per settled burst of writes. Signals that are
// not consumed are merged.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fs.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.logger.Debug("task file changed", "op", ev.Op.String())
			w.schedule()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher", "err", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.notify)
}

func (w *Watcher) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}
