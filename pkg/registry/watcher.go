package registry

import (
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MagicBeansAI/magictunnel-sub010/pkg/logger"
)

// DefaultDebounce is the inactivity window used to coalesce bursts of
// filesystem events before triggering a rebuild (§4.1 "Hot reload").
const DefaultDebounce = 200 * time.Millisecond

// Watcher observes the registry's configured roots and triggers debounced
// rebuilds. OnChanged is invoked after each successful rebuild that
// should notify clients (`notifications/tools/list_changed`, §4.1).
type Watcher struct {
	registry  *Registry
	debounce  time.Duration
	OnChanged func()

	fsw  *fsnotify.Watcher
	done chan struct{}
}

// NewWatcher constructs a Watcher for the given registry. Roots that are
// plain glob patterns (not directories) are watched at their parent
// directory.
func NewWatcher(r *Registry, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{registry: r, debounce: debounce, fsw: fsw, done: make(chan struct{})}, nil
}

// Watch adds a filesystem path (typically a registry root directory) to
// the watch set. A path that is not a directory, such as a glob root, is
// watched at its parent directory.
func (w *Watcher) Watch(path string) error {
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		path = filepath.Dir(path)
	}
	return w.fsw.Add(path)
}

// Run blocks, debouncing filesystem events into rebuilds, until Close is
// called. Intended to run in its own goroutine.
func (w *Watcher) Run() {
	var timer *time.Timer
	var timerC <-chan time.Time

	resetTimer := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.NewTimer(w.debounce)
		timerC = timer.C
	}

	for {
		select {
		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			resetTimer()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Errorf("registry watcher error: %v", err)
		case <-timerC:
			timerC = nil
			if err := w.registry.Reload(); err != nil {
				// Rebuild failed: current snapshot retained, log and wait
				// for the next event batch to reattempt (§4.1).
				logger.Errorf("capability registry reload failed: %v", err)
				continue
			}
			if w.OnChanged != nil {
				w.OnChanged()
			}
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
