package media

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stwalsh4118/reel/internal/logger"
)

const (
	defaultPollInterval = 1 * time.Second
	debounceWindow      = 500 * time.Millisecond
	settleTime          = 100 * time.Millisecond // quiet period before a written file is imported
)

// Watcher reports media files that appear in a watch folder. Files already
// present when it starts are ignored.
type Watcher struct {
	dir          string
	pollInterval time.Duration
	onFile       func(Found)

	fsnotifyWatcher *fsnotify.Watcher
	stopChan        chan struct{}
	watchDone       chan struct{}

	mu      sync.Mutex
	pending map[string]time.Time // path -> last event time
	seen    map[string]bool
	started bool
	stopped bool
}

// NewWatcher creates a watcher for dir. onFile is called from the watcher's
// goroutine once per new file.
func NewWatcher(dir string, pollInterval time.Duration, onFile func(Found)) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("watch directory cannot be empty")
	}
	if onFile == nil {
		return nil, fmt.Errorf("file callback cannot be nil")
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create watch directory: %w", err)
	}

	return &Watcher{
		dir:          dir,
		pollInterval: pollInterval,
		onFile:       onFile,
		stopChan:     make(chan struct{}),
		watchDone:    make(chan struct{}),
		pending:      make(map[string]time.Time),
		seen:         make(map[string]bool),
	}, nil
}

// Start begins watching, preferring fsnotify and falling back to polling
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return fmt.Errorf("watcher has been stopped")
	}
	if w.started {
		return nil
	}
	w.started = true

	for _, path := range w.listMedia() {
		w.seen[path] = true
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Str("watch_dir", w.dir).
			Msg("Failed to create fsnotify watcher, falling back to polling")
		w.fsnotifyWatcher = nil
	} else {
		w.fsnotifyWatcher = watcher
		if err := watcher.Add(w.dir); err != nil {
			logger.Log.Warn().
				Err(err).
				Str("watch_dir", w.dir).
				Msg("Failed to add directory to fsnotify watcher, falling back to polling")
			_ = watcher.Close()
			w.fsnotifyWatcher = nil
		}
	}

	go w.runWatching()

	logger.Log.Info().
		Str("watch_dir", w.dir).
		Bool("using_fsnotify", w.fsnotifyWatcher != nil).
		Int("existing_files", len(w.seen)).
		Msg("Watch folder started")

	return nil
}

// Stop stops the watcher and waits for its goroutine
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	started := w.started
	w.mu.Unlock()

	close(w.stopChan)

	if w.fsnotifyWatcher != nil {
		if err := w.fsnotifyWatcher.Close(); err != nil {
			logger.Log.Warn().
				Err(err).
				Msg("Error closing fsnotify watcher")
		}
	}

	if started {
		<-w.watchDone
	}

	logger.Log.Debug().
		Str("watch_dir", w.dir).
		Msg("Watch folder stopped")

	return nil
}

func (w *Watcher) runWatching() {
	defer close(w.watchDone)

	if w.fsnotifyWatcher != nil {
		w.startWatching()
	} else {
		w.startPolling()
	}
}

func (w *Watcher) startWatching() {
	ticker := time.NewTicker(debounceWindow)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case event, ok := <-w.fsnotifyWatcher.Events:
			if !ok {
				return
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				w.handleFileEvent(event.Name, true)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.forget(event.Name)
			}
		case err, ok := <-w.fsnotifyWatcher.Errors:
			if !ok {
				return
			}
			logger.Log.Warn().
				Err(err).
				Msg("fsnotify error, continuing")
		case <-ticker.C:
			w.processPending()
		}
	}
}

func (w *Watcher) startPolling() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			for _, path := range w.listMedia() {
				w.handleFileEvent(path, false)
			}
			w.processPending()
		}
	}
}

func (w *Watcher) listMedia() []string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Log.Warn().
			Err(err).
			Str("watch_dir", w.dir).
			Msg("Failed to read watch directory")
		return nil
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if _, ok := ClassifyPath(path); ok {
			paths = append(paths, path)
		}
	}
	return paths
}

// handleFileEvent marks path pending. refresh restarts its settle time, which
// fsnotify writes do while a file is still being copied in.
func (w *Watcher) handleFileEvent(path string, refresh bool) {
	if _, ok := ClassifyPath(path); !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.seen[path] {
		return
	}
	if _, exists := w.pending[path]; exists && !refresh {
		return
	}
	w.pending[path] = time.Now()
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pending, path)
	delete(w.seen, path)
}

// processPending reports files whose last event is older than the settle time
func (w *Watcher) processPending() {
	var ready []Found

	w.mu.Lock()
	for path, lastEvent := range w.pending {
		if time.Since(lastEvent) < settleTime {
			continue
		}
		delete(w.pending, path)

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		kind, _ := ClassifyPath(path)
		w.seen[path] = true
		ready = append(ready, Found{Path: path, Kind: kind})
	}
	w.mu.Unlock()

	for _, found := range ready {
		logger.Log.Info().
			Str("file_path", found.Path).
			Str("kind", string(found.Kind)).
			Msg("New file in watch folder")
		w.onFile(found)
	}
}
