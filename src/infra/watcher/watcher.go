package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long created or written files must stay quiet
// before they are reported.
const DefaultDebounce = 5 * time.Second

// Watcher monitors library roots and emits events for audio files.
// Removals are reported right away. Creations, writes and renames are
// debounced so a file being copied is reported once and a file renamed away
// and recreated at the same path is reported as modified.
type Watcher struct {
	watcher    *fsnotify.Watcher
	extensions map[string]bool
	debounce   time.Duration

	debounceTimer *time.Timer
	debounceMutex sync.Mutex
	pending       map[string]FileEventType

	running   bool
	stopChan  chan struct{}
	eventChan chan<- FileEvent
}

// NewWatcher creates a new file system watcher for the given extensions.
func NewWatcher(eventChan chan<- FileEvent, extensions []string, debounce time.Duration) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	exts := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}

	return &Watcher{
		watcher:    watcher,
		extensions: exts,
		debounce:   debounce,
		pending:    make(map[string]FileEventType),
		eventChan:  eventChan,
		stopChan:   make(chan struct{}),
	}, nil
}

// Start begins watching every directory below the given roots.
func (w *Watcher) Start(ctx context.Context, roots ...string) error {
	for _, root := range roots {
		slog.Info("Starting file watcher", "path", root)
		if err := w.addTree(root); err != nil {
			return err
		}
	}

	w.running = true

	// Start the event loop
	go w.watchLoop(ctx)

	slog.Info("File watcher started successfully", "roots", len(roots))
	return nil
}

// Stop stops the file watcher
func (w *Watcher) Stop() {
	if !w.running {
		return
	}

	slog.Info("Stopping file watcher")
	w.running = false
	close(w.stopChan)

	// Cancel any pending debounce timer
	w.debounceMutex.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMutex.Unlock()

	w.watcher.Close()
}

// addTree watches root and all of its subdirectories.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			slog.Warn("Cannot watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// watchLoop processes file system events
func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "error", err)

		case <-w.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				slog.Warn("Cannot watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}

	if !w.isSupportedFile(event.Name) {
		return
	}

	switch {
	case event.Has(fsnotify.Remove):
		w.debounceMutex.Lock()
		delete(w.pending, event.Name)
		w.debounceMutex.Unlock()
		slog.Info("Detected removed file", "file", event.Name)
		w.emit(FileEvent{Path: event.Name, EventType: FileRemoved, Timestamp: time.Now()})
	case event.Has(fsnotify.Rename):
		w.schedule(event.Name, FileRemoved)
	case event.Has(fsnotify.Create):
		w.schedule(event.Name, FileCreated)
	case event.Has(fsnotify.Write):
		w.schedule(event.Name, FileModified)
	}
}

// schedule queues a debounced event for path. A create followed by writes
// stays a create; a pending removal followed by a create or write becomes a
// modification.
func (w *Watcher) schedule(path string, kind FileEventType) {
	w.debounceMutex.Lock()
	defer w.debounceMutex.Unlock()

	prev, ok := w.pending[path]
	switch {
	case !ok, kind == FileRemoved:
		w.pending[path] = kind
	case prev == FileRemoved:
		w.pending[path] = FileModified
	case prev != FileCreated:
		w.pending[path] = kind
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.flush)
}

// flush emits every pending event after the debounce period.
func (w *Watcher) flush() {
	w.debounceMutex.Lock()
	pending := w.pending
	w.pending = make(map[string]FileEventType)
	w.debounceTimer = nil
	w.debounceMutex.Unlock()

	now := time.Now()
	for path, kind := range pending {
		if kind == FileRemoved {
			if _, err := os.Stat(path); err == nil {
				kind = FileModified
			}
		}
		w.emit(FileEvent{Path: path, EventType: kind, Timestamp: now})
	}
}

// emit blocks until the event is taken or the watcher stops.
func (w *Watcher) emit(event FileEvent) {
	select {
	case w.eventChan <- event:
		slog.Debug("Emitted file event", "path", event.Path, "type", event.EventType)
	case <-w.stopChan:
		slog.Warn("Watcher stopped, dropping file event", "path", event.Path)
	}
}

// isSupportedFile checks if the file is a supported audio format
func (w *Watcher) isSupportedFile(filePath string) bool {
	return w.extensions[strings.ToLower(filepath.Ext(filePath))]
}
