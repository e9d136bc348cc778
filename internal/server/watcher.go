package server

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to
// settle before reloading.
const DefaultDebounce = 100 * time.Millisecond

// watchedExts are the extensions whose changes trigger a reload: pages and
// the demo sources they reference.
var watchedExts = map[string]bool{
	".md":   true,
	".vue":  true,
	".tsx":  true,
	".jsx":  true,
	".ts":   true,
	".js":   true,
	".html": true,
	".htm":  true,
	".css":  true,
}

// Watcher watches a directory tree and calls onChange with the relative path
// of the last changed file once a burst of events settles.
type Watcher struct {
	watcher  *fsnotify.Watcher
	rootDir  string
	onChange func(relPath string) error
	logger   *slog.Logger
	debounce func(func())

	mu   sync.Mutex
	last string

	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for rootDir. Hidden directories are skipped;
// underscore directories are watched since demos often live there.
func NewWatcher(rootDir string, wait time.Duration, onChange func(string) error, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if wait <= 0 {
		wait = DefaultDebounce
	}

	w := &Watcher{
		watcher:  fsw,
		rootDir:  rootDir,
		onChange: onChange,
		logger:   logger,
		debounce: debounce.New(wait),
		done:     make(chan struct{}),
	}
	if err := w.addRecursive(rootDir); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.logger.Debug("[Watch] Added directory", "dir", path)
		return nil
	})
}

// AddDir watches dir and its subdirectories in addition to the root.
// Changes there are reported relative to the root.
func (w *Watcher) AddDir(dir string) error {
	return w.addRecursive(dir)
}

// Start begins watching in a new goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("[Watch] Error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	// New directories need their own watch.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("[Watch] Failed to watch new directory", "dir", event.Name, "error", err)
			}
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if !watchedExts[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}

	rel, err := filepath.Rel(w.rootDir, event.Name)
	if err != nil {
		rel = event.Name
	}
	w.logger.Debug("[Watch] File changed", "file", rel, "op", event.Op.String())

	w.mu.Lock()
	w.last = filepath.ToSlash(rel)
	w.mu.Unlock()
	w.debounce(w.fire)
}

func (w *Watcher) fire() {
	select {
	case <-w.done:
		return
	default:
	}
	w.mu.Lock()
	rel := w.last
	w.mu.Unlock()
	if err := w.onChange(rel); err != nil {
		w.logger.Error("[Watch] Reload failed", "file", rel, "error", err)
	}
}

// Stop stops the watcher. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
