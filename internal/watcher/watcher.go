package watcher

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mkravets/jcg/internal/storage"
)

// AnalyzeFunc reanalyzes the project after the given files changed and
// returns the refreshed stats.
type AnalyzeFunc func(changed []string) (*storage.Stats, error)

// Watcher watches for file changes and triggers reanalysis
type Watcher struct {
	projectPath string
	analyze     AnalyzeFunc
	fsWatcher   *fsnotify.Watcher
	extensions  []string

	// Debouncing
	debounceDelay time.Duration
	pendingFiles  map[string]struct{}
	pendingMu     sync.Mutex
	debounceTimer *time.Timer

	// Callbacks
	onAnalysisStart func(files []string)
	onAnalysisDone  func(stats *storage.Stats, duration time.Duration)
	onError         func(error)

	// Control
	done chan struct{}
}

// WatcherOption configures the watcher
type WatcherOption func(*Watcher)

// WithDebounceDelay sets the debounce delay
func WithDebounceDelay(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounceDelay = d
	}
}

// WithExtensions sets the source file extensions that trigger reanalysis
func WithExtensions(exts ...string) WatcherOption {
	return func(w *Watcher) {
		w.extensions = exts
	}
}

// WithOnAnalysisStart sets the callback for when analysis starts
func WithOnAnalysisStart(fn func(files []string)) WatcherOption {
	return func(w *Watcher) {
		w.onAnalysisStart = fn
	}
}

// WithOnAnalysisDone sets the callback for when analysis completes
func WithOnAnalysisDone(fn func(stats *storage.Stats, duration time.Duration)) WatcherOption {
	return func(w *Watcher) {
		w.onAnalysisDone = fn
	}
}

// WithOnError sets the callback for errors
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// New creates a new Watcher
func New(projectPath string, analyze AnalyzeFunc, opts ...WatcherOption) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		projectPath:   projectPath,
		analyze:       analyze,
		fsWatcher:     fsWatcher,
		extensions:    []string{".java"},
		debounceDelay: 500 * time.Millisecond, // Default debounce
		pendingFiles:  make(map[string]struct{}),
		done:          make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	// Add all directories to watch
	if err := w.addDirs(); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to add directories to watch: %w", err)
	}

	return w, nil
}

// addDirs recursively adds all directories to the watcher
func (w *Watcher) addDirs() error {
	return filepath.Walk(w.projectPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip hidden directories and common build output directories
		name := info.Name()
		if info.IsDir() {
			if path != w.projectPath && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}

		return nil
	})
}

var skipDirs = map[string]bool{
	"target":       true,
	"build":        true,
	"out":          true,
	"vendor":       true,
	"node_modules": true,
	"testdata":     true,
}

// Start begins watching for changes
func (w *Watcher) Start() {
	go w.eventLoop()
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

// eventLoop handles file system events
func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			if w.onError != nil {
				w.onError(err)
			}
		}
	}
}

// handleEvent processes a single file system event
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Only care about write/create/remove events
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// Handle new directories
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.fsWatcher.Add(event.Name)
			return
		}
	}

	if !w.isSourceFile(event.Name) {
		return
	}

	// Add to pending files and reset debounce timer
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pendingFiles[event.Name] = struct{}{}

	// Reset debounce timer
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.triggerAnalysis)
}

// isSourceFile reports whether a changed path should trigger reanalysis
func (w *Watcher) isSourceFile(name string) bool {
	// Go test files churn without changing the call graph
	if strings.HasSuffix(name, "_test.go") {
		return false
	}
	for _, ext := range w.extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// triggerAnalysis runs the analysis after debounce
func (w *Watcher) triggerAnalysis() {
	w.pendingMu.Lock()
	files := make([]string, 0, len(w.pendingFiles))
	for f := range w.pendingFiles {
		files = append(files, f)
	}
	w.pendingFiles = make(map[string]struct{})
	w.pendingMu.Unlock()

	if len(files) == 0 {
		return
	}
	sort.Strings(files)

	if w.onAnalysisStart != nil {
		w.onAnalysisStart(files)
	}

	startTime := time.Now()

	stats, err := w.analyze(files)
	if err != nil {
		if w.onError != nil {
			w.onError(fmt.Errorf("analysis failed: %w", err))
		}
		return
	}

	duration := time.Since(startTime)

	if w.onAnalysisDone != nil {
		w.onAnalysisDone(stats, duration)
	}
}
