// Package watch re-runs a sync whenever the local site sources change.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/c360studio/openhub/content"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long changes are collected before a sync starts.
const DefaultDebounce = 500 * time.Millisecond

// SyncFunc runs one sync. Errors are logged and watching continues.
type SyncFunc func(ctx context.Context) error

// Config configures a Watcher.
type Config struct {
	// Debounce is how long to wait for more changes before syncing.
	Debounce time.Duration

	// Extensions lists watched file extensions.
	Extensions []string

	// ExcludeDirs lists absolute directories never watched, such as the destination.
	ExcludeDirs []string
}

// DefaultConfig returns the default watch configuration.
func DefaultConfig() Config {
	return Config{
		Debounce:   DefaultDebounce,
		Extensions: []string{".md", ".markdown", ".html", ".yml", ".yaml", ".png", ".svg"},
	}
}

// Watcher watches a site directory and runs a sync after changes settle.
// Syncs never overlap and changes observed while a sync runs are dropped,
// since the sync itself rewrites working copies under the site.
type Watcher struct {
	root       string
	config     Config
	fsw        *fsnotify.Watcher
	logger     *slog.Logger
	extensions map[string]bool
	excludes   map[string]bool

	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op
	quietTill time.Time
}

// New creates a watcher for the site rooted at root.
func New(root string, config Config, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if len(config.Extensions) == 0 {
		config.Extensions = DefaultConfig().Extensions
	}

	extensions := make(map[string]bool)
	for _, ext := range config.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[strings.ToLower(ext)] = true
	}

	excludes := make(map[string]bool)
	for _, dir := range config.ExcludeDirs {
		if abs, err := filepath.Abs(dir); err == nil {
			excludes[abs] = true
		}
	}

	root, err = filepath.Abs(root)
	if err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		root:       root,
		config:     config,
		fsw:        fsw,
		logger:     logger,
		extensions: extensions,
		excludes:   excludes,
		pending:    make(map[string]fsnotify.Op),
	}, nil
}

// Run watches until ctx is done, calling fn after each settled batch of changes.
func (w *Watcher) Run(ctx context.Context, fn SyncFunc) error {
	defer w.fsw.Close()

	if err := w.addWatchesRecursive(w.root); err != nil {
		return err
	}

	w.logger.Info("Watching site",
		"root", w.root,
		"debounce", w.config.Debounce)

	ticker := time.NewTicker(w.config.Debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleFSEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			changed := w.takePending()
			if len(changed) == 0 {
				continue
			}
			w.logger.Info("Sources changed, syncing", "files", len(changed))
			if err := fn(ctx); err != nil {
				w.logger.Error("Sync failed", "error", err)
			}
			w.settle()
		}
	}
}

// skipDir reports whether a directory is never watched: hidden directories,
// excluded directories, main-repository checkouts and anything below the
// root of a git working copy.
func (w *Watcher) skipDir(path string) bool {
	if path == w.root {
		return false
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || w.excludes[path] || content.IsMainRepoDir(base) {
		return true
	}
	return w.insideWorkingCopy(path)
}

// insideWorkingCopy reports whether an ancestor of path below the root is a
// working copy.
func (w *Watcher) insideWorkingCopy(path string) bool {
	for dir := filepath.Dir(path); dir != w.root && strings.HasPrefix(dir, w.root); dir = filepath.Dir(dir) {
		if content.IsWorkingCopy(dir) {
			return true
		}
	}
	return false
}

// addWatchesRecursive adds watches to all directories.
func (w *Watcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}
		if w.skipDir(path) {
			return filepath.SkipDir
		}

		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory", "path", path, "error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		// Only the top of a working copy holds site-owned files.
		if path != w.root && content.IsWorkingCopy(path) {
			return filepath.SkipDir
		}
		return nil
	})
}

// relevant reports whether a change to path should trigger a sync.
func (w *Watcher) relevant(path string) bool {
	if !w.extensions[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return false
		}
	}
	for dir := range w.excludes {
		if strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return false
		}
	}
	if dir := filepath.Dir(path); dir != w.root && content.IsWorkingCopy(dir) {
		name := filepath.Base(path)
		return strings.TrimSuffix(name, filepath.Ext(name)) == "index"
	}
	return !w.insideWorkingCopy(path)
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.skipDir(path) {
				if err := w.addWatchesRecursive(path); err != nil {
					w.logger.Warn("Failed to watch new directory", "path", path, "error", err)
				}
			}
			return
		}
	}

	if !w.relevant(path) {
		return
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if time.Now().Before(w.quietTill) {
		return
	}
	w.pending[path] = event.Op
	w.logger.Debug("Source change detected", "path", path, "op", event.Op.String())
}

// takePending returns and clears the accumulated changes.
func (w *Watcher) takePending() map[string]fsnotify.Op {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	if len(w.pending) == 0 {
		return nil
	}
	out := w.pending
	w.pending = make(map[string]fsnotify.Op)
	return out
}

// settle drops changes made by the sync itself.
func (w *Watcher) settle() {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.pending = make(map[string]fsnotify.Op)
	w.quietTill = time.Now().Add(w.config.Debounce)
}
