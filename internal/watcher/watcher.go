// Package watcher reports note changes under the vault roots, with fsnotify
// and per-file debouncing.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hyperjump/emotags/internal/vault"
	"go.uber.org/zap"
)

// DefaultDebounce is how long a file must be quiet before it is reported.
const DefaultDebounce = 400 * time.Millisecond

// Watcher watches vault directories and calls onChange for notes that were
// created, written or moved in.
type Watcher struct {
	roots       []string
	extensions  []string
	recursive   bool
	onChange    func(path string)
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	rootPaths   map[string][]string // root -> watched directories
	done        chan struct{}
	started     bool
	stopOnce    sync.Once
	logger      *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets the quiet period. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over roots. Only files matching extensions
// (all files when empty) are reported; hidden files and directories never are.
func NewWatcher(roots []string, extensions []string, recursive bool, onChange func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		extensions:  extensions,
		recursive:   recursive,
		onChange:    onChange,
		debounce:    DefaultDebounce,
		debounceMap: make(map[string]*time.Timer),
		rootPaths:   make(map[string][]string),
		done:        make(chan struct{}),
		logger:      zap.NewNop(),
	}
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			w.roots = append(w.roots, filepath.Clean(abs))
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts watching. It runs until ctx is cancelled or Stop is called.
// Roots that do not exist are logged and left out.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	w.watcher = fw
	w.started = true
	w.logger.Debug("watcher starting",
		zap.Strings("roots", w.roots),
		zap.Strings("extensions", w.extensions),
		zap.Bool("recursive", w.recursive),
		zap.Duration("debounce", w.debounce))
	kept := w.roots[:0]
	for _, root := range w.roots {
		if err := w.addRootLocked(root); err != nil {
			w.logger.Warn("not watching directory", zap.String("path", root), zap.Error(err))
			continue
		}
		kept = append(kept, root)
	}
	w.roots = kept
	events, errs := fw.Events, fw.Errors
	w.mu.Unlock()
	go w.run(ctx, events, errs)
	return nil
}

func (w *Watcher) run(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	root, ok := w.rootOf(path)
	if !ok || hiddenUnder(root, path) {
		return
	}
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Op.Has(fsnotify.Create), ev.Op.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if ev.Op.Has(fsnotify.Create) {
				w.handleNewDirectory(path)
			}
			return
		}
		if vault.MatchExtension(path, w.extensions) {
			w.debounceChange(path)
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		w.cancelDebounce(path)
	}
}

// handleNewDirectory watches a directory that appeared under a root (created
// or moved in) and reports the notes already inside it.
func (w *Watcher) handleNewDirectory(dirPath string) {
	w.mu.Lock()
	recursive := w.recursive
	fw := w.watcher
	w.mu.Unlock()
	if fw == nil || !recursive {
		return
	}
	w.logger.Debug("watcher handling new directory", zap.String("path", dirPath))

	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dirPath && vault.IsHidden(path) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
	w.syncDirectory(dirPath)
}

// rootOf returns the watched root containing path.
func (w *Watcher) rootOf(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, root := range w.roots {
		if root == path || inDir(root, path) {
			return root, true
		}
	}
	return "", false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// hiddenUnder reports whether any component of path below root is hidden.
func hiddenUnder(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if vault.IsHidden(part) {
			return true
		}
	}
	return false
}

func (w *Watcher) debounceChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
		w.logger.Debug("watcher reporting change (debounced)", zap.String("path", path))
		if w.onChange != nil {
			w.onChange(path)
		}
	})
}

func (w *Watcher) cancelDebounce(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.debounceMap[path]; ok {
		t.Stop()
		delete(w.debounceMap, path)
	}
}

// AddDirectory adds a root to watch. The directory must exist. When
// syncExisting is set the notes already in it are reported.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("cannot watch %q: %w", abs, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cannot watch %q: not a directory", abs)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.roots {
		if r == abs {
			return nil
		}
	}
	if w.watcher != nil {
		if err := w.addRootLocked(abs); err != nil {
			return err
		}
	}
	w.roots = append(w.roots, abs)
	w.logger.Debug("watcher directory added", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if syncExisting && w.onChange != nil {
		go w.syncDirectory(abs)
	}
	return nil
}

func (w *Watcher) addRootLocked(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", root)
	}
	var paths []string
	if !w.recursive {
		if err := w.watcher.Add(root); err != nil {
			return err
		}
		w.rootPaths[root] = []string{root}
		return nil
	}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && vault.IsHidden(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		for _, p := range paths {
			_ = w.watcher.Remove(p)
		}
		return err
	}
	w.rootPaths[root] = paths
	return nil
}

func (w *Watcher) syncDirectory(root string) {
	w.mu.Lock()
	exts := append([]string(nil), w.extensions...)
	recursive := w.recursive
	onChange := w.onChange
	w.mu.Unlock()
	if onChange == nil {
		return
	}
	w.logger.Debug("watcher syncing directory", zap.String("root", root))
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != root && vault.IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if vault.MatchExtension(path, exts) {
			onChange(path)
		}
		return nil
	})
}

// RemoveDirectory stops watching root. Unknown roots are ignored.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	idx := -1
	for i, r := range w.roots {
		if r == abs {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	if w.watcher != nil {
		for _, p := range w.rootPaths[abs] {
			_ = w.watcher.Remove(p)
		}
	}
	delete(w.rootPaths, abs)
	w.roots = append(w.roots[:idx], w.roots[idx+1:]...)
	w.logger.Debug("watcher directory removed", zap.String("path", abs))
	return nil
}

// Directories returns a copy of the watched roots.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles reports every note already present under the roots.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		w.syncDirectory(root)
	}
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.debounceMap {
		t.Stop()
		delete(w.debounceMap, path)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
