package clsort

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher re-sorts files under a root as they are saved.
type Watcher struct {
	app      *App
	watcher  *fsnotify.Watcher
	root     string
	single   string
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]time.Time
}

func (a *App) NewWatcher(root string) (*Watcher, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		app:      a,
		watcher:  fw,
		root:     root,
		debounce: time.Duration(a.cfg.Watch.DebounceMs) * time.Millisecond,
		pending:  make(map[string]time.Time),
	}

	if !info.IsDir() {
		w.single = filepath.Clean(root)
		if err := fw.Add(filepath.Dir(root)); err != nil {
			fw.Close()
			return nil, err
		}
		return w, nil
	}

	if err := w.addTree(root); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !e.IsDir() || w.skipDir(e.Name()) {
			continue
		}
		if err := w.addTree(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func (w *Watcher) skipDir(name string) bool {
	if isHidden(name) {
		return true
	}
	for _, e := range w.app.cfg.Exclude {
		if e == name {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run handles events until ctx is done. report receives the outcome of every processed
// file, modified or not.
func (w *Watcher) Run(ctx context.Context, report func(FileOutcome)) error {
	ticker := time.NewTicker(max(w.debounce/3, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.app.logger.Warn("watch error", zap.Error(err))

		case <-ticker.C:
			for _, path := range w.settled() {
				report(w.app.processOne(ctx, path))
			}
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	path := filepath.Clean(event.Name)

	if event.Op&fsnotify.Create != 0 && w.single == "" {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.skipDir(info.Name()) {
				if err := w.addTree(path); err != nil {
					w.app.logger.Warn("cannot watch directory", zap.String("path", path), zap.Error(err))
				}
			}
			return
		}
	}

	if w.single != "" && path != w.single {
		return
	}
	if w.single == "" && !HasAllowedExtension(path, w.app.cfg.ScanExtensions()) {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// settled returns the pending paths that saw no event for the debounce window.
func (w *Watcher) settled() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	var ready []string
	for path, at := range w.pending {
		if now.Sub(at) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	return ready
}
