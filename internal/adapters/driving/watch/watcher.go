// Package watch rebuilds the index when corpus artifacts change on
// disk. Bursts of filesystem events collapse into a single rebuild
// once the directory has been quiet for the debounce window.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/warraq-labs/warraq/internal/core/ports/driving"
	"github.com/warraq-labs/warraq/internal/logger"
)

// DefaultDebounce is the quiet period required after the last event.
const DefaultDebounce = 2 * time.Second

// Config holds the watcher settings.
type Config struct {
	// Root is the corpus texts directory to watch, recursively.
	Root string

	// Debounce is the quiet period after the last event before a
	// rebuild fires (default: 2s).
	Debounce time.Duration
}

// Watcher triggers index rebuilds from filesystem changes.
type Watcher struct {
	watcher   *fsnotify.Watcher
	retrieval driving.RetrievalService
	root      string
	debounce  time.Duration
}

// New creates a watcher over the corpus root and all its
// subdirectories.
func New(cfg Config, retrieval driving.RetrievalService) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		watcher:   fsw,
		retrieval: retrieval,
		root:      cfg.Root,
		debounce:  cfg.Debounce,
	}

	if err := w.addTree(cfg.Root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", cfg.Root, err)
	}
	return w, nil
}

// addTree registers root and every subdirectory. fsnotify watches are
// not recursive on their own.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return fs.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// Run relays event bursts into single rebuilds until ctx is cancelled
// or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	logger.Info("watching %s for corpus changes", w.root)

	var rebuildC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			logger.Debug("corpus change: %s %s", ev.Op, ev.Name)
			// Each event pushes the rebuild back; only the last
			// timer in a burst ever fires.
			rebuildC = time.After(w.debounce)

		case <-rebuildC:
			rebuildC = nil
			w.rebuild(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error: %v", err)
		}
	}
}

// relevant filters events down to ones that can change the index, and
// starts watching directories as they appear.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(ev.Name); err != nil {
				logger.Warn("watch new directory %s: %v", ev.Name, err)
			}
			return true
		}
	}
	return strings.HasSuffix(ev.Name, ".json")
}

func (w *Watcher) rebuild(ctx context.Context) {
	receipt, err := w.retrieval.Rebuild(ctx)
	if err != nil {
		logger.Warn("rebuild after corpus change failed: %v", err)
		return
	}
	logger.Info("corpus change rebuilt index: %d chunks in %s (job %s)",
		receipt.Status.ChunkCount,
		receipt.Finished.Sub(receipt.Started).Round(time.Millisecond),
		receipt.JobID)
}

// Close stops the underlying filesystem watcher, unblocking Run.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
