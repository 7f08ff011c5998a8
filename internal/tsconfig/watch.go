package tsconfig

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/oxhq/tspaths/internal/paths"
)

// Reload receives every successfully rebuilt table.
type Reload func(cfg *Config, table *paths.Table)

// Watcher rebuilds the mapping table whenever a file of the extends chain
// changes. Tables are never modified; each change produces a new one.
type Watcher struct {
	loader   *Loader
	path     string
	debounce time.Duration
	onReload Reload
	log      *logrus.Entry

	mu      sync.RWMutex
	current *paths.Table
	config  *Config
}

// NewWatcher loads path once and prepares to watch it.
func NewWatcher(ctx context.Context, loader *Loader, path string, onReload Reload) (*Watcher, error) {
	w := &Watcher{
		loader:   loader,
		path:     path,
		debounce: 100 * time.Millisecond,
		onReload: onReload,
		log:      loader.log.WithField("component", "watch"),
	}
	if err := w.reload(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

// Table returns the table built from the latest readable configuration.
func (w *Watcher) Table() *paths.Table {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Config returns the configuration the current table was built from.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

func (w *Watcher) reload(ctx context.Context) error {
	cfg, err := w.loader.Load(ctx, w.path)
	if err != nil {
		return err
	}
	table, err := cfg.Table()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.current = table
	w.config = cfg
	w.mu.Unlock()

	if w.onReload != nil {
		w.onReload(cfg, table)
	}
	return nil
}

// Run watches until ctx is cancelled. A configuration that fails to load
// is logged and the previous table stays in place.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	watched := map[string]bool{}
	files := map[string]bool{}
	rewatch := func() {
		for k := range files {
			delete(files, k)
		}
		for _, f := range w.Config().Files {
			files[f] = true
			// Editors replace files on save, so the directory is watched.
			dir := filepath.Dir(f)
			if watched[dir] {
				continue
			}
			if err := fw.Add(dir); err != nil {
				w.log.WithError(err).WithField("dir", dir).Warn("cannot watch directory")
				continue
			}
			watched[dir] = true
		}
	}
	rewatch()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !files[filepath.Clean(ev.Name)] {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			w.log.WithFields(logrus.Fields{"file": ev.Name, "op": ev.Op.String()}).Debug("config changed")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("watch error")

		case <-fire:
			fire = nil
			if err := w.reload(ctx); err != nil {
				w.log.WithError(err).Error("reloading config, keeping previous mappings")
				continue
			}
			rewatch()
		}
	}
}
