package catalogfile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"storefront/internal/domain/catalog"
	"storefront/internal/metrics"
)

// DefaultDebounce is how long the file must stay quiet before a reload.
const DefaultDebounce = 300 * time.Millisecond

// Source serves the current catalog. Readers never block on a reload;
// a reload that fails validation keeps the previous catalog.
type Source struct {
	path     string
	debounce time.Duration
	current  atomic.Pointer[catalog.Catalog]
	reloads  atomic.Int64
}

// NewSource loads the catalog at path (embedded default when empty).
func NewSource(path string) (*Source, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	s := &Source{path: path, debounce: DefaultDebounce}
	s.current.Store(c)
	return s, nil
}

// Static returns a Source that always serves c and never watches.
func Static(c *catalog.Catalog) *Source {
	s := &Source{debounce: DefaultDebounce}
	s.current.Store(c)
	return s
}

// Current returns the catalog in effect. Callers must not mutate it.
func (s *Source) Current() *catalog.Catalog {
	return s.current.Load()
}

// Reloads returns the number of successful reloads since start.
func (s *Source) Reloads() int64 {
	return s.reloads.Load()
}

// Reload re-reads the file and swaps it in when valid.
func (s *Source) Reload() error {
	if s.path == "" {
		return nil
	}
	c, err := Load(s.path)
	metrics.RecordCatalogReload(err == nil)
	if err != nil {
		return err
	}
	s.current.Store(c)
	s.reloads.Add(1)
	return nil
}

// Run watches the catalog file until ctx is cancelled. The parent directory is
// watched so editors that replace the file by rename are picked up.
// A Source without a path returns immediately.
func (s *Source) Run(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog watcher: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(s.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	slog.Info("catalog_watch_started", "path", target)

	timer := time.NewTimer(s.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(s.debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Warn("catalog_watch_error", "error", err)

		case <-timer.C:
			if err := s.Reload(); err != nil {
				slog.Error("catalog_reload_failed", "path", target, "error", err)
				continue
			}
			slog.Info("catalog_reloaded", "path", target)
		}
	}
}
