package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/pinboard/internal/logger"
)

// CatalogWatcher pushes a reload trigger when the catalog file changes on disk.
// It watches the parent directory so that editors and config-map updates that
// replace the file by rename are still seen.
type CatalogWatcher struct {
	path     string
	trigger  chan<- struct{}
	debounce time.Duration
	logger   logger.Logger
	watcher  *fsnotify.Watcher
}

// NewCatalogWatcher starts watching the catalog's directory.
func NewCatalogWatcher(path string, trigger chan<- struct{}, debounce time.Duration, log logger.Logger) (*CatalogWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &CatalogWatcher{
		path:     abs,
		trigger:  trigger,
		debounce: debounce,
		logger:   log,
		watcher:  w,
	}, nil
}

// Run forwards debounced change events until ctx is done. It closes the watcher on return.
func (cw *CatalogWatcher) Run(ctx context.Context) {
	defer func() { _ = cw.watcher.Close() }()

	var debounce *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case ev, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != cw.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(cw.debounce)
			} else {
				debounce.Reset(cw.debounce)
			}
			fire = debounce.C

		case <-fire:
			fire = nil
			select {
			case cw.trigger <- struct{}{}:
				cw.logger.Info("catalog file changed, reload requested",
					logger.String("file", cw.path))
			default:
				// a reload is already pending
			}

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Warn("catalog watcher error", logger.Error(err))

		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return
		}
	}
}
