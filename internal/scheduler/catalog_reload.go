package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/pinboard/internal/index"
	"github.com/MrSnakeDoc/pinboard/internal/logger"
	"github.com/MrSnakeDoc/pinboard/internal/sources/catalog"
)

// CatalogReloader handles periodic reloading of the topic/post catalog
type CatalogReloader struct {
	loader        *catalog.Loader
	index         *index.MemoryIndex
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewCatalogReloader creates a new catalog reloader
func NewCatalogReloader(
	catalogFile string,
	idx *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *CatalogReloader {
	return &CatalogReloader{
		loader:        catalog.NewLoader(catalogFile),
		index:         idx,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the catalog once, then reloads it on every tick or manual trigger
func (cr *CatalogReloader) Start(ctx context.Context) error {
	if err := cr.Reload(ctx); err != nil {
		return fmt.Errorf("initial catalog load failed: %w", err)
	}

	ticker := time.NewTicker(cr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := cr.Reload(ctx); err != nil {
					cr.logger.Error("failed to reload catalog",
						logger.Error(err))
				}
			case <-cr.manualTrigger:
				cr.logger.Info("manual catalog reload triggered")
				if err := cr.Reload(ctx); err != nil {
					cr.logger.Error("failed to reload catalog",
						logger.Error(err))
				}
			case <-cr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (cr *CatalogReloader) Stop() {
	close(cr.stopCh)
}

// Reload replaces the index's post -> topic map with the file's content.
// On error the previous catalog stays in place.
func (cr *CatalogReloader) Reload(_ context.Context) error {
	cfg, err := cr.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	posts, err := cfg.PostTopics()
	if err != nil {
		return fmt.Errorf("failed to map catalog: %w", err)
	}

	cr.index.UpdatePosts(posts)

	cr.logger.Info("catalog loaded",
		logger.Int("topics", len(cfg.Topics)),
		logger.Int("posts", len(posts)))

	return nil
}
