package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jugend/amazon-ecs/internal/config"
	"github.com/jugend/amazon-ecs/internal/logger"
	"github.com/jugend/amazon-ecs/internal/storage"
	"github.com/jugend/amazon-ecs/internal/watch"
	"github.com/jugend/amazon-ecs/pkg/publishers"
	"github.com/jugend/amazon-ecs/pkg/searches"
)

// Watcher runs the saved searches on a schedule and publishes items it has
// not seen before.
type Watcher struct {
	cfg      *config.Config
	searches []searches.Search
	fanout   *publishers.Fanout
	service  *watch.Service
	interval time.Duration
	log      logger.Logger
	store    storage.Store

	sweepEvery time.Duration
	lastSweep  time.Time
}

// NewWatcher builds a watcher runtime from config files.
func NewWatcher(ctx context.Context, cfg *config.Config, log logger.Logger) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := NewClient(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("init client: %w", err)
	}

	list, err := searches.Load(cfg.SearchesFile)
	if err != nil {
		return nil, fmt.Errorf("load searches: %w", err)
	}
	ids := make([]string, 0, len(list))
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	log.InfoObj("searches loaded", "searches_meta", map[string]any{
		"count": len(ids),
		"ids":   ids,
	})

	pubCfgs, err := publishers.LoadConfigs(cfg.PublishersFile)
	if err != nil {
		return nil, fmt.Errorf("load publishers: %w", err)
	}
	enabled := publishers.Enabled(pubCfgs)
	if len(enabled) == 0 {
		return nil, fmt.Errorf("no publishers enabled")
	}
	pubs, err := publishers.DefaultBuilders().BuildAll(ctx, enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	fanout := publishers.NewFanout(pubs)
	summaries := make([]map[string]string, 0, len(enabled))
	for _, p := range enabled {
		summaries = append(summaries, map[string]string{"id": p.ID, "type": p.Type})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})

	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{ItemTTL: cfg.StorageTTL})
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"item_ttl_seconds":         int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return &Watcher{
		cfg:      cfg,
		searches: list,
		fanout:   fanout,
		service:  watch.NewService(client, fanout, store, log, cfg.Country),
		interval: cfg.WatchInterval,
		log:      log,
		store:    store,

		sweepEvery: cfg.StorageCleanupInterval,
		lastSweep:  time.Now(),
	}, nil
}

// Run executes the searches immediately and then on every interval until
// ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w == nil || w.service == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.close()

	if len(w.searches) == 0 {
		w.log.WarnObj("no searches configured; watcher idle", "searches_file", w.cfg.SearchesFile)
		<-ctx.Done()
		return nil
	}

	w.log.InfoObj("watch loop starting", "watcher_state", map[string]any{
		"searches_count":   len(w.searches),
		"publishers_count": w.fanout.Size(),
		"watch_interval":   w.interval.String(),
	})

	if err := w.runOnce(ctx); err != nil {
		w.log.ErrorObj("initial pass failed", "error", err.Error())
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.InfoObj("watch loop exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			if err := w.runOnce(ctx); err != nil {
				w.log.ErrorObj("scheduled pass failed", "error", err.Error())
			}
		}
	}
}

// RunOnce executes every search a single time and releases resources.
func (w *Watcher) RunOnce(ctx context.Context) error {
	if w == nil || w.service == nil {
		return fmt.Errorf("watcher is not initialized")
	}
	defer w.close()
	if len(w.searches) == 0 {
		return nil
	}
	return w.runOnce(ctx)
}

func (w *Watcher) runOnce(ctx context.Context) error {
	start := time.Now()
	w.log.InfoObj("watch pass started", "watch_meta", map[string]any{
		"searches_count": len(w.searches),
		"started_at":     start.UTC(),
	})
	sum, err := w.service.Run(ctx, w.searches)
	w.log.InfoObj("watch pass completed", "watch_meta", map[string]any{
		"summary":    sum,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	w.maybeSweep(start)
	return err
}

// maybeSweep drops expired seen-item keys at most once per cleanup interval.
func (w *Watcher) maybeSweep(now time.Time) {
	if w.store == nil || now.Sub(w.lastSweep) < w.sweepEvery {
		return
	}
	removed, err := w.store.Sweep()
	if err != nil {
		w.log.ErrorObj("storage sweep failed", "error", err.Error())
		return
	}
	w.lastSweep = now
	w.log.InfoObj("storage swept", "storage_sweep", map[string]any{"removed": removed})
}

func (w *Watcher) close() {
	if w.store != nil {
		if err := w.store.Close(); err != nil {
			w.log.ErrorObj("storage close failed", "error", err.Error())
		}
	}
	if err := w.fanout.Close(); err != nil {
		w.log.ErrorObj("publisher close failed", "error", err.Error())
	}
}
