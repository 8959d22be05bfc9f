package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
	"github.com/rebuildup/my-web-2025-sub006/pkg/content/postgres"
	"github.com/rebuildup/my-web-2025-sub006/pkg/search"
)

// app is the wired search stack for one command invocation
type app struct {
	service  *search.Service
	registry *prometheus.Registry
	files    *content.FileSource
	database *postgres.Source
}

func (o *cliOptions) newApp(ctx context.Context) (*app, error) {
	a := &app{}

	var src content.Source
	switch o.cfg.Content.Driver {
	case "postgres":
		db, err := postgres.NewSource(ctx, &postgres.Config{ConnectionString: o.cfg.Content.DatabaseURL})
		if err != nil {
			return nil, fmt.Errorf("failed to open content database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to migrate content database: %w", err)
		}
		a.database = db
		src = db
	default:
		a.files = content.NewFileSource(o.cfg.Content.Dir)
		src = a.files
	}

	opts := search.OptionsFromConfig(o.cfg, src)
	opts.Logger = o.logger

	if o.cfg.Search.JapaneseTokenize {
		seg, err := search.NewJapaneseSegmenter()
		if err != nil {
			o.logger.WithError(err).Warn("japanese segmentation disabled")
		} else {
			opts.Segmenter = seg
		}
	}

	if o.cfg.Server.EnableMetrics {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts.Registerer = a.registry
	}

	a.service = search.NewService(opts)
	return a, nil
}

// watch feeds content changes into incremental index updates until ctx is done
func (a *app) watch(ctx context.Context, o *cliOptions) (stop func(), err error) {
	update := func(ctx context.Context, t content.Type) {
		a.service.UpdateIndex(ctx, t)
	}

	if a.database != nil {
		go func() {
			if err := a.database.Listen(ctx, update); err != nil {
				o.logger.WithError(err).Error("content change listener stopped")
			}
		}()
		return func() {}, nil
	}

	debounce := time.Duration(o.cfg.Content.WatchDebounceMS) * time.Millisecond
	w, err := content.NewWatcher(a.files.Dir, debounce, update, o.logger)
	if err != nil {
		return nil, err
	}
	w.Start(ctx)
	return func() {
		if err := w.Stop(); err != nil {
			o.logger.WithError(err).Warn("failed to stop content watcher")
		}
	}, nil
}

func (a *app) close() {
	if a.database != nil {
		a.database.Close()
	}
}
