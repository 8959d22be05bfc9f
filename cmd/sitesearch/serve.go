package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rebuildup/my-web-2025-sub006/pkg/api"
	"github.com/rebuildup/my-web-2025-sub006/pkg/search"
)

func newServeCmd(opts *cliOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the search HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				opts.cfg.Server.Address = addr
			}
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func runServe(ctx context.Context, opts *cliOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := opts.newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := opts.cfg
	svc := a.service

	if n, err := svc.CacheLoadPersisted(); err != nil {
		opts.logger.WithError(err).Warn("starting with a cold cache")
	} else if n > 0 {
		opts.logger.WithField("entries", n).Info("restored result cache")
	}

	if entries, err := svc.LoadIndex(ctx); err != nil {
		opts.logger.WithError(err).Warn("index unavailable at startup")
	} else {
		opts.logger.WithField("entries", len(entries)).Info("index ready")
	}

	if _, err := svc.Preload(ctx); err != nil {
		opts.logger.WithError(err).Warn("cache preload failed")
	}

	if cfg.Content.Watch {
		stop, err := a.watch(ctx, opts)
		if err != nil {
			return err
		}
		defer stop()
	}

	scheduler, err := search.NewScheduler(svc, search.Schedules{
		Rebuild:      cfg.Maintenance.RebuildSchedule,
		CachePersist: cfg.Maintenance.CachePersistSchedule,
		ExpirySweep:  cfg.Maintenance.ExpirySweepSchedule,
	}, opts.logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer stopCancel()
		if err := scheduler.Stop(stopCtx); err != nil {
			opts.logger.WithError(err).Warn("maintenance jobs did not finish")
		}
		if err := svc.CachePersist(); err != nil {
			opts.logger.WithError(err).Warn("failed to persist cache on shutdown")
		}
	}()

	apiCfg := api.Config{
		Address:      cfg.Server.Address,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}
	if a.registry != nil {
		apiCfg.Gatherer = a.registry
	}

	return api.NewServer(svc, apiCfg, opts.logger).ListenAndServe(ctx)
}
