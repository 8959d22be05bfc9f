package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
	"github.com/rebuildup/my-web-2025-sub006/pkg/search"
)

func newReindexCmd(opts *cliOptions) *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the index snapshot from the content source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var t content.Type
			if typeName != "" {
				parsed, err := content.ParseType(typeName)
				if err != nil {
					return err
				}
				t = parsed
			}

			a, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if !a.service.UpdateIndex(cmd.Context(), t) {
				return fmt.Errorf("%w: reindex failed", search.ErrSourceUnavailable)
			}
			// Cached results were built against the previous index.
			if _, err := a.service.CacheLoadPersisted(); err == nil {
				a.service.CacheClear("")
				if err := a.service.CachePersist(); err != nil {
					opts.logger.WithError(err).Warn("failed to persist cache")
				}
			}

			entries, err := a.service.LoadIndex(cmd.Context())
			if err != nil {
				return err
			}
			counts := make(map[content.Type]int)
			for _, e := range entries {
				counts[e.Type]++
			}

			p := opts.printer(cmd)
			if p.json {
				return p.JSON(map[string]interface{}{
					"type":    string(t),
					"entries": len(entries),
					"byType":  counts,
				})
			}
			rows := make([][]string, 0, len(counts))
			for _, ct := range content.Types {
				if n := counts[ct]; n > 0 {
					rows = append(rows, []string{string(ct), strconv.Itoa(n)})
				}
			}
			p.Table([]string{"Type", "Entries"}, rows)
			p.Summary("%d entries indexed", len(entries))
			return nil
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "update only this content type")
	return cmd
}

func newCacheCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or reset the persisted result cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			if _, err := a.service.CacheLoadPersisted(); err != nil {
				return err
			}

			s := a.service.CacheStats()
			p := opts.printer(cmd)
			if p.json {
				return p.JSON(s)
			}
			rows := make([][]string, 0, len(s.Entries))
			for _, e := range s.Entries {
				rows = append(rows, []string{
					truncate(e.Key, 60),
					strconv.FormatInt(e.AgeMS/1000, 10) + "s",
					strconv.FormatInt(e.TTLMS/1000, 10) + "s",
					strconv.FormatBool(e.Expired),
				})
			}
			p.Table([]string{"Key", "Age", "TTL", "Expired"}, rows)
			p.Summary("%d of %d entries", s.Size, s.MaxSize)
			return nil
		},
	}

	var pattern string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cache entries matching a pattern, or all of them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			if _, err := a.service.CacheLoadPersisted(); err != nil {
				opts.logger.WithError(err).Warn("replacing unreadable cache snapshot")
			}

			removed := a.service.CacheClear(pattern)
			if err := a.service.CachePersist(); err != nil {
				return err
			}

			p := opts.printer(cmd)
			if p.json {
				return p.JSON(map[string]int{"removed": removed})
			}
			p.Summary("removed %d entries", removed)
			return nil
		},
	}
	clearCmd.Flags().StringVar(&pattern, "pattern", "", "case-insensitive substring of the cache key")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Drop expired entries from the cache snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			if _, err := a.service.CacheLoadPersisted(); err != nil {
				return err
			}
			removed := a.service.CacheSweep()
			if err := a.service.CachePersist(); err != nil {
				return err
			}

			p := opts.printer(cmd)
			if p.json {
				return p.JSON(map[string]int{"removed": removed, "remaining": a.service.CacheStats().Size})
			}
			p.Summary("%d entries remain", a.service.CacheStats().Size)
			return nil
		},
	}

	preloadCmd := &cobra.Command{
		Use:   "preload",
		Short: "Warm the cache with the most popular queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			if _, err := a.service.CacheLoadPersisted(); err != nil {
				opts.logger.WithError(err).Warn("replacing unreadable cache snapshot")
			}

			n, err := a.service.Preload(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.service.CachePersist(); err != nil {
				return err
			}

			p := opts.printer(cmd)
			if p.json {
				return p.JSON(map[string]int{"preloaded": n})
			}
			p.Summary("preloaded %d queries", n)
			return nil
		},
	}

	cmd.AddCommand(statsCmd, clearCmd, sweepCmd, preloadCmd)
	return cmd
}
