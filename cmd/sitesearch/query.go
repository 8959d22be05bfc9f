package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rebuildup/my-web-2025-sub006/pkg/content"
	"github.com/rebuildup/my-web-2025-sub006/pkg/search"
)

func newSearchCmd(opts *cliOptions) *cobra.Command {
	var (
		searchOpts search.SearchOptions
		typeName   string
		tags       []string
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Query the search index",
		Example: `  sitesearch search "react hooks"
  sitesearch search tips --type blog --limit 5
  sitesearch search --all --category tutorial`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var query string
			if len(args) == 1 {
				query = args[0]
			}
			if typeName != "" {
				t, err := content.ParseType(typeName)
				if err != nil {
					return err
				}
				searchOpts.Type = t
			}
			searchOpts.Tags = tags
			if err := searchOpts.Validate(); err != nil {
				return err
			}

			a, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.service.CacheLoadPersisted(); err != nil {
				opts.logger.WithError(err).Debug("ignoring cache snapshot")
			}
			resp := a.service.SearchWithMeta(cmd.Context(), query, searchOpts)
			if err := a.service.CachePersist(); err != nil {
				opts.logger.WithError(err).Warn("failed to persist cache")
			}

			p := opts.printer(cmd)
			if p.json {
				return p.JSON(resp)
			}
			printResults(p, resp)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&typeName, "type", "", "restrict to one content type")
	f.StringVar(&searchOpts.Category, "category", "", "restrict to one category")
	f.StringSliceVar(&tags, "tags", nil, "require at least one of these tags")
	f.IntVar(&searchOpts.Limit, "limit", 0, "maximum results (default from config)")
	f.IntVar(&searchOpts.Offset, "offset", 0, "results to skip")
	f.BoolVar(&searchOpts.IncludeContent, "include-content", false, "also match the body text")
	f.Float64Var(&searchOpts.Threshold, "threshold", 0, "fuzzy match threshold in (0,1]; 0 uses the configured default")
	f.Float64Var(&searchOpts.MinScore, "min-score", 0, "drop results scoring below this")
	f.BoolVar(&searchOpts.ListAll, "all", false, "list entries when the query is empty")
	return cmd
}

func printResults(p *printer, resp search.SearchResponse) {
	rows := make([][]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		rows = append(rows, []string{
			formatScore(r.Score),
			string(r.Type),
			bold(r.Title),
			r.URL,
			truncate(strings.Join(r.Highlights, " | "), 60),
		})
	}
	p.Table([]string{"Score", "Type", "Title", "URL", "Highlights"}, rows)

	footer := strconv.Itoa(len(resp.Results)) + " of " + strconv.Itoa(resp.Total) + " results"
	if resp.Cached {
		footer += " (cached)"
	}
	p.Summary("%s in %dms", footer, resp.TimeTakenMS)
	if len(resp.SuggestedQueries) > 0 {
		p.Summary("Did you mean: %s", strings.Join(resp.SuggestedQueries, ", "))
	}
}

func newSuggestCmd(opts *cliOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest <prefix>",
		Short: "Suggest query completions from titles and tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			suggestions := a.service.GetSuggestions(cmd.Context(), args[0], limit)

			p := opts.printer(cmd)
			if p.json {
				return p.JSON(suggestions)
			}
			rows := make([][]string, 0, len(suggestions))
			for _, s := range suggestions {
				rows = append(rows, []string{s})
			}
			p.Table([]string{"Suggestion"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "maximum suggestions")
	return cmd
}

func newRelatedCmd(opts *cliOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "related <id>",
		Short: "List entries sharing a category or tags with an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			related := a.service.GetRelatedContent(cmd.Context(), args[0], limit)

			p := opts.printer(cmd)
			if p.json {
				return p.JSON(related)
			}
			rows := make([][]string, 0, len(related))
			for _, r := range related {
				rows = append(rows, []string{r.ID, strconv.FormatFloat(r.Score, 'f', 0, 64)})
			}
			p.Table([]string{"ID", "Shared"}, rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "maximum related entries")
	return cmd
}
