package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/avielr/paperqa/internal/arxiv"
	"github.com/avielr/paperqa/internal/config"
	"github.com/avielr/paperqa/internal/logging"
)

// defaultCategories is the collection plan used when the config file does not
// define one. Weights skew towards the NLP/ML categories the corpus is
// mostly asked about.
var defaultCategories = []arxiv.CategoryWeight{
	{ID: "cs.CL", Weight: 3},
	{ID: "cs.LG", Weight: 3},
	{ID: "cs.AI", Weight: 2},
	{ID: "cs.IR", Weight: 1},
	{ID: "stat.ML", Weight: 1},
}

// NewCollectCmd constructs the `paperqa collect` command, which fetches paper
// metadata from the arXiv API into the local SQLite store.
func NewCollectCmd() *cobra.Command {
	var maxPapers int
	var recentYears int

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect paper metadata from the arXiv API",
		Long: `Fetch paper titles, abstracts, and metadata from the arXiv API and store
them in the local SQLite database (~/.paperqa/papers.db).

The per-category split is weighted: the config file's collection.categories
list assigns a weight to each arXiv category, and the total budget is
divided proportionally. Papers already collected by earlier runs are skipped.

Requests are paced to respect the arXiv API usage policy, so large
collections take a while.

Examples:
  paperqa collect
  paperqa collect --max-papers 500
  paperqa collect --max-papers 2000 --recent-years 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			plan := config.CollectionConfig{}
			if loadedConfigPath != "" {
				cfg, err := config.Parse(loadedConfigPath)
				if err != nil {
					return fmt.Errorf("collect: %w", err)
				}
				plan = cfg.Collection
			}
			if len(plan.Categories) == 0 {
				plan.Categories = defaultCategories
			}
			if maxPapers > 0 {
				plan.MaxPapers = maxPapers
			}
			if plan.MaxPapers <= 0 {
				plan.MaxPapers = 1000
			}
			if recentYears >= 0 {
				plan.RecentYears = recentYears
			}

			st, err := openPaperStore()
			if err != nil {
				return fmt.Errorf("collect: %w", err)
			}
			defer func() { _ = st.Close() }()

			client := arxiv.NewClient(&arxiv.ClientConfig{BatchSize: plan.BatchSize})

			log.Info("collection starting",
				slog.Int("max_papers", plan.MaxPapers),
				slog.Int("categories", len(plan.Categories)),
				slog.Int("recent_years", plan.RecentYears),
			)
			start := time.Now()

			stats, err := arxiv.Collect(ctx, client, st, arxiv.CollectConfig{
				Categories:  plan.Categories,
				MaxPapers:   plan.MaxPapers,
				RecentYears: plan.RecentYears,
			})
			if err != nil {
				return fmt.Errorf("collect: %w", err)
			}

			fmt.Printf("Collected %d papers (%d new) in %s\n",
				stats.Fetched, stats.Inserted, time.Since(start).Round(time.Second))
			for cat, n := range stats.PerCategory {
				fmt.Printf("  %-10s %d\n", cat, n)
			}

			total, err := st.Count(ctx)
			if err != nil {
				return fmt.Errorf("collect: %w", err)
			}
			fmt.Printf("Store now holds %d papers.\n", total)
			return nil
		},
	}

	cmd.Flags().IntVar(&maxPapers, "max-papers", 0, "Total paper budget across all categories (default 1000)")
	cmd.Flags().IntVar(&recentYears, "recent-years", -1, "Only collect papers from the last N years (0 disables the cutoff)")

	return cmd
}
