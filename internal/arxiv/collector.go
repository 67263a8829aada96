package arxiv

import (
	"context"
	"fmt"
	"time"

	"github.com/avielr/paperqa/internal/logging"
	"github.com/avielr/paperqa/internal/store"
)

// CollectConfig describes one collection run.
type CollectConfig struct {
	// Categories are the weighted categories to fetch from.
	Categories []CategoryWeight
	// MaxPapers caps the total across all categories.
	MaxPapers int
	// RecentYears limits papers to the last N calendar years. Zero disables
	// the cutoff.
	RecentYears int
}

// CollectStats summarizes a collection run.
type CollectStats struct {
	// Fetched is the number of papers returned by the API.
	Fetched int
	// Inserted is the number of papers newly stored; the rest were
	// duplicates of earlier runs.
	Inserted int
	// PerCategory maps each category to its fetched count.
	PerCategory map[string]int
}

// Collect fetches papers for every category per its weighted target and
// persists them through the store, skipping papers collected by earlier
// runs. Per-category fetch failures abort the run; partial results from
// completed categories stay persisted.
func Collect(ctx context.Context, client *Client, st store.PaperStore, cfg CollectConfig) (*CollectStats, error) {
	targets, err := ComputeTargets(cfg.Categories, cfg.MaxPapers)
	if err != nil {
		return nil, err
	}

	cutoffYear := 0
	if cfg.RecentYears > 0 {
		cutoffYear = time.Now().UTC().Year() - cfg.RecentYears + 1
	}

	log := logging.FromContext(ctx)
	stats := &CollectStats{PerCategory: make(map[string]int, len(targets))}

	for _, target := range targets {
		remaining := cfg.MaxPapers - stats.Fetched
		if remaining <= 0 {
			break
		}
		limit := min(target.Count, remaining)

		log.Info("collecting category", "category", target.Category, "target", limit)
		papers, err := client.FetchCategory(ctx, target.Category, limit, cutoffYear)
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", target.Category, err)
		}

		inserted, err := st.Save(ctx, papers)
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", target.Category, err)
		}

		stats.Fetched += len(papers)
		stats.Inserted += inserted
		stats.PerCategory[target.Category] = len(papers)
		log.Info("category collected",
			"category", target.Category, "fetched", len(papers), "new", inserted)
	}

	return stats, nil
}
