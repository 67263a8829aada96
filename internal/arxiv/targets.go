package arxiv

import (
	"fmt"
)

// CategoryWeight is one category in the collection plan with its relative
// share of the corpus.
type CategoryWeight struct {
	// ID is the arXiv category identifier (e.g. "cs.CL").
	ID string `yaml:"id"`
	// Weight is the relative share; only ratios matter.
	Weight float64 `yaml:"weight"`
}

// Target is the resolved paper count for one category.
type Target struct {
	Category string
	Count    int
}

// ComputeTargets splits maxPapers across categories proportionally to their
// weights. Every category gets at least one paper; rounding drift is settled
// by topping up the heaviest category and shaving the lightest, so the total
// matches maxPapers whenever the category count allows it.
func ComputeTargets(cats []CategoryWeight, maxPapers int) ([]Target, error) {
	if len(cats) == 0 {
		return nil, fmt.Errorf("arxiv: no categories configured")
	}
	if maxPapers < 1 {
		return nil, fmt.Errorf("arxiv: max papers must be ≥ 1, got %d", maxPapers)
	}

	var totalWeight float64
	for _, c := range cats {
		if c.Weight < 0 {
			return nil, fmt.Errorf("arxiv: category %s has negative weight", c.ID)
		}
		totalWeight += c.Weight
	}
	if totalWeight <= 0 {
		return nil, fmt.Errorf("arxiv: total category weight must be > 0")
	}

	alloc := make([]int, len(cats))
	total := 0
	for i, c := range cats {
		alloc[i] = max(int(float64(maxPapers)*c.Weight/totalWeight), 1)
		total += alloc[i]
	}

	// A floor of 1 per category can overshoot; scale down proportionally
	// first, then settle the remainder one at a time.
	if total > maxPapers {
		factor := float64(maxPapers) / float64(total)
		total = 0
		for i := range alloc {
			alloc[i] = max(int(float64(alloc[i])*factor), 1)
			total += alloc[i]
		}
	}

	for total < maxPapers {
		heaviest := 0
		for i, c := range cats {
			if c.Weight > cats[heaviest].Weight {
				heaviest = i
			}
		}
		alloc[heaviest]++
		total++
	}

	for total > maxPapers {
		lightest := -1
		for i, c := range cats {
			if alloc[i] <= 1 {
				continue
			}
			if lightest == -1 || c.Weight < cats[lightest].Weight ||
				(c.Weight == cats[lightest].Weight && alloc[i] < alloc[lightest]) {
				lightest = i
			}
		}
		if lightest == -1 {
			// Every category is at its floor of 1; accept the overshoot.
			break
		}
		alloc[lightest]--
		total--
	}

	targets := make([]Target, len(cats))
	for i, c := range cats {
		targets[i] = Target{Category: c.ID, Count: alloc[i]}
	}
	return targets, nil
}
