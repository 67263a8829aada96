package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/avielr/paperqa/internal/logging"
	"github.com/avielr/paperqa/internal/rag"
	"github.com/avielr/paperqa/internal/rerank"
)

// Reranker re-scores retrieval candidates with a pairwise scoring model and
// produces the final relevance ordering. Output is always a permutation of
// the input.
type Reranker struct {
	scorer rerank.Scorer

	// strict turns scoring-model failures into request failures instead of
	// falling back to retrieval order.
	strict bool
}

// NewReranker constructs a Reranker over the given scorer. When strict is
// false (the default policy), a scoring failure degrades to retrieval order
// with a warning rather than failing the query.
func NewReranker(scorer rerank.Scorer, strict bool) *Reranker {
	return &Reranker{scorer: scorer, strict: strict}
}

// Scorer returns the name of the underlying scoring model.
func (r *Reranker) Scorer() string { return r.scorer.Name() }

// Rerank scores every candidate against the query and sorts by rerank score
// descending, breaking ties by similarity descending and then by document ID
// ascending so equal inputs always produce the same order. An empty
// candidate set returns an empty slice, not an error.
//
// usedFallback is true when the scoring model failed and the similarity
// scores were used instead.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []rag.RetrievalResult) (ranked []RankedResult, usedFallback bool, err error) {
	if len(candidates) == 0 {
		return []RankedResult{}, false, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Document.Title + ". " + c.Document.Abstract
	}

	scores, scoreErr := r.scorer.Score(ctx, query, texts)
	if scoreErr != nil {
		if r.strict {
			return nil, false, &StageError{Kind: KindRerank, Err: scoreErr}
		}
		// Degrade: keep retrieval order by reusing the similarity score as
		// the rerank score.
		logging.FromContext(ctx).Warn("rerank scoring failed, falling back to retrieval order",
			"scorer", r.scorer.Name(), "error", scoreErr)
		usedFallback = true
		scores = make([]float64, len(candidates))
		for i, c := range candidates {
			scores[i] = float64(c.Score)
		}
	}
	if len(scores) != len(candidates) {
		return nil, false, &StageError{Kind: KindRerank,
			Err: fmt.Errorf("scorer returned %d scores for %d candidates", len(scores), len(candidates))}
	}

	ranked = make([]RankedResult, len(candidates))
	for i, c := range candidates {
		ranked[i] = RankedResult{RetrievalResult: c, RerankScore: scores[i]}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.RerankScore != b.RerankScore {
			return a.RerankScore > b.RerankScore
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Document.ID < b.Document.ID
	})

	return ranked, usedFallback, nil
}
