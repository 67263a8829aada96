// Package rerank provides pairwise (query, document) relevance scoring for
// the second pipeline stage. Scoring models are more accurate but more
// expensive than embedding similarity, so they only ever see the small
// retrieved candidate set, never the full corpus.
//
// Two scorers exist: an HTTP client for a cross-encoder rerank service
// (Text-Embeddings-Inference / Jina compatible POST /rerank) and a lexical
// term-overlap scorer used when no rerank service is configured.
package rerank

import (
	"context"
	"os"
)

// Scorer scores each document text against the query. Implementations must
// be safe to call from multiple goroutines.
type Scorer interface {
	// Score returns one relevance score per text, parallel to texts.
	// Scores are on the scorer's own scale; only their ordering matters.
	Score(ctx context.Context, query string, texts []string) ([]float64, error)

	// Name identifies the scorer in logs and debug traces.
	Name() string
}

// NewFromEnv selects the scoring model from the environment. When
// RERANK_ENDPOINT is set an HTTP cross-encoder scorer is constructed;
// otherwise the lexical scorer is used so reranking always runs.
//
// Environment variables:
//
//	RERANK_ENDPOINT  base URL of a /rerank-compatible service (optional)
//	RERANK_MODEL     model name sent to the service (default: bge-reranker-base)
//	RERANK_API_KEY   optional Bearer token for the service
func NewFromEnv() Scorer {
	endpoint := os.Getenv("RERANK_ENDPOINT")
	if endpoint == "" {
		return NewLexicalScorer()
	}
	model := os.Getenv("RERANK_MODEL")
	if model == "" {
		model = "bge-reranker-base"
	}
	return NewHTTPScorer(&HTTPConfig{
		Endpoint: endpoint,
		Model:    model,
		APIKey:   os.Getenv("RERANK_API_KEY"),
	})
}
