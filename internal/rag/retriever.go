package rag

import (
	"context"
	"fmt"
	"strings"
)

// DefaultRetriever implements Retriever by combining an Embedder and a
// VectorStore. It embeds the query at request time and delegates the
// similarity search to the store; the store's result order is authoritative.
type DefaultRetriever struct {
	// embedder converts the query text to a dense vector.
	embedder Embedder

	// store performs the vector similarity search.
	store VectorStore

	// defaultTopK is the result count used when the caller passes topK <= 0.
	defaultTopK int
}

// NewRetriever constructs a DefaultRetriever from the given Embedder and
// VectorStore. defaultTopK is the fallback result count for topK <= 0.
func NewRetriever(embedder Embedder, store VectorStore, defaultTopK int) (*DefaultRetriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("rag: store must not be nil")
	}
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &DefaultRetriever{
		embedder:    embedder,
		store:       store,
		defaultTopK: defaultTopK,
	}, nil
}

// Retrieve embeds the query and returns the top-k nearest documents.
// The query is whitespace-trimmed first; an empty query fails with
// ErrEmptyQuery (wrapped in ErrEmbedding) rather than producing a garbage
// vector. Fewer than topK results is not an error.
func (r *DefaultRetriever) Retrieve(ctx context.Context, query string, topK int) ([]RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, ErrEmptyQuery)
	}
	if topK <= 0 {
		topK = r.defaultTopK
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", ErrEmbedding, err)
	}
	if len(embeddings) == 0 || len(embeddings[0]) == 0 {
		return nil, fmt.Errorf("%w: embedder returned an empty vector", ErrEmbedding)
	}

	results, err := r.store.Search(ctx, embeddings[0], topK)
	if err != nil {
		return nil, fmt.Errorf("rag: vector search failed: %w", err)
	}

	// Rank positions follow the store's order.
	for i := range results {
		results[i].Rank = i
	}

	return results, nil
}
