// Package rag defines the retrieval layer for the paper question-answering
// pipeline: the document model, the vector store and embedder contracts, and
// the Retriever that combines them. Concrete backends (Qdrant, Ollama, …)
// satisfy these interfaces so the pipeline never depends on a specific one.
package rag

import (
	"context"
	"errors"
)

// ErrEmptyQuery is returned by Retrieve when the query is empty after
// whitespace trimming. The embedding model cannot produce a meaningful
// vector for an empty string, so this is rejected before the embed call.
var ErrEmptyQuery = errors.New("rag: query is empty")

// ErrEmbedding marks failures of the embedding model. Callers use
// errors.Is(err, ErrEmbedding) to distinguish embed failures from vector
// store failures when mapping errors to a response.
var ErrEmbedding = errors.New("rag: embedding failed")

// Document is one indexed paper abstract. Documents are created during
// indexing and never mutated by the query pipeline.
type Document struct {
	// ID is the stable paper identifier (e.g. "2510.02964v1").
	ID string

	// Title is the paper title.
	Title string

	// Abstract is the full abstract text as indexed.
	Abstract string

	// Authors is the comma-separated author list.
	Authors string

	// Published is the publication date in ISO-8601 form (e.g. "2025-10-03").
	Published string

	// URL is the canonical source URL of the paper.
	URL string

	// Category is the subject category the paper was collected under
	// (e.g. "cs.CL").
	Category string
}

// RetrievalResult is a Document plus the similarity score and rank position
// assigned by the vector store for one query. Produced fresh per query,
// never persisted.
type RetrievalResult struct {
	// Document is the retrieved paper.
	Document Document

	// Score is the similarity score from the vector store (higher is more
	// similar).
	Score float32

	// Rank is the zero-based position in the store's result order.
	Rank int
}

// VectorStore is the read side of the paper index. The index is built
// offline by the ingestion pipeline; the query pipeline only searches.
// Implementations must be safe to call from multiple goroutines.
type VectorStore interface {
	// Search returns the top-k nearest documents for the query embedding,
	// ordered by similarity descending. Returning fewer than k results is
	// not an error — the corpus may simply be smaller than the request.
	Search(ctx context.Context, queryEmbedding []float32, topK int) ([]RetrievalResult, error)

	// Upsert stores a batch of documents with their pre-computed embeddings.
	// embeddings[i] is the vector for docs[i]. Used only by the index
	// builder, never by the query pipeline.
	Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error

	// Close releases resources held by the store.
	Close() error
}

// Embedder converts text into a dense vector, deterministically per input.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a batch of texts into their embeddings. The returned
	// slice is parallel to the input.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever is the first pipeline stage: it fetches candidate documents for
// a query. Implementations must be safe to call from multiple goroutines.
type Retriever interface {
	// Retrieve returns at most topK documents ordered by similarity
	// descending. An empty result is valid, not an error.
	Retrieve(ctx context.Context, query string, topK int) ([]RetrievalResult, error)
}
