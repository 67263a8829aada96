// Package ingestion implements the offline index build: read collected
// papers from the record store, embed them in batches, and upsert the
// vectors into the vector store. This pipeline is invoked by the
// `paperqa index` CLI command; the query pipeline treats its output as a
// ready-made black box.
package ingestion

import (
	"context"
	"fmt"

	"github.com/avielr/paperqa/internal/rag"
	"github.com/avielr/paperqa/internal/store"
)

// Config holds the configuration for the index build.
type Config struct {
	// BatchSize is the number of papers embedded per call to the embedding
	// backend. Defaults to 32 if zero.
	BatchSize int
}

// Pipeline orchestrates the read → embed → upsert flow.
type Pipeline struct {
	// papers is the record store holding collected abstracts.
	papers store.PaperStore

	// embedder converts paper texts into dense vector embeddings.
	embedder rag.Embedder

	// vectors persists the embedded papers for similarity search.
	vectors rag.VectorStore

	// cfg holds the resolved pipeline configuration.
	cfg *Config
}

// NewPipeline constructs a Pipeline from the provided dependencies and config.
func NewPipeline(papers store.PaperStore, embedder rag.Embedder, vectors rag.VectorStore, cfg *Config) (*Pipeline, error) {
	if papers == nil {
		return nil, fmt.Errorf("ingestion: paper store must not be nil")
	}
	if embedder == nil {
		return nil, fmt.Errorf("ingestion: embedder must not be nil")
	}
	if vectors == nil {
		return nil, fmt.Errorf("ingestion: vector store must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}

	return &Pipeline{
		papers:   papers,
		embedder: embedder,
		vectors:  vectors,
		cfg:      cfg,
	}, nil
}

// Build embeds every stored paper and upserts it into the vector store.
// Re-running is safe: upserts overwrite by paper ID. Progress is reported
// via the optional progress callback. Returns the number of papers indexed.
func (p *Pipeline) Build(ctx context.Context, progress func(msg string)) (int, error) {
	if progress == nil {
		progress = func(string) {}
	}

	papers, err := p.papers.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("ingestion: read papers: %w", err)
	}
	if len(papers) == 0 {
		progress("no papers collected yet; nothing to index")
		return 0, nil
	}

	indexed := 0
	for start := 0; start < len(papers); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(papers))
		batch := papers[start:end]

		texts := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = embeddingText(doc)
		}

		embeddings, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return indexed, fmt.Errorf("ingestion: embed batch at %d: %w", start, err)
		}

		if err := p.vectors.Upsert(ctx, batch, embeddings); err != nil {
			return indexed, fmt.Errorf("ingestion: upsert batch at %d: %w", start, err)
		}

		indexed += len(batch)
		progress(fmt.Sprintf("indexed %d/%d papers", indexed, len(papers)))
	}

	return indexed, nil
}

// embeddingText is the text embedded for a paper. Title and abstract
// together retrieve noticeably better than the abstract alone for short
// queries; the same composition is used for retrieval excerpts.
func embeddingText(doc rag.Document) string {
	return doc.Title + ". " + doc.Abstract
}
