package rag

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// Payload field names used in the Qdrant collection. The ingestion pipeline
// writes these; Search reads them back. Changing a name invalidates every
// previously indexed point.
const (
	payloadID        = "paper_id"
	payloadTitle     = "title"
	payloadAbstract  = "abstract"
	payloadAuthors   = "authors"
	payloadPublished = "published"
	payloadURL       = "url"
	payloadCategory  = "category"
)

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the collection name holding the paper index.
	Collection string

	// VectorSize is the dimensionality of the stored embeddings.
	VectorSize uint64

	// APIKey is the optional API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool
}

// QdrantStore implements VectorStore backed by a Qdrant collection of paper
// abstracts with cosine similarity.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore connects to Qdrant and ensures the target collection exists,
// creating it with cosine distance if necessary.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// Client exposes the underlying gRPC client for readiness probes.
func (s *QdrantStore) Client() *qdrant.Client { return s.client }

// ensureCollection creates the collection if it does not already exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}

	return nil
}

// Upsert stores a batch of documents with their pre-computed embeddings.
// Point IDs are derived from the paper ID so re-indexing the same paper
// overwrites the previous point instead of duplicating it.
func (s *QdrantStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("qdrant: %d documents but %d embeddings", len(docs), len(embeddings))
	}

	points := make([]*qdrant.PointStruct, 0, len(docs))
	for i, doc := range docs {
		payload := map[string]any{
			payloadID:        doc.ID,
			payloadTitle:     doc.Title,
			payloadAbstract:  doc.Abstract,
			payloadAuthors:   doc.Authors,
			payloadPublished: doc.Published,
			payloadURL:       doc.URL,
			payloadCategory:  doc.Category,
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewID(doc.ID),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}

	return nil
}

// Search performs a cosine similarity search and returns the top-k results
// ordered by score descending (Qdrant's native order).
func (s *QdrantStore) Search(ctx context.Context, queryEmbedding []float32, topK int) ([]RetrievalResult, error) {
	limit := uint64(topK) //nolint:gosec // topK is validated upstream
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(queryEmbedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	results := make([]RetrievalResult, 0, len(points))
	for i, p := range points {
		doc := documentFromPayload(p.Payload)
		if doc.ID == "" {
			// Fall back to the point ID for collections indexed before the
			// paper_id payload field existed.
			doc.ID = p.Id.GetUuid()
		}
		results = append(results, RetrievalResult{
			Document: doc,
			Score:    p.Score,
			Rank:     i,
		})
	}

	return results, nil
}

// documentFromPayload reconstructs a Document from a Qdrant point payload.
func documentFromPayload(payload map[string]*qdrant.Value) Document {
	get := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}
	return Document{
		ID:        get(payloadID),
		Title:     get(payloadTitle),
		Abstract:  get(payloadAbstract),
		Authors:   get(payloadAuthors),
		Published: get(payloadPublished),
		URL:       get(payloadURL),
		Category:  get(payloadCategory),
	}
}

// Close closes the underlying Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
