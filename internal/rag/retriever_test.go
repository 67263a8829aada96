package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

// fakeEmbedder returns a fixed vector per input, or a configured error.
type fakeEmbedder struct {
	// vector is returned for every input text.
	vector []float32
	// err is returned instead when non-nil.
	err error
	// lastTexts records the most recent Embed input.
	lastTexts []string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.lastTexts = texts
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector
	}
	return out, nil
}

// fakeStore returns a fixed result set and records the requested topK.
type fakeStore struct {
	results  []RetrievalResult
	err      error
	lastTopK int
}

func (f *fakeStore) Search(_ context.Context, _ []float32, topK int) ([]RetrievalResult, error) {
	f.lastTopK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeStore) Upsert(context.Context, []Document, [][]float32) error { return nil }
func (f *fakeStore) Close() error                                          { return nil }

func newTestRetriever(t *testing.T, e Embedder, s VectorStore) *DefaultRetriever {
	t.Helper()
	r, err := NewRetriever(e, s, 5)
	if err != nil {
		t.Fatalf("NewRetriever: %v", err)
	}
	return r
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRetrieve_EmptyQueryFailsAsEmbeddingError(t *testing.T) {
	t.Parallel()

	r := newTestRetriever(t, &fakeEmbedder{vector: []float32{1}}, &fakeStore{})

	for _, query := range []string{"", "   ", "\n\t "} {
		_, err := r.Retrieve(context.Background(), query, 5)
		if !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("Retrieve(%q): want ErrEmptyQuery, got %v", query, err)
		}
		if !errors.Is(err, ErrEmbedding) {
			t.Errorf("Retrieve(%q): want ErrEmbedding in chain, got %v", query, err)
		}
	}
}

func TestRetrieve_EmbedFailureWrapsErrEmbedding(t *testing.T) {
	t.Parallel()

	e := &fakeEmbedder{err: fmt.Errorf("model not loaded")}
	r := newTestRetriever(t, e, &fakeStore{})

	_, err := r.Retrieve(context.Background(), "what is RAG?", 5)
	if !errors.Is(err, ErrEmbedding) {
		t.Fatalf("want ErrEmbedding, got %v", err)
	}
}

func TestRetrieve_StoreFailureIsNotEmbeddingError(t *testing.T) {
	t.Parallel()

	s := &fakeStore{err: fmt.Errorf("connection refused")}
	r := newTestRetriever(t, &fakeEmbedder{vector: []float32{1, 2}}, s)

	_, err := r.Retrieve(context.Background(), "what is RAG?", 5)
	if err == nil {
		t.Fatal("want error, got nil")
	}
	if errors.Is(err, ErrEmbedding) {
		t.Fatalf("store failure must not be classified as embedding error: %v", err)
	}
}

func TestRetrieve_RanksFollowStoreOrder(t *testing.T) {
	t.Parallel()

	s := &fakeStore{results: []RetrievalResult{
		{Document: Document{ID: "a"}, Score: 0.9},
		{Document: Document{ID: "b"}, Score: 0.5},
		{Document: Document{ID: "c"}, Score: 0.1},
	}}
	r := newTestRetriever(t, &fakeEmbedder{vector: []float32{1}}, s)

	got, err := r.Retrieve(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	for i, res := range got {
		if res.Rank != i {
			t.Errorf("result %d: rank = %d, want %d", i, res.Rank, i)
		}
	}
}

func TestRetrieve_FewerThanTopKIsNotAnError(t *testing.T) {
	t.Parallel()

	s := &fakeStore{results: []RetrievalResult{
		{Document: Document{ID: "only"}, Score: 0.7},
	}}
	r := newTestRetriever(t, &fakeEmbedder{vector: []float32{1}}, s)

	got, err := r.Retrieve(context.Background(), "query", 50)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("want 1 result, got %d", len(got))
	}
}

func TestRetrieve_DefaultTopK(t *testing.T) {
	t.Parallel()

	s := &fakeStore{}
	r := newTestRetriever(t, &fakeEmbedder{vector: []float32{1}}, s)

	if _, err := r.Retrieve(context.Background(), "query", 0); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if s.lastTopK != 5 {
		t.Errorf("topK passed to store = %d, want default 5", s.lastTopK)
	}
}

func TestNewRetriever_NilDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewRetriever(nil, &fakeStore{}, 5); err == nil {
		t.Error("want error for nil embedder")
	}
	if _, err := NewRetriever(&fakeEmbedder{}, nil, 5); err == nil {
		t.Error("want error for nil store")
	}
}
