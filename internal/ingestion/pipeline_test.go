package ingestion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/avielr/paperqa/internal/rag"
)

// fakePapers serves a fixed paper list.
type fakePapers struct {
	papers []rag.Document
	err    error
}

func (f *fakePapers) Save(_ context.Context, _ []rag.Document) (int, error) { return 0, nil }
func (f *fakePapers) All(_ context.Context) ([]rag.Document, error)         { return f.papers, f.err }
func (f *fakePapers) Count(_ context.Context) (int, error)                  { return len(f.papers), nil }
func (f *fakePapers) CountByCategory(_ context.Context) (map[string]int, error) {
	return nil, nil
}
func (f *fakePapers) Close() error { return nil }

// fakeEmbedder returns a unit vector per text and records batch sizes.
type fakeEmbedder struct {
	batches []int
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, len(texts))
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1, 0, 0}
	}
	return vecs, nil
}

// fakeVectors records upserted documents.
type fakeVectors struct {
	upserted []rag.Document
	err      error
}

func (f *fakeVectors) Search(_ context.Context, _ []float32, _ int) ([]rag.RetrievalResult, error) {
	return nil, nil
}

func (f *fakeVectors) Upsert(_ context.Context, docs []rag.Document, embeddings [][]float32) error {
	if f.err != nil {
		return f.err
	}
	if len(docs) != len(embeddings) {
		return errors.New("docs and embeddings length mismatch")
	}
	f.upserted = append(f.upserted, docs...)
	return nil
}

func (f *fakeVectors) Close() error { return nil }

func somePapers(n int) []rag.Document {
	papers := make([]rag.Document, n)
	for i := range papers {
		papers[i] = rag.Document{
			ID:       string(rune('a' + i)),
			Title:    "Title",
			Abstract: "Abstract.",
		}
	}
	return papers
}

func Test_Build_IndexesAllPapersInBatches(t *testing.T) {
	t.Parallel()

	emb := &fakeEmbedder{}
	vec := &fakeVectors{}
	p, err := NewPipeline(&fakePapers{papers: somePapers(5)}, emb, vec, &Config{BatchSize: 2})
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	var messages []string
	n, err := p.Build(context.Background(), func(msg string) { messages = append(messages, msg) })
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n != 5 {
		t.Errorf("indexed = %d, want 5", n)
	}
	if len(vec.upserted) != 5 {
		t.Errorf("upserted = %d, want 5", len(vec.upserted))
	}

	wantBatches := []int{2, 2, 1}
	if len(emb.batches) != len(wantBatches) {
		t.Fatalf("batches = %v, want %v", emb.batches, wantBatches)
	}
	for i, want := range wantBatches {
		if emb.batches[i] != want {
			t.Errorf("batch %d = %d, want %d", i, emb.batches[i], want)
		}
	}
	if len(messages) == 0 || !strings.Contains(messages[len(messages)-1], "5/5") {
		t.Errorf("progress messages = %v, want final 5/5", messages)
	}
}

func Test_Build_EmptyStore(t *testing.T) {
	t.Parallel()

	p, err := NewPipeline(&fakePapers{}, &fakeEmbedder{}, &fakeVectors{}, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	n, err := p.Build(context.Background(), nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if n != 0 {
		t.Errorf("indexed = %d, want 0", n)
	}
}

func Test_Build_EmbedFailureStopsRun(t *testing.T) {
	t.Parallel()

	p, err := NewPipeline(
		&fakePapers{papers: somePapers(3)},
		&fakeEmbedder{err: errors.New("backend down")},
		&fakeVectors{},
		nil,
	)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}

	if _, err := p.Build(context.Background(), nil); err == nil {
		t.Fatal("want error when embedding fails")
	}
}

func Test_NewPipeline_NilDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewPipeline(nil, &fakeEmbedder{}, &fakeVectors{}, nil); err == nil {
		t.Error("want error for nil paper store")
	}
	if _, err := NewPipeline(&fakePapers{}, nil, &fakeVectors{}, nil); err == nil {
		t.Error("want error for nil embedder")
	}
	if _, err := NewPipeline(&fakePapers{}, &fakeEmbedder{}, nil, nil); err == nil {
		t.Error("want error for nil vector store")
	}
}
