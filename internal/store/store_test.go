package store

import (
	"context"
	"testing"

	"github.com/avielr/paperqa/internal/rag"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func paper(id, category string) rag.Document {
	return rag.Document{
		ID:       id,
		Title:    "Title " + id,
		Abstract: "Abstract " + id,
		Category: category,
	}
}

func Test_Store_SaveAndAll(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.Save(ctx, []rag.Document{paper("p1", "cs.CL"), paper("p2", "cs.LG")})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if n != 2 {
		t.Fatalf("want 2 inserted, got %d", n)
	}

	papers, err := s.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(papers) != 2 {
		t.Fatalf("want 2 papers, got %d", len(papers))
	}
	if papers[0].ID != "p1" || papers[0].Title != "Title p1" {
		t.Errorf("paper[0] = %+v, want p1", papers[0])
	}
}

func Test_Store_SaveSkipsDuplicates(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, []rag.Document{paper("p1", "cs.CL")}); err != nil {
		t.Fatalf("first save: %v", err)
	}

	n, err := s.Save(ctx, []rag.Document{paper("p1", "cs.CL"), paper("p2", "cs.CL")})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if n != 1 {
		t.Errorf("want 1 newly inserted, got %d", n)
	}

	total, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 2 {
		t.Errorf("want 2 total, got %d", total)
	}
}

func Test_Store_CountByCategory(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Save(ctx, []rag.Document{
		paper("p1", "cs.CL"), paper("p2", "cs.CL"), paper("p3", "cs.LG"),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	counts, err := s.CountByCategory(ctx)
	if err != nil {
		t.Fatalf("count by category: %v", err)
	}
	if counts["cs.CL"] != 2 || counts["cs.LG"] != 1 {
		t.Errorf("counts = %v, want cs.CL=2 cs.LG=1", counts)
	}
}

func Test_Store_EmptyAll(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	papers, err := s.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(papers) != 0 {
		t.Errorf("want no papers, got %d", len(papers))
	}
}
