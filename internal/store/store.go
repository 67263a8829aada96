// Package store provides the SQLite-backed record store for collected paper
// abstracts. The collector writes raw papers here; the index builder reads
// them back to embed and push into the vector store. The query pipeline
// never touches this database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/avielr/paperqa/internal/rag"
)

// PaperStore persists collected papers keyed by their stable identifier.
// Implementations must be safe for concurrent use.
type PaperStore interface {
	// Save persists a batch of papers, skipping IDs already present, and
	// returns how many were newly inserted.
	Save(ctx context.Context, papers []rag.Document) (int, error)
	// All returns every stored paper in collection order.
	All(ctx context.Context) ([]rag.Document, error)
	// Count returns the number of stored papers.
	Count(ctx context.Context) (int, error)
	// CountByCategory returns per-category paper counts.
	CountByCategory(ctx context.Context) (map[string]int, error)
	// Close releases any resources held by the store.
	Close() error
}

// SQLiteStore is a PaperStore backed by a local SQLite database.
type SQLiteStore struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the paper database. It resolves
// to ~/.paperqa/papers.db, creating the directory if needed. PAPERQA_DB
// overrides it.
func DefaultDBPath() (string, error) {
	if p := os.Getenv("PAPERQA_DB"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".paperqa")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "papers.db"), nil
}

// Open opens (or creates) a SQLiteStore at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteStore, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS papers (
    id           TEXT    PRIMARY KEY,
    title        TEXT    NOT NULL,
    abstract     TEXT    NOT NULL,
    authors      TEXT    NOT NULL DEFAULT '',
    published    TEXT    NOT NULL DEFAULT '',
    url          TEXT    NOT NULL DEFAULT '',
    category     TEXT    NOT NULL DEFAULT '',
    collected_at INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_papers_category ON papers (category);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Save persists a batch of papers inside one transaction, ignoring IDs
// already present, and returns how many were newly inserted.
func (s *SQLiteStore) Save(ctx context.Context, papers []rag.Document) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const q = `
INSERT OR IGNORE INTO papers (id, title, abstract, authors, published, url, category, collected_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().Unix()
	inserted := 0
	for _, p := range papers {
		res, err := tx.ExecContext(ctx, q, p.ID, p.Title, p.Abstract, p.Authors, p.Published, p.URL, p.Category, now)
		if err != nil {
			return 0, fmt.Errorf("store: save %s: %w", p.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: commit save: %w", err)
	}
	return inserted, nil
}

// All returns every stored paper in collection order.
func (s *SQLiteStore) All(ctx context.Context) ([]rag.Document, error) {
	const q = `
SELECT id, title, abstract, authors, published, url, category
FROM   papers
ORDER  BY collected_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("store: query all: %w", err)
	}
	defer rows.Close()

	var papers []rag.Document
	for rows.Next() {
		var p rag.Document
		if err := rows.Scan(&p.ID, &p.Title, &p.Abstract, &p.Authors, &p.Published, &p.URL, &p.Category); err != nil {
			return nil, fmt.Errorf("store: scan paper: %w", err)
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate papers: %w", err)
	}
	return papers, nil
}

// Count returns the number of stored papers.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// CountByCategory returns per-category paper counts.
func (s *SQLiteStore) CountByCategory(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM papers GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("store: count by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			category string
			n        int
		)
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("store: scan category count: %w", err)
		}
		counts[category] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate category counts: %w", err)
	}
	return counts, nil
}

// Close releases the database connection pool.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}
