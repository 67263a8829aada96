package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: ollama
  max_tokens: 2048
  temperature: 0.2
  ollama:
    host: http://ollama.internal:11434
    model: llama3
embedding:
  provider: ollama
  model: nomic-embed-text
qdrant:
  host: qdrant.internal
  port: 6334
  collection: papers
rerank:
  endpoint: http://reranker.internal:8787
  model: bge-reranker-base
answer:
  top_k: 8
  context_budget_chars: 5000
  generation_timeout: 90s
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"MODEL_PROVIDER", "MODEL_MAX_TOKENS", "MODEL_TEMPERATURE",
		"OLLAMA_HOST", "OLLAMA_MODEL",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL",
		"QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION",
		"RERANK_ENDPOINT", "RERANK_MODEL",
		"ANSWER_TOP_K", "CONTEXT_BUDGET_CHARS", "GENERATION_TIMEOUT",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"MODEL_PROVIDER":       "ollama",
		"MODEL_MAX_TOKENS":     "2048",
		"OLLAMA_HOST":          "http://ollama.internal:11434",
		"OLLAMA_MODEL":         "llama3",
		"EMBEDDING_PROVIDER":   "ollama",
		"EMBEDDING_MODEL":      "nomic-embed-text",
		"QDRANT_HOST":          "qdrant.internal",
		"QDRANT_PORT":          "6334",
		"QDRANT_COLLECTION":    "papers",
		"RERANK_ENDPOINT":      "http://reranker.internal:8787",
		"RERANK_MODEL":         "bge-reranker-base",
		"ANSWER_TOP_K":         "8",
		"CONTEXT_BUDGET_CHARS": "5000",
		"GENERATION_TIMEOUT":   "90s",
		"LOG_LEVEL":            "debug",
		"LOG_FORMAT":           "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: gemini
qdrant:
  host: from-yaml
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MODEL_PROVIDER", "ollama")
	t.Setenv("QDRANT_HOST", "")
	os.Unsetenv("QDRANT_HOST")

	if _, err := Load(cfgPath, slog.Default()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("MODEL_PROVIDER"); got != "ollama" {
		t.Errorf("env var overwritten: MODEL_PROVIDER = %q, want ollama", got)
	}
	if got := os.Getenv("QDRANT_HOST"); got != "from-yaml" {
		t.Errorf("QDRANT_HOST = %q, want from-yaml", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("model: [not a mapping"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(cfgPath, slog.Default()); err == nil {
		t.Fatal("want error for invalid YAML")
	}
}

func TestParse_CollectionPlan(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
collection:
  max_papers: 500
  recent_years: 3
  batch_size: 50
  categories:
    - id: cs.CL
      weight: 3
    - id: cs.LG
      weight: 1
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Parse(cfgPath)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Collection.MaxPapers != 500 || cfg.Collection.RecentYears != 3 {
		t.Errorf("collection = %+v", cfg.Collection)
	}
	if len(cfg.Collection.Categories) != 2 {
		t.Fatalf("got %d categories, want 2", len(cfg.Collection.Categories))
	}
	if cfg.Collection.Categories[0].ID != "cs.CL" || cfg.Collection.Categories[0].Weight != 3 {
		t.Errorf("categories[0] = %+v", cfg.Collection.Categories[0])
	}
}
