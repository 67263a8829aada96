package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/avielr/paperqa/internal/embedder"
	"github.com/avielr/paperqa/internal/pipeline"
	"github.com/avielr/paperqa/internal/provider"
	"github.com/avielr/paperqa/internal/rag"
	"github.com/avielr/paperqa/internal/rerank"
	"github.com/avielr/paperqa/internal/server"
	"github.com/avielr/paperqa/internal/store"
)

// answerStack bundles the fully wired answer pipeline with the handles the
// serve command needs for readiness probes and shutdown.
type answerStack struct {
	pipeline  *pipeline.Pipeline
	chatModel model.ToolCallingChatModel
	embedder  rag.Embedder
	qdrant    *rag.QdrantStore
	scorer    rerank.Scorer
	close     func()
}

// buildAnswerStack wires the retrieval, rerank, assembly, and generation
// stages from environment configuration. Shared by `ask` and `serve`.
func buildAnswerStack(ctx context.Context, log *slog.Logger) (*answerStack, error) {
	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised", slog.String("backend", embedder.Backend()))

	qstore, err := buildQdrantStore(ctx)
	if err != nil {
		return nil, err
	}

	retriever, err := rag.NewRetriever(emb, qstore, pipeline.DefaultTopK)
	if err != nil {
		qstore.Close()
		return nil, fmt.Errorf("failed to build retriever: %w", err)
	}

	scorer := rerank.NewFromEnv()
	strict := os.Getenv("RERANK_STRICT") == "true"
	reranker := pipeline.NewReranker(scorer, strict)
	log.Info("reranker initialised", slog.String("scorer", scorer.Name()), slog.Bool("strict", strict))

	assembler := pipeline.NewAssembler(
		getEnvInt("CONTEXT_BUDGET_CHARS", 0),
		getEnvInt("DOC_EXCERPT_CHARS", 0),
	)

	chatModel, err := provider.NewFromEnv(ctx)
	if err != nil {
		qstore.Close()
		return nil, fmt.Errorf("failed to initialise model provider: %w", err)
	}
	log.Info("provider initialised", slog.String("provider", getEnvOrDefault("MODEL_PROVIDER", "ollama")))

	generator := pipeline.NewGenerator(chatModel, pipeline.GeneratorConfig{
		Timeout:     getEnvDuration("GENERATION_TIMEOUT", 0),
		Concurrency: getEnvInt("GENERATION_CONCURRENCY", 0),
		MaxTokens:   getEnvInt("MODEL_MAX_TOKENS", 0),
		Temperature: getEnvFloat32("MODEL_TEMPERATURE", 0),
	})

	p, err := pipeline.New(retriever, reranker, assembler, generator)
	if err != nil {
		qstore.Close()
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	return &answerStack{
		pipeline:  p,
		chatModel: chatModel,
		embedder:  emb,
		qdrant:    qstore,
		scorer:    scorer,
		close:     func() { _ = qstore.Close() },
	}, nil
}

// buildQdrantStore connects to Qdrant using environment configuration and
// the vector size of the active embedding backend.
func buildQdrantStore(ctx context.Context) (*rag.QdrantStore, error) {
	host := getEnvOrDefault("QDRANT_HOST", "localhost")
	port := getEnvInt("QDRANT_PORT", 6334)

	qstore, err := rag.NewQdrantStore(ctx, &rag.QdrantConfig{
		Host:       host,
		Port:       port,
		Collection: getEnvOrDefault("QDRANT_COLLECTION", "paperqa-papers"),
		VectorSize: uint64(embedder.DefaultDimensions(embedder.Backend())), //nolint:gosec // dimensions are bounded
		APIKey:     os.Getenv("QDRANT_API_KEY"),
		UseTLS:     os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
	}
	return qstore, nil
}

// buildPingers assembles the dependency probes for the readiness endpoint.
// The embedder probe is only available for backends that expose one.
func buildPingers(stack *answerStack) []server.Pinger {
	pingers := []server.Pinger{
		server.NewQdrantPinger(stack.qdrant.Client()),
		server.NewLLMPinger(stack.chatModel, getEnvOrDefault("MODEL_PROVIDER", "ollama")),
	}
	if probe, ok := stack.embedder.(interface{ Ping(ctx context.Context) error }); ok {
		pingers = append(pingers, server.NewEmbedderPinger(probe, "embedder"))
	}
	return pingers
}

// openPaperStore opens the SQLite paper store at the default path
// (~/.paperqa/papers.db, overridable via PAPERQA_DB).
func openPaperStore() (*store.SQLiteStore, error) {
	path, err := store.DefaultDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paper store path: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open paper store at %s: %w", path, err)
	}
	return st, nil
}

// getEnvOrDefault returns the env var value or a fallback when unset.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the env var parsed as an int, or a fallback when unset
// or unparseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// getEnvFloat32 returns the env var parsed as a float32, or a fallback when
// unset or unparseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}

// getEnvDuration returns the env var parsed as a duration (e.g. "90s"),
// or a fallback when unset or unparseable.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
