package commands

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/avielr/paperqa/internal/embedder"
	"github.com/avielr/paperqa/internal/ingestion"
	"github.com/avielr/paperqa/internal/logging"
)

// NewIndexCmd constructs the `paperqa index` command, which embeds the
// collected abstracts into the Qdrant vector index.
func NewIndexCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed collected abstracts into the Qdrant vector index",
		Long: `Read every collected paper from the local SQLite store, embed its title and
abstract, and upsert the vectors into Qdrant. Re-running after a new collect
refreshes the whole index; upserts are idempotent by paper ID.

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (default: localhost)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_COLLECTION    Collection name (default: paperqa-papers)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  EMBEDDING_PROVIDER   Embedding backend: ollama, openai (default: ollama)
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  paperqa index
  paperqa index --batch-size 64`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			st, err := openPaperStore()
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			defer func() { _ = st.Close() }()

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("index: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised", slog.String("backend", embedder.Backend()))

			qstore, err := buildQdrantStore(ctx)
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}
			defer qstore.Close()

			p, err := ingestion.NewPipeline(st, emb, qstore, &ingestion.Config{BatchSize: batchSize})
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			start := time.Now()
			indexed, err := p.Build(ctx, func(msg string) {
				log.Info(msg)
			})
			if err != nil {
				return fmt.Errorf("index: %w", err)
			}

			fmt.Printf("Indexed %d papers in %s\n", indexed, time.Since(start).Round(time.Second))
			return nil
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Number of abstracts embedded per request batch (default 32)")

	return cmd
}
