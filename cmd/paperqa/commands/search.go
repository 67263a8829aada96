package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avielr/paperqa/internal/embedder"
	"github.com/avielr/paperqa/internal/logging"
	"github.com/avielr/paperqa/internal/pipeline"
	"github.com/avielr/paperqa/internal/rag"
)

// NewSearchCmd constructs the `paperqa search` command, which runs retrieval
// only and lists the matching papers with their similarity scores. Useful for
// inspecting what the index returns before the model sees it.
func NewSearchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the paper index without generating an answer",
		Long: `Run semantic retrieval over the indexed abstracts and list the results.

No language model is involved — this shows the raw nearest-neighbour
candidates and their cosine similarity scores.

Examples:
  paperqa search "mixture of experts"
  paperqa search --top-k 10 "instruction tuning"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			emb, err := embedder.NewFromEnv()
			if err != nil {
				return fmt.Errorf("search: failed to initialise embedder: %w", err)
			}

			qstore, err := buildQdrantStore(ctx)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			defer qstore.Close()

			retriever, err := rag.NewRetriever(emb, qstore, pipeline.DefaultTopK)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			results, err := retriever.Retrieve(ctx, args[0], pipeline.ClampTopK(topK))
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if len(results) == 0 {
				fmt.Println("No matching papers found.")
				return nil
			}

			for i, r := range results {
				fmt.Printf("%2d. %.4f  %s\n    %s\n", i+1, r.Score, r.Document.Title, r.Document.URL)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of papers to return (default 5, max 20)")

	return cmd
}
