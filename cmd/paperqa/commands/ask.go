package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/avielr/paperqa/internal/logging"
)

// NewAskCmd constructs the `paperqa ask` command, which answers a single
// question from the indexed corpus and prints the answer with its citations.
func NewAskCmd() *cobra.Command {
	var topK int
	var debug bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from the paper corpus with citations",
		Long: `Answer a natural language question using only the indexed paper abstracts.

The answer cites supporting papers with [n] markers that map to the source
list printed after the answer. When the corpus holds nothing relevant, the
answer says so rather than inventing one.

Examples:
  paperqa ask "what is retrieval-augmented generation?"
  paperqa ask --top-k 10 "how are rerankers trained?"
  paperqa ask --debug "what do scaling laws predict?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New()
			ctx := logging.WithLogger(cmd.Context(), log)

			stack, err := buildAnswerStack(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer stack.close()

			ans, err := stack.pipeline.Answer(ctx, args[0], topK, debug)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(ans.Text)

			if len(ans.Citations) > 0 {
				fmt.Println("\nSources:")
				for _, c := range ans.Citations {
					fmt.Printf("  [%d] %s (%s)\n", c.Marker, c.Title, c.URL)
				}
			}
			if len(ans.Invalid) > 0 {
				fmt.Printf("\nWarning: the model cited markers with no matching source: %v\n", ans.Invalid)
			}
			if !ans.Grounded {
				fmt.Println("\nWarning: the answer carries no citations and may not be grounded in the corpus.")
			}

			if debug && ans.Trace != nil {
				enc := json.NewEncoder(os.Stderr)
				enc.SetIndent("", "  ")
				if err := enc.Encode(ans.Trace); err != nil {
					return fmt.Errorf("ask: failed to render trace: %w", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of candidate papers to retrieve (default 5, max 20)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Print the pipeline trace to stderr")

	return cmd
}
