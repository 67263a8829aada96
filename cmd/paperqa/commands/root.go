// Package commands defines all Cobra CLI commands for the paperqa binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/avielr/paperqa/internal/audit"
	"github.com/avielr/paperqa/internal/config"
	"github.com/avielr/paperqa/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "paperqa",
		Short: "paperqa — grounded question answering over arXiv abstracts",
		Long: `paperqa answers natural language questions from a local corpus of arXiv
paper abstracts, citing the papers each claim came from.

A typical workflow:

  paperqa collect        # fetch paper metadata from the arXiv API
  paperqa index          # embed abstracts into the Qdrant vector index
  paperqa ask "..."      # answer a question with citations
  paperqa serve          # expose the same pipeline over HTTP

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.paperqa/config.yaml).
See 'paperqa --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.paperqa/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewSearchCmd(),
		NewServeCmd(),
		NewCollectCmd(),
		NewIndexCmd(),
		NewVersionCmd(),
	)

	return root
}
