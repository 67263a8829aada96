// Command paperqa is the entry point for the paperqa question-answering
// service over arXiv abstracts. It provides a CLI interface (via Cobra) for
// collecting papers, building the vector index, and answering questions, plus
// an HTTP server mode.
package main

import (
	"fmt"
	"os"

	"github.com/avielr/paperqa/cmd/paperqa/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
