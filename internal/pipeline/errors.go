package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures for error responses. Rerank failures do
// not appear here: they degrade to retrieval order unless strict mode is on,
// in which case they surface as KindRerank.
type Kind string

const (
	// KindEmbedding marks query-embedding failures.
	KindEmbedding Kind = "embedding_error"
	// KindRetrieval marks vector store failures.
	KindRetrieval Kind = "retrieval_error"
	// KindRerank marks scoring-model failures in strict mode.
	KindRerank Kind = "rerank_error"
	// KindGeneration marks model-backend failures and timeouts. Fatal for
	// the request; there is no fallback to an ungrounded answer.
	KindGeneration Kind = "generation_error"
)

// StageError wraps a stage failure with its classification so transport
// layers can map it to a structured error response without string matching.
type StageError struct {
	Kind Kind
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// KindOf extracts the classification from err, or "" if err carries none.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}
