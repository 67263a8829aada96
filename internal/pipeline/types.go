// Package pipeline implements the query-time answer pipeline: rerank the
// retrieved candidates, assemble a budgeted context, generate a grounded
// answer, validate its citations. Stages are stateless transformations over
// typed inputs so each is unit-testable in isolation; the Pipeline type
// composes them into one request cycle.
package pipeline

import (
	"github.com/avielr/paperqa/internal/rag"
)

// RankedResult is a retrieval candidate plus its reranker score. The rerank
// score is on the scoring model's own scale, independent of the similarity
// score.
type RankedResult struct {
	rag.RetrievalResult

	// RerankScore is the pairwise (query, document) relevance score.
	RerankScore float64
}

// ContextEntry is one document admitted into the context, tagged with its
// citation marker.
type ContextEntry struct {
	// Marker is the citation marker, assigned in relevance order from 1.
	Marker int

	// Document is the cited paper.
	Document rag.Document

	// Excerpt is the truncated title+abstract text placed in the prompt.
	Excerpt string
}

// ContextBlock is the ordered, budgeted context handed to the generator.
// Markers are unique and consecutive from 1; no document appears twice.
// An empty block is a valid state meaning "no relevant documents".
type ContextBlock struct {
	// Entries are the admitted documents in relevance order.
	Entries []ContextEntry

	// Chars is the total excerpt size admitted, always ≤ the assembler's
	// budget.
	Chars int
}

// Empty reports whether no documents made it into the context.
func (b *ContextBlock) Empty() bool { return len(b.Entries) == 0 }

// Resolve returns the entry for the given citation marker, if any.
func (b *ContextBlock) Resolve(marker int) (ContextEntry, bool) {
	// Markers are consecutive from 1, so the entry index is marker-1.
	if marker < 1 || marker > len(b.Entries) {
		return ContextEntry{}, false
	}
	return b.Entries[marker-1], true
}

// GeneratedAnswer is the raw model output before citation validation.
type GeneratedAnswer struct {
	// Raw is the unmodified model text, citation markers included.
	Raw string
}

// Citation is one context document actually cited by the answer.
type Citation struct {
	// Marker is the citation marker as it appears in the answer.
	Marker int `json:"marker"`
	// ID is the paper identifier.
	ID string `json:"id"`
	// Title is the paper title.
	Title string `json:"title"`
	// URL is the canonical source URL.
	URL string `json:"source_url"`
}

// ValidatedAnswer is the final, citation-checked answer.
type ValidatedAnswer struct {
	// Text is the answer with invalid citation markers stripped.
	Text string

	// Citations lists the context documents the answer cites, deduplicated
	// in first-appearance order.
	Citations []Citation

	// Invalid lists markers found in the raw text that resolve to no
	// context entry, deduplicated in first-appearance order.
	Invalid []int

	// Grounded is false when the context was non-empty but the answer cited
	// nothing valid. It is informational, never an error.
	Grounded bool
}

// ScoreEntry is one retrieval result in the debug trace.
type ScoreEntry struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

// RankEntry is one reranked result in the debug trace.
type RankEntry struct {
	ID          string  `json:"id"`
	Similarity  float32 `json:"similarity"`
	RerankScore float64 `json:"rerank_score"`
}

// Trace captures the intermediate scores and raw output of one query. It is
// assembled only when the caller asks for debug output and is discarded
// after the response is sent.
type Trace struct {
	// TopK is the effective candidate count after clamping.
	TopK int `json:"top_k"`

	// Retrieval holds the vector store's results in store order.
	Retrieval []ScoreEntry `json:"retrieval"`

	// Rerank holds all candidates in final ranked order, including those
	// later dropped from the context by the budget.
	Rerank []RankEntry `json:"rerank"`

	// Scorer names the rerank scoring model that produced the scores.
	Scorer string `json:"scorer"`

	// RerankFallback is true when the scoring model failed and retrieval
	// order was used instead.
	RerankFallback bool `json:"rerank_fallback,omitempty"`

	// GroundingRetry is true when the first answer had no valid citations
	// and the model was re-invoked with a correction message.
	GroundingRetry bool `json:"grounding_retry,omitempty"`

	// ContextChars is the admitted context size in characters.
	ContextChars int `json:"context_chars"`

	// RawAnswer is the model output before citation validation.
	RawAnswer string `json:"raw_answer"`
}
