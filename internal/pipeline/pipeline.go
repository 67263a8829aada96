package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/avielr/paperqa/internal/logging"
	"github.com/avielr/paperqa/internal/rag"
)

// noInformationAnswer is the canned response for queries where retrieval
// found nothing at all. The model is not invoked for these: there is nothing
// to ground an answer in, so the call would only spend generation budget to
// say so.
const noInformationAnswer = "No relevant information was found in the corpus for this question."

// Clamp bounds for the per-request top_k. Out-of-range values are clamped
// rather than rejected so exploratory clients get an answer instead of a 400.
const (
	// MinTopK is the smallest accepted candidate count.
	MinTopK = 1
	// MaxTopK caps the candidate count; reranking is quadratic-ish in
	// practice and contexts saturate well before this.
	MaxTopK = 20
	// DefaultTopK is used when the request leaves top_k unset.
	DefaultTopK = 5
)

// Answer is one completed query: the validated answer plus the debug
// artifacts when requested.
type Answer struct {
	// Text is the final answer text.
	Text string
	// Citations are the context documents the answer cites.
	Citations []Citation
	// Invalid are markers the model emitted that resolve to nothing.
	Invalid []int
	// Grounded is false when a non-empty context produced an answer with no
	// valid citations.
	Grounded bool

	// Context is the assembled context block; populated only in debug mode.
	Context *ContextBlock
	// Trace holds intermediate scores and raw output; debug mode only.
	Trace *Trace
}

// Pipeline composes the retrieval, rerank, assembly, generation and
// validation stages into one request cycle. All stage handles are long-lived
// and shared read-only across concurrent queries.
type Pipeline struct {
	retriever rag.Retriever
	reranker  *Reranker
	assembler *Assembler
	generator *Generator
	validator *Validator
}

// New constructs a Pipeline from its stages.
func New(retriever rag.Retriever, reranker *Reranker, assembler *Assembler, generator *Generator) (*Pipeline, error) {
	if retriever == nil || reranker == nil || assembler == nil || generator == nil {
		return nil, fmt.Errorf("pipeline: all stages are required")
	}
	return &Pipeline{
		retriever: retriever,
		reranker:  reranker,
		assembler: assembler,
		generator: generator,
		validator: NewValidator(),
	}, nil
}

// ClampTopK folds a requested candidate count into [MinTopK, MaxTopK],
// substituting DefaultTopK for the zero value.
func ClampTopK(topK int) int {
	switch {
	case topK == 0:
		return DefaultTopK
	case topK < MinTopK:
		return MinTopK
	case topK > MaxTopK:
		return MaxTopK
	default:
		return topK
	}
}

// Answer runs the full pipeline for one query. Stage errors come back as
// *StageError so callers can map them to structured error responses. Empty
// retrieval is not an error: it short-circuits to a fixed no-information
// answer with no citations.
func (p *Pipeline) Answer(ctx context.Context, query string, topK int, debug bool) (*Answer, error) {
	log := logging.FromContext(ctx)
	topK = ClampTopK(topK)

	candidates, err := p.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		kind := KindRetrieval
		if errors.Is(err, rag.ErrEmbedding) {
			kind = KindEmbedding
		}
		return nil, &StageError{Kind: kind, Err: err}
	}
	log.Debug("retrieved candidates", "count", len(candidates), "top_k", topK)

	if len(candidates) == 0 {
		ans := &Answer{
			Text:      noInformationAnswer,
			Citations: []Citation{},
			Invalid:   []int{},
			Grounded:  true,
		}
		if debug {
			ans.Context = &ContextBlock{Entries: []ContextEntry{}}
			ans.Trace = &Trace{
				TopK:      topK,
				Retrieval: []ScoreEntry{},
				Rerank:    []RankEntry{},
				Scorer:    p.reranker.Scorer(),
				RawAnswer: noInformationAnswer,
			}
		}
		return ans, nil
	}

	ranked, usedFallback, err := p.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		return nil, err
	}

	block := p.assembler.Assemble(ranked)
	log.Debug("assembled context", "documents", len(block.Entries), "chars", block.Chars)

	raw, err := p.generator.Generate(ctx, query, block)
	if err != nil {
		return nil, err
	}

	validated := p.validator.Validate(raw, block)

	// One automatic correction pass when a non-empty context produced an
	// answer with no valid citations. The retried answer replaces the first
	// whatever the outcome; a transport failure on the retry keeps the
	// flagged first answer rather than failing a request that already has
	// one.
	retried := false
	if !validated.Grounded && !block.Empty() {
		redo, retryErr := p.generator.Regenerate(ctx, query, block)
		if retryErr != nil {
			log.Warn("grounding retry failed; keeping uncited answer", "error", retryErr)
		} else {
			retried = true
			raw = redo
			validated = p.validator.Validate(raw, block)
		}
	}
	if !validated.Grounded {
		log.Warn("answer has no valid citations over a non-empty context",
			"context_documents", len(block.Entries), "invalid_markers", len(validated.Invalid),
			"retried", retried)
	}

	ans := &Answer{
		Text:      validated.Text,
		Citations: validated.Citations,
		Invalid:   validated.Invalid,
		Grounded:  validated.Grounded,
	}
	if ans.Citations == nil {
		ans.Citations = []Citation{}
	}
	if ans.Invalid == nil {
		ans.Invalid = []int{}
	}
	if debug {
		ans.Context = block
		ans.Trace = p.buildTrace(topK, candidates, ranked, usedFallback, retried, block, raw)
	}
	return ans, nil
}

// buildTrace assembles the debug trace from the stage intermediates.
func (p *Pipeline) buildTrace(topK int, candidates []rag.RetrievalResult, ranked []RankedResult, usedFallback, retried bool, block *ContextBlock, raw GeneratedAnswer) *Trace {
	tr := &Trace{
		TopK:           topK,
		Retrieval:      make([]ScoreEntry, len(candidates)),
		Rerank:         make([]RankEntry, len(ranked)),
		Scorer:         p.reranker.Scorer(),
		RerankFallback: usedFallback,
		GroundingRetry: retried,
		ContextChars:   block.Chars,
		RawAnswer:      raw.Raw,
	}
	for i, c := range candidates {
		tr.Retrieval[i] = ScoreEntry{ID: c.Document.ID, Score: c.Score}
	}
	for i, r := range ranked {
		tr.Rerank[i] = RankEntry{ID: r.Document.ID, Similarity: r.Score, RerankScore: r.RerankScore}
	}
	return tr
}
