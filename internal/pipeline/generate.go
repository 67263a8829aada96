package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/semaphore"
)

// systemPrompt constrains the model to the supplied context. Kept short and
// imperative; local models follow terse instructions better than prose.
const systemPrompt = `You are a careful research assistant answering questions about academic papers.
Answer using ONLY the numbered context documents provided. Cite every factual claim with the marker of its source document in square brackets, e.g. [1] or [1, 3].
If the context does not contain the information needed, say so plainly instead of guessing. Never use outside knowledge and never invent citations.`

// emptyContextPrompt is used when no documents made it into the context. The
// no-information behavior is prompted explicitly rather than left to the
// model's judgement.
const emptyContextPrompt = `No documents relevant to the question were found in the corpus.
State that no relevant information was found. Do not attempt to answer from outside knowledge and do not cite any sources.`

// correctionPrompt is appended when the first answer carried no valid
// citation markers over a non-empty context. The retry runs at temperature
// zero to pin the model to the format.
const correctionPrompt = `Your previous answer did not cite any of the numbered context documents.
Rewrite the answer, citing every factual claim with the [n] marker of the context document that supports it. Use only the provided context.`

// ChatModel is the slice of eino's chat model the generator needs. Tests
// substitute a fake; production passes the provider-constructed model.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Generator invokes the language model with a grounding-constrained prompt.
// Concurrent generations pass through a weighted semaphore sized to the
// model runtime's safe concurrency level; local runtimes typically serialize
// inference, so the default gate width is 1.
type Generator struct {
	model       ChatModel
	timeout     time.Duration
	maxTokens   int
	temperature float32
	gate        *semaphore.Weighted
}

// GeneratorConfig holds the generator's tuning knobs.
type GeneratorConfig struct {
	// Timeout bounds each generation call wall-clock. Defaults to 120s.
	Timeout time.Duration
	// Concurrency is the number of generations allowed in flight at once.
	// Defaults to 1.
	Concurrency int
	// MaxTokens bounds the answer length. Defaults to 400; abstracts-only
	// answers never need more.
	MaxTokens int
	// Temperature is the sampling temperature for the first attempt.
	// Defaults to 0.2; citation behavior needs near-deterministic decoding.
	// The grounding retry always runs at zero regardless of this value.
	Temperature float32
}

// NewGenerator constructs a Generator over the given chat model.
func NewGenerator(m ChatModel, cfg GeneratorConfig) *Generator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 400
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.2
	}
	return &Generator{
		model:       m,
		timeout:     timeout,
		maxTokens:   maxTokens,
		temperature: temperature,
		gate:        semaphore.NewWeighted(int64(concurrency)),
	}
}

// Generate builds the grounding prompt from the context block and invokes
// the model. Backend failures and timeouts surface as KindGeneration errors;
// there is no fallback to an ungrounded answer. If the caller's context is
// already cancelled the model is never invoked.
func (g *Generator) Generate(ctx context.Context, query string, block *ContextBlock) (GeneratedAnswer, error) {
	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildUserPrompt(query, block)),
	}
	return g.invoke(ctx, messages, g.temperature)
}

// Regenerate re-invokes the model after an answer failed grounding
// validation: the original prompt is extended with a correction message and
// the temperature drops to zero. One retry only; the orchestrator decides
// what to do with the result.
func (g *Generator) Regenerate(ctx context.Context, query string, block *ContextBlock) (GeneratedAnswer, error) {
	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildUserPrompt(query, block)),
		schema.UserMessage(correctionPrompt),
	}
	return g.invoke(ctx, messages, 0)
}

// invoke runs one model call through the concurrency gate with the
// generator's decoding bounds. The bounds are applied per call rather than
// at backend construction so every provider backend honors them.
func (g *Generator) invoke(ctx context.Context, messages []*schema.Message, temperature float32) (GeneratedAnswer, error) {
	// Abort before the expensive call if the caller is gone.
	if err := ctx.Err(); err != nil {
		return GeneratedAnswer{}, &StageError{Kind: KindGeneration, Err: err}
	}

	if err := g.gate.Acquire(ctx, 1); err != nil {
		return GeneratedAnswer{}, &StageError{Kind: KindGeneration,
			Err: fmt.Errorf("waiting for generation slot: %w", err)}
	}
	defer g.gate.Release(1)

	gctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	msg, err := g.model.Generate(gctx, messages,
		model.WithTemperature(temperature),
		model.WithMaxTokens(g.maxTokens),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("generation exceeded %s timeout: %w", g.timeout, err)
		}
		return GeneratedAnswer{}, &StageError{Kind: KindGeneration, Err: err}
	}

	return GeneratedAnswer{Raw: msg.Content}, nil
}

// buildUserPrompt renders the context entries with their markers followed by
// the question. The marker format in the prompt matches the citation grammar
// the validator accepts.
func buildUserPrompt(query string, block *ContextBlock) string {
	var b strings.Builder

	if block.Empty() {
		b.WriteString(emptyContextPrompt)
	} else {
		b.WriteString("Context documents:\n")
		for _, e := range block.Entries {
			fmt.Fprintf(&b, "\n[%d] %s\n", e.Marker, e.Excerpt)
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
