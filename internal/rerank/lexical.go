package rerank

import (
	"context"
	"math"
	"strings"
	"unicode"
)

// LexicalScorer scores documents by weighted query-term overlap. It is the
// fallback used when no cross-encoder service is configured and when a
// configured service is unavailable: cheap, deterministic, and dependency
// free, it keeps the rerank stage functional rather than a pass-through.
//
// The score for a document is the fraction of distinct query terms that
// appear in it, with each matched term weighted by a dampened term frequency
// (1 + log(tf)). Scores land in [0, ~fraction*weight] and only their relative
// order matters downstream.
type LexicalScorer struct {
	// stopwords are excluded from matching so that function words do not
	// dominate the overlap.
	stopwords map[string]struct{}
}

// NewLexicalScorer constructs a LexicalScorer with a small English stopword
// list suitable for short queries over academic abstracts.
func NewLexicalScorer() *LexicalScorer {
	words := []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for", "from",
		"has", "have", "how", "in", "is", "it", "its", "of", "on", "or",
		"that", "the", "this", "to", "was", "what", "when", "where",
		"which", "who", "why", "will", "with",
	}
	stop := make(map[string]struct{}, len(words))
	for _, w := range words {
		stop[w] = struct{}{}
	}
	return &LexicalScorer{stopwords: stop}
}

// Name identifies the scorer in logs and debug traces.
func (s *LexicalScorer) Name() string { return "lexical" }

// Score computes one overlap score per text. It never fails; the error
// return satisfies the Scorer interface.
func (s *LexicalScorer) Score(_ context.Context, query string, texts []string) ([]float64, error) {
	terms := s.terms(query)
	scores := make([]float64, len(texts))
	if len(terms) == 0 {
		return scores, nil
	}

	for i, text := range texts {
		freq := make(map[string]int)
		for _, tok := range tokenize(text) {
			if _, ok := terms[tok]; ok {
				freq[tok]++
			}
		}
		var sum float64
		for _, tf := range freq {
			sum += 1 + math.Log(float64(tf))
		}
		scores[i] = sum / float64(len(terms))
	}

	return scores, nil
}

// terms returns the set of distinct, stopword-free query tokens.
func (s *LexicalScorer) terms(query string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range tokenize(query) {
		if _, stop := s.stopwords[tok]; stop {
			continue
		}
		set[tok] = struct{}{}
	}
	return set
}

// tokenize lowercases the text and splits on any non-letter, non-digit rune.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
