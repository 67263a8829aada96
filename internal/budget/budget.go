// Package budget provides size accounting for the context assembly stage:
// a character-based token estimate and sentence-aware truncation. Because
// the pipeline supports multiple model backends with different tokenizers,
// token counts use a conservative heuristic: 1 token ≈ 4 characters of
// English prose. This deliberately under-estimates so assembled context
// always fits the model's window with headroom.
package budget

import (
	"regexp"
	"strings"
)

const (
	// charsPerToken is the conservative character-to-token ratio used for
	// estimation. 4 chars/token is standard for English text.
	charsPerToken = 4

	// DefaultContextChars is the default character budget for the full
	// assembled context block. Fits comfortably within 4k-context models
	// after prompt overhead.
	DefaultContextChars = 6000

	// DefaultExcerptChars is the default per-document cap applied to each
	// abstract before it is added to the context block.
	DefaultExcerptChars = 1200
)

// spaceRE matches any run of whitespace, including newlines.
var spaceRE = regexp.MustCompile(`\s+`)

// Estimate returns a rough token count for s using the character heuristic.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// CollapseSpace trims s and replaces every whitespace run with a single
// space. Abstracts arrive with hard line wraps from the upstream feed; this
// normalizes them to one line before any length accounting.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}

// TruncateSentences shortens text to at most maxChars characters without
// cutting mid-sentence: whole sentences are kept in order until the next one
// would overflow, and a trailing ellipsis marks the cut. If even the first
// sentence exceeds the cap the text is hard-cut at a rune boundary. A
// maxChars <= 0 disables truncation.
func TruncateSentences(text string, maxChars int) string {
	text = CollapseSpace(text)
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}

	var out []string
	total := 0
	for _, s := range splitSentences(text) {
		if total+len(s)+1 > maxChars {
			break
		}
		out = append(out, s)
		total += len(s) + 1
	}

	if len(out) == 0 {
		return hardCut(text, maxChars)
	}
	return strings.TrimRight(strings.Join(out, " "), " ") + " …"
}

// splitSentences splits text after sentence terminators (. ! ?) that are
// followed by a space. It does not attempt abbreviation handling — for
// budget purposes an occasional over-split is harmless.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && text[i+1] == ' ' {
			sentences = append(sentences, text[start:i+1])
			start = i + 2
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

// hardCut truncates text to maxChars bytes at a rune boundary and appends
// an ellipsis, used when sentence-aware truncation cannot keep anything.
func hardCut(text string, maxChars int) string {
	if maxChars <= 1 {
		return ""
	}
	cut := maxChars - 1
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}

// isRuneStart reports whether b is the first byte of a UTF-8 rune.
func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
