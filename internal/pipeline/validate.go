package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

// Citation grammar. Model output is free-form, so the accepted pattern is an
// explicit contract rather than a heuristic:
//
//	citation := "[" marker ("," marker)* "]"
//	marker   := 1-3 digit integer, optional surrounding spaces
//
// Accepted: "[1]", "[2, 5]", "[ 3 ]". Not accepted and left untouched as
// prose: "[a]", "[1.2]", "(1)", "[1-3]", empty brackets, and markers of four
// or more digits (years in brackets, e.g. "[2024]", are prose, and a context
// never holds a thousand documents).
var citationRE = regexp.MustCompile(`\[\s*(\d{1,3}(?:\s*,\s*\d{1,3})*)\s*\]`)

// Validator resolves the citation markers in a generated answer against the
// context block the answer was generated from.
type Validator struct{}

// NewValidator constructs a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate scans the raw answer for citations per the grammar above and
// splits markers into used (resolving to a context entry) and invalid
// (resolving to nothing), each deduplicated in first-appearance order.
// Invalid markers are stripped from the answer text rather than shown as if
// they were real sources.
//
// Grounded is false only when the context was non-empty and no valid marker
// appeared: the model may legitimately paraphrase without markers, so the
// condition is surfaced as a flag, never as an error.
func (v *Validator) Validate(raw GeneratedAnswer, block *ContextBlock) ValidatedAnswer {
	var (
		citations   []Citation
		invalid     []int
		usedSeen    = make(map[int]struct{})
		invalidSeen = make(map[int]struct{})
		stripped    bool
	)

	text := citationRE.ReplaceAllStringFunc(raw.Raw, func(match string) string {
		group := citationRE.FindStringSubmatch(match)[1]

		var kept []string
		for _, part := range strings.Split(group, ",") {
			marker, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				// Unreachable given the grammar; keep the text untouched.
				kept = append(kept, strings.TrimSpace(part))
				continue
			}

			entry, ok := block.Resolve(marker)
			if !ok {
				if _, dup := invalidSeen[marker]; !dup {
					invalidSeen[marker] = struct{}{}
					invalid = append(invalid, marker)
				}
				continue
			}

			kept = append(kept, strconv.Itoa(marker))
			if _, dup := usedSeen[marker]; !dup {
				usedSeen[marker] = struct{}{}
				citations = append(citations, Citation{
					Marker: marker,
					ID:     entry.Document.ID,
					Title:  entry.Document.Title,
					URL:    entry.Document.URL,
				})
			}
		}

		if len(kept) == 0 {
			stripped = true
			return ""
		}
		return "[" + strings.Join(kept, ", ") + "]"
	})

	// Stripping a whole citation can leave "claim  ." artifacts. Answers
	// where nothing was stripped pass through untouched: the cleanup is a
	// repair for removal sites, not a general reformatter.
	if stripped {
		text = collapseDoubleSpace(text)
	}
	text = strings.TrimSpace(text)

	return ValidatedAnswer{
		Text:      text,
		Citations: citations,
		Invalid:   invalid,
		Grounded:  block.Empty() || len(citations) > 0,
	}
}

// collapseDoubleSpace folds runs of spaces left behind by marker stripping.
// Newlines are preserved.
func collapseDoubleSpace(s string) string {
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.ReplaceAll(s, " .", ".")
}
