package pipeline

import (
	"github.com/avielr/paperqa/internal/budget"
)

// Assembler selects and truncates ranked documents into a character-bounded
// context block.
type Assembler struct {
	// budgetChars caps the total excerpt size of the block.
	budgetChars int
	// perDocChars caps each document's excerpt before admission.
	perDocChars int
}

// NewAssembler constructs an Assembler. Non-positive arguments fall back to
// the package defaults.
func NewAssembler(budgetChars, perDocChars int) *Assembler {
	if budgetChars <= 0 {
		budgetChars = budget.DefaultContextChars
	}
	if perDocChars <= 0 {
		perDocChars = budget.DefaultExcerptChars
	}
	return &Assembler{budgetChars: budgetChars, perDocChars: perDocChars}
}

// Assemble walks the ranked results in order, admitting each document's
// excerpt while the running total stays within the budget, and assigns
// citation markers 1, 2, … in admission order. Assembly stops at the first
// document that would overflow the budget; later documents stay out of the
// context but remain visible in the debug trace. Duplicate document IDs are
// admitted once. An empty input yields an empty block, which downstream
// stages treat as "no relevant documents", not an error.
func (a *Assembler) Assemble(ranked []RankedResult) *ContextBlock {
	block := &ContextBlock{Entries: []ContextEntry{}}
	seen := make(map[string]struct{}, len(ranked))

	for _, r := range ranked {
		if _, dup := seen[r.Document.ID]; dup {
			continue
		}

		text := budget.CollapseSpace(r.Document.Title + ". " + r.Document.Abstract)
		excerpt := budget.TruncateSentences(text, a.perDocChars)
		if block.Chars+len(excerpt) > a.budgetChars {
			break
		}

		seen[r.Document.ID] = struct{}{}
		block.Entries = append(block.Entries, ContextEntry{
			Marker:   len(block.Entries) + 1,
			Document: r.Document,
			Excerpt:  excerpt,
		})
		block.Chars += len(excerpt)
	}

	return block
}
