package budget

import (
	"strings"
	"testing"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func Test_CollapseSpace(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"  hello  ", "hello"},
		{"line one\nline two", "line one line two"},
		{"a\t\t b\n\nc", "a b c"},
	}
	for _, tc := range cases {
		if got := CollapseSpace(tc.input); got != tc.want {
			t.Errorf("CollapseSpace(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func Test_TruncateSentences_ShortTextUnchanged(t *testing.T) {
	t.Parallel()
	text := "Short abstract. Two sentences."
	if got := TruncateSentences(text, 100); got != text {
		t.Errorf("got %q, want unchanged input", got)
	}
}

func Test_TruncateSentences_KeepsWholeSentences(t *testing.T) {
	t.Parallel()
	text := "First sentence here. Second sentence follows. Third one is dropped."
	got := TruncateSentences(text, 50)

	if !strings.HasPrefix(got, "First sentence here.") {
		t.Errorf("first sentence missing: %q", got)
	}
	if strings.Contains(got, "Third") {
		t.Errorf("third sentence should be dropped: %q", got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated text must end with ellipsis: %q", got)
	}
}

func Test_TruncateSentences_HardCutWhenFirstSentenceTooLong(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("x", 200) + ". Tail."
	got := TruncateSentences(text, 50)

	if len(got) > 50+len("…") {
		t.Errorf("hard cut exceeded cap: len=%d", len(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("hard cut must end with ellipsis: %q", got)
	}
}

func Test_TruncateSentences_CollapsesWhitespace(t *testing.T) {
	t.Parallel()
	got := TruncateSentences("a  sentence\nwith wraps.", 100)
	if got != "a sentence with wraps." {
		t.Errorf("got %q", got)
	}
}

func Test_TruncateSentences_ZeroCapDisables(t *testing.T) {
	t.Parallel()
	text := strings.Repeat("word ", 100)
	got := TruncateSentences(text, 0)
	if got != CollapseSpace(text) {
		t.Errorf("zero cap must only normalize whitespace")
	}
}
