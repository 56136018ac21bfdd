package snippet

import (
	"strings"
	"testing"
)

func simpleAnalyze(s string) []string {
	return strings.Fields(strings.ToLower(s))
}

func TestGenerateEmptyBody(t *testing.T) {
	if frags := Generate("", []string{"x"}, "", DefaultConfig(), simpleAnalyze, nil); frags != nil {
		t.Fatalf("expected nil fragments for empty body, got %v", frags)
	}
}

func TestGenerateHighlightsQueryTerm(t *testing.T) {
	body := "Rust is a systems programming language. It focuses on safety and speed."
	frags := Generate(body, []string{"rust"}, "eng", DefaultConfig(), simpleAnalyze, nil)

	var found bool
	var reconstructed strings.Builder
	for _, f := range frags {
		reconstructed.WriteString(f.Text)
		if f.Kind == Highlighted && strings.EqualFold(f.Text, "rust") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a Highlighted fragment for %q, got %+v", "rust", frags)
	}
	if !strings.Contains(reconstructed.String(), "Rust") {
		t.Fatalf("fragments do not reconstruct the original passage: %q", reconstructed.String())
	}
}

func TestGenerateFallsBackToStemmedWhenNormalMisses(t *testing.T) {
	// "run" never appears literally in the body, so the first highlight pass
	// (against the raw query terms) finds nothing; the stemmed fallback maps
	// "run" to the word that actually occurs, "running", and that pass should
	// succeed.
	body := "She went running every single morning before work started."
	stem := func(s string) []string {
		if s == "run" {
			return []string{"running"}
		}
		return []string{s}
	}

	frags := Generate(body, []string{"run"}, "eng", DefaultConfig(), simpleAnalyze, stem)
	var found bool
	for _, f := range frags {
		if f.Kind == Highlighted {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected stemmed fallback to produce a highlight, got %+v", frags)
	}
}

func TestSplitPassagesDropsShortFragments(t *testing.T) {
	body := "Hi. This is a much longer sentence that should pass the width check."
	passages := splitPassages(body, 20)
	for _, p := range passages {
		if got := len([]rune(p.text(body))); got < 20 {
			t.Errorf("passage %q is %d runes, shorter than minWidth 20", p.text(body), got)
		}
	}
}

func TestSizePassageTruncatesOverlong(t *testing.T) {
	cfg := Config{DesiredPassageWidth: 10, DeltaPassageWidth: 2}
	long := strings.Repeat("a", 50)
	best := scoredPassage{passage: passage{start: 0, end: len(long)}, index: 0}
	out := sizePassage(long, best, []passage{best.passage}, cfg)
	if got := len([]rune(out)); got > cfg.DesiredPassageWidth+cfg.DeltaPassageWidth {
		t.Fatalf("sizePassage returned %d runes, want <= %d", got, cfg.DesiredPassageWidth+cfg.DeltaPassageWidth)
	}
}

func TestSizePassageExtendsShortPassage(t *testing.T) {
	body := "Short one. Second sentence here to extend into. Third one too just in case."
	passages := splitPassages(body, 5)
	if len(passages) < 2 {
		t.Fatalf("expected at least 2 passages from the fixture body, got %d", len(passages))
	}
	cfg := Config{DesiredPassageWidth: 40, DeltaPassageWidth: 10}
	best := scoredPassage{passage: passages[0], index: 0}
	out := sizePassage(body, best, passages, cfg)
	if len([]rune(out)) <= len([]rune(passages[0].text(body))) {
		t.Fatalf("expected sizePassage to extend a too-short passage, got %q", out)
	}
}

func TestResolveOverlapsKeepsLeftmostShortest(t *testing.T) {
	spans := []highlightSpan{{0, 10}, {0, 5}, {6, 8}}
	got := resolveOverlaps(spans)
	if len(got) != 2 {
		t.Fatalf("expected 2 non-overlapping spans, got %+v", got)
	}
	if got[0] != (highlightSpan{0, 5}) {
		t.Fatalf("expected the shortest leftmost span to win, got %+v", got[0])
	}
	if got[1] != (highlightSpan{6, 8}) {
		t.Fatalf("expected the next non-overlapping span to survive, got %+v", got[1])
	}
}

func TestNgramSpansProducesWordBoundaries(t *testing.T) {
	runes := []rune("the quick fox")
	spans := ngramSpans(runes, 2)
	if len(spans) != 2 {
		t.Fatalf("expected 2 bigram spans in a 3-word sentence, got %d", len(spans))
	}
	if string(runes[spans[0].start:spans[0].end]) != "the quick" {
		t.Errorf("first bigram = %q, want %q", string(runes[spans[0].start:spans[0].end]), "the quick")
	}
}
