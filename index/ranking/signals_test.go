package ranking

import "testing"

func TestBM25HigherTermFreqScoresHigher(t *testing.T) {
	c := NewSignalComputer(0)
	c.RegisterSegment(0, map[string]FieldStats{"title": {AvgFieldLen: 5, DocCount: 100}})

	low := c.BM25("title", []TermSignal{{Field: "title", TermFreq: 1, FieldLen: 5, DocFreq: 10}})
	high := c.BM25("title", []TermSignal{{Field: "title", TermFreq: 5, FieldLen: 5, DocFreq: 10}})
	if !(high > low) {
		t.Fatalf("expected higher term frequency to score higher: low=%v high=%v", low, high)
	}
}

func TestBM25RarerTermScoresHigher(t *testing.T) {
	c := NewSignalComputer(0)
	c.RegisterSegment(0, map[string]FieldStats{"body": {AvgFieldLen: 100, DocCount: 1000}})

	common := c.BM25("body", []TermSignal{{Field: "body", TermFreq: 3, FieldLen: 100, DocFreq: 900}})
	rare := c.BM25("body", []TermSignal{{Field: "body", TermFreq: 3, FieldLen: 100, DocFreq: 5}})
	if !(rare > common) {
		t.Fatalf("expected rarer term (lower DocFreq) to score higher: common=%v rare=%v", common, rare)
	}
}

func TestBM25UnknownFieldScoresZero(t *testing.T) {
	c := NewSignalComputer(0)
	c.RegisterSegment(0, map[string]FieldStats{"title": {AvgFieldLen: 5, DocCount: 10}})
	if got := c.BM25("missing", []TermSignal{{TermFreq: 1}}); got != 0 {
		t.Fatalf("expected 0 for an unregistered field, got %v", got)
	}
}

func TestRegisterSegmentNoopOnSameOrdinal(t *testing.T) {
	c := NewSignalComputer(0)
	c.RegisterSegment(3, map[string]FieldStats{"title": {AvgFieldLen: 5, DocCount: 10}})
	c.RegisterSegment(3, map[string]FieldStats{}) // should be ignored, same ordinal
	if _, ok := c.stats["title"]; !ok {
		t.Fatal("expected stats from the first RegisterSegment call to survive a same-ordinal call")
	}
}

func TestIDFSumIgnoresTermFreq(t *testing.T) {
	c := NewSignalComputer(0)
	c.RegisterSegment(0, map[string]FieldStats{"body": {AvgFieldLen: 50, DocCount: 100}})
	a := c.IDFSum("body", []TermSignal{{TermFreq: 1, DocFreq: 10}})
	b := c.IDFSum("body", []TermSignal{{TermFreq: 50, DocFreq: 10}})
	if a != b {
		t.Fatalf("IDFSum should ignore term frequency entirely: a=%v b=%v", a, b)
	}
}

func TestTimeSignalMonotonicDecay(t *testing.T) {
	fresh := TimeSignal(0)
	old := TimeSignal(200)
	if !(fresh > old) {
		t.Fatalf("expected fresher content to score higher: fresh=%v old=%v", fresh, old)
	}
}

func TestTimeSignalClampsNegativeAndOverflow(t *testing.T) {
	if TimeSignal(-5) != TimeSignal(0) {
		t.Error("expected negative hours to clamp to bucket 0")
	}
	if TimeSignal(1e9) != TimeSignal(255) {
		t.Error("expected very large hours to clamp to the last bucket")
	}
}

func TestCombineOpticPureBoost(t *testing.T) {
	got := CombineOptic([]OpticRule{{Boost: 0.5, Matches: true}})
	if got != 1.5 {
		t.Errorf("CombineOptic pure boost = %v, want 1.5", got)
	}
}

func TestCombineOpticDominantDownrank(t *testing.T) {
	got := CombineOptic([]OpticRule{{Downrank: 1.0, Matches: true}, {Boost: 0.2, Matches: true}})
	want := 1 / (1 + 0.8)
	if got != want {
		t.Errorf("CombineOptic dominant downrank = %v, want %v", got, want)
	}
}

func TestCombineOpticIgnoresUnmatchedRules(t *testing.T) {
	got := CombineOptic([]OpticRule{{Boost: 10, Matches: false}})
	if got != 1 {
		t.Errorf("expected unmatched rules to contribute nothing, got %v", got)
	}
}

func TestCoefficientsPriorityOverrideThenModelThenDefault(t *testing.T) {
	c := Coefficients{
		Overrides: map[string]float64{"bm25": 9},
		Model:     map[string]float64{"bm25": 2, "freshness": 3},
		Defaults:  map[string]float64{"bm25": 1, "freshness": 1, "centrality": 1},
	}
	if got := c.Weight("bm25"); got != 9 {
		t.Errorf("Weight(bm25) = %v, want override 9", got)
	}
	if got := c.Weight("freshness"); got != 3 {
		t.Errorf("Weight(freshness) = %v, want model 3", got)
	}
	if got := c.Weight("centrality"); got != 1 {
		t.Errorf("Weight(centrality) = %v, want default 1", got)
	}
}

func TestCoefficientsCombine(t *testing.T) {
	c := Coefficients{Defaults: map[string]float64{"a": 2, "b": 3}}
	got := c.Combine(map[string]float64{"a": 1, "b": 2})
	if got != 2*1+3*2 {
		t.Errorf("Combine = %v, want %v", got, 2*1+3*2)
	}
}
