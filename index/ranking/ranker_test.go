package ranking

import "testing"

func TestRankOrdersByCombinedScoreDescending(t *testing.T) {
	r := Ranker{Coefficients: Coefficients{Defaults: map[string]float64{"bm25": 1}}}
	pages := []RankingWebpage{
		{Signals: map[string]float64{"bm25": 1}},
		{Signals: map[string]float64{"bm25": 5}},
		{Signals: map[string]float64{"bm25": 3}},
	}
	ranked := r.Rank(pages)
	for i := 1; i < len(ranked); i++ {
		if ranked[i].Score > ranked[i-1].Score {
			t.Fatalf("Rank did not produce descending scores: %+v", ranked)
		}
	}
}

func TestRankTiesBrokenByPointerScore(t *testing.T) {
	r := Ranker{Coefficients: Coefficients{Defaults: map[string]float64{"bm25": 1}}}
	pages := []RankingWebpage{
		{Pointer: Pointer{Score: 0.1}, Signals: map[string]float64{"bm25": 1}},
		{Pointer: Pointer{Score: 0.9}, Signals: map[string]float64{"bm25": 1}},
	}
	ranked := r.Rank(pages)
	if ranked[0].Pointer.Score != 0.9 {
		t.Fatalf("expected the higher pointer score to win an aggregated-score tie, got %+v", ranked)
	}
}

func TestDedupByHashKeepsHighestScoring(t *testing.T) {
	pages := []RankingWebpage{
		{Pointer: Pointer{Hashes: 1}, Score: 0.2},
		{Pointer: Pointer{Hashes: 1}, Score: 0.8},
		{Pointer: Pointer{Hashes: 2}, Score: 0.5},
	}
	deduped := DedupByHash(pages)
	if len(deduped) != 2 {
		t.Fatalf("expected 2 unique hashes, got %d", len(deduped))
	}
	for _, p := range deduped {
		if p.Pointer.Hashes == 1 && p.Score != 0.8 {
			t.Errorf("expected hash 1's survivor to be the 0.8-scoring page, got %v", p.Score)
		}
	}
}

func TestDedupByHashPreservesFirstSeenPosition(t *testing.T) {
	pages := []RankingWebpage{
		{Pointer: Pointer{Hashes: 1}, Score: 0.8},
		{Pointer: Pointer{Hashes: 2}, Score: 0.5},
		{Pointer: Pointer{Hashes: 1}, Score: 0.1}, // later, lower-scoring duplicate
	}
	deduped := DedupByHash(pages)
	if len(deduped) != 2 || deduped[0].Pointer.Hashes != 1 || deduped[1].Pointer.Hashes != 2 {
		t.Fatalf("expected first-seen order preserved, got %+v", deduped)
	}
}
