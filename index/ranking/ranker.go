package ranking

import "sort"

// RankingWebpage is a document with its materialized signal values,
// produced once retrieve_ranking_websites has walked the pointer's
// (segment, doc_id) and run every registered signal against it.
type RankingWebpage struct {
	Pointer Pointer
	Signals map[string]float64
	Score   float64
}

// Ranker reorders RankingWebpages by aggregated score once local signals
// have been materialized — the "local precision" stage, distinct from the
// collector's coarser per-segment recall pass.
type Ranker struct {
	Coefficients Coefficients
}

// Rank scores and sorts pages by descending aggregated score, breaking ties
// by the page's original pointer score so the ordering stays deterministic
// when two documents land on identical signal weights.
func (r Ranker) Rank(pages []RankingWebpage) []RankingWebpage {
	for i := range pages {
		pages[i].Score = r.Coefficients.Combine(pages[i].Signals)
	}
	sort.SliceStable(pages, func(i, j int) bool {
		if pages[i].Score != pages[j].Score {
			return pages[i].Score > pages[j].Score
		}
		return pages[i].Pointer.Score > pages[j].Pointer.Score
	})
	return pages
}

// DedupByHash collapses duplicate Hashes values (e.g. near-identical
// documents surfaced by different shards) down to the highest-scoring
// survivor. The survivor takes the position where its hash first appeared
// in the input.
func DedupByHash(pages []RankingWebpage) []RankingWebpage {
	best := make(map[uint64]int, len(pages))
	var out []RankingWebpage
	for _, p := range pages {
		if idx, ok := best[p.Pointer.Hashes]; ok {
			if p.Score > out[idx].Score {
				out[idx] = p
			}
			continue
		}
		best[p.Pointer.Hashes] = len(out)
		out = append(out, p)
	}
	return out
}
