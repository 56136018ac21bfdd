// Package ranking computes and aggregates the signals that order search
// results: BM25/BM25F/IDF-sum text signals, column (forward) signals, a
// time-bucketed freshness signal, and Optic-style boost rules. It is
// deliberately storage-agnostic — index supplies term matches and column
// values; this package only does arithmetic and ordering.
package ranking

// Pointer is the tuple sufficient to retrieve and re-rank a single document:
// a score, a content hash for cross-shard dedup, and its segment-local
// address. Hashes is typically a hash of the document's URL or body.
type Pointer struct {
	Score      float64
	Hashes     uint64
	SegmentOrd int
	DocID      uint32
}

// SortBySegmentThenDoc sorts pointers by (SegmentOrd asc, DocID asc) in
// place and returns a permutation that maps sorted position back to the
// caller's original index, so the caller can restore its order after
// scanning.
func SortBySegmentThenDoc(pointers []Pointer) []int {
	perm := make([]int, len(pointers))
	for i := range perm {
		perm[i] = i
	}
	// insertion sort is adequate here: pointer lists are collector-bounded
	// (hundreds, not millions) and already near-sorted from per-segment
	// collection.
	for i := 1; i < len(pointers); i++ {
		j := i
		for j > 0 && less(pointers[j], pointers[j-1]) {
			pointers[j], pointers[j-1] = pointers[j-1], pointers[j]
			perm[j], perm[j-1] = perm[j-1], perm[j]
			j--
		}
	}
	return perm
}

func less(a, b Pointer) bool {
	if a.SegmentOrd != b.SegmentOrd {
		return a.SegmentOrd < b.SegmentOrd
	}
	return a.DocID < b.DocID
}

// RestoreOrder applies the inverse of the permutation SortBySegmentThenDoc
// returned, so webpages come back out in the caller's original pointer
// order.
func RestoreOrder[T any](sorted []T, perm []int) []T {
	out := make([]T, len(sorted))
	for sortedIdx, originalIdx := range perm {
		out[originalIdx] = sorted[sortedIdx]
	}
	return out
}
