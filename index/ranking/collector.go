package ranking

import "sort"

// MainCollector bounds recall: at most TopKPerSegment pointers survive from
// any one segment (zero keeps all), and MaxDocsConsidered caps how many
// documents are examined; index.SearchInitial splits that cap evenly across
// segments, at least one document per segment. Zero MaxDocsConsidered means
// unbounded (an exact count is always possible in that case).
type MainCollector struct {
	TopKPerSegment   int
	MaxDocsConsidered int
}

// SegmentCollector accumulates scored pointers for a single segment scan,
// keeping only the TopKPerSegment best by score.
type SegmentCollector struct {
	k         int
	segmentOrd int
	heap      []Pointer // unordered; the lowest Score is found by linear scan
}

func NewSegmentCollector(mc MainCollector, segmentOrd int) *SegmentCollector {
	return &SegmentCollector{k: mc.TopKPerSegment, segmentOrd: segmentOrd}
}

// Offer records a candidate. It is cheap: a linear scan for the eviction
// candidate, which is fine at collector-sized K (tens to low hundreds).
func (sc *SegmentCollector) Offer(docID uint32, score float64, hashes uint64) {
	p := Pointer{Score: score, Hashes: hashes, SegmentOrd: sc.segmentOrd, DocID: docID}
	if sc.k <= 0 || len(sc.heap) < sc.k {
		sc.heap = append(sc.heap, p)
		return
	}
	minIdx, minScore := 0, sc.heap[0].Score
	for i, existing := range sc.heap {
		if existing.Score < minScore {
			minIdx, minScore = i, existing.Score
		}
	}
	if score > minScore {
		sc.heap[minIdx] = p
	}
}

func (sc *SegmentCollector) Pointers() []Pointer {
	out := make([]Pointer, len(sc.heap))
	copy(out, sc.heap)
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Merge combines the results of several SegmentCollectors (one per
// segment_ord) into the final top_pointers list the caller sees, sorted by
// Score descending and not truncated, and reports whether docsScanned
// reached MaxDocsConsidered — i.e. whether the returned count is
// approximate.
func Merge(mc MainCollector, perSegment [][]Pointer, docsScanned int) (pointers []Pointer, approx bool) {
	for _, ps := range perSegment {
		pointers = append(pointers, ps...)
	}
	sort.Slice(pointers, func(i, j int) bool { return pointers[i].Score > pointers[j].Score })
	approx = mc.MaxDocsConsidered > 0 && docsScanned >= mc.MaxDocsConsidered
	return pointers, approx
}
