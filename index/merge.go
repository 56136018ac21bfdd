package index

import (
	"sort"

	"github.com/google/uuid"
)

func sortSegmentsByDocCountDesc(segs []*segment) {
	sort.Slice(segs, func(i, j int) bool {
		if segs[i].meta.DocCount != segs[j].meta.DocCount {
			return segs[i].meta.DocCount > segs[j].meta.DocCount
		}
		return segs[i].id.String() < segs[j].id.String()
	})
}

// mergeSegments physically combines segs into one new segment. Doc ids are
// reassigned by re-running the same score-descending order the writer
// applies at seal time, so the merged segment keeps the sorted-by
// pre_computed_score invariant the short-circuit scan depends on.
func mergeSegments(segs []*segment) (*segment, error) {
	type scoredRef struct {
		segIdx, docID int
		score         float64
	}
	var all []scoredRef
	for si, s := range segs {
		for d := 0; d < s.meta.DocCount; d++ {
			all = append(all, scoredRef{segIdx: si, docID: d, score: s.columns.PreComputedScore[d]})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].score > all[j].score })

	n := len(all)
	out := newSegment(uuid.New())
	out.store = make([]storedDoc, n)
	out.columns = columnFields{
		PageCentrality:     make([]float64, n),
		PageCentralityRank: make([]uint64, n),
		HostCentrality:     make([]float64, n),
		HostCentralityRank: make([]uint64, n),
		FetchTimeMS:        make([]int64, n),
		Region:             make([]uint64, n),
		Safe:               make([]bool, n),
		PreComputedScore:   make([]float64, n),
		HostNodeID:         make([]uint64, n),
		InsertedAt:         make([]int64, n),
	}
	for _, field := range indexedFields {
		out.postings[field] = make(fieldPostings)
		out.fieldnorms[field] = make([]uint32, n)
	}

	// remap[segIdx][oldDocID] = newDocID, built once so postings can be
	// copied term-by-term instead of rescanning every term for every doc.
	remap := make([][]uint32, len(segs))
	for si, s := range segs {
		remap[si] = make([]uint32, s.meta.DocCount)
	}

	var maxDocID uint32
	for newID, ref := range all {
		docID := uint32(newID)
		if docID > maxDocID {
			maxDocID = docID
		}
		remap[ref.segIdx][ref.docID] = docID

		src := segs[ref.segIdx]
		out.store[docID] = src.store[ref.docID]

		c, sc := &out.columns, &src.columns
		c.PageCentrality[docID] = sc.PageCentrality[ref.docID]
		c.PageCentralityRank[docID] = sc.PageCentralityRank[ref.docID]
		c.HostCentrality[docID] = sc.HostCentrality[ref.docID]
		c.HostCentralityRank[docID] = sc.HostCentralityRank[ref.docID]
		c.FetchTimeMS[docID] = sc.FetchTimeMS[ref.docID]
		c.Region[docID] = sc.Region[ref.docID]
		c.Safe[docID] = sc.Safe[ref.docID]
		c.PreComputedScore[docID] = sc.PreComputedScore[ref.docID]
		c.HostNodeID[docID] = sc.HostNodeID[ref.docID]
		c.InsertedAt[docID] = sc.InsertedAt[ref.docID]
	}

	for _, field := range indexedFields {
		for si, src := range segs {
			srcPostings, ok := src.postings[field]
			if !ok {
				continue
			}
			srcFieldnorms := src.fieldnorms[field]
			for term, p := range srcPostings {
				dst, ok := out.postings[field][term]
				if !ok {
					dst = newPosting()
					out.postings[field][term] = dst
				}
				it := p.docs.Iterator()
				for it.HasNext() {
					oldDocID := it.Next()
					freq, ok := p.freqAt(oldDocID)
					if !ok {
						continue
					}
					dst.add(remap[si][oldDocID], freq)
				}
			}
			for oldDocID, tokenCount := range srcFieldnorms {
				out.fieldnorms[field][remap[si][uint32(oldDocID)]] = tokenCount
			}
		}
	}

	out.meta = segmentMeta{DocCount: n, MaxDocID: maxDocID, CreatedAt: segs[0].meta.CreatedAt}
	return out, nil
}
