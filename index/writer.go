package index

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iParadigms/seeker"
)

// indexedFields lists which Document text fields get tokenized into
// postings. Column (forward) fields are filled separately in seal.
var indexedFields = []string{"title", "body", "description", "anchor"}

func fieldText(d *seeker.Document) map[string]string {
	return map[string]string{
		"title":       d.Title,
		"body":        d.CleanBody,
		"description": d.Description,
		"anchor":      strings.Join(d.BacklinkAnchors, " "),
	}
}

// writer is the index's single-threaded write buffer. It is intentionally
// not safe for concurrent Insert calls — one goroutine owns it and calls
// into it serially.
type writer struct {
	bufferBytes int64
	maxBytes    int64
	docs        []*seeker.Document
	byURL       map[string]int // URL -> index into docs, for overwrite-on-duplicate
}

func newWriter(maxBytes int64) *writer {
	return &writer{maxBytes: maxBytes, byURL: make(map[string]int)}
}

// insert appends to the active buffer. Not durable until seal() is called by
// Index.Commit. A document with a URL already present in the buffer
// overwrites the prior entry in place.
func (w *writer) insert(d *seeker.Document) {
	approxSize := int64(len(d.Title) + len(d.CleanBody) + len(d.DirtyBody) + len(d.Description))
	if idx, ok := w.byURL[d.URL]; ok {
		w.docs[idx] = d
		return
	}
	w.byURL[d.URL] = len(w.docs)
	w.docs = append(w.docs, d)
	w.bufferBytes += approxSize
}

func (w *writer) empty() bool { return len(w.docs) == 0 }

func (w *writer) full() bool { return w.bufferBytes >= w.maxBytes }

// seal builds an immutable segment from the buffered documents. Segments are
// required to be sorted internally by pre_computed_score descending, so doc
// ids are assigned in that order here rather than left to be sorted later —
// the short-circuit in SearchInitial (rank.go) depends on doc_id order
// already matching score order.
func (w *writer) seal() *segment {
	type scored struct {
		doc   *seeker.Document
		score float64
		order int // original insertion order, for a stable tiebreak
	}
	scoredDocs := make([]scored, len(w.docs))
	for i, d := range w.docs {
		scoredDocs[i] = scored{doc: d, score: d.PreComputedScore(), order: i}
	}
	sort.SliceStable(scoredDocs, func(i, j int) bool {
		if scoredDocs[i].score != scoredDocs[j].score {
			return scoredDocs[i].score > scoredDocs[j].score
		}
		return scoredDocs[i].order < scoredDocs[j].order
	})

	s := newSegment(uuid.New())
	n := len(scoredDocs)
	s.store = make([]storedDoc, n)
	s.columns = columnFields{
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
		s.postings[field] = make(fieldPostings)
		s.fieldnorms[field] = make([]uint32, n)
	}

	var maxDocID uint32
	for localID, sd := range scoredDocs {
		docID := uint32(localID)
		if docID > maxDocID {
			maxDocID = docID
		}
		d := sd.doc

		s.store[docID] = storedDoc{
			URL:             d.URL,
			Title:           d.Title,
			Body:            d.CleanBody,
			DirtyBody:       d.DirtyBody,
			Description:     d.Description,
			DMOZDescription: d.DMOZDescription,
			SchemaOrgItems:  d.SchemaOrgItems,
			BacklinkAnchors: d.BacklinkAnchors,
		}

		c := &s.columns
		c.PageCentrality[docID] = d.PageCentrality
		c.PageCentralityRank[docID] = d.PageCentralityRank
		c.HostCentrality[docID] = d.HostCentrality
		c.HostCentralityRank[docID] = d.HostCentralityRank
		c.FetchTimeMS[docID] = d.FetchTimeMS
		c.Region[docID] = d.Region
		c.Safe[docID] = d.Safe
		c.PreComputedScore[docID] = sd.score
		c.HostNodeID[docID] = d.HostNodeID
		c.InsertedAt[docID] = d.InsertedAt.UnixNano()

		for field, text := range fieldText(d) {
			freqs := termFrequencies(text)
			var tokenCount uint32
			for term, freq := range freqs {
				tokenCount += freq
				p, ok := s.postings[field][term]
				if !ok {
					p = newPosting()
					s.postings[field][term] = p
				}
				p.add(docID, freq)
			}
			s.fieldnorms[field][docID] = tokenCount
		}
	}

	s.meta = segmentMeta{
		DocCount:  n,
		MaxDocID:  maxDocID,
		CreatedAt: time.Now(),
	}
	return s
}

func (w *writer) reset() {
	w.docs = nil
	w.byURL = make(map[string]int)
	w.bufferBytes = 0
}
