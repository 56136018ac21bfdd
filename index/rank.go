package index

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/iParadigms/seeker"
	"github.com/iParadigms/seeker/index/query"
	"github.com/iParadigms/seeker/index/ranking"
	"github.com/iParadigms/seeker/index/snippet"
)

// SearchContext is the per-search handle: a reader snapshot, the
// coefficients used to combine signals, and the query's fixed "now". It
// holds no mutable state itself; SignalComputer is what carries
// cached per-segment state across a single search.
type SearchContext struct {
	Reader       *reader
	Coefficients ranking.Coefficients
	NowUnix      int64
}

// SearchInitial walks node across every committed segment, scoring with a
// cheap per-field BM25 aggregate so a MainCollector can keep only the
// collector-limited top-K per segment. If collector.MaxDocsConsidered is set
// and positive, each segment's scan stops after
// MaxDocsConsidered/numSegments docs — sound only because segments are
// physically sorted by pre_computed_score descending, so the docs skipped
// are provably lower-scoring than the docs already kept.
func SearchInitial(ctx SearchContext, node query.Node, collector ranking.MainCollector) (count int, approx bool, pointers []ranking.Pointer, err error) {
	r := ctx.Reader
	if r == nil || r.numSegments() == 0 {
		return 0, false, nil, nil
	}

	perSegmentCap := 0
	if collector.MaxDocsConsidered > 0 {
		perSegmentCap = collector.MaxDocsConsidered / r.numSegments()
		if perSegmentCap == 0 {
			perSegmentCap = 1
		}
	}

	var perSegment [][]ranking.Pointer
	totalScanned := 0
	exactCount := 0
	hitCap := false

	for ord := 0; ord < r.numSegments(); ord++ {
		seg := r.segmentAt(ord)
		ms := evalQuery(seg, node)
		sc := ranking.NewSegmentCollector(collector, ord)

		it := ms.docs.Iterator()
		scannedHere := 0
		for it.HasNext() {
			doc := it.Next()
			if perSegmentCap > 0 && scannedHere >= perSegmentCap {
				hitCap = true
				break
			}
			score := baseScore(seg, ms.matches, doc, ctx.Coefficients)
			hash := xxhash.Sum64String(seg.store[doc].URL)
			sc.Offer(doc, score, hash)
			scannedHere++
			exactCount++
		}
		totalScanned += scannedHere
		perSegment = append(perSegment, sc.Pointers())
	}

	merged, _ := ranking.Merge(collector, perSegment, totalScanned)
	return exactCount, hitCap, merged, nil
}

// baseScore computes the text-signal (BM25 per field, summed) plus a small
// column-field contribution, weighted by ctx's coefficients. It is the
// scoring used during recall; RetrieveRankingWebsites recomputes a fuller
// signal set during local precision.
func baseScore(seg *segment, matches []termMatch, doc uint32, coef ranking.Coefficients) float64 {
	byField := make(map[string][]ranking.TermSignal)
	for _, m := range matches {
		freq := m.freqOf(doc)
		if freq == 0 {
			continue
		}
		fieldLen := seg.fieldnorms[m.field][doc]
		byField[m.field] = append(byField[m.field], ranking.TermSignal{
			Field: m.field, TermFreq: freq, FieldLen: fieldLen,
			DocFreq: int(m.docs.GetCardinality()),
		})
	}

	sc := ranking.NewSignalComputer(0)
	sc.RegisterSegment(0, fieldStats(seg))

	values := map[string]float64{
		"page_centrality": seg.columns.PageCentrality[doc],
		"host_centrality": seg.columns.HostCentrality[doc],
	}
	for field, terms := range byField {
		values["bm25_"+field] = sc.BM25(field, terms)
	}
	return coef.Combine(values)
}

// textFieldWeights are BM25F's per-field weights: a term occurrence in the
// title counts for more than the same occurrence in the body.
var textFieldWeights = map[string]float64{
	"title":       3,
	"anchor":      2,
	"description": 1.5,
	"body":        1,
}

func fieldStats(seg *segment) map[string]ranking.FieldStats {
	out := make(map[string]ranking.FieldStats, len(indexedFields))
	n := len(seg.store)
	for _, field := range indexedFields {
		norms, ok := seg.fieldnorms[field]
		if !ok || n == 0 {
			out[field] = ranking.FieldStats{DocCount: n}
			continue
		}
		var sum uint64
		for _, v := range norms {
			sum += uint64(v)
		}
		out[field] = ranking.FieldStats{AvgFieldLen: float64(sum) / float64(n), DocCount: n}
	}
	return out
}

// RetrieveRankingWebsites materializes the full signal set for each pointer,
// including BM25/BM25F/IDF-sum recomputed against node, and scores each with
// ctx.Coefficients. Per the ordering contract, pointers are re-sorted by
// (segment_ord asc, doc_id asc) before scanning — this is what lets a single
// SignalComputer walk monotonically increasing doc ids within a segment,
// re-seeking each matched term's postings to the current doc rather than
// re-registering state per document — then restored to the caller's
// original order before return.
func RetrieveRankingWebsites(ctx SearchContext, node query.Node, pointers []ranking.Pointer) []ranking.RankingWebpage {
	working := make([]ranking.Pointer, len(pointers))
	copy(working, pointers)
	perm := ranking.SortBySegmentThenDoc(working)

	pages := make([]ranking.RankingWebpage, len(working))
	sc := ranking.NewSignalComputer(ctx.NowUnix)
	currentOrd := -1
	var seg *segment
	var matches []termMatch

	for i, p := range working {
		if p.SegmentOrd != currentOrd {
			currentOrd = p.SegmentOrd
			seg = ctx.Reader.segmentAt(currentOrd)
			sc.RegisterSegment(currentOrd, fieldStats(seg))
			matches = evalQuery(seg, node).matches
		}

		// Re-seek every matched term's postings to this doc id: the matches
		// slice walks in the same monotonically increasing doc-id order as
		// the pointers themselves, so freqOf never looks backward.
		byField := make(map[string][]ranking.TermSignal)
		for _, m := range matches {
			freq := m.freqOf(p.DocID)
			if freq == 0 {
				continue
			}
			byField[m.field] = append(byField[m.field], ranking.TermSignal{
				Field: m.field, TermFreq: freq, FieldLen: seg.fieldnorms[m.field][p.DocID],
				DocFreq: int(m.docs.GetCardinality()),
			})
		}

		values := map[string]float64{
			"page_centrality":      seg.columns.PageCentrality[p.DocID],
			"host_centrality":      seg.columns.HostCentrality[p.DocID],
			"page_centrality_rank": float64(seg.columns.PageCentralityRank[p.DocID]),
			"host_centrality_rank": float64(seg.columns.HostCentralityRank[p.DocID]),
			"fetch_time_ms":        float64(seg.columns.FetchTimeMS[p.DocID]),
			"freshness":            ranking.TimeSignal(hoursSince(ctx.NowUnix, seg.columns.InsertedAt[p.DocID])),
			"bm25f":                sc.BM25F(textFieldWeights, byField),
		}
		var idfSum float64
		for field, terms := range byField {
			values["bm25_"+field] = sc.BM25(field, terms)
			idfSum += sc.IDFSum(field, terms)
		}
		values["idf"] = idfSum

		pages[i] = ranking.RankingWebpage{
			Pointer: p,
			Signals: values,
			Score:   ctx.Coefficients.Combine(values),
		}
	}

	// pages is aligned with working (monotonic segment/doc_id order); restore
	// the caller's original pointer order before returning. Callers that
	// want results ordered by score, not pointer order, pass this through
	// ranking.Ranker.Rank themselves — that reordering is a distinct stage.
	return ranking.RestoreOrder(pages, perm)
}

func hoursSince(nowUnix, thenUnixNano int64) float64 {
	if thenUnixNano == 0 {
		return 0
	}
	thenUnix := thenUnixNano / 1e9
	d := nowUnix - thenUnix
	if d < 0 {
		return 0
	}
	return float64(d) / 3600
}

// RetrievedWebpage is a fully loaded, snippet-annotated search result.
type RetrievedWebpage struct {
	URL             string
	Title           string
	Description     string
	SchemaOrgItems  []seeker.SchemaOrgItem
	Snippet         []snippet.HighlightedFragment
	HasPrimaryImage bool
}

// homepageBodyThreshold and genericBodyThreshold are the two "too short to
// snippet from body" cutoffs: a homepage's body is usually navigation
// boilerplate, so it needs a higher bar before it's worth excerpting over
// falling back to the description.
const (
	homepageBodyThreshold = 400
	genericBodyThreshold  = 40
)

// RetrieveWebsites loads each pointer's stored fields and runs snippet
// generation against body, falling back to description when body is too
// short to produce a useful excerpt. It applies the primary-image drop
// rule: an image is kept only if one of the query's simple terms appears in
// the title or description vocabulary.
func RetrieveWebsites(r *reader, pointers []ranking.Pointer, simpleTerms []string, cfg snippet.Config) []RetrievedWebpage {
	terms := make(map[string]struct{}, len(simpleTerms))
	for _, t := range simpleTerms {
		terms[t] = struct{}{}
	}

	out := make([]RetrievedWebpage, len(pointers))
	for i, p := range pointers {
		seg := r.segmentAt(p.SegmentOrd)
		if seg == nil || int(p.DocID) >= len(seg.store) {
			continue
		}
		doc := seg.store[p.DocID]

		threshold := genericBodyThreshold
		if isHomepage(doc.URL) {
			threshold = homepageBodyThreshold
		}
		source := doc.Body
		if len([]rune(source)) < threshold {
			source = doc.Description
		}
		frags := snippet.Generate(source, simpleTerms, "", cfg, analyze, analyzeStemmed)

		out[i] = RetrievedWebpage{
			URL:             doc.URL,
			Title:           doc.Title,
			Description:     doc.Description,
			SchemaOrgItems:  doc.SchemaOrgItems,
			Snippet:         frags,
			HasPrimaryImage: vocabularyOverlap(doc.Title, terms) || vocabularyOverlap(doc.Description, terms),
		}
	}
	return out
}

// isHomepage reports whether url has no meaningful path component beyond a
// trailing slash.
func isHomepage(url string) bool {
	i := strings.Index(url, "://")
	if i < 0 {
		return false
	}
	rest := url[i+3:]
	slash := strings.IndexByte(rest, '/')
	return slash < 0 || slash == len(rest)-1
}

func vocabularyOverlap(text string, terms map[string]struct{}) bool {
	for _, t := range analyze(text) {
		if _, ok := terms[t]; ok {
			return true
		}
	}
	return false
}
