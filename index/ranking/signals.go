package ranking

import "math"

const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// FieldStats carries the per-field corpus statistics a SignalComputer needs
// for BM25: the field's average length across the segment and the segment's
// document count (for IDF).
type FieldStats struct {
	AvgFieldLen float64
	DocCount    int
}

// TermSignal is one (field, term) occurrence used as BM25 input: the raw
// frequency in the current document, the field's length in the current
// document (token count), and how many documents in the segment contain the
// term at all (document frequency, for IDF).
type TermSignal struct {
	Field    string
	TermFreq uint32
	FieldLen uint32
	DocFreq  int
}

// SignalComputer accumulates per-field BM25/BM25F/IDF-sum signals for the
// segment it is currently registered against. RegisterSegment must be called
// before any scoring call whenever the caller moves to a new segment_ord —
// it is the explicit analogue of rebuilding cached posting iterators and
// fieldnorm readers.
type SignalComputer struct {
	segmentOrd int
	stats      map[string]FieldStats
	now        int64 // unix seconds, fixed once per query
}

// NewSignalComputer fixes "now" once for the lifetime of a single query, so
// every document's freshness signal is computed against the same timestamp.
func NewSignalComputer(nowUnix int64) *SignalComputer {
	return &SignalComputer{segmentOrd: -1, now: nowUnix}
}

// RegisterSegment rebuilds cached per-field statistics for a newly entered
// segment. Calling it with the already-registered ordinal is a no-op.
func (c *SignalComputer) RegisterSegment(segmentOrd int, stats map[string]FieldStats) {
	if c.segmentOrd == segmentOrd {
		return
	}
	c.segmentOrd = segmentOrd
	c.stats = stats
}

// BM25 scores a single field's contribution from its term signals.
func (c *SignalComputer) BM25(field string, terms []TermSignal) float64 {
	st, ok := c.stats[field]
	if !ok || st.DocCount == 0 {
		return 0
	}
	var score float64
	for _, t := range terms {
		if t.TermFreq == 0 {
			continue
		}
		idf := idf(st.DocCount, t.DocFreq)
		avgLen := st.AvgFieldLen
		if avgLen == 0 {
			avgLen = 1
		}
		norm := 1 - bm25B + bm25B*(float64(t.FieldLen)/avgLen)
		tf := float64(t.TermFreq)
		score += idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*norm)
	}
	return score
}

// BM25F combines term signals across multiple weighted fields into a single
// score: each field's term frequency is scaled by its field weight (1 when
// unset), and every (field, term) signal is then scored with BM25
// saturation and an IDF over the largest per-field document count. Field
// lengths are not used, so there is no length normalization, and a term's
// frequencies in different fields are scored separately, not summed first.
func (c *SignalComputer) BM25F(fieldWeights map[string]float64, byField map[string][]TermSignal) float64 {
	var pseudo []TermSignal
	var totalDocCount int
	for field, terms := range byField {
		st, ok := c.stats[field]
		if !ok {
			continue
		}
		if st.DocCount > totalDocCount {
			totalDocCount = st.DocCount
		}
		w := fieldWeights[field]
		if w == 0 {
			w = 1
		}
		for _, t := range terms {
			pseudo = append(pseudo, TermSignal{
				Field:    field,
				TermFreq: uint32(float64(t.TermFreq) * w),
				FieldLen: t.FieldLen,
				DocFreq:  t.DocFreq,
			})
		}
	}
	if totalDocCount == 0 {
		return 0
	}
	var score float64
	for _, t := range pseudo {
		idf := idf(totalDocCount, t.DocFreq)
		score += idf * (float64(t.TermFreq) * (bm25K1 + 1)) / (float64(t.TermFreq) + bm25K1)
	}
	return score
}

// IDFSum scores purely on term rarity, ignoring term frequency — useful as a
// cheap recall signal when BM25's length normalization isn't wanted.
func (c *SignalComputer) IDFSum(field string, terms []TermSignal) float64 {
	st, ok := c.stats[field]
	if !ok || st.DocCount == 0 {
		return 0
	}
	var sum float64
	for _, t := range terms {
		if t.TermFreq == 0 {
			continue
		}
		sum += idf(st.DocCount, t.DocFreq)
	}
	return sum
}

func idf(docCount, docFreq int) float64 {
	if docFreq <= 0 {
		docFreq = 1
	}
	x := (float64(docCount) - float64(docFreq) + 0.5) / (float64(docFreq) + 0.5)
	return math.Log(1 + x)
}

// timeBuckets precomputes reciprocal-log decay values for hours-since
// buckets 0..len(timeBuckets)-1, indexed by whole hours in TimeSignal, so the hot scoring
// path never calls log2 per document.
var timeBuckets = buildTimeBuckets(256)

func buildTimeBuckets(n int) []float64 {
	b := make([]float64, n)
	for i := range b {
		b[i] = 1 / math.Log2(float64(i)+2)
	}
	return b
}

// TimeSignal converts hours-since-update into the precomputed reciprocal-log
// decay value, clamping to the largest bucket for very old documents.
func TimeSignal(hoursSince float64) float64 {
	idx := int(hoursSince)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(timeBuckets) {
		idx = len(timeBuckets) - 1
	}
	return timeBuckets[idx]
}

// OpticRule is one boost/penalty rule matched against a document.
type OpticRule struct {
	Boost    float64 // 0 if this rule is a downrank
	Downrank float64 // 0 if this rule is a boost
	Matches  bool    // whether the rule's scorer matched the current doc
}

// CombineOptic folds a list of per-document Optic rule outcomes into a
// single multiplicative factor. A dominant downrank (sum of downranks
// exceeds sum of boosts) combines as 1/(1+delta); otherwise as
// 1+(boost-downrank).
func CombineOptic(rules []OpticRule) float64 {
	var boost, downrank float64
	for _, r := range rules {
		if !r.Matches {
			continue
		}
		boost += r.Boost
		downrank += r.Downrank
	}
	if downrank > boost {
		return 1 / (1 + (downrank - boost))
	}
	return 1 + (boost - downrank)
}

// Coefficients resolves a signal's weight from, in priority order: the
// query's own override, a model's learned weight, then the signal's default.
type Coefficients struct {
	Overrides map[string]float64
	Model     map[string]float64
	Defaults  map[string]float64
}

func (c Coefficients) Weight(signal string) float64 {
	if v, ok := c.Overrides[signal]; ok {
		return v
	}
	if v, ok := c.Model[signal]; ok {
		return v
	}
	return c.Defaults[signal]
}

// Combine sums coefficient*value across every named signal value.
func (c Coefficients) Combine(values map[string]float64) float64 {
	var sum float64
	for name, v := range values {
		sum += c.Weight(name) * v
	}
	return sum
}
