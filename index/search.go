package index

import (
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/iParadigms/seeker/index/query"
)

// termMatch is one matched (field, term) occurrence inside a single segment,
// with the doc set it matched and the per-doc frequency needed by scoring.
type termMatch struct {
	field  string
	text   string
	boost  float64
	docs   *roaring.Bitmap
	freqOf func(doc uint32) uint32
}

// matchSet is the result of evaluating a query.Node against one segment: the
// final doc bitmap plus every term match that contributed to it, so the
// ranking package can compute BM25 without re-walking the AST.
type matchSet struct {
	docs    *roaring.Bitmap
	matches []termMatch
}

// evalQuery walks n against segment s and returns the matching docs plus the
// term-level detail scoring needs. All doc ids are local to s.
func evalQuery(s *segment, n query.Node) *matchSet {
	switch v := n.(type) {
	case *query.All:
		all := roaring.New()
		if len(s.store) > 0 {
			all.AddRange(0, uint64(len(s.store)))
		}
		return &matchSet{docs: all}

	case *query.Term:
		return evalTerm(s, v)

	case *query.Phrase:
		return evalPhrase(s, v.Field, v.Terms, v.Boost, false)

	case *query.PrefixPhrase:
		return evalPhrase(s, v.Field, v.Terms, v.Boost, true)

	case *query.Range:
		return evalRange(s, v)

	case *query.Set:
		return evalSet(s, v)

	case *query.Bool:
		return evalBool(s, v)

	default:
		return &matchSet{docs: roaring.New()}
	}
}

// evalTerm looks up the Snowball stem of t.Text in t.Field's postings.
// t.Fuzzy is ignored: a fuzzy term matches exactly like any other term.
func evalTerm(s *segment, t *query.Term) *matchSet {
	fp, ok := s.postings[t.Field]
	if !ok {
		return &matchSet{docs: roaring.New()}
	}
	term := stemToken(t.Text)
	p, ok := fp[term]
	if !ok {
		return &matchSet{docs: roaring.New()}
	}
	boost := t.Boost
	if boost == 0 {
		boost = 1
	}
	return &matchSet{
		docs: p.docs.Clone(),
		matches: []termMatch{{
			field: t.Field, text: term, boost: boost,
			docs: p.docs, freqOf: func(doc uint32) uint32 {
				f, _ := p.freqAt(doc)
				return f
			},
		}},
	}
}

// evalPhrase approximates phrase/prefix-phrase matching as the intersection
// of each term's postings. Proper adjacency requires per-term position
// lists, which this postings format does not carry; the intersection is a
// conservative superset used for ranking and highlighting, not a precision
// guarantee.
func evalPhrase(s *segment, field string, terms []string, boost float64, prefix bool) *matchSet {
	if len(terms) == 0 {
		return &matchSet{docs: roaring.New()}
	}
	fp, ok := s.postings[field]
	if !ok {
		return &matchSet{docs: roaring.New()}
	}
	if boost == 0 {
		boost = 1
	}

	var result *roaring.Bitmap
	var matches []termMatch
	for i, term := range terms {
		var p *posting
		if prefix && i == len(terms)-1 {
			// The trailing wildcard term is matched as a literal prefix
			// against the stemmed dictionary, not stemmed itself: stemming
			// a word fragment ("runn" from "runn*") produces nonsense.
			p = unionPrefix(fp, term)
		} else {
			term = stemToken(term)
			p = fp[term]
		}
		if p == nil {
			return &matchSet{docs: roaring.New()}
		}
		matches = append(matches, termMatch{
			field: field, text: term, boost: boost,
			docs: p.docs, freqOf: func(doc uint32) uint32 {
				f, _ := p.freqAt(doc)
				return f
			},
		})
		if result == nil {
			result = p.docs.Clone()
		} else {
			result.And(p.docs)
		}
	}
	if result == nil {
		result = roaring.New()
	}
	return &matchSet{docs: result, matches: matches}
}

// unionPrefix builds a synthetic posting over every term with the given
// prefix, for the trailing wildcard term of a prefix-phrase.
func unionPrefix(fp fieldPostings, prefix string) *posting {
	var merged *posting
	for term, p := range fp {
		if !strings.HasPrefix(term, prefix) {
			continue
		}
		if merged == nil {
			merged = newPosting()
		}
		it := p.docs.Iterator()
		for it.HasNext() {
			d := it.Next()
			f, _ := p.freqAt(d)
			merged.add(d, f)
		}
	}
	return merged
}

func evalRange(s *segment, r *query.Range) *matchSet {
	result := roaring.New()
	n := len(s.store)
	lower, hasLower := parseRangeBound(r.Lower, r.HasLower)
	upper, hasUpper := parseRangeBound(r.Upper, r.HasUpper)
	col := columnAccessor(&s.columns, r.Field)
	if col == nil {
		return &matchSet{docs: result}
	}
	for doc := 0; doc < n; doc++ {
		v := col(uint32(doc))
		if hasLower {
			if r.InclusiveLower {
				if v < lower {
					continue
				}
			} else if v <= lower {
				continue
			}
		}
		if hasUpper {
			if r.InclusiveUpper {
				if v > upper {
					continue
				}
			} else if v >= upper {
				continue
			}
		}
		result.Add(uint32(doc))
	}
	return &matchSet{docs: result}
}

func parseRangeBound(s string, has bool) (float64, bool) {
	if !has {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func evalSet(s *segment, set *query.Set) *matchSet {
	result := roaring.New()
	n := len(s.store)
	col := columnAccessor(&s.columns, set.Field)
	if col == nil {
		return &matchSet{docs: result}
	}
	want := make(map[float64]struct{}, len(set.Values))
	for _, v := range set.Values {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			continue
		}
		want[f] = struct{}{}
	}
	for doc := 0; doc < n; doc++ {
		if _, ok := want[col(uint32(doc))]; ok {
			result.Add(uint32(doc))
		}
	}
	return &matchSet{docs: result}
}

// columnAccessor returns a float64 view of a named column field, or nil if
// the field isn't a recognized column. Bool and rank fields are represented
// as 0/1 and their natural magnitude respectively.
func columnAccessor(c *columnFields, field string) func(uint32) float64 {
	switch field {
	case "page_centrality":
		return func(d uint32) float64 { return c.PageCentrality[d] }
	case "host_centrality":
		return func(d uint32) float64 { return c.HostCentrality[d] }
	case "page_centrality_rank":
		return func(d uint32) float64 { return float64(c.PageCentralityRank[d]) }
	case "host_centrality_rank":
		return func(d uint32) float64 { return float64(c.HostCentralityRank[d]) }
	case "fetch_time_ms":
		return func(d uint32) float64 { return float64(c.FetchTimeMS[d]) }
	case "region":
		return func(d uint32) float64 { return float64(c.Region[d]) }
	case "safe":
		return func(d uint32) float64 {
			if c.Safe[d] {
				return 1
			}
			return 0
		}
	case "pre_computed_score":
		return func(d uint32) float64 { return c.PreComputedScore[d] }
	case "host_node_id":
		return func(d uint32) float64 { return float64(c.HostNodeID[d]) }
	case "inserted_at":
		return func(d uint32) float64 { return float64(c.InsertedAt[d]) }
	default:
		return nil
	}
}

func evalBool(s *segment, b *query.Bool) *matchSet {
	var must, should, mustNot *roaring.Bitmap
	var matches []termMatch
	haveShould := false

	for _, clause := range b.Clauses {
		ms := evalQuery(s, clause.Node)
		switch clause.Occur {
		case query.Must:
			if must == nil {
				must = ms.docs
			} else {
				must.And(ms.docs)
			}
			matches = append(matches, ms.matches...)
		case query.MustNot:
			if mustNot == nil {
				mustNot = ms.docs
			} else {
				mustNot.Or(ms.docs)
			}
		default: // Should
			haveShould = true
			if should == nil {
				should = ms.docs
			} else {
				should.Or(ms.docs)
			}
			matches = append(matches, ms.matches...)
		}
	}

	var result *roaring.Bitmap
	switch {
	case must != nil:
		result = must.Clone()
	case haveShould:
		result = should.Clone()
	default:
		result = roaring.New()
	}
	if mustNot != nil {
		result.AndNot(mustNot)
	}
	return &matchSet{docs: result, matches: matches}
}
