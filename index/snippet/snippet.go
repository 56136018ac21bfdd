// Package snippet builds a highlighted excerpt of a document's body text
// for one search result: detect language, split into sentence-sized
// passages, score each passage against the query's terms with BM25, pick
// and size the best one, then mark which spans inside it match a query
// term.
package snippet

import (
	"math"
	"strings"
	"unicode"

	"github.com/RadhiFadlillah/whatlanggo"
)

// Config tunes passage sizing. Widths are in characters.
type Config struct {
	MinPassageWidth     int
	DesiredPassageWidth int
	DeltaPassageWidth   int
	MinDescriptionWords int
	DetectionWords      int // how many leading words whatlang samples
}

// DefaultConfig mirrors a typical English-biased web snippet: short enough
// to fit a result card, long enough to carry two sentences of context.
func DefaultConfig() Config {
	return Config{
		MinPassageWidth:     20,
		DesiredPassageWidth: 200,
		DeltaPassageWidth:   50,
		MinDescriptionWords: 10,
		DetectionWords:      200,
	}
}

// FragmentKind distinguishes plain text from a query-term match in a
// generated snippet.
type FragmentKind int

const (
	Normal FragmentKind = iota
	Highlighted
)

// HighlightedFragment is one piece of a snippet; concatenating every
// fragment's Text reproduces the snippet exactly.
type HighlightedFragment struct {
	Kind FragmentKind
	Text string
}

// Analyzer is the minimal interface snippet needs from index's text
// analyzers, injected so this package has no dependency on index (which
// already depends on query, and must stay acyclic).
type Analyzer func(s string) []string

// Generate builds a snippet from body given the query's simple terms.
// regionLang is an optional region-derived language override (used by
// callers that already know the document's locale); when empty, language is
// detected from the text itself. normal is the default field analyzer;
// stemmed is used only as a fallback when normal produces no highlights at
// all.
func Generate(body string, simpleTerms []string, regionLang string, cfg Config, normal, stemmed Analyzer) []HighlightedFragment {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	if regionLang == "" {
		detectLanguage(body, cfg.DetectionWords) // reserved for per-language analyzer selection
	}

	passages := splitPassages(body, cfg.MinPassageWidth)
	if len(passages) == 0 {
		return []HighlightedFragment{{Kind: Normal, Text: body}}
	}

	terms := make(map[string]struct{}, len(simpleTerms))
	for _, t := range simpleTerms {
		terms[strings.ToLower(t)] = struct{}{}
	}

	scored := scorePassages(body, passages, terms, normal)
	best := selectBest(scored)
	snippetText := sizePassage(body, best, passages, cfg)

	fragments := highlight(snippetText, terms, normal)
	if !anyHighlighted(fragments) && stemmed != nil {
		stemTerms := make(map[string]struct{}, len(simpleTerms))
		for t := range terms {
			for _, s := range stemmed(t) {
				stemTerms[s] = struct{}{}
			}
		}
		fragments = highlight(snippetText, stemTerms, stemmed)
	}
	return fragments
}

func anyHighlighted(frags []HighlightedFragment) bool {
	for _, f := range frags {
		if f.Kind == Highlighted {
			return true
		}
	}
	return false
}

// detectLanguage returns the ISO 639-3 name whatlang assigns to the first
// sampleWords words of text, or "" if detection has low confidence.
func detectLanguage(text string, sampleWords int) string {
	words := strings.Fields(text)
	if len(words) > sampleWords {
		words = words[:sampleWords]
	}
	sample := strings.Join(words, " ")
	if sample == "" {
		return ""
	}
	info := whatlanggo.Detect(sample)
	if info.Lang < 0 || info.Confidence < 0.1 {
		return ""
	}
	return whatlanggo.Langs[info.Lang]
}

// passage is a [start,end) byte range into the original body.
type passage struct {
	start, end int
}

func (p passage) text(body string) string { return body[p.start:p.end] }

// splitPassages segments body into sentence-ish ranges on '.', '!', '?'
// followed by whitespace, discarding any passage shorter than minWidth
// runes.
func splitPassages(body string, minWidth int) []passage {
	runes := []rune(body)
	byteOf := make([]int, len(runes)+1)
	b := 0
	for i, r := range runes {
		byteOf[i] = b
		b += len(string(r))
	}
	byteOf[len(runes)] = b

	var out []passage
	start := 0
	flush := func(endRuneIdx int) {
		if endRuneIdx-start < minWidth {
			return
		}
		out = append(out, passage{start: byteOf[start], end: byteOf[endRuneIdx]})
	}
	for i, r := range runes {
		if (r == '.' || r == '!' || r == '?') && (i+1 >= len(runes) || unicode.IsSpace(runes[i+1])) {
			flush(i + 1)
			start = i + 1
		}
	}
	flush(len(runes))

	if len(out) == 0 && len(runes) >= minWidth {
		out = append(out, passage{start: 0, end: len(body)})
	}
	return out
}

type scoredPassage struct {
	passage passage
	score   float64
	index   int
}

const (
	passageBM25K1 = 1.2
	passageBM25B  = 0.75
)

// scorePassages treats the passage set as its own small BM25 corpus:
// passage length and term document frequency are computed over just these
// passages, not the whole segment.
func scorePassages(body string, passages []passage, terms map[string]struct{}, analyze Analyzer) []scoredPassage {
	tfPerPassage := make([]map[string]int, len(passages))
	lenPerPassage := make([]int, len(passages))
	df := make(map[string]int)
	var totalLen int

	for i, p := range passages {
		toks := analyze(p.text(body))
		tf := make(map[string]int, len(toks))
		for _, t := range toks {
			tf[t]++
		}
		for t := range tf {
			if _, wanted := terms[t]; wanted {
				df[t]++
			}
		}
		tfPerPassage[i] = tf
		lenPerPassage[i] = len(toks)
		totalLen += len(toks)
	}

	avgLen := 1.0
	if len(passages) > 0 && totalLen > 0 {
		avgLen = float64(totalLen) / float64(len(passages))
	}

	out := make([]scoredPassage, len(passages))
	for i, p := range passages {
		var score float64
		for term := range terms {
			tf := tfPerPassage[i][term]
			if tf == 0 {
				continue
			}
			d := df[term]
			if d == 0 {
				d = 1
			}
			idf := bm25IDF(len(passages), d)
			norm := 1 - passageBM25B + passageBM25B*(float64(lenPerPassage[i])/avgLen)
			score += idf * (float64(tf) * (passageBM25K1 + 1)) / (float64(tf) + passageBM25K1*norm)
		}
		out[i] = scoredPassage{passage: p, score: score, index: i}
	}
	return out
}

func bm25IDF(n, df int) float64 {
	x := (float64(n) - float64(df) + 0.5) / (float64(df) + 0.5)
	if x < 0 {
		x = 0
	}
	return math.Log(1 + x)
}

// selectBest picks the highest-scoring passage, breaking ties by earliest
// occurrence in the document.
func selectBest(scored []scoredPassage) scoredPassage {
	best := scored[0]
	for _, s := range scored[1:] {
		if s.score > best.score {
			best = s
		}
	}
	return best
}

// sizePassage truncates or extends best to fit within
// [desired-delta, desired+delta] characters: truncate at a rune boundary if
// too long, or append following passages separated by a single space if too
// short.
func sizePassage(body string, best scoredPassage, all []passage, cfg Config) string {
	text := best.passage.text(body)
	if len([]rune(text)) > cfg.DesiredPassageWidth+cfg.DeltaPassageWidth {
		runes := []rune(text)
		limit := cfg.DesiredPassageWidth + cfg.DeltaPassageWidth
		return string(runes[:limit])
	}
	if len([]rune(text)) >= cfg.DesiredPassageWidth-cfg.DeltaPassageWidth {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	for i := best.index + 1; i < len(all); i++ {
		if len([]rune(b.String())) >= cfg.DesiredPassageWidth {
			break
		}
		b.WriteByte(' ')
		b.WriteString(all[i].text(body))
	}
	out := b.String()
	if len([]rune(out)) > cfg.DesiredPassageWidth+cfg.DeltaPassageWidth {
		runes := []rune(out)
		out = string(runes[:cfg.DesiredPassageWidth+cfg.DeltaPassageWidth])
	}
	return out
}

// highlightSpan is a [start,end) rune range into a tokenized snippet,
// produced at one of three granularities.
type highlightSpan struct {
	start, end int
}

// highlight re-tokenizes snippetText at normal, bigram, and trigram
// granularity, marks every span whose token text exactly matches a query
// term, resolves overlaps by keeping the leftmost-starting and then
// shortest-ending span, and returns the final Normal/Highlighted fragment
// sequence.
func highlight(snippetText string, terms map[string]struct{}, analyze Analyzer) []HighlightedFragment {
	runes := []rune(snippetText)
	var spans []highlightSpan

	for _, n := range []int{1, 2, 3} {
		for _, span := range ngramSpans(runes, n) {
			tok := strings.ToLower(string(runes[span.start:span.end]))
			if _, ok := terms[tok]; ok {
				spans = append(spans, span)
			}
		}
	}
	spans = resolveOverlaps(spans)

	if len(spans) == 0 {
		return []HighlightedFragment{{Kind: Normal, Text: snippetText}}
	}

	var frags []HighlightedFragment
	cursor := 0
	for _, sp := range spans {
		if sp.start > cursor {
			frags = append(frags, HighlightedFragment{Kind: Normal, Text: string(runes[cursor:sp.start])})
		}
		frags = append(frags, HighlightedFragment{Kind: Highlighted, Text: string(runes[sp.start:sp.end])})
		cursor = sp.end
	}
	if cursor < len(runes) {
		frags = append(frags, HighlightedFragment{Kind: Normal, Text: string(runes[cursor:])})
	}
	return frags
}

// ngramSpans finds word-boundary spans of n consecutive whitespace-delimited
// words within runes.
func ngramSpans(runes []rune, n int) []highlightSpan {
	type word struct{ start, end int }
	var words []word
	i := 0
	for i < len(runes) {
		for i < len(runes) && unicode.IsSpace(runes[i]) {
			i++
		}
		start := i
		for i < len(runes) && !unicode.IsSpace(runes[i]) {
			i++
		}
		if i > start {
			words = append(words, word{start, i})
		}
	}
	var out []highlightSpan
	for i := 0; i+n <= len(words); i++ {
		out = append(out, highlightSpan{start: words[i].start, end: words[i+n-1].end})
	}
	return out
}

// resolveOverlaps keeps, among overlapping spans, the leftmost-starting one;
// ties broken by the shortest-ending (i.e. shortest) span.
func resolveOverlaps(spans []highlightSpan) []highlightSpan {
	if len(spans) == 0 {
		return nil
	}
	sortSpans(spans)
	var out []highlightSpan
	last := -1
	for _, sp := range spans {
		if sp.start < last {
			continue
		}
		out = append(out, sp)
		last = sp.end
	}
	return out
}

func sortSpans(spans []highlightSpan) {
	for i := 1; i < len(spans); i++ {
		j := i
		for j > 0 && less(spans[j], spans[j-1]) {
			spans[j], spans[j-1] = spans[j-1], spans[j]
			j--
		}
	}
}

func less(a, b highlightSpan) bool {
	if a.start != b.start {
		return a.start < b.start
	}
	return a.end < b.end
}
