package query

import (
	"fmt"
	"strconv"
	"strings"
)

// defaultField is used for bare terms and phrases with no field: prefix.
const defaultField = "body"

// Config controls parse-time behavior that varies per deployment rather than
// per query.
type Config struct {
	// DefaultAND makes a bare clause (no leading +/- and no connecting
	// AND/OR) Must instead of Should. Most installations leave this false
	// (OR-by-default, like a classic web search box).
	DefaultAND bool
}

// Parse turns q into a query tree. Parsing is lenient: malformed fragments
// are skipped rather than aborting the whole query, and every problem
// encountered is reported in the returned error slice so a caller can choose
// to log them without discarding the (possibly partial) result.
func Parse(q string, cfg Config) (Node, []error) {
	p := &parser{toks: lex(q), cfg: cfg}
	clauses := p.parseClauses()
	if len(clauses) == 0 {
		return &All{}, p.errs
	}
	b := &Bool{Clauses: clauses}
	if b.IsAllNegative() {
		b.Clauses = append(b.Clauses, Clause{Occur: Should, Node: &All{}})
	}
	return b, p.errs
}

type parser struct {
	toks []token
	pos  int
	cfg  Config
	errs []error
}

func (p *parser) peek() token {
	if p.pos >= len(p.toks) {
		return token{kind: tokEOF}
	}
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.peek()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *parser) errorf(format string, args ...any) {
	p.errs = append(p.errs, fmt.Errorf(format, args...))
}

// parseClauses walks the flat, unparenthesized top-level clause list: query
// syntax here does not support grouping, only a sequence of +/-/AND/OR
// connected atoms, each of which may itself be a field:value construct.
func (p *parser) parseClauses() []Clause {
	var clauses []Clause
	pendingOccur := Should
	haveExplicitConnector := false

	for {
		t := p.peek()
		switch t.kind {
		case tokEOF:
			return clauses
		case tokPlus:
			p.next()
			pendingOccur = Must
			haveExplicitConnector = true
			continue
		case tokMinus:
			p.next()
			pendingOccur = MustNot
			haveExplicitConnector = true
			continue
		case tokAND:
			p.next()
			pendingOccur = Must
			haveExplicitConnector = true
			continue
		case tokOR:
			p.next()
			pendingOccur = Should
			haveExplicitConnector = true
			continue
		}

		node, ok := p.parseAtom()
		if !ok {
			// parseAtom already recorded why; skip the offending token so we
			// make progress and don't loop forever.
			if p.peek().kind != tokEOF {
				p.next()
			}
			continue
		}
		occur := pendingOccur
		if !haveExplicitConnector {
			if p.cfg.DefaultAND {
				occur = Must
			} else {
				occur = Should
			}
		}
		clauses = append(clauses, Clause{Occur: occur, Node: node})
		pendingOccur = Should
		haveExplicitConnector = false
	}
}

// parseAtom parses one field:value|bare-value unit, optionally followed by a
// ^boost suffix.
func (p *parser) parseAtom() (Node, bool) {
	t := p.peek()

	if t.kind == tokStar {
		p.next()
		return &All{}, true
	}

	field := defaultField
	if t.kind == tokWord && p.pos+1 < len(p.toks) && p.toks[p.pos+1].kind == tokColon {
		field = t.text
		p.next() // word
		p.next() // colon
		t = p.peek()
	}

	switch t.kind {
	case tokWord:
		p.next()
		term := &Term{Field: field, Text: normalizeLiteral(field, t.text), Boost: 1.0}
		p.applyBoost(&term.Boost)
		return term, true

	case tokQuoted:
		p.next()
		terms := tokenizeLiteral(field, t.text)
		if len(terms) == 0 {
			p.errorf("empty phrase for field %q", field)
			return nil, false
		}
		prefix := false
		if p.peek().kind == tokStar {
			p.next()
			prefix = true
		}
		if prefix {
			pp := &PrefixPhrase{Field: field, Terms: terms, Boost: 1.0}
			p.applyBoost(&pp.Boost)
			return pp, true
		}
		ph := &Phrase{Field: field, Terms: terms, Boost: 1.0}
		p.applyBoost(&ph.Boost)
		return ph, true

	case tokIN:
		p.next()
		return p.parseSet(field)

	case tokLBracket, tokLBrace:
		return p.parseRange(field)

	default:
		p.errorf("unexpected token %q", t.text)
		return nil, false
	}
}

func (p *parser) applyBoost(dst *float64) {
	if p.peek().kind != tokCaret {
		return
	}
	p.next()
	t := p.next()
	v, err := strconv.ParseFloat(t.text, 64)
	if err != nil {
		p.errorf("invalid boost %q: %v", t.text, err)
		return
	}
	*dst = v
}

func (p *parser) parseSet(field string) (Node, bool) {
	if p.peek().kind != tokLBracket {
		p.errorf("expected [ after IN")
		return nil, false
	}
	p.next()
	var values []string
	for p.peek().kind != tokRBracket && p.peek().kind != tokEOF {
		t := p.next()
		values = append(values, normalizeLiteral(field, t.text))
	}
	if p.peek().kind == tokRBracket {
		p.next()
	} else {
		p.errorf("unterminated IN set for field %q", field)
	}
	return &Set{Field: field, Values: values}, true
}

func (p *parser) parseRange(field string) (Node, bool) {
	open := p.next() // [ or {
	inclusiveLower := open.kind == tokLBracket

	r := &Range{Field: field}
	if p.peek().kind != tokTO {
		t := p.next()
		if t.text != "*" {
			r.HasLower = true
			r.Lower = normalizeLiteral(field, t.text)
		}
	}
	if p.peek().kind != tokTO {
		p.errorf("expected TO in range for field %q", field)
		return nil, false
	}
	p.next()
	closeTok := tokRBracket
	if p.peek().kind != closeTok && p.peek().kind != tokRBrace {
		t := p.next()
		if t.text != "*" {
			r.HasUpper = true
			r.Upper = normalizeLiteral(field, t.text)
		}
	}
	end := p.next()
	inclusiveUpper := end.kind == tokRBracket
	if end.kind != tokRBracket && end.kind != tokRBrace {
		p.errorf("unterminated range for field %q", field)
	}
	r.InclusiveLower = inclusiveLower
	r.InclusiveUpper = inclusiveUpper
	return r, true
}

// tokenizeLiteral splits a quoted phrase into per-field literals. String
// fields run the analyzer so "Foo Bar" matches case- and form-folded tokens;
// other field types are split on whitespace only, since their values are
// parsed structurally by the executor rather than tokenized.
func tokenizeLiteral(field, s string) []string {
	if isStructuredField(field) {
		return strings.Fields(s)
	}
	return analyze(s)
}

func normalizeLiteral(field, s string) string {
	if isStructuredField(field) {
		return s
	}
	toks := analyze(s)
	if len(toks) == 0 {
		return s
	}
	return strings.Join(toks, " ")
}

// isStructuredField reports whether field holds a non-text scalar (integer,
// float, bool, date, IP, bytes) rather than analyzed text. The executor owns
// the authoritative schema; the parser only needs to know whether to
// tokenize, so it recognizes the column fields by name.
func isStructuredField(field string) bool {
	switch field {
	case "page_centrality", "host_centrality", "page_centrality_rank",
		"host_centrality_rank", "fetch_time_ms", "region", "safe",
		"pre_computed_score", "host_node_id", "inserted_at":
		return true
	default:
		return false
	}
}
