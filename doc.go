// Package seeker holds the types shared across the index, webgraph and
// frontier packages: the Document the inverted index ingests, the
// collaborator interfaces the core talks to, structured errors, and process
// configuration. It deliberately carries no package-level state — every
// constructor in this module takes what it needs explicitly, so two indexes
// (or two frontiers) can coexist in one process without fighting over a
// global.
package seeker

import "time"

// SchemaOrgItem is a single parsed schema.org/microdata item attached to a
// Document. Parsing HTML microdata into this shape is the extractor's job
// (out of scope here); the index only stores and serves it back.
type SchemaOrgItem struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}

// Document is the normalized unit the inverted index ingests. Every field
// below is expected to already be populated by the document source; the
// index performs no HTML parsing, tokenizer-registry lookups, or schema.org
// extraction of its own.
type Document struct {
	// URL is the canonical, already-normalized URL. Inserting the same URL
	// twice before a Commit overwrites the buffered document; a document
	// already committed to a segment is not replaced, and both copies stay
	// in the index.
	URL string

	Title       string
	CleanBody   string // extracted, readable body text
	DirtyBody   string // full body text, pre-extraction
	Description string
	DMOZDescription string

	// HostNodeID is the u64 hash of the registrable host, shared with the
	// webgraph's NodeID space so ranking signals and webgraph lookups agree
	// on identity.
	HostNodeID uint64

	PageCentrality     float64
	PageCentralityRank uint64
	HostCentrality     float64
	HostCentralityRank uint64

	FetchTimeMS int64
	Language    string
	Region      uint64

	SchemaOrgItems []SchemaOrgItem
	BacklinkAnchors []string

	// TitleEmbedding and KeywordEmbedding are optional and, when present,
	// must have the dimensionality agreed with the re-ranker collaborator.
	TitleEmbedding   []float32
	KeywordEmbedding []float32

	Safe bool

	InsertedAt time.Time
}

// PreComputedScore is the index-time float that segments are sorted by
// internally (descending), the substrate for short-circuit termination in
// index.SearchInitial. It is a fixed blend of the two centrality signals.
func (d *Document) PreComputedScore() float64 {
	return d.PageCentrality*0.7 + d.HostCentrality*0.3
}
