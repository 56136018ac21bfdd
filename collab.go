package seeker

import (
	"context"
	"time"
)

// DocumentSource is the external collaborator that produces Documents ready
// for index.Index.Insert: HTML-to-text extraction, tokenizer-registry
// analysis, and schema.org/microdata parsing all happen upstream of this
// interface. The core never parses HTML.
type DocumentSource interface {
	// Next returns the next normalized Document, or io.EOF when the source
	// is exhausted.
	Next(ctx context.Context) (*Document, error)
}

// CentralityStore is the read-only map the indexer consults per-document at
// index time to populate Document.PageCentrality/HostCentrality and their
// ranks. It is populated by the webgraph's offline centrality computation,
// which is out of scope for this module (the webgraph here exposes edges and
// traversals; turning those into a centrality score is a separate batch job
// downstream of webgraph.Reader).
type CentralityStore interface {
	// Centrality returns (value, rank, ok) for a NodeID. ok is false if the
	// node has no recorded centrality.
	Centrality(node uint64) (value float64, rank uint64, ok bool)
}

// FetchOutcome is what a Fetcher reports back for one URL in a frontier Job.
type FetchOutcome struct {
	URL        string
	StatusCode int
	RedirectTo string // set only when StatusCode is a redirect
	FetchedAt  time.Time
}

// Fetcher is the external collaborator that turns a frontier job's URL list
// into fetch outcomes. It owns DNS resolution, connection pooling, robots.txt
// enforcement and HTTP itself; none of that lives in this module (spec's
// Non-goals exclude the fetcher proper). The core only needs this much of
// its surface to close the loop from frontier.PrepareJobs back to
// frontier.UpdateURLStatus.
type Fetcher interface {
	// Fetch retrieves url and reports its outcome, or an error if the fetch
	// could not be attempted at all (DNS failure, connection refused, etc).
	Fetch(ctx context.Context, url string) (FetchOutcome, error)
}
