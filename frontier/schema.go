// Package frontier is the persistent crawl frontier: a URL/domain state
// machine, weighted domain sampling, and job preparation, backed by
// modernc.org/sqlite the way the teacher's cassandra package backs the same
// kind of claim/release state machine with Cassandra.
package frontier

const schemaSQL = `
CREATE TABLE IF NOT EXISTS domain (
	domain              TEXT PRIMARY KEY,
	max_incoming_links  INTEGER NOT NULL DEFAULT 0,
	status              INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS url (
	url            TEXT PRIMARY KEY,
	domain         TEXT NOT NULL REFERENCES domain(domain),
	status         INTEGER NOT NULL DEFAULT 0,
	error_code     INTEGER,
	incoming_links INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS redirect (
	from_url TEXT NOT NULL,
	to_url   TEXT NOT NULL,
	PRIMARY KEY (from_url, to_url)
);

CREATE INDEX IF NOT EXISTS idx_url_domain_status ON url(domain, status);
CREATE INDEX IF NOT EXISTS idx_url_status ON url(status);
CREATE INDEX IF NOT EXISTS idx_domain_status ON domain(status);
`

// URLStatus is the url.status state machine: Pending -> Crawling ->
// {Done, Failed}. No back-transitions from Done or Failed.
type URLStatus int

const (
	Pending URLStatus = iota
	Crawling
	Failed
	Done
)

// DomainStatus is the domain.status state machine.
type DomainStatus int

const (
	DomainPending DomainStatus = iota
	DomainInProgress
)

// pragmas applied on every new connection. WAL plus synchronous=0 trades
// durability for throughput: a coordinator crash loses in-flight state, but
// uncommitted URLs simply re-appear as Pending on restart since nothing
// ever transitions them out of Pending without a commit.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=0",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA cache_size=-64000",
	"PRAGMA foreign_keys=ON",
}
