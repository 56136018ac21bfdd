package frontier

import (
	"database/sql"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"

	"github.com/iParadigms/seeker"
)

// domainCacheSize mirrors the teacher's AddedDomainsCacheSize: a bound on
// how many recently-seen domains Store remembers exist, so insert_urls
// doesn't re-query the domain table for every discovered URL within a
// transaction.
const domainCacheSize = 100_000

// Store is a single-process handle onto one frontier database. Each
// exported write operation runs inside its own Tx, which the operation
// commits or rolls back explicitly before returning (UpdateMaxInlinksDomains
// uses one Tx per chunk); SampleDomains reads without a transaction.
type Store struct {
	db *sql.DB

	mu          sync.Mutex
	domainCache *lru.Cache[string, bool]
}

// Open opens (creating if absent) a frontier database at path and applies
// the WAL/synchronous/temp_store/cache_size pragmas.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, seeker.Errf("frontier.Open", seeker.KindIO, err)
	}
	db.SetMaxOpenConns(1) // single-writer; sqlite serializes writers anyway

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, seeker.Errf("frontier.Open", seeker.KindIO, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, seeker.Errf("frontier.Open", seeker.KindIO, err)
	}

	cache, err := lru.New[string, bool](domainCacheSize)
	if err != nil {
		db.Close()
		return nil, seeker.Errf("frontier.Open", seeker.KindIO, err)
	}
	return &Store{db: db, domainCache: cache}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// knownDomain reports whether domain is cached as existing, without
// touching the database.
func (s *Store) knownDomain(domain string) bool {
	ok, _ := s.domainCache.Get(domain)
	return ok
}

func (s *Store) rememberDomain(domain string) {
	s.domainCache.Add(domain, true)
}
