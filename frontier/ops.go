package frontier

import (
	"database/sql"
	"math"
	"math/rand"
	"sort"

	"github.com/iParadigms/seeker"
)

// maxSQLiteParams is sqlite's default SQLITE_MAX_VARIABLE_NUMBER-derived
// batch ceiling; update_max_inlinks_domains chunks its domain list to stay
// under it rather than building one unbounded IN(...) clause.
const maxSQLiteParams = 32_784

// InsertSeedURLs inserts each URL as Pending with incoming_links=0 and its
// domain as Pending with max_incoming_links=0, ignoring rows that already
// exist.
func (s *Store) InsertSeedURLs(urls []URLDomain) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	for _, u := range urls {
		if err := s.insertDomainIfAbsent(tx, u.Domain); err != nil {
			tx.Rollback()
			return err
		}
		_, err := tx.tx.Exec(
			`INSERT OR IGNORE INTO url(url, domain, status, incoming_links) VALUES (?, ?, ?, 0)`,
			u.URL, u.Domain, Pending,
		)
		if err != nil {
			tx.Rollback()
			return seeker.Errf("frontier.InsertSeedURLs", seeker.KindIO, err)
		}
	}
	return tx.Commit()
}

// URLDomain pairs a URL with its already-extracted domain, avoiding a
// second parse inside the store.
type URLDomain struct {
	URL    string
	Domain string
}

func (s *Store) insertDomainIfAbsent(tx *Tx, domain string) error {
	s.mu.Lock()
	known := s.knownDomain(domain)
	s.mu.Unlock()
	if known {
		return nil
	}
	_, err := tx.tx.Exec(
		`INSERT OR IGNORE INTO domain(domain, max_incoming_links, status) VALUES (?, 0, ?)`,
		domain, DomainPending,
	)
	if err != nil {
		return seeker.Errf("frontier.insertDomainIfAbsent", seeker.KindIO, err)
	}
	s.mu.Lock()
	s.rememberDomain(domain)
	s.mu.Unlock()
	return nil
}

// InsertURLs records every URL discovered while crawling crawledDomain. A
// URL on crawledDomain increments incoming_links on conflict; a URL on any
// other domain is inserted fresh with incoming_links=1, and a same-domain
// conflict there is a no-op (the link was already counted). Every novel
// domain is added Pending.
func (s *Store) InsertURLs(crawledDomain string, discovered []URLDomain) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	for _, u := range discovered {
		if err := s.insertDomainIfAbsent(tx, u.Domain); err != nil {
			tx.Rollback()
			return err
		}
		var execErr error
		if u.Domain == crawledDomain {
			_, execErr = tx.tx.Exec(`
				INSERT INTO url(url, domain, status, incoming_links) VALUES (?, ?, ?, 1)
				ON CONFLICT(url) DO UPDATE SET incoming_links = incoming_links + 1
				WHERE url.status = ?`,
				u.URL, u.Domain, Pending, Pending)
		} else {
			_, execErr = tx.tx.Exec(`
				INSERT INTO url(url, domain, status, incoming_links) VALUES (?, ?, ?, 1)
				ON CONFLICT(url) DO NOTHING`,
				u.URL, u.Domain, Pending)
		}
		if execErr != nil {
			tx.Rollback()
			return seeker.Errf("frontier.InsertURLs", seeker.KindConstraint, execErr)
		}
	}
	return tx.Commit()
}

// UpdateMaxInlinksDomains recomputes max_incoming_links for each domain in
// domains from the max incoming_links among its Pending URLs (0 if none),
// chunked to respect sqlite's parameter limit.
func (s *Store) UpdateMaxInlinksDomains(domains []string) error {
	for start := 0; start < len(domains); start += maxSQLiteParams {
		end := start + maxSQLiteParams
		if end > len(domains) {
			end = len(domains)
		}
		if err := s.updateMaxInlinksBatch(domains[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) updateMaxInlinksBatch(batch []string) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	for _, d := range batch {
		_, err := tx.tx.Exec(`
			UPDATE domain SET max_incoming_links = (
				SELECT COALESCE(MAX(incoming_links), 0) FROM url
				WHERE url.domain = domain.domain AND url.status = ?
			) WHERE domain.domain = ?`,
			Pending, d)
		if err != nil {
			tx.Rollback()
			return seeker.Errf("frontier.UpdateMaxInlinksDomains", seeker.KindIO, err)
		}
	}
	return tx.Commit()
}

// URLStatusUpdate is one fetch outcome to apply in UpdateURLStatus.
type URLStatusUpdate struct {
	URL        string
	Status     URLStatus // Done or Failed
	ErrorCode  int       // HTTP status, meaningful when Status == Failed
	RedirectTo string    // non-empty when this fetch was a redirect
}

// UpdateURLStatus bulk-applies fetch outcomes. A redirect marks the source
// Done, inserts the target directly as Done (skipping a recrawl of the
// redirect chain), and records the redirect edge.
func (s *Store) UpdateURLStatus(updates []URLStatusUpdate) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	for _, u := range updates {
		if u.RedirectTo != "" {
			if _, err := tx.tx.Exec(`UPDATE url SET status = ? WHERE url = ?`, Done, u.URL); err != nil {
				tx.Rollback()
				return seeker.Errf("frontier.UpdateURLStatus", seeker.KindIO, err)
			}
			if _, err := tx.tx.Exec(
				`INSERT OR IGNORE INTO url(url, domain, status, incoming_links) VALUES (?, (SELECT domain FROM url WHERE url = ?), ?, 0)`,
				u.RedirectTo, u.URL, Done,
			); err != nil {
				tx.Rollback()
				return seeker.Errf("frontier.UpdateURLStatus", seeker.KindIO, err)
			}
			if _, err := tx.tx.Exec(
				`INSERT OR IGNORE INTO redirect(from_url, to_url) VALUES (?, ?)`, u.URL, u.RedirectTo,
			); err != nil {
				tx.Rollback()
				return seeker.Errf("frontier.UpdateURLStatus", seeker.KindIO, err)
			}
			continue
		}

		var errCode sql.NullInt64
		if u.Status == Failed {
			errCode = sql.NullInt64{Int64: int64(u.ErrorCode), Valid: true}
		}
		if _, err := tx.tx.Exec(
			`UPDATE url SET status = ?, error_code = ? WHERE url = ?`, u.Status, errCode, u.URL,
		); err != nil {
			tx.Rollback()
			return seeker.Errf("frontier.UpdateURLStatus", seeker.KindIO, err)
		}
	}
	return tx.Commit()
}

// SampleDomains draws a weighted-random sample of up to n Pending domains
// using the Efraimidis-Spirakis algorithm: each candidate gets key
// -ln(U)/(weight+1) for U ~ Uniform(0,1), and the n smallest keys win. A
// domain's weight is its max_incoming_links, so higher-centrality domains
// are exponentially more likely to be sampled without ever excluding
// low-centrality ones.
func (s *Store) SampleDomains(n int) ([]string, error) {
	rows, err := s.db.Query(`SELECT domain, max_incoming_links FROM domain WHERE status = ?`, DomainPending)
	if err != nil {
		return nil, seeker.Errf("frontier.SampleDomains", seeker.KindIO, err)
	}
	defer rows.Close()

	type keyed struct {
		domain string
		key    float64
	}
	var candidates []keyed
	for rows.Next() {
		var domain string
		var weight int64
		if err := rows.Scan(&domain, &weight); err != nil {
			return nil, seeker.Errf("frontier.SampleDomains", seeker.KindIO, err)
		}
		u := rand.Float64()
		if u <= 0 {
			u = math.SmallestNonzeroFloat64
		}
		key := -math.Log(u) / (float64(weight) + 1)
		candidates = append(candidates, keyed{domain: domain, key: key})
	}
	if err := rows.Err(); err != nil {
		return nil, seeker.Errf("frontier.SampleDomains", seeker.KindIO, err)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].key < candidates[j].key })
	if n > len(candidates) {
		n = len(candidates)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = candidates[i].domain
	}
	return out, nil
}

// Job is one domain's unit of crawl work.
type Job struct {
	Domain       string
	FetchSitemap bool
	URLs         []string
}

// PrepareJobs selects, for each sampled domain, the top urlsPerJob Pending
// URLs ordered by incoming_links descending, atomically transitions them to
// Crawling and the domain to InProgress, and returns the resulting jobs.
// FetchSitemap is set on a domain's first job (no URLs have been crawled
// there yet).
func (s *Store) PrepareJobs(domains []string, urlsPerJob int) ([]Job, error) {
	tx, err := s.Begin()
	if err != nil {
		return nil, err
	}

	jobs := make([]Job, 0, len(domains))
	for _, d := range domains {
		var crawled int
		if err := tx.tx.QueryRow(`SELECT COUNT(*) FROM url WHERE domain = ? AND status != ?`, d, Pending).Scan(&crawled); err != nil {
			tx.Rollback()
			return nil, seeker.Errf("frontier.PrepareJobs", seeker.KindIO, err)
		}

		rows, err := tx.tx.Query(
			`SELECT url FROM url WHERE domain = ? AND status = ? ORDER BY incoming_links DESC LIMIT ?`,
			d, Pending, urlsPerJob,
		)
		if err != nil {
			tx.Rollback()
			return nil, seeker.Errf("frontier.PrepareJobs", seeker.KindIO, err)
		}
		var urls []string
		for rows.Next() {
			var u string
			if err := rows.Scan(&u); err != nil {
				rows.Close()
				tx.Rollback()
				return nil, seeker.Errf("frontier.PrepareJobs", seeker.KindIO, err)
			}
			urls = append(urls, u)
		}
		rows.Close()
		if len(urls) == 0 {
			continue
		}

		for _, u := range urls {
			if _, err := tx.tx.Exec(`UPDATE url SET status = ? WHERE url = ?`, Crawling, u); err != nil {
				tx.Rollback()
				return nil, seeker.Errf("frontier.PrepareJobs", seeker.KindIO, err)
			}
		}
		if _, err := tx.tx.Exec(`UPDATE domain SET status = ? WHERE domain = ?`, DomainInProgress, d); err != nil {
			tx.Rollback()
			return nil, seeker.Errf("frontier.PrepareJobs", seeker.KindIO, err)
		}

		jobs = append(jobs, Job{Domain: d, FetchSitemap: crawled == 0,URLs: urls})
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return jobs, nil
}
