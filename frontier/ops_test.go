package frontier

import "testing"

func urlStatus(t *testing.T, s *Store, url string) URLStatus {
	t.Helper()
	var status URLStatus
	if err := s.db.QueryRow(`SELECT status FROM url WHERE url = ?`, url).Scan(&status); err != nil {
		t.Fatalf("query status of %q: %v", url, err)
	}
	return status
}

func incomingLinks(t *testing.T, s *Store, url string) int {
	t.Helper()
	var n int
	if err := s.db.QueryRow(`SELECT incoming_links FROM url WHERE url = ?`, url).Scan(&n); err != nil {
		t.Fatalf("query incoming_links of %q: %v", url, err)
	}
	return n
}

func TestInsertSeedURLs(t *testing.T) {
	s := newTestStore(t)
	err := s.InsertSeedURLs([]URLDomain{
		{URL: "http://a.com/", Domain: "a.com"},
		{URL: "http://b.com/", Domain: "b.com"},
	})
	if err != nil {
		t.Fatalf("InsertSeedURLs: %v", err)
	}
	if got := urlStatus(t, s, "http://a.com/"); got != Pending {
		t.Errorf("status = %v, want Pending", got)
	}
	if got := incomingLinks(t, s, "http://a.com/"); got != 0 {
		t.Errorf("incoming_links = %d, want 0", got)
	}
}

func TestInsertSeedURLsIgnoresExisting(t *testing.T) {
	s := newTestStore(t)
	seed := []URLDomain{{URL: "http://a.com/", Domain: "a.com"}}
	if err := s.InsertSeedURLs(seed); err != nil {
		t.Fatalf("first InsertSeedURLs: %v", err)
	}
	if err := s.InsertSeedURLs(seed); err != nil {
		t.Fatalf("second InsertSeedURLs: %v", err)
	}
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM url`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one url row, got %d", count)
	}
}

func TestInsertURLsSameDomainIncrementsLinks(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertSeedURLs([]URLDomain{{URL: "http://a.com/seed", Domain: "a.com"}}); err != nil {
		t.Fatalf("InsertSeedURLs: %v", err)
	}
	discovered := []URLDomain{{URL: "http://a.com/seed", Domain: "a.com"}}
	if err := s.InsertURLs("a.com", discovered); err != nil {
		t.Fatalf("InsertURLs: %v", err)
	}
	if got := incomingLinks(t, s, "http://a.com/seed"); got != 1 {
		t.Errorf("incoming_links = %d, want 1 after one same-domain rediscovery", got)
	}
}

func TestInsertURLsCrossDomainNewURL(t *testing.T) {
	s := newTestStore(t)
	discovered := []URLDomain{{URL: "http://b.com/page", Domain: "b.com"}}
	if err := s.InsertURLs("a.com", discovered); err != nil {
		t.Fatalf("InsertURLs: %v", err)
	}
	if got := incomingLinks(t, s, "http://b.com/page"); got != 1 {
		t.Errorf("incoming_links = %d, want 1 for a fresh cross-domain URL", got)
	}
}

func TestInsertURLsCrossDomainConflictIsNoop(t *testing.T) {
	s := newTestStore(t)
	discovered := []URLDomain{{URL: "http://b.com/page", Domain: "b.com"}}
	if err := s.InsertURLs("a.com", discovered); err != nil {
		t.Fatalf("first InsertURLs: %v", err)
	}
	// A second crawler discovers the same cross-domain URL again.
	if err := s.InsertURLs("c.com", discovered); err != nil {
		t.Fatalf("second InsertURLs: %v", err)
	}
	if got := incomingLinks(t, s, "http://b.com/page"); got != 1 {
		t.Errorf("incoming_links = %d, want unchanged at 1 on cross-domain conflict", got)
	}
}

func TestUpdateMaxInlinksDomains(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertSeedURLs([]URLDomain{{URL: "http://a.com/1", Domain: "a.com"}}); err != nil {
		t.Fatalf("InsertSeedURLs: %v", err)
	}
	if err := s.InsertURLs("a.com", []URLDomain{
		{URL: "http://a.com/1", Domain: "a.com"},
		{URL: "http://a.com/1", Domain: "a.com"},
	}); err != nil {
		t.Fatalf("InsertURLs: %v", err)
	}
	if err := s.UpdateMaxInlinksDomains([]string{"a.com"}); err != nil {
		t.Fatalf("UpdateMaxInlinksDomains: %v", err)
	}
	var max int
	if err := s.db.QueryRow(`SELECT max_incoming_links FROM domain WHERE domain = ?`, "a.com").Scan(&max); err != nil {
		t.Fatalf("query max_incoming_links: %v", err)
	}
	want := incomingLinks(t, s, "http://a.com/1")
	if want == 0 {
		t.Fatal("test fixture did not actually increment incoming_links")
	}
	if max != want {
		t.Errorf("max_incoming_links = %d, want to match the url's incoming_links %d", max, want)
	}
}

func TestUpdateURLStatusPlainOutcome(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertSeedURLs([]URLDomain{{URL: "http://a.com/", Domain: "a.com"}}); err != nil {
		t.Fatalf("InsertSeedURLs: %v", err)
	}
	err := s.UpdateURLStatus([]URLStatusUpdate{{URL: "http://a.com/", Status: Done}})
	if err != nil {
		t.Fatalf("UpdateURLStatus: %v", err)
	}
	if got := urlStatus(t, s, "http://a.com/"); got != Done {
		t.Errorf("status = %v, want Done", got)
	}
}

func TestUpdateURLStatusRedirect(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertSeedURLs([]URLDomain{{URL: "http://a.com/old", Domain: "a.com"}}); err != nil {
		t.Fatalf("InsertSeedURLs: %v", err)
	}
	err := s.UpdateURLStatus([]URLStatusUpdate{
		{URL: "http://a.com/old", RedirectTo: "http://a.com/new"},
	})
	if err != nil {
		t.Fatalf("UpdateURLStatus: %v", err)
	}
	if got := urlStatus(t, s, "http://a.com/old"); got != Done {
		t.Errorf("source status = %v, want Done", got)
	}
	if got := urlStatus(t, s, "http://a.com/new"); got != Done {
		t.Errorf("target status = %v, want Done", got)
	}
	var redirectCount int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM redirect WHERE from_url = ? AND to_url = ?`,
		"http://a.com/old", "http://a.com/new").Scan(&redirectCount); err != nil {
		t.Fatalf("query redirect: %v", err)
	}
	if redirectCount != 1 {
		t.Errorf("expected one redirect row, got %d", redirectCount)
	}
}

func TestSampleDomainsFavorsHigherWeight(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertSeedURLs([]URLDomain{
		{URL: "http://low.com/", Domain: "low.com"},
		{URL: "http://high.com/", Domain: "high.com"},
	}); err != nil {
		t.Fatalf("InsertSeedURLs: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE domain SET max_incoming_links = 1000 WHERE domain = ?`, "high.com"); err != nil {
		t.Fatalf("seed high weight: %v", err)
	}

	highWins := 0
	const trials = 200
	for i := 0; i < trials; i++ {
		sampled, err := s.SampleDomains(1)
		if err != nil {
			t.Fatalf("SampleDomains: %v", err)
		}
		if len(sampled) != 1 {
			t.Fatalf("expected exactly 1 sampled domain, got %d", len(sampled))
		}
		if sampled[0] == "high.com" {
			highWins++
		}
	}
	// With weight 1000 vs 0, high.com should win overwhelmingly but the
	// low-weight domain must never be structurally excluded from sampling.
	if highWins < trials*9/10 {
		t.Errorf("high.com won %d/%d draws, expected it to dominate", highWins, trials)
	}
}

func TestSampleDomainsOnlyPending(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertSeedURLs([]URLDomain{{URL: "http://a.com/", Domain: "a.com"}}); err != nil {
		t.Fatalf("InsertSeedURLs: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE domain SET status = ? WHERE domain = ?`, DomainInProgress, "a.com"); err != nil {
		t.Fatalf("mark in-progress: %v", err)
	}
	sampled, err := s.SampleDomains(10)
	if err != nil {
		t.Fatalf("SampleDomains: %v", err)
	}
	if len(sampled) != 0 {
		t.Fatalf("expected no pending domains to sample, got %v", sampled)
	}
}

func TestPrepareJobsTransitionsStatusAndFlagsFirstJob(t *testing.T) {
	s := newTestStore(t)
	if err := s.InsertSeedURLs([]URLDomain{
		{URL: "http://a.com/1", Domain: "a.com"},
		{URL: "http://a.com/2", Domain: "a.com"},
	}); err != nil {
		t.Fatalf("InsertSeedURLs: %v", err)
	}

	jobs, err := s.PrepareJobs([]string{"a.com"}, 10)
	if err != nil {
		t.Fatalf("PrepareJobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	job := jobs[0]
	if job.Domain != "a.com" || len(job.URLs) != 2 {
		t.Fatalf("unexpected job: %+v", job)
	}
	if !job.FetchSitemap {
		t.Error("expected FetchSitemap true on a domain's first job")
	}
	for _, u := range job.URLs {
		if got := urlStatus(t, s, u); got != Crawling {
			t.Errorf("url %q status = %v, want Crawling", u, got)
		}
	}
	var domainStatus DomainStatus
	if err := s.db.QueryRow(`SELECT status FROM domain WHERE domain = ?`, "a.com").Scan(&domainStatus); err != nil {
		t.Fatalf("query domain status: %v", err)
	}
	if domainStatus != DomainInProgress {
		t.Errorf("domain status = %v, want DomainInProgress", domainStatus)
	}
}

func TestPrepareJobsRespectsURLsPerJobLimit(t *testing.T) {
	s := newTestStore(t)
	urls := make([]URLDomain, 0, 5)
	for i := 0; i < 5; i++ {
		urls = append(urls, URLDomain{URL: "http://a.com/" + string(rune('a'+i)), Domain: "a.com"})
	}
	if err := s.InsertSeedURLs(urls); err != nil {
		t.Fatalf("InsertSeedURLs: %v", err)
	}
	jobs, err := s.PrepareJobs([]string{"a.com"}, 2)
	if err != nil {
		t.Fatalf("PrepareJobs: %v", err)
	}
	if len(jobs) != 1 || len(jobs[0].URLs) != 2 {
		t.Fatalf("expected a single job capped at 2 urls, got %+v", jobs)
	}
}

func TestPrepareJobsSkipsDomainsWithNoPendingURLs(t *testing.T) {
	s := newTestStore(t)
	jobs, err := s.PrepareJobs([]string{"missing.com"}, 10)
	if err != nil {
		t.Fatalf("PrepareJobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs for a domain with no urls, got %+v", jobs)
	}
}
