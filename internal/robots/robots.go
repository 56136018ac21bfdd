// Package robots is a thin robots.txt policy cache: given a host's
// robots.txt body (however the caller fetched it — the actual HTTP fetch is
// an external collaborator, not this package's job), it parses, caches, and
// answers Allowed/CrawlDelay queries per user agent. Modeled on the
// teacher's fetcher.robotsMap, without the fetcher itself.
package robots

import (
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// Policy answers robots.txt queries for one host.
type Policy struct {
	group *robotstxt.Group
}

// Allowed reports whether path may be fetched under this policy.
func (p *Policy) Allowed(path string) bool {
	if p == nil || p.group == nil {
		return true
	}
	return p.group.Test(path)
}

// CrawlDelay is the host's requested delay between fetches, 0 if
// unspecified.
func (p *Policy) CrawlDelay() time.Duration {
	if p == nil || p.group == nil {
		return 0
	}
	return p.group.CrawlDelay
}

var defaultPolicy = func() *Policy {
	data, _ := robotstxt.FromBytes([]byte("User-agent: *\n"))
	return &Policy{group: data.FindGroup("*")}
}()

// Cache is a host -> Policy cache, parsed once per host per process
// lifetime; callers refresh it themselves (e.g. on a TTL) by calling Parse
// again.
type Cache struct {
	userAgent string

	mu       sync.RWMutex
	policies map[string]*Policy
}

func NewCache(userAgent string) *Cache {
	return &Cache{userAgent: userAgent, policies: make(map[string]*Policy)}
}

// Get returns the cached policy for host, or the permissive default policy
// if none has been parsed yet.
func (c *Cache) Get(host string) *Policy {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if p, ok := c.policies[host]; ok {
		return p
	}
	return defaultPolicy
}

// Parse parses body as host's robots.txt and caches the resulting policy,
// scoped to this Cache's user agent. A parse failure or a non-2xx fetch
// upstream should be reported by the caller as the default (permissive)
// policy instead of calling Parse.
func (c *Cache) Parse(host string, body []byte) (*Policy, error) {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, err
	}
	policy := &Policy{group: data.FindGroup(c.userAgent)}

	c.mu.Lock()
	c.policies[host] = policy
	c.mu.Unlock()
	return policy, nil
}

// Forget drops host's cached policy, forcing the next Get to fall back to
// the default policy until Parse is called again.
func (c *Cache) Forget(host string) {
	c.mu.Lock()
	delete(c.policies, host)
	c.mu.Unlock()
}
