// Package webgraph stores the link graph between pages: nodes identified by
// a deterministic hash of their normalized URL, edges carrying an HTML rel
// bitset and a truncated anchor label, grouped into LZ4-compressed,
// append-only segments with a KV-backed id-to-node directory for reverse
// lookups.
package webgraph

import (
	"crypto/md5"
	"encoding/binary"
	"net/url"
	"sort"
	"strings"
)

// NodeID is the low 64 bits of MD5(normalized name). Collisions are
// accepted as the cost of a fixed-width, arena-free node identity: edges
// carry only NodeIDs, never pointers back to a Node.
type NodeID uint64

// Node is a normalized page or host identity in the graph.
type Node struct {
	Name string
}

// ID derives this node's NodeID deterministically, so two writers that see
// the same name never need to coordinate on an id.
func (n Node) ID() NodeID {
	sum := md5.Sum([]byte(n.Name))
	return NodeID(binary.BigEndian.Uint64(sum[8:]))
}

// FullNodeID pairs a node's id with the id of its host-only form, enabling
// host-locality bucketing in a sharded deployment without a second lookup.
type FullNodeID struct {
	Prefix NodeID
	ID     NodeID
}

// NewNode normalizes a raw URL into the canonical form stored as a Node
// name: lowercased, scheme stripped, a leading "www." stripped, and common
// tracking query parameters removed.
func NewNode(rawURL string) Node {
	return Node{Name: NormalizeURL(rawURL)}
}

// HostNode returns the host-only node this node's FullNodeID.Prefix refers
// to.
func HostNode(rawURL string) Node {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Node{Name: strings.ToLower(rawURL)}
	}
	return Node{Name: NormalizeURL(u.Scheme + "://" + u.Host)}
}

var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {},
	"utm_content": {}, "gclid": {}, "fbclid": {}, "msclkid": {}, "ref": {},
}

// NormalizeURL implements the Node(WG) normalization rule: lowercase,
// scheme-stripped, www.-stripped, tracking-query-stripped.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(strings.ToLower(strings.TrimSpace(rawURL)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(rawURL))
	}
	host := strings.TrimPrefix(u.Host, "www.")

	var kept []string
	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			if _, tracked := trackingParams[k]; tracked {
				q.Del(k)
			}
		}
		for k, vs := range q {
			for _, v := range vs {
				kept = append(kept, k+"="+v)
			}
		}
		sort.Strings(kept)
	}

	out := host + u.Path
	if len(kept) > 0 {
		out += "?" + strings.Join(kept, "&")
	}
	return out
}
