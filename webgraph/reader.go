package webgraph

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// EdgeLimit bounds how many edges a lookup returns. The zero value is
// Unlimited.
type EdgeLimit struct {
	n       int
	limited bool
}

// Unlimited returns every matching edge.
func Unlimited() EdgeLimit { return EdgeLimit{} }

// Limit caps a lookup at n edges, applied after deduplication by opposite
// endpoint so the cap reflects distinct neighbors, not raw edge count.
func Limit(n int) EdgeLimit { return EdgeLimit{n: n, limited: true} }

func (l EdgeLimit) apply(edges []Edge) []Edge {
	if !l.limited || len(edges) <= l.n {
		return edges
	}
	return edges[:l.n]
}

// reader is an immutable snapshot of a webgraph's committed segments.
// Multiple readers may be in use concurrently; a Merge builds a new reader
// and swaps it in rather than mutating one in place.
type reader struct {
	order []uuid.UUID
	segs  map[uuid.UUID]*segment
}

func newReader(order []uuid.UUID, segs map[uuid.UUID]*segment) *reader {
	return &reader{order: order, segs: segs}
}

func (r *reader) segmentList() []*segment {
	out := make([]*segment, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.segs[id])
	}
	return out
}

// fanOut runs fn over every segment concurrently, collecting results in
// segment order. fn cannot fail and ctx is not consulted, so the returned
// error is always nil.
func fanOut[T any](ctx context.Context, segs []*segment, fn func(*segment) []T) ([]T, error) {
	g, _ := errgroup.WithContext(ctx)
	results := make([][]T, len(segs))
	for i, seg := range segs {
		i, seg := i, seg
		g.Go(func() error {
			results[i] = fn(seg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []T
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}

// dedupByOpposite keeps, for each opposite endpoint, the first edge seen —
// segments are walked in meta.json order (see graphMeta), so "first" means
// from the earliest-listed segment.
func dedupByOpposite(edges []Edge, opposite func(Edge) NodeID) []Edge {
	seen := make(map[NodeID]struct{}, len(edges))
	out := make([]Edge, 0, len(edges))
	for _, e := range edges {
		id := opposite(e)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, e)
	}
	return out
}

// OutgoingEdges returns every distinct out-edge of from across all
// segments, in meta.json segment order, capped by limit.
func (r *reader) OutgoingEdges(ctx context.Context, from NodeID, limit EdgeLimit) ([]Edge, error) {
	edges, err := fanOut(ctx, r.segmentList(), func(s *segment) []Edge {
		return s.outgoing(from, 0)
	})
	if err != nil {
		return nil, err
	}
	edges = dedupByOpposite(edges, func(e Edge) NodeID { return e.To })
	return limit.apply(edges), nil
}

// IngoingEdges returns every distinct in-edge of to across all segments,
// capped by limit.
func (r *reader) IngoingEdges(ctx context.Context, to NodeID, limit EdgeLimit) ([]Edge, error) {
	edges, err := fanOut(ctx, r.segmentList(), func(s *segment) []Edge {
		return s.ingoing(to, 0)
	})
	if err != nil {
		return nil, err
	}
	edges = dedupByOpposite(edges, func(e Edge) NodeID { return e.From })
	return limit.apply(edges), nil
}

// RawOutgoingEdges and RawIngoingEdges return every matching edge without
// deduplication by opposite endpoint — used by callers (e.g. centrality
// computation) that need an edge's RelFlags and Label per occurrence rather
// than per distinct neighbor.
func (r *reader) RawOutgoingEdges(ctx context.Context, from NodeID, limit EdgeLimit) ([]Edge, error) {
	edges, err := fanOut(ctx, r.segmentList(), func(s *segment) []Edge {
		return s.outgoing(from, 0)
	})
	if err != nil {
		return nil, err
	}
	return limit.apply(edges), nil
}

func (r *reader) RawIngoingEdges(ctx context.Context, to NodeID, limit EdgeLimit) ([]Edge, error) {
	edges, err := fanOut(ctx, r.segmentList(), func(s *segment) []Edge {
		return s.ingoing(to, 0)
	})
	if err != nil {
		return nil, err
	}
	return limit.apply(edges), nil
}

// PagesByHost returns every distinct node id seen as the From endpoint of an
// edge whose hostPrefix equals host, sorted ascending. No FullNodeID is
// stored with an edge, so pages are grouped by the upper 32 bits of their
// own ids, not by the id of their host-only node; the pages of one host
// generally fall into different groups.
func (r *reader) PagesByHost(host NodeID) []NodeID {
	seen := make(map[NodeID]struct{})
	for _, s := range r.segmentList() {
		for _, rec := range s.records {
			if hostPrefix(rec.From) == host {
				seen[rec.From] = struct{}{}
			}
		}
	}
	out := make([]NodeID, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// hostPrefix buckets a node id by its upper 32 bits. PagesByHost groups
// pages by this value in place of a stored FullNodeID.Prefix.
func hostPrefix(id NodeID) NodeID {
	return id &^ 0xFFFFFFFF
}

const maxBFSDistance = 255 // fits the uint8 distances Distances returns

// Distances runs a breadth-first search outward from source along outgoing
// edges, capped at maxBFSDistance hops (a page more than 255 links deep from
// the seed is treated as unreached rather than overflowing the distance
// type). The search fans out one segment-scan per BFS level, not per node,
// to keep I/O bounded by graph depth rather than frontier size.
func (r *reader) Distances(ctx context.Context, source NodeID) (map[NodeID]uint8, error) {
	return r.bfs(ctx, source,
		func(s *segment, id NodeID) []Edge { return s.outgoing(id, 0) },
		func(e Edge) NodeID { return e.To },
	)
}

// ReversedDistances is Distances over the transposed graph: hop count via
// incoming edges, i.e. how far source is from being reachable.
func (r *reader) ReversedDistances(ctx context.Context, source NodeID) (map[NodeID]uint8, error) {
	return r.bfs(ctx, source,
		func(s *segment, id NodeID) []Edge { return s.ingoing(id, 0) },
		func(e Edge) NodeID { return e.From },
	)
}

// bfs walks neighbors level by level; opposite extracts the far endpoint of
// an edge returned by neighbors, since outgoing scans key on From and
// ingoing scans key on To. Checked once per level so a cancelled ctx stops
// the search before starting another full segment fan-out.
func (r *reader) bfs(ctx context.Context, source NodeID, neighbors func(*segment, NodeID) []Edge, opposite func(Edge) NodeID) (map[NodeID]uint8, error) {
	dist := map[NodeID]uint8{source: 0}
	frontier := []NodeID{source}
	segs := r.segmentList()

	for d := 1; len(frontier) > 0 && d <= maxBFSDistance; d++ {
		if err := ctx.Err(); err != nil {
			return dist, err
		}
		var mu sync.Mutex
		next := make(map[NodeID]struct{})

		var wg sync.WaitGroup
		for _, s := range segs {
			s := s
			wg.Add(1)
			go func() {
				defer wg.Done()
				local := make(map[NodeID]struct{})
				for _, id := range frontier {
					for _, e := range neighbors(s, id) {
						local[opposite(e)] = struct{}{}
					}
				}
				mu.Lock()
				for id := range local {
					next[id] = struct{}{}
				}
				mu.Unlock()
			}()
		}
		wg.Wait()

		var newFrontier []NodeID
		for id := range next {
			if _, seen := dist[id]; seen {
				continue
			}
			dist[id] = uint8(d)
			newFrontier = append(newFrontier, id)
		}
		frontier = newFrontier
	}
	return dist, nil
}
