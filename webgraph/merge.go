package webgraph

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/iParadigms/seeker"
	"github.com/iParadigms/seeker/internal/semaphore"
)

func sortSegmentsByRecordCountDesc(segs []*segment) {
	sort.Slice(segs, func(i, j int) bool { return len(segs[i].records) > len(segs[j].records) })
}

// mergeSegments concatenates every source segment's edges into one new
// segment, collapsing exact duplicates (same From, To, and Label) that
// accumulate when a page is recrawled and re-emits the same links.
func mergeSegments(segs []*segment) (*segment, error) {
	type key struct {
		from, to NodeID
		label    string
	}
	seen := make(map[key]struct{})
	var merged []Edge
	for _, s := range segs {
		for i := range s.records {
			e := s.edgeAt(i)
			k := key{from: e.From, to: e.To, label: e.Label}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, e)
		}
	}
	return newSegment(uuid.New(), merged), nil
}

// MergeFrom takes another, already-closed graph's directory, moves its
// segment files under self, and rewrites meta.json with the union of both
// segment lists. The caller owns the (now-empty) donor directory afterward.
func (g *Graph) MergeFrom(donorRoot string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	donorMeta, existed, err := readMeta(donorRoot)
	if err != nil {
		return err
	}
	if !existed {
		return nil
	}
	for _, id := range donorMeta.Segments {
		if _, already := g.allSegs[id]; already {
			continue
		}
		src := filepath.Join(donorRoot, id.String()+".graphseg")
		dst := filepath.Join(g.root, id.String()+".graphseg")
		if err := os.Rename(src, dst); err != nil {
			return seeker.Errf("webgraph.MergeFrom", seeker.KindIO, err)
		}
		s, err := readSegment(g.root, id)
		if err != nil {
			return err
		}
		g.allSegs[id] = s
	}
	return g.reloadLocked()
}

// MergeIntoMaxSegments bin-packs the current segments into at most k
// buckets (greedy: largest segment first into the bucket with the smallest
// running edge count) and physically merges each bucket holding more than
// one segment. Each bucket merge runs in its own goroutine; the loop waits
// on a semaphore after every fourth bucket, so at most four merges run at
// once, since a full graph's buckets can each hold gigabytes of edges.
func (g *Graph) MergeIntoMaxSegments(k int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if k <= 0 || len(g.allSegs) <= k {
		return nil
	}

	type bucket struct {
		segs  []*segment
		count int
	}
	buckets := make([]bucket, k)

	ordered := make([]*segment, 0, len(g.allSegs))
	for _, s := range g.allSegs {
		ordered = append(ordered, s)
	}
	sortSegmentsByRecordCountDesc(ordered)

	for _, s := range ordered {
		minIdx := 0
		for i := range buckets {
			if buckets[i].count < buckets[minIdx].count {
				minIdx = i
			}
		}
		buckets[minIdx].segs = append(buckets[minIdx].segs, s)
		buckets[minIdx].count += len(s.records)
	}

	const maxConcurrentMerges = 4
	sem := semaphore.New()
	results := make([]*segment, len(buckets))
	errs := make([]error, len(buckets))

	for i, b := range buckets {
		if len(b.segs) <= 1 {
			continue
		}
		sem.Add(1)
		go func(i int, segs []*segment) {
			defer sem.Done()
			merged, err := mergeSegments(segs)
			if err != nil {
				errs[i] = err
				return
			}
			if err := merged.writeTo(g.root); err != nil {
				errs[i] = err
				return
			}
			results[i] = merged
		}(i, b.segs)
		if i%maxConcurrentMerges == maxConcurrentMerges-1 {
			sem.Wait()
		}
	}
	sem.Wait()

	for i, b := range buckets {
		if errs[i] != nil {
			return errs[i]
		}
		if results[i] == nil {
			continue
		}
		for _, old := range b.segs {
			delete(g.allSegs, old.id)
			_ = os.Remove(filepath.Join(g.root, old.id.String()+".graphseg"))
		}
		g.allSegs[results[i].id] = results[i]
	}
	return g.reloadLocked()
}
