package index

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/iParadigms/seeker"
)

// Index is a segmented, append-mostly inverted index rooted at one
// directory. Insert/Commit are single-writer; any number of readers may use
// Search concurrently against the snapshot established by the last Commit
// or Open.
type Index struct {
	root string

	mu      sync.Mutex // guards writer and the active reader swap
	w       *writer
	reader  *reader
	allSegs map[uuid.UUID]*segment
}

// Open opens an existing index directory or creates one if absent, per the
// write path's open() operation: a fresh index records pre_computed_score as
// its sort field.
func Open(root string, cfg seeker.Config) (*Index, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, seeker.Errf("index.Open", seeker.KindIO, err)
	}
	idx := &Index{
		root:    root,
		w:       newWriter(cfg.Index.WriterBufferBytes),
		allSegs: make(map[uuid.UUID]*segment),
	}
	meta, existed, err := readMeta(root)
	if err != nil {
		return nil, err
	}
	if existed {
		for _, id := range meta.Segments {
			s, err := readSegment(root, id)
			if err != nil {
				return nil, seeker.Errf("index.Open", seeker.KindConsistency, err)
			}
			idx.allSegs[id] = s
		}
	} else {
		if err := writeMeta(root, indexMeta{SortField: "pre_computed_score"}); err != nil {
			return nil, err
		}
	}
	idx.reader = newReader(meta.Segments, idx.allSegs)
	return idx, nil
}

// Insert appends d to the active write buffer. Not durable until Commit.
func (idx *Index) Insert(d *seeker.Document) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.w.insert(d)
}

// Commit seals the active segment (if non-empty), persists it, updates
// meta.json atomically, and reloads the reader snapshot. A commit over an
// empty buffer is a no-op: no empty segment is ever written.
func (idx *Index) Commit() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.w.empty() {
		return nil
	}
	seg := idx.w.seal()
	if err := seg.writeTo(idx.root); err != nil {
		return err
	}
	idx.allSegs[seg.id] = seg
	idx.w.reset()
	return idx.reloadLocked()
}

func (idx *Index) reloadLocked() error {
	order := sortSegmentIDs(idx.allSegs)
	if err := writeMeta(idx.root, indexMeta{Segments: order, SortField: "pre_computed_score"}); err != nil {
		return err
	}
	idx.reader = newReader(order, idx.allSegs)
	return nil
}

// Merge takes another, already-closed index's directory, moves its segment
// directories under self, and rewrites meta.json with the deduped union of
// both segment lists sorted by max-doc descending. The caller owns the
// (now-empty) donor directory afterward.
func (idx *Index) Merge(donorRoot string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	donorMeta, existed, err := readMeta(donorRoot)
	if err != nil {
		return err
	}
	if !existed {
		return nil
	}
	for _, id := range donorMeta.Segments {
		if _, already := idx.allSegs[id]; already {
			continue
		}
		src := filepath.Join(donorRoot, id.String())
		dst := filepath.Join(idx.root, id.String())
		if err := os.Rename(src, dst); err != nil {
			return seeker.Errf("index.Merge", seeker.KindIO, err)
		}
		s, err := readSegment(idx.root, id)
		if err != nil {
			return err
		}
		idx.allSegs[id] = s
	}
	return idx.reloadLocked()
}

// MergeIntoMaxSegments bin-packs the current segments into at most k
// buckets (greedy: largest segment first into the bucket with the smallest
// running total) and physically merges the segments in each non-empty
// bucket of more than one segment. Source segment files are unlinked only
// after their merged replacement has been committed.
func (idx *Index) MergeIntoMaxSegments(k int) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if k <= 0 || len(idx.allSegs) <= k {
		return nil
	}

	type bucket struct {
		segs  []*segment
		count int
	}
	buckets := make([]bucket, k)

	ordered := make([]*segment, 0, len(idx.allSegs))
	for _, s := range idx.allSegs {
		ordered = append(ordered, s)
	}
	sortSegmentsByDocCountDesc(ordered)

	for _, s := range ordered {
		minIdx := 0
		for i := range buckets {
			if buckets[i].count < buckets[minIdx].count {
				minIdx = i
			}
		}
		buckets[minIdx].segs = append(buckets[minIdx].segs, s)
		buckets[minIdx].count += s.meta.DocCount
	}

	var obsolete []uuid.UUID
	for _, b := range buckets {
		if len(b.segs) <= 1 {
			continue
		}
		merged, err := mergeSegments(b.segs)
		if err != nil {
			return err
		}
		if err := merged.writeTo(idx.root); err != nil {
			return err
		}
		for _, old := range b.segs {
			delete(idx.allSegs, old.id)
			obsolete = append(obsolete, old.id)
		}
		idx.allSegs[merged.id] = merged
	}
	if err := idx.reloadLocked(); err != nil {
		return err
	}
	for _, id := range obsolete {
		_ = os.RemoveAll(filepath.Join(idx.root, id.String()))
	}
	return nil
}

// Reader returns the current immutable snapshot for searching.
func (idx *Index) Reader() *reader {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.reader
}
