package webgraph

import "github.com/google/uuid"

// maxBatchSize is the default writer capacity. Insert reports when the
// buffer reaches it, but Graph.InsertEdge ignores that report: buffered
// edges go to a new on-disk segment only on Graph.Commit, however many
// there are.
const maxBatchSize = 1_000_000

// writer accumulates edges in memory and flushes them into sorted,
// LZ4-compressed segments. A writer is single-threaded; concurrent Insert
// calls must be serialized by the caller (Graph does this with its mutex).
type writer struct {
	buf []Edge
	cap int
}

func newWriter(cap int) *writer {
	if cap <= 0 {
		cap = maxBatchSize
	}
	return &writer{cap: cap}
}

// Insert buffers e. It reports whether the buffer is now at capacity and
// should be flushed.
func (w *writer) Insert(e Edge) bool {
	w.buf = append(w.buf, e)
	return len(w.buf) >= w.cap
}

func (w *writer) Len() int { return len(w.buf) }

// Flush builds a sorted segment from the buffered edges and clears the
// buffer. Returns nil if there is nothing buffered.
func (w *writer) Flush() *segment {
	if len(w.buf) == 0 {
		return nil
	}
	seg := newSegment(uuid.New(), w.buf)
	w.buf = nil
	return seg
}
