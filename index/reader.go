package index

import "github.com/google/uuid"

// reader is an immutable snapshot of committed segments, in the index's
// deterministic meta.json order (descending max-doc). Readers opened before
// a commit keep seeing this snapshot until the index's reload replaces it.
type reader struct {
	order    []uuid.UUID
	segments map[uuid.UUID]*segment
}

func newReader(order []uuid.UUID, segs map[uuid.UUID]*segment) *reader {
	return &reader{order: order, segments: segs}
}

func (r *reader) segmentAt(ord int) *segment {
	if ord < 0 || ord >= len(r.order) {
		return nil
	}
	return r.segments[r.order[ord]]
}

func (r *reader) numSegments() int { return len(r.order) }

// columnFieldReader reads scalar forward values for the current doc from a
// segment's column store. It is cheap to Clone (shares the underlying
// slices) so every query gets its own handle without cross-query cache
// pollution.
type columnFieldReader struct {
	cols *columnFields
}

func newColumnFieldReader(s *segment) *columnFieldReader {
	return &columnFieldReader{cols: &s.columns}
}

func (c *columnFieldReader) Clone() *columnFieldReader {
	return &columnFieldReader{cols: c.cols}
}

func (c *columnFieldReader) PageCentrality(doc uint32) float64     { return c.cols.PageCentrality[doc] }
func (c *columnFieldReader) PageCentralityRank(doc uint32) uint64  { return c.cols.PageCentralityRank[doc] }
func (c *columnFieldReader) HostCentrality(doc uint32) float64     { return c.cols.HostCentrality[doc] }
func (c *columnFieldReader) HostCentralityRank(doc uint32) uint64  { return c.cols.HostCentralityRank[doc] }
func (c *columnFieldReader) FetchTimeMS(doc uint32) int64          { return c.cols.FetchTimeMS[doc] }
func (c *columnFieldReader) Region(doc uint32) uint64              { return c.cols.Region[doc] }
func (c *columnFieldReader) Safe(doc uint32) bool                  { return c.cols.Safe[doc] }
func (c *columnFieldReader) PreComputedScore(doc uint32) float64   { return c.cols.PreComputedScore[doc] }
func (c *columnFieldReader) HostNodeID(doc uint32) uint64          { return c.cols.HostNodeID[doc] }
func (c *columnFieldReader) InsertedAtUnixNano(doc uint32) int64   { return c.cols.InsertedAt[doc] }
