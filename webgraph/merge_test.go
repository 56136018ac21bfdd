package webgraph

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestMergeSegmentsDedupsExactEdges(t *testing.T) {
	a := newSegment(uuid.New(), []Edge{
		{From: 1, To: 2, Label: "l"},
		{From: 1, To: 3, Label: "m"},
	})
	b := newSegment(uuid.New(), []Edge{
		{From: 1, To: 2, Label: "l"}, // exact duplicate of a's first edge
		{From: 2, To: 3, Label: "n"},
	})

	merged, err := mergeSegments([]*segment{a, b})
	if err != nil {
		t.Fatalf("mergeSegments: %v", err)
	}
	if len(merged.records) != 3 {
		t.Fatalf("merged segment has %d records, want 3 (one duplicate collapsed)", len(merged.records))
	}
}

// TestMergeIntoMaxSegmentsPropagatesWriteError ensures a bucket merge
// failure surfaces as an error from MergeIntoMaxSegments rather than being
// silently dropped (a concurrent merge's os.Create failure must not be
// masked by a results[i] == nil check that runs before the errs[i] check).
func TestMergeIntoMaxSegmentsPropagatesWriteError(t *testing.T) {
	g := newTestGraph(t)
	mustInsertEdge(t, g, "A", "B")
	if err := g.Commit(); err != nil {
		t.Fatalf("Commit 1: %v", err)
	}
	mustInsertEdge(t, g, "B", "C")
	if err := g.Commit(); err != nil {
		t.Fatalf("Commit 2: %v", err)
	}
	if got := len(g.allSegs); got != 2 {
		t.Fatalf("expected 2 segments before merge, got %d", got)
	}

	// Point the graph at a root whose parent does not exist: os.Create in
	// segment.writeTo fails with ENOENT since it never creates directories.
	g.root = filepath.Join(t.TempDir(), "missing", "nested", "root")

	err := g.MergeIntoMaxSegments(1)
	if err == nil {
		t.Fatal("expected MergeIntoMaxSegments to return the write error, got nil")
	}
	if got := len(g.allSegs); got != 2 {
		t.Fatalf("expected the original 2 segments to survive a failed merge, got %d", got)
	}
}

func TestSortSegmentsByRecordCountDesc(t *testing.T) {
	small := newSegment(uuid.New(), []Edge{{From: 1, To: 2}})
	big := newSegment(uuid.New(), []Edge{{From: 1, To: 2}, {From: 2, To: 3}, {From: 3, To: 4}})
	segs := []*segment{small, big}
	sortSegmentsByRecordCountDesc(segs)
	if segs[0] != big {
		t.Fatal("expected the segment with more records first")
	}
}
