package webgraph

import (
	"sort"
	"testing"

	"github.com/google/uuid"
)

func TestNewSegmentSortsByFromThenTo(t *testing.T) {
	edges := []Edge{
		{From: 3, To: 1, Label: "c"},
		{From: 1, To: 2, Label: "a"},
		{From: 1, To: 1, Label: "b"},
	}
	seg := newSegment(uuid.New(), edges)

	if !sort.SliceIsSorted(seg.records, func(i, j int) bool {
		if seg.records[i].From != seg.records[j].From {
			return seg.records[i].From < seg.records[j].From
		}
		return seg.records[i].To < seg.records[j].To
	}) {
		t.Fatal("segment records not sorted by (from, to)")
	}
}

func TestSegmentOutgoingIngoing(t *testing.T) {
	edges := []Edge{
		{From: 1, To: 2, Label: "x"},
		{From: 1, To: 3, Label: "y"},
		{From: 2, To: 3, Label: "z"},
	}
	seg := newSegment(uuid.New(), edges)

	out := seg.outgoing(1, 0)
	if len(out) != 2 {
		t.Fatalf("outgoing(1) returned %d edges, want 2", len(out))
	}
	for _, e := range out {
		if e.From != 1 {
			t.Errorf("outgoing(1) returned edge with From=%v", e.From)
		}
	}

	in := seg.ingoing(3, 0)
	if len(in) != 2 {
		t.Fatalf("ingoing(3) returned %d edges, want 2", len(in))
	}
	for _, e := range in {
		if e.To != 3 {
			t.Errorf("ingoing(3) returned edge with To=%v", e.To)
		}
	}
}

func TestSegmentOutgoingLimit(t *testing.T) {
	edges := []Edge{
		{From: 1, To: 2},
		{From: 1, To: 3},
		{From: 1, To: 4},
	}
	seg := newSegment(uuid.New(), edges)
	out := seg.outgoing(1, 2)
	if len(out) != 2 {
		t.Fatalf("outgoing with limit 2 returned %d edges", len(out))
	}
}

func TestLabelRoundTrip(t *testing.T) {
	edges := []Edge{
		{From: 1, To: 2, Label: "first"},
		{From: 1, To: 3, Label: "second"},
	}
	seg := newSegment(uuid.New(), edges)
	out := seg.outgoing(1, 0)
	labels := map[string]bool{}
	for _, e := range out {
		labels[e.Label] = true
	}
	if !labels["first"] || !labels["second"] {
		t.Fatalf("labels not preserved through the concatenated blob: %v", labels)
	}
}
