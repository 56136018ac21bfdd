package webgraph

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := Open(filepath.Join(t.TempDir(), "graph"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func mustInsertEdge(t *testing.T, g *Graph, from, to string) {
	t.Helper()
	if err := g.InsertEdge(Node{Name: from}, Node{Name: to}, "", 0); err != nil {
		t.Fatalf("InsertEdge(%s, %s): %v", from, to, err)
	}
}

// buildS4Graph builds the scenario S4 fixture: A->B, B->C, A->C, C->A, D->C.
func buildS4Graph(t *testing.T) *Graph {
	t.Helper()
	g := newTestGraph(t)
	mustInsertEdge(t, g, "A", "B")
	mustInsertEdge(t, g, "B", "C")
	mustInsertEdge(t, g, "A", "C")
	mustInsertEdge(t, g, "C", "A")
	mustInsertEdge(t, g, "D", "C")
	if err := g.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return g
}

// TestDistancesScenarioS4 is scenario S4: distances(D) over {A->B, B->C,
// A->C, C->A, D->C} must be {C:1, A:2, B:3} (plus the zero-distance source).
func TestDistancesScenarioS4(t *testing.T) {
	g := buildS4Graph(t)
	d := Node{Name: "D"}.ID()
	a := Node{Name: "A"}.ID()
	b := Node{Name: "B"}.ID()
	c := Node{Name: "C"}.ID()

	got, err := g.Reader().Distances(context.Background(), d)
	if err != nil {
		t.Fatalf("Distances: %v", err)
	}
	want := map[NodeID]uint8{d: 0, c: 1, a: 2, b: 3}
	if len(got) != len(want) {
		t.Fatalf("Distances(D) = %v, want %v", got, want)
	}
	for id, dist := range want {
		if got[id] != dist {
			t.Errorf("Distances(D)[%v] = %d, want %d", id, got[id], dist)
		}
	}
}

// TestReversedDistancesScenarioS4 is scenario S4's second half:
// reversed_distances(A) must be {C:1, D:2, B:2} (plus the zero-distance
// source).
func TestReversedDistancesScenarioS4(t *testing.T) {
	g := buildS4Graph(t)
	a := Node{Name: "A"}.ID()
	b := Node{Name: "B"}.ID()
	c := Node{Name: "C"}.ID()
	d := Node{Name: "D"}.ID()

	got, err := g.Reader().ReversedDistances(context.Background(), a)
	if err != nil {
		t.Fatalf("ReversedDistances: %v", err)
	}
	want := map[NodeID]uint8{a: 0, c: 1, b: 2, d: 2}
	if len(got) != len(want) {
		t.Fatalf("ReversedDistances(A) = %v, want %v", got, want)
	}
	for id, dist := range want {
		if got[id] != dist {
			t.Errorf("ReversedDistances(A)[%v] = %d, want %d", id, got[id], dist)
		}
	}
}

// TestPagesByHostReturnsSortedFromEndpoints exercises PagesByHost against a
// host-bucket placeholder: nodes whose upper 32 bits collide with a seen
// From endpoint's are returned, sorted ascending.
func TestPagesByHostReturnsSortedFromEndpoints(t *testing.T) {
	g := buildS4Graph(t)
	a := Node{Name: "A"}.ID()

	got := g.Reader().PagesByHost(hostPrefix(a))
	if len(got) == 0 {
		t.Fatal("expected at least one page bucketed under A's host prefix")
	}
	for i := 1; i < len(got); i++ {
		if got[i-1] > got[i] {
			t.Fatalf("PagesByHost result not sorted ascending: %v", got)
		}
	}
	var foundA bool
	for _, id := range got {
		if id == a {
			foundA = true
		}
	}
	if !foundA {
		t.Fatalf("expected A (a From endpoint) in PagesByHost(hostPrefix(A)), got %v", got)
	}
}

func TestOutgoingAndIngoingEdgesDedupByOppositeEndpoint(t *testing.T) {
	g := newTestGraph(t)
	mustInsertEdge(t, g, "A", "B")
	mustInsertEdge(t, g, "A", "B") // duplicate edge, same opposite endpoint
	mustInsertEdge(t, g, "A", "C")
	if err := g.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	a := Node{Name: "A"}.ID()

	out, err := g.Reader().OutgoingEdges(context.Background(), a, Unlimited())
	if err != nil {
		t.Fatalf("OutgoingEdges: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("OutgoingEdges(A) = %d edges, want 2 distinct opposites", len(out))
	}

	b := Node{Name: "B"}.ID()
	in, err := g.Reader().IngoingEdges(context.Background(), b, Unlimited())
	if err != nil {
		t.Fatalf("IngoingEdges: %v", err)
	}
	if len(in) != 1 {
		t.Fatalf("IngoingEdges(B) = %d edges, want 1 distinct opposite", len(in))
	}
}
