package webgraph

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/iParadigms/seeker"
	"github.com/iParadigms/seeker/webgraph/id2node"
)

// Graph is a segmented, append-mostly link graph rooted at one directory,
// mirroring index.Index's write/commit/merge shape: InsertEdge is
// single-writer, any number of readers may use OutgoingEdges/Distances/etc
// concurrently against the snapshot established by the last Commit or Open.
type Graph struct {
	root string
	ids  *id2node.Store

	mu      sync.Mutex
	w       *writer
	reader  *reader
	allSegs map[uuid.UUID]*segment
}

// Open opens an existing graph directory or creates one if absent.
func Open(root string) (*Graph, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, seeker.Errf("webgraph.Open", seeker.KindIO, err)
	}
	ids, err := id2node.Open(filepath.Join(root, "id2node.bolt"))
	if err != nil {
		return nil, err
	}

	g := &Graph{
		root:    root,
		ids:     ids,
		w:       newWriter(0),
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
				return nil, seeker.Errf("webgraph.Open", seeker.KindConsistency, err)
			}
			g.allSegs[id] = s
		}
	}
	g.reader = newReader(meta.Segments, g.allSegs)
	return g, nil
}

// InsertEdge registers both endpoints' names in id2node and buffers the edge
// for the next Commit. Not durable until Commit.
func (g *Graph) InsertEdge(from, to Node, label string, flags RelFlags) error {
	fromID, toID := from.ID(), to.ID()
	if err := g.ids.Put(uint64(fromID), from.Name); err != nil {
		return err
	}
	if err := g.ids.Put(uint64(toID), to.Name); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.w.Insert(Edge{From: fromID, To: toID, Label: TruncateLabel(label), RelFlags: flags})
	return nil
}

// Commit flushes the buffered edges into a new segment, persists it, and
// refreshes the id2node FST and meta.json. A no-op if nothing was buffered
// since the last Commit.
func (g *Graph) Commit() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.w.Len() == 0 {
		return nil
	}
	seg := g.w.Flush()
	if seg == nil {
		return nil
	}
	if err := seg.writeTo(g.root); err != nil {
		return err
	}
	g.allSegs[seg.id] = seg

	if err := g.ids.Flush(); err != nil {
		return err
	}
	return g.reloadLocked()
}

func (g *Graph) reloadLocked() error {
	// Segments already in the snapshot keep their order; segments added
	// since are appended after them.
	ids := make([]uuid.UUID, 0, len(g.allSegs))
	listed := make(map[uuid.UUID]bool, len(g.allSegs))
	for _, id := range g.reader.order {
		if _, ok := g.allSegs[id]; ok {
			ids = append(ids, id)
			listed[id] = true
		}
	}
	for id := range g.allSegs {
		if !listed[id] {
			ids = append(ids, id)
		}
	}
	if err := writeMeta(g.root, graphMeta{Segments: ids}); err != nil {
		return err
	}
	g.reader = newReader(ids, g.allSegs)
	return nil
}

// Reader returns the snapshot established by the last Commit or Open.
func (g *Graph) Reader() *reader {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.reader
}

// Close releases the id2node store's file handle.
func (g *Graph) Close() error {
	return g.ids.Close()
}
