package webgraph

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"

	"github.com/iParadigms/seeker"
)

// edgeRecord is one edge plus its position in the segment's label blob.
type edgeRecord struct {
	From, To     NodeID
	RelFlags     RelFlags
	LabelOffset  int
	LabelLen     int
}

// segment is an immutable, sorted-by-(from,to) run of edges, with every
// edge label concatenated and LZ4-compressed into one blob so repeated
// anchor text (nav boilerplate, footers) compresses well across edges.
type segment struct {
	id      uuid.UUID
	records []edgeRecord
	labels  string // decompressed label blob, concatenation of every label
}

func newSegment(id uuid.UUID, edges []Edge) *segment {
	sorted := make([]Edge, len(edges))
	copy(sorted, edges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].From != sorted[j].From {
			return sorted[i].From < sorted[j].From
		}
		return sorted[i].To < sorted[j].To
	})

	var labels bytes.Buffer
	records := make([]edgeRecord, len(sorted))
	for i, e := range sorted {
		records[i] = edgeRecord{
			From: e.From, To: e.To, RelFlags: e.RelFlags,
			LabelOffset: labels.Len(), LabelLen: len(e.Label),
		}
		labels.WriteString(e.Label)
	}
	return &segment{id: id, records: records, labels: labels.String()}
}

func (s *segment) label(r edgeRecord) string {
	return s.labels[r.LabelOffset : r.LabelOffset+r.LabelLen]
}

func (s *segment) edgeAt(i int) Edge {
	r := s.records[i]
	return Edge{From: r.From, To: r.To, Label: s.label(r), RelFlags: r.RelFlags}
}

// onDiskSegment is the gob-serializable form written to <uuid>.graphseg.
type onDiskSegment struct {
	Records        []edgeRecord
	CompressedLabels []byte
	LabelsLen      int
}

func (s *segment) writeTo(dir string) error {
	compressed := make([]byte, lz4.CompressBlockBound(len(s.labels)))
	var c lz4.Compressor
	n, err := c.CompressBlock([]byte(s.labels), compressed)
	if err != nil {
		return seeker.Errf("webgraph.segment.writeTo", seeker.KindIO, err)
	}
	onDisk := onDiskSegment{Records: s.records, CompressedLabels: compressed[:n], LabelsLen: len(s.labels)}

	path := filepath.Join(dir, s.id.String()+".graphseg")
	f, err := os.Create(path)
	if err != nil {
		return seeker.Errf("webgraph.segment.writeTo", seeker.KindIO, err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(onDisk); err != nil {
		return seeker.Errf("webgraph.segment.writeTo", seeker.KindIO, err)
	}
	return nil
}

func readSegment(dir string, id uuid.UUID) (*segment, error) {
	path := filepath.Join(dir, id.String()+".graphseg")
	f, err := os.Open(path)
	if err != nil {
		return nil, seeker.Errf("webgraph.segment.read", seeker.KindConsistency, err)
	}
	defer f.Close()

	var onDisk onDiskSegment
	if err := gob.NewDecoder(f).Decode(&onDisk); err != nil {
		return nil, seeker.Errf("webgraph.segment.read", seeker.KindConsistency, err)
	}

	labels := make([]byte, onDisk.LabelsLen)
	if _, err := lz4.UncompressBlock(onDisk.CompressedLabels, labels); err != nil {
		return nil, seeker.Errf("webgraph.segment.read", seeker.KindConsistency, err)
	}

	return &segment{id: id, records: onDisk.Records, labels: string(labels)}, nil
}

// outgoing returns every record whose From equals from, full edges.
func (s *segment) outgoing(from NodeID, limit int) []Edge {
	var out []Edge
	lo := sort.Search(len(s.records), func(i int) bool { return s.records[i].From >= from })
	for i := lo; i < len(s.records) && s.records[i].From == from; i++ {
		out = append(out, s.edgeAt(i))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// ingoing is a linear scan: records are sorted by (from, to), not (to,
// from), so there is no binary-search shortcut for the reverse direction
// within one segment.
func (s *segment) ingoing(to NodeID, limit int) []Edge {
	var out []Edge
	for i := range s.records {
		if s.records[i].To != to {
			continue
		}
		out = append(out, s.edgeAt(i))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
