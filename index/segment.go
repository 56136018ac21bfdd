// Package index implements the segmented inverted index: the write path,
// the read path and its monotonic-seek ranking retrieval contract, and the
// glue that ties query execution to the ranking package.
package index

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/iParadigms/seeker"
)

// fieldPostings maps term -> posting list for one field.
type fieldPostings map[string]*posting

// posting is a field/term's postings: a sorted doc-id bitmap plus a parallel
// frequency slice aligned to the bitmap's iteration order (roaring bitmaps
// always iterate in ascending order, so this alignment is stable across
// reads).
type posting struct {
	docs  *roaring.Bitmap
	freqs []uint32
}

func newPosting() *posting {
	return &posting{docs: roaring.New()}
}

func (p *posting) add(docID uint32, freq uint32) {
	if p.docs.CheckedAdd(docID) {
		p.freqs = append(p.freqs, freq)
		return
	}
	// Duplicate term occurrence within the same document before commit:
	// fold into the existing frequency at its iteration position.
	idx := 0
	it := p.docs.Iterator()
	for it.HasNext() {
		d := it.Next()
		if d == docID {
			p.freqs[idx] += freq
			return
		}
		idx++
	}
}

// freqAt returns the frequency recorded for docID, and whether the posting
// contains docID at all. O(log n) via the bitmap rank, not a linear scan.
func (p *posting) freqAt(docID uint32) (uint32, bool) {
	if !p.docs.Contains(docID) {
		return 0, false
	}
	rank := p.docs.Rank(docID) // 1-based count of elements <= docID
	idx := int(rank) - 1
	if idx < 0 || idx >= len(p.freqs) {
		return 0, false
	}
	return p.freqs[idx], true
}

// storedDoc holds the retrievable (row-store) fields for one document.
type storedDoc struct {
	URL             string
	Title           string
	Body            string
	DirtyBody       string
	Description     string
	DMOZDescription string
	SchemaOrgItems  []seeker.SchemaOrgItem
	BacklinkAnchors []string
}

// columnFields holds the per-doc forward (column) values for one segment,
// keyed by field name. Cloning a ColumnFieldReader shares these slices
// read-only rather than copying them.
type columnFields struct {
	PageCentrality     []float64
	PageCentralityRank []uint64
	HostCentrality     []float64
	HostCentralityRank []uint64
	FetchTimeMS        []int64
	Region             []uint64
	Safe               []bool
	PreComputedScore   []float64
	HostNodeID         []uint64
	InsertedAt         []int64
}

// segmentMeta is the per-segment meta.json: document count, max doc id, and
// creation time.
type segmentMeta struct {
	DocCount   int       `json:"doc_count"`
	MaxDocID   uint32    `json:"max_doc_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// segment is an immutable, self-describing directory once sealed: per-field
// postings, column fields, fieldnorms, and a row store, identified by UUID.
// Segments are read-only after commit; the writer is the only mutator before
// that point.
type segment struct {
	id   uuid.UUID
	meta segmentMeta

	postings   map[string]fieldPostings // field -> term -> posting
	fieldnorms map[string][]uint32      // field -> per-doc token count
	columns    columnFields
	store      []storedDoc // indexed by local doc id
}

func newSegment(id uuid.UUID) *segment {
	return &segment{
		id:         id,
		postings:   make(map[string]fieldPostings),
		fieldnorms: make(map[string][]uint32),
	}
}

// onDiskPosting is the gob-serializable form of one term's posting in a
// sealed segment's postings file. Bitmaps marshal themselves; everything
// else is plain data.
type onDiskPosting struct {
	Docs  []byte // roaring bitmap wire format
	Freqs []uint32
}

func (s *segment) writeTo(dir string) error {
	segDir := filepath.Join(dir, s.id.String())
	if err := os.MkdirAll(segDir, 0o755); err != nil {
		return seeker.Errf("segment.writeTo", seeker.KindIO, err)
	}

	// .posting
	diskPostings := make(map[string]map[string]onDiskPosting, len(s.postings))
	for field, terms := range s.postings {
		m := make(map[string]onDiskPosting, len(terms))
		for term, p := range terms {
			buf, err := p.docs.ToBytes()
			if err != nil {
				return seeker.Errf("segment.writeTo", seeker.KindIO, err)
			}
			m[term] = onDiskPosting{Docs: buf, Freqs: p.freqs}
		}
		diskPostings[field] = m
	}
	if err := gobWrite(filepath.Join(segDir, "segment.posting"), diskPostings); err != nil {
		return err
	}

	// .fieldnorms
	if err := gobWrite(filepath.Join(segDir, "segment.fieldnorms"), s.fieldnorms); err != nil {
		return err
	}

	// .store: the row store holds retrievable body/title/description text,
	// which compresses well, so it's the one segment file written through
	// zstd rather than raw gob.
	if err := gobWriteCompressed(filepath.Join(segDir, "segment.store"), s.store); err != nil {
		return err
	}

	// .columnfield
	if err := gobWrite(filepath.Join(segDir, "segment.columnfield"), s.columns); err != nil {
		return err
	}

	// .meta.json
	data, err := json.MarshalIndent(s.meta, "", "  ")
	if err != nil {
		return seeker.Errf("segment.writeTo", seeker.KindIO, err)
	}
	if err := os.WriteFile(filepath.Join(segDir, "segment.meta.json"), data, 0o644); err != nil {
		return seeker.Errf("segment.writeTo", seeker.KindIO, err)
	}
	return nil
}

func readSegment(dir string, id uuid.UUID) (*segment, error) {
	segDir := filepath.Join(dir, id.String())

	metaBytes, err := os.ReadFile(filepath.Join(segDir, "segment.meta.json"))
	if err != nil {
		return nil, seeker.Errf("segment.read", seeker.KindConsistency, err)
	}
	var meta segmentMeta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, seeker.Errf("segment.read", seeker.KindConsistency, err)
	}

	s := newSegment(id)
	s.meta = meta

	var diskPostings map[string]map[string]onDiskPosting
	if err := gobRead(filepath.Join(segDir, "segment.posting"), &diskPostings); err != nil {
		return nil, err
	}
	for field, terms := range diskPostings {
		fp := make(fieldPostings, len(terms))
		for term, dp := range terms {
			bm := roaring.New()
			if err := bm.UnmarshalBinary(dp.Docs); err != nil {
				return nil, seeker.Errf("segment.read", seeker.KindConsistency, err)
			}
			fp[term] = &posting{docs: bm, freqs: dp.Freqs}
		}
		s.postings[field] = fp
	}

	if err := gobRead(filepath.Join(segDir, "segment.fieldnorms"), &s.fieldnorms); err != nil {
		return nil, err
	}
	if err := gobReadCompressed(filepath.Join(segDir, "segment.store"), &s.store); err != nil {
		return nil, err
	}
	if err := gobRead(filepath.Join(segDir, "segment.columnfield"), &s.columns); err != nil {
		return nil, err
	}

	return s, nil
}

func gobWrite(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return seeker.Errf("segment.gobWrite", seeker.KindIO, err)
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(v); err != nil {
		return seeker.Errf("segment.gobWrite", seeker.KindIO, err)
	}
	return nil
}

func gobRead(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return seeker.Errf("segment.gobRead", seeker.KindConsistency, err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return seeker.Errf("segment.gobRead", seeker.KindConsistency, err)
	}
	return nil
}

func gobWriteCompressed(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return seeker.Errf("segment.gobWriteCompressed", seeker.KindIO, err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return seeker.Errf("segment.gobWriteCompressed", seeker.KindIO, err)
	}
	if err := gob.NewEncoder(zw).Encode(v); err != nil {
		zw.Close()
		return seeker.Errf("segment.gobWriteCompressed", seeker.KindIO, err)
	}
	if err := zw.Close(); err != nil {
		return seeker.Errf("segment.gobWriteCompressed", seeker.KindIO, err)
	}
	return nil
}

func gobReadCompressed(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return seeker.Errf("segment.gobReadCompressed", seeker.KindConsistency, err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return seeker.Errf("segment.gobReadCompressed", seeker.KindConsistency, err)
	}
	defer zr.Close()
	if err := gob.NewDecoder(zr).Decode(v); err != nil {
		return seeker.Errf("segment.gobReadCompressed", seeker.KindConsistency, err)
	}
	return nil
}

// docIDsByScoreDesc returns every doc id in the segment sorted by
// pre_computed_score descending, breaking ties by ascending doc id. Doc ids
// are assigned in this order at seal time, so this exists mainly to verify
// that invariant in tests: doc_id -> pre_computed_score must be
// non-increasing for the short-circuit scan to be sound.
func (s *segment) docIDsByScoreDesc() []uint32 {
	n := len(s.store)
	ids := make([]uint32, n)
	for i := range ids {
		ids[i] = uint32(i)
	}
	scores := s.columns.PreComputedScore
	sort.Slice(ids, func(i, j int) bool {
		si, sj := scores[ids[i]], scores[ids[j]]
		if si != sj {
			return si > sj
		}
		return ids[i] < ids[j]
	})
	return ids
}

func (s *segment) String() string {
	return fmt.Sprintf("segment(%s, docs=%d)", s.id, s.meta.DocCount)
}
