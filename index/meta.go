package index

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/iParadigms/seeker"
)

// indexMeta is meta.json at the index root: the UUIDs of committed segments,
// in deterministic descending-max-doc order.
type indexMeta struct {
	Segments []uuid.UUID `json:"segments"`
	// SortField records the index setting: segments are required to be
	// sorted internally by this column field descending.
	SortField string `json:"sort_field"`
}

func sortSegmentIDs(segs map[uuid.UUID]*segment) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(segs))
	for id := range segs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		mi, mj := segs[ids[i]].meta.MaxDocID, segs[ids[j]].meta.MaxDocID
		if mi != mj {
			return mi > mj
		}
		return ids[i].String() < ids[j].String()
	})
	return ids
}

// writeMeta persists meta.json via write-tempfile-then-rename: a crash
// before the rename leaves the prior meta.json (and thus the prior
// committed segment set) intact.
func writeMeta(root string, m indexMeta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return seeker.Errf("index.writeMeta", seeker.KindIO, err)
	}
	tmp := filepath.Join(root, ".meta.json.tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return seeker.Errf("index.writeMeta", seeker.KindIO, err)
	}
	if err := os.Rename(tmp, filepath.Join(root, "meta.json")); err != nil {
		return seeker.Errf("index.writeMeta", seeker.KindIO, err)
	}
	return nil
}

func readMeta(root string) (indexMeta, bool, error) {
	data, err := os.ReadFile(filepath.Join(root, "meta.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return indexMeta{SortField: "pre_computed_score"}, false, nil
		}
		return indexMeta{}, false, seeker.Errf("index.readMeta", seeker.KindIO, err)
	}
	var m indexMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return indexMeta{}, false, seeker.Errf("index.readMeta", seeker.KindConsistency, err)
	}
	return m, true, nil
}
