package webgraph

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/iParadigms/seeker"
)

// graphMeta is meta.json at a graph root: the UUIDs of committed segments in
// the order they were added. Segments added by a single merge follow the
// older ones in no particular order among themselves.
type graphMeta struct {
	Segments []uuid.UUID `json:"segments"`
}

func writeMeta(root string, m graphMeta) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return seeker.Errf("webgraph.writeMeta", seeker.KindIO, err)
	}
	tmp := filepath.Join(root, ".meta.json.tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return seeker.Errf("webgraph.writeMeta", seeker.KindIO, err)
	}
	return os.Rename(tmp, filepath.Join(root, "meta.json"))
}

func readMeta(root string) (graphMeta, bool, error) {
	data, err := os.ReadFile(filepath.Join(root, "meta.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return graphMeta{}, false, nil
		}
		return graphMeta{}, false, seeker.Errf("webgraph.readMeta", seeker.KindIO, err)
	}
	var m graphMeta
	if err := json.Unmarshal(data, &m); err != nil {
		return graphMeta{}, false, seeker.Errf("webgraph.readMeta", seeker.KindConsistency, err)
	}
	return m, true, nil
}
