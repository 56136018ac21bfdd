package webgraph

import "unicode/utf8"

// MaxLabelBytes caps an edge label; labels exceeding it are truncated at a
// UTF-8 character boundary rather than mid-rune.
const MaxLabelBytes = 1024

// RelFlags is a bitset over HTML rel values and DOM location hints applied
// to the anchor an edge came from.
type RelFlags uint32

const (
	RelNofollow RelFlags = 1 << iota
	RelSponsored
	RelUGC
	RelCanonical
	InFooter
	InNav
	LinkTag
	ScriptTag
	MetaTag
	SameICANNDomain
)

func (f RelFlags) Has(flag RelFlags) bool { return f&flag != 0 }

// Edge is one link from one page to another.
type Edge struct {
	From     NodeID
	To       NodeID
	Label    string
	RelFlags RelFlags
}

// TruncateLabel truncates label to at most MaxLabelBytes bytes, backing off
// to the nearest rune boundary so the result is always valid UTF-8.
func TruncateLabel(label string) string {
	if len(label) <= MaxLabelBytes {
		return label
	}
	end := MaxLabelBytes
	for end > 0 && !utf8.RuneStart(label[end]) {
		end--
	}
	return label[:end]
}

// NewEdge builds an Edge from two URLs and an anchor label, applying the
// label cap.
func NewEdge(fromURL, toURL, label string, flags RelFlags) Edge {
	return Edge{
		From:     NewNode(fromURL).ID(),
		To:       NewNode(toURL).ID(),
		Label:    TruncateLabel(label),
		RelFlags: flags,
	}
}
