package treenode

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathTagged pairs a Node with the absolute logical path reached at that
// event (spec §3.2).
type PathTagged struct {
	Node Node
	Path string
}

// Tracker augments a node stream with the absolute path reached at each
// event (C3). It is stateful and must see every event of one tree in
// order — do not share a Tracker across two independent streams.
type Tracker struct {
	root     string
	subdirs  []string
	rootDone bool
}

// NewTracker creates a Tracker rooted at root. root replaces the
// sentinel name carried by the tree's outermost Enter (spec §4.3, N3).
func NewTracker(root string) *Tracker {
	return &Tracker{root: root}
}

// currentPath is the path of the innermost open directory.
func (t *Tracker) currentPath() string {
	if len(t.subdirs) == 0 {
		return t.root
	}
	return t.root + string(filepath.Separator) + strings.Join(t.subdirs, string(filepath.Separator))
}

// Advance feeds one Node through the tracker and returns its path-tagged
// form. A Leave arriving after the tree's outermost Leave has already
// been seen is an unbalanced Leave, a fatal invariant violation reported
// as an error.
func (t *Tracker) Advance(n Node) (PathTagged, error) {
	switch n.Kind {
	case Enter:
		if n.Name == RootName && len(t.subdirs) == 0 && !t.rootDone {
			return PathTagged{Node: n, Path: t.root}, nil
		}
		t.subdirs = append(t.subdirs, n.Name)
		return PathTagged{Node: n, Path: t.currentPath()}, nil

	case Leave:
		if len(t.subdirs) > 0 {
			p := t.currentPath()
			t.subdirs = t.subdirs[:len(t.subdirs)-1]
			return PathTagged{Node: n, Path: p}, nil
		}
		if !t.rootDone {
			t.rootDone = true
			return PathTagged{Node: n, Path: t.root}, nil
		}
		return PathTagged{}, fmt.Errorf("treenode: unbalanced Leave with empty path stack")

	case Sep:
		return PathTagged{Node: n, Path: t.currentPath()}, nil

	case File:
		return PathTagged{Node: n, Path: filepath.Join(t.currentPath(), n.Name)}, nil

	default:
		return PathTagged{}, fmt.Errorf("treenode: unknown node kind %v", n.Kind)
	}
}

// TrackedStream adapts a *Stream into a stream of PathTagged events by
// running every node through a Tracker.
type TrackedStream struct {
	src     *Stream
	tracker *Tracker
}

// Track wraps src so every node it emits carries its absolute path.
func Track(src *Stream, root string) *TrackedStream {
	return &TrackedStream{src: src, tracker: NewTracker(root)}
}

// Next returns the next path-tagged node, or io.EOF at the end of src.
func (t *TrackedStream) Next() (PathTagged, error) {
	n, err := t.src.Next()
	if err != nil {
		return PathTagged{}, err
	}
	return t.tracker.Advance(n)
}
