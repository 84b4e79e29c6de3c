package treenode

import (
	"errors"
	"fmt"
	"testing"
)

type recordingMeter struct {
	lines []string
}

func (m *recordingMeter) Redraw(line string) {
	m.lines = append(m.lines, line)
}

func TestPrescanCountsOnlyHashCandidates(t *testing.T) {
	nodes := []Node{
		NewEnter(RootName, Attrs{}),
		NewSep(),
		NewFile("a.txt", Attrs{AttrKind: KindFile, AttrSize: "3"}),
		NewFile("l", Attrs{AttrKind: "lnk", AttrSize: "999"}),
		NewFile("b.txt", Attrs{AttrKind: KindFile, AttrSize: "7"}),
		NewLeave(),
	}
	st, err := Prescan(NewStream(SliceReader(nodes)))
	if err != nil {
		t.Fatalf("Prescan: %v", err)
	}
	if st.TotalFiles != 2 {
		t.Errorf("TotalFiles = %d, want 2", st.TotalFiles)
	}
	if st.TotalOctets != 10 {
		t.Errorf("TotalOctets = %d, want 10", st.TotalOctets)
	}
}

func TestUpdateMonotonicAndRedraws(t *testing.T) {
	meter := &recordingMeter{}
	st := &State{TotalFiles: 2, TotalOctets: 10, Meter: meter}

	st.Update(NewFile("a.txt", Attrs{AttrKind: KindFile, AttrSize: "3"}))
	if st.Files.Load() != 1 || st.Octets.Load() != 3 {
		t.Fatalf("after first update: files=%d octets=%d", st.Files.Load(), st.Octets.Load())
	}
	st.Update(NewFile("b.txt", Attrs{AttrKind: KindFile, AttrSize: "7"}))
	if st.Files.Load() != 2 || st.Octets.Load() != 10 {
		t.Fatalf("after second update: files=%d octets=%d", st.Files.Load(), st.Octets.Load())
	}
	if len(meter.lines) != 2 {
		t.Fatalf("expected 2 redraws, got %d", len(meter.lines))
	}
	for _, l := range meter.lines {
		fmt.Println(l) // visual sanity during `go test -v`
	}
}

// failingSource yields one node then a non-EOF error, simulating a
// corrupt or truncated prior tree (spec: "not a recoverable condition").
type failingSource struct {
	yielded bool
}

func (s *failingSource) Next() (Node, error) {
	if !s.yielded {
		s.yielded = true
		return NewEnter(RootName, Attrs{}), nil
	}
	return Node{}, errors.New("simulated corrupt tree")
}

func TestPrescanPropagatesNonEOFError(t *testing.T) {
	_, err := Prescan(&failingSource{})
	if err == nil {
		t.Fatal("Prescan should surface a non-EOF read error instead of treating it as end-of-stream")
	}
}

func TestSizeDefaultsToZeroWhenAbsent(t *testing.T) {
	n := NewFile("noSize", Attrs{AttrKind: KindFile})
	if got := size(n.Atts); got != 0 {
		t.Errorf("size() = %d, want 0", got)
	}
}
