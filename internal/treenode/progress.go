package treenode

import (
	"fmt"
	"io"
	"strconv"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// Meter is the minimal rendering surface the progress accounting needs
// (spec §9: "a small trait/interface"). Redraw is called with an
// already-formatted line; the concrete implementation decides how to
// present it (see internal/progressmeter). A nil Meter is valid and simply
// drops updates.
type Meter interface {
	Redraw(line string)
}

// NodeSource is satisfied by both *Stream and *MemoStream; Prescan only
// needs to pull nodes, not rewind them.
type NodeSource interface {
	Next() (Node, error)
}

// State is the running progress counters (spec §3.4). Files and Octets are
// atomic so a threaded hasher's collector can update them from a goroutine
// other than whichever one reads them for rendering.
type State struct {
	Files       atomic.Int64
	TotalFiles  int64
	Octets      atomic.Int64
	TotalOctets int64
	Meter       Meter
}

// size reads the "size" attribute, defaulting to 0 when absent or
// unparseable (spec §3.1: "size absent is treated as 0").
func size(a Attrs) int64 {
	v, ok := a.Get(AttrSize)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// Prescan iterates src once, counting every node that NeedsHash matches,
// and returns the resulting totals (spec §4.5). It must be called on a
// stream that has not yet been consumed for dispatch — callers typically
// pass a *MemoStream and Rewind it afterward for the real pass.
func Prescan(src NodeSource) (*State, error) {
	st := &State{}
	var files, octets int64
	for {
		n, err := src.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("treenode: prescan: %w", err)
		}
		if NeedsHash(n) {
			files++
			octets += size(n.Atts)
		}
	}
	st.TotalFiles = files
	st.TotalOctets = octets
	return st, nil
}

// Update records that node has just been hashed, advancing Files and
// Octets, then redraws the meter (if any) with the line format mandated by
// spec §4.5.
func (st *State) Update(node Node) {
	files := st.Files.Add(1)
	octets := st.Octets.Add(size(node.Atts))

	if st.Meter == nil {
		return
	}

	var filePct, bytePct float64
	if st.TotalFiles > 0 {
		filePct = float64(files) / float64(st.TotalFiles) * 100
	}
	if st.TotalOctets > 0 {
		bytePct = float64(octets) / float64(st.TotalOctets) * 100
	}

	line := fmt.Sprintf("  %d/%d (%5.1f%%) files, %s/%s (%5.1f%%) bytes",
		files, st.TotalFiles, filePct,
		humanize.IBytes(uint64(octets)), humanize.IBytes(uint64(st.TotalOctets)), bytePct,
	)
	st.Meter.Redraw(line)
}
