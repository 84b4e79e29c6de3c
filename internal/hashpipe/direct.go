package hashpipe

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/kvasari/surehash/internal/treenode"
)

// Inserter is the hash-record sink both the direct and threaded hashers
// write through. hashstore.Run satisfies it.
type Inserter interface {
	Insert(ctx context.Context, idx uint64, sha1 [20]byte) error
}

// DirectHasher hashes one file at a time on the calling goroutine. It's
// the single-threaded baseline spec §8 scenario 6 checks the threaded
// hasher against: same input, same resulting hash set, regardless of
// which one produced it.
type DirectHasher struct {
	store   Inserter
	meter   *treenode.State
	hashers int // recorded for parity with ThreadedHasher's constructor shape; always 1
}

// NewDirectHasher builds a hasher that writes through store and reports
// progress through meter (nil meter is fine; HashFile then skips the
// progress update).
func NewDirectHasher(store Inserter, meter *treenode.State) *DirectHasher {
	return &DirectHasher{store: store, meter: meter, hashers: 1}
}

// HashFile reads path fully, computes its SHA-1, and inserts the result
// keyed by idx. An OS-level read failure is logged and swallowed — the
// node is simply left without a sha1 attribute (spec §7).
func (h *DirectHasher) HashFile(ctx context.Context, idx uint64, node treenode.Node, path string) error {
	sum, err := sha1File(path)
	if err != nil {
		slog.Warn("hashpipe: skipping unreadable file", "path", path, "error", err)
		return nil
	}
	if err := h.store.Insert(ctx, idx, sum); err != nil {
		return fmt.Errorf("hashpipe: direct insert idx=%d: %w", idx, err)
	}
	if h.meter != nil {
		h.meter.Update(node)
	}
	return nil
}

// Run drives src to completion, hashing every node treenode.NeedsHash
// selects. src is expected to already be path-tagged (treenode.Track).
// idx counts every node in the stream, not just hash candidates — the
// hashes table's index column is a position in the full path-tracked
// stream, with gaps where non-file nodes fell (spec's documented open
// question, preserved verbatim).
func (h *DirectHasher) Run(ctx context.Context, src *treenode.TrackedStream) error {
	var idx uint64
	for {
		tagged, err := src.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("hashpipe: direct run: %w", err)
		}
		if treenode.NeedsHash(tagged.Node) {
			if err := h.HashFile(ctx, idx, tagged.Node, tagged.Path); err != nil {
				return err
			}
		}
		idx++
	}
}

func sha1File(path string) ([20]byte, error) {
	var zero [20]byte
	f, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return zero, err
	}
	var sum [20]byte
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
