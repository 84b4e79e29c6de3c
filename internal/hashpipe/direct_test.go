package hashpipe

import (
	"context"
	"crypto/sha1"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kvasari/surehash/internal/treenode"
)

// fakeStore is an in-memory Inserter used by tests in place of hashstore.Run.
type fakeStore struct {
	mu   sync.Mutex
	rows map[uint64][20]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[uint64][20]byte)}
}

func (s *fakeStore) Insert(_ context.Context, idx uint64, sha1 [20]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[idx] = sha1
	return nil
}

func sha1Of(data string) [20]byte {
	return sha1.Sum([]byte(data))
}

// writeSampleTree lays out root/sub/a.txt and root/b.txt on disk and
// returns the corresponding node stream, with the same shape
// pathtracker_test.go's buildSample uses so path expectations line up.
func writeSampleTree(t *testing.T, root string) []treenode.Node {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "a.txt"), []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "b.txt"), []byte("hello world"), 0o644); err != nil {
		t.Fatal(err)
	}

	return []treenode.Node{
		treenode.NewEnter(treenode.RootName, treenode.Attrs{}),
		treenode.NewEnter("sub", treenode.Attrs{}),
		treenode.NewSep(),
		treenode.NewFile("a.txt", treenode.Attrs{treenode.AttrKind: treenode.KindFile, treenode.AttrSize: "3"}),
		treenode.NewLeave(),
		treenode.NewSep(),
		treenode.NewFile("b.txt", treenode.Attrs{treenode.AttrKind: treenode.KindFile, treenode.AttrSize: "11"}),
		treenode.NewLeave(),
	}
}

func TestDirectHasherHashesEveryCandidate(t *testing.T) {
	root := t.TempDir()
	nodes := writeSampleTree(t, root)

	store := newFakeStore()
	tracked := treenode.Track(treenode.NewStream(treenode.SliceReader(nodes)), root)
	h := NewDirectHasher(store, nil)

	if err := h.Run(context.Background(), tracked); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(store.rows) != 2 {
		t.Fatalf("got %d hashed rows, want 2", len(store.rows))
	}
	wantA := sha1Of("abc")
	wantB := sha1Of("hello world")
	var gotA, gotB bool
	for _, sum := range store.rows {
		switch sum {
		case wantA:
			gotA = true
		case wantB:
			gotB = true
		}
	}
	if !gotA || !gotB {
		t.Fatalf("missing expected hash: gotA=%v gotB=%v", gotA, gotB)
	}
}

func TestDirectHasherSkipsUnreadableFile(t *testing.T) {
	root := t.TempDir()
	nodes := []treenode.Node{
		treenode.NewEnter(treenode.RootName, treenode.Attrs{}),
		treenode.NewSep(),
		treenode.NewFile("missing.txt", treenode.Attrs{treenode.AttrKind: treenode.KindFile, treenode.AttrSize: "0"}),
		treenode.NewLeave(),
	}
	store := newFakeStore()
	tracked := treenode.Track(treenode.NewStream(treenode.SliceReader(nodes)), root)
	h := NewDirectHasher(store, nil)

	if err := h.Run(context.Background(), tracked); err != nil {
		t.Fatalf("Run should not fail on an unreadable file: %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("expected no rows for an unreadable file, got %d", len(store.rows))
	}
}
