package hashpipe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kvasari/surehash/internal/treenode"
)

func TestThreadedHasherMatchesDirectHasher(t *testing.T) {
	root := t.TempDir()
	nodes := writeSampleTree(t, root)

	directStore := newFakeStore()
	directTracked := treenode.Track(treenode.NewStream(treenode.SliceReader(nodes)), root)
	direct := NewDirectHasher(directStore, nil)
	if err := direct.Run(context.Background(), directTracked); err != nil {
		t.Fatalf("direct Run: %v", err)
	}

	threadedStore := newFakeStore()
	threadedTracked := treenode.Track(treenode.NewStream(treenode.SliceReader(nodes)), root)
	threaded := NewThreadedHasher(threadedStore, nil, 4, 2)
	if err := threaded.Run(context.Background(), threadedTracked); err != nil {
		t.Fatalf("threaded Run: %v", err)
	}

	if len(directStore.rows) != len(threadedStore.rows) {
		t.Fatalf("row count mismatch: direct=%d threaded=%d", len(directStore.rows), len(threadedStore.rows))
	}
	for idx, sum := range directStore.rows {
		got, ok := threadedStore.rows[idx]
		if !ok {
			t.Fatalf("threaded store missing index %d", idx)
		}
		if got != sum {
			t.Fatalf("index %d: direct=%x threaded=%x", idx, sum, got)
		}
	}
}

func TestThreadedHasherSkipsUnreadableFile(t *testing.T) {
	root := t.TempDir()
	nodes := []treenode.Node{
		treenode.NewEnter(treenode.RootName, treenode.Attrs{}),
		treenode.NewSep(),
		treenode.NewFile("missing.txt", treenode.Attrs{treenode.AttrKind: treenode.KindFile, treenode.AttrSize: "0"}),
		treenode.NewLeave(),
	}
	store := newFakeStore()
	tracked := treenode.Track(treenode.NewStream(treenode.SliceReader(nodes)), root)
	h := NewThreadedHasher(store, nil, 3, 2)

	if err := h.Run(context.Background(), tracked); err != nil {
		t.Fatalf("Run should not fail on an unreadable file: %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("expected no rows for an unreadable file, got %d", len(store.rows))
	}
}

func TestThreadedHasherSingleWorker(t *testing.T) {
	root := t.TempDir()
	nodes := writeSampleTree(t, root)
	store := newFakeStore()
	tracked := treenode.Track(treenode.NewStream(treenode.SliceReader(nodes)), root)
	h := NewThreadedHasher(store, nil, 1, 1)

	if err := h.Run(context.Background(), tracked); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(store.rows))
	}
}

// failingStore fails every Insert, simulating a fatal SQL error (spec §7's
// "SQL step returned non-DONE") from inside the collector.
type failingStore struct{}

func (failingStore) Insert(context.Context, uint64, [20]byte) error {
	return errors.New("simulated disk-full write failure")
}

// TestThreadedHasherCollectorErrorTerminatesRun guards against a deadlock:
// a fatal collector error must unblock every worker and submit rather than
// wedge them on a channel nobody drains any more.
func TestThreadedHasherCollectorErrorTerminatesRun(t *testing.T) {
	root := t.TempDir()
	var nodes []treenode.Node
	nodes = append(nodes, treenode.NewEnter(treenode.RootName, treenode.Attrs{}))
	nodes = append(nodes, treenode.NewSep())
	// Enough files, with a small channel bound, that the work/finish
	// channels genuinely fill up once the collector stops draining.
	const fileCount = 50
	for i := 0; i < fileCount; i++ {
		name := fmt.Sprintf("f%02d.txt", i)
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		nodes = append(nodes, treenode.NewFile(name, treenode.Attrs{treenode.AttrKind: treenode.KindFile, treenode.AttrSize: "1"}))
	}
	nodes = append(nodes, treenode.NewLeave())

	tracked := treenode.Track(treenode.NewStream(treenode.SliceReader(nodes)), root)
	h := NewThreadedHasher(failingStore{}, nil, 4, 2)

	errCh := make(chan error, 1)
	go func() { errCh <- h.Run(context.Background(), tracked) }()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("Run should fail when every Insert errors")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not terminate after a fatal collector error; workers/submit likely deadlocked")
	}
}
