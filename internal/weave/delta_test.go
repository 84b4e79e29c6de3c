package weave

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kvasari/surehash/internal/retention"
)

func TestDeltaPathNaming(t *testing.T) {
	got := DeltaPath("/data/weave", 7)
	want := filepath.Join("/data/weave", "delta-000007.weave.gz")
	if got != want {
		t.Fatalf("DeltaPath = %q, want %q", got, want)
	}
}

func TestDeltaRemoverRemovesFile(t *testing.T) {
	dir := t.TempDir()
	path := DeltaPath(dir, 3)
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	remover := DeltaRemover{Dir: dir}
	if err := remover.RemoveDelta(3); err != nil {
		t.Fatalf("RemoveDelta: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected delta file to be gone, stat err = %v", err)
	}
}

func TestDeltaRemoverAlreadyGoneIsNotAnError(t *testing.T) {
	remover := DeltaRemover{Dir: t.TempDir()}
	err := remover.RemoveDelta(99)
	if !errors.Is(err, retention.ErrDeltaAlreadyGone) {
		t.Fatalf("RemoveDelta on a missing file = %v, want ErrDeltaAlreadyGone", err)
	}
}
