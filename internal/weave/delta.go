package weave

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kvasari/surehash/internal/retention"
)

// DeltaPath returns the file path a migration run writes delta number
// to under dir. Each delta is its own gzip-compressed file; the weave
// file format's own internal multi-version indexing by delta number is
// out of scope here (only the LineStream contract matters), so one
// physical file per delta is this repo's stand-in.
func DeltaPath(dir string, number int) string {
	return filepath.Join(dir, fmt.Sprintf("delta-%06d.weave.gz", number))
}

// DeltaRemover implements retention.DeltaRemover by deleting the delta
// file DeltaPath names for a given number.
type DeltaRemover struct {
	Dir string
}

// RemoveDelta implements retention.DeltaRemover.
func (r DeltaRemover) RemoveDelta(number int) error {
	err := os.Remove(DeltaPath(r.Dir, number))
	if errors.Is(err, os.ErrNotExist) {
		return retention.ErrDeltaAlreadyGone
	}
	return err
}
