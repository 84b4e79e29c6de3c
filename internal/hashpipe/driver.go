package hashpipe

import (
	"context"
	"fmt"

	"github.com/kvasari/surehash/internal/hashstore"
	"github.com/kvasari/surehash/internal/treenode"
)

// Options configures a hash-update driver run (spec §4.8).
type Options struct {
	// Workers is the configured hash_workers count. A value <= 1
	// selects the single-threaded DirectHasher; anything greater
	// selects ThreadedHasher with that many worker goroutines.
	Workers int
	// ChannelBound is the configured channel_capacity used to bound
	// the work/finish channels when running threaded.
	ChannelBound int
	// Meter receives progress redraws as files are hashed (spec §4.5).
	// A nil Meter simply drops updates.
	Meter treenode.Meter
}

// Drive runs the full hash-update operation (spec §4.8): prescan src for
// progress totals, rewind it, open one transaction, hash every
// candidate through the configured hasher, and commit. Any fatal error
// aborts the transaction before returning.
func Drive(ctx context.Context, store *hashstore.Store, root string, src *treenode.MemoStream, opt Options) (*treenode.State, error) {
	state, err := treenode.Prescan(src)
	if err != nil {
		return nil, fmt.Errorf("hashpipe: prescan: %w", err)
	}
	if err := src.Rewind(); err != nil {
		return nil, fmt.Errorf("hashpipe: rewind after prescan: %w", err)
	}
	state.Meter = opt.Meter

	run, err := store.BeginRun(ctx)
	if err != nil {
		return nil, fmt.Errorf("hashpipe: begin run: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			run.Abort()
		}
	}()

	tracked := treenode.Track(treenode.NewStream(src.Next), root)

	if opt.Workers <= 1 {
		h := NewDirectHasher(run, state)
		if err := h.Run(ctx, tracked); err != nil {
			return nil, fmt.Errorf("hashpipe: direct run: %w", err)
		}
	} else {
		h := NewThreadedHasher(run, state, opt.Workers, opt.ChannelBound)
		if err := h.Run(ctx, tracked); err != nil {
			return nil, fmt.Errorf("hashpipe: threaded run: %w", err)
		}
	}

	if err := run.Finalize(); err != nil {
		return nil, fmt.Errorf("hashpipe: finalize: %w", err)
	}
	if err := run.Commit(); err != nil {
		return nil, fmt.Errorf("hashpipe: commit: %w", err)
	}
	committed = true
	return state, nil
}
