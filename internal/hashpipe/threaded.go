package hashpipe

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/kvasari/surehash/internal/treenode"
	"golang.org/x/sync/errgroup"
)

// ThreadedHasher fans work out across numWorkers goroutines reading from
// a bounded work channel, and collects finished hashes through a single
// collector goroutine that owns all SQL writes (spec §4.7: one writer,
// many readers). Shutdown is sentinel-based: the driver enqueues one nil
// WorkItem per worker once the input is exhausted; each worker forwards
// exactly one nil Result to the finish channel before exiting; the
// collector exits once it has seen numWorkers sentinels.
type ThreadedHasher struct {
	store   Inserter
	meter   *treenode.State
	workers int
	bound   int

	work   *Chan[*WorkItem]
	finish *Chan[*Result]
}

// NewThreadedHasher builds a hasher with numWorkers hashing goroutines
// and a work/finish channel pair each bounded at channelBound (spec
// §4.1's "bound" is the configured channel_capacity).
func NewThreadedHasher(store Inserter, meter *treenode.State, numWorkers, channelBound int) *ThreadedHasher {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &ThreadedHasher{
		store:   store,
		meter:   meter,
		workers: numWorkers,
		bound:   channelBound,
		work:    NewChan[*WorkItem](channelBound),
		finish:  NewChan[*Result](channelBound),
	}
}

// Run drives src to completion, submitting every node treenode.NeedsHash
// selects to the worker pool, then waits for every worker and the
// collector to finish. Any worker hashing error is non-fatal (logged);
// any collector insert error aborts the whole run.
//
// submit, the workers and the collector all run inside the same errgroup.
// The moment any of them returns a fatal error, errgroup cancels gctx; a
// watcher goroutine reacts by closing both channels, which unblocks
// whichever goroutines are stuck in Push/Pop on a channel nobody is
// draining any more. Without this, a fatal collector error (spec §7's
// "SQL step returned non-DONE") would leave workers blocked pushing to a
// full, undrained finish channel and submit blocked pushing to a full,
// undrained work channel — group.Wait would never return, and the fatal
// error would never surface (spec §5: a fatal error in any thread must
// terminate the whole run, not wedge it).
func (h *ThreadedHasher) Run(ctx context.Context, src *treenode.TrackedStream) error {
	group, gctx := errgroup.WithContext(ctx)

	for i := 0; i < h.workers; i++ {
		group.Go(func() error {
			h.worker()
			return nil
		})
	}

	group.Go(func() error {
		return h.collect(gctx)
	})

	group.Go(func() error {
		return h.submit(gctx, src)
	})

	go func() {
		<-gctx.Done()
		h.work.Close()
		h.finish.Close()
	}()

	if err := group.Wait(); err != nil {
		return fmt.Errorf("hashpipe: threaded run: %w", err)
	}
	return nil
}

// submit walks src, pushing one WorkItem per hash candidate, then pushes
// one nil sentinel per worker once the stream is exhausted. It checks
// ctx between nodes so a fatal error elsewhere in the group stops it
// promptly instead of reading the rest of a possibly large stream.
func (h *ThreadedHasher) submit(ctx context.Context, src *treenode.TrackedStream) error {
	var idx uint64
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		tagged, err := src.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("hashpipe: threaded submit: %w", err)
		}
		if treenode.NeedsHash(tagged.Node) {
			h.work.Push(&WorkItem{Index: idx, Node: tagged.Node, Path: tagged.Path})
		}
		idx++
	}
	for i := 0; i < h.workers; i++ {
		h.work.Push(nil)
	}
	return nil
}

// worker pops WorkItems until it sees the sentinel, hashes each file,
// and forwards successful results to the finish channel. It forwards
// exactly one sentinel of its own before exiting, matching the protocol
// the collector's sentinel count depends on. If work is closed out from
// under it (a fatal error elsewhere), Pop reports ok=false and worker
// exits without pushing a sentinel — the collector has already stopped
// counting them by then.
func (h *ThreadedHasher) worker() {
	for {
		item, ok := h.work.Pop()
		if !ok {
			return
		}
		if item == nil {
			h.finish.Push(nil)
			return
		}
		sum, err := sha1File(item.Path)
		if err != nil {
			slog.Warn("hashpipe: skipping unreadable file", "path", item.Path, "error", err)
			continue
		}
		h.finish.Push(&Result{Index: item.Index, Node: item.Node, Sha1: sum})
	}
}

// collect owns every SQL write. It pops Results until it has seen one
// sentinel per worker, inserting each into the store and updating
// progress as results arrive — in collector-arrival order, not
// ascending index (spec §4.7's documented ordering guarantee).
func (h *ThreadedHasher) collect(ctx context.Context) error {
	seen := 0
	for seen < h.workers {
		res, ok := h.finish.Pop()
		if !ok {
			// finish was closed by the Run watcher before every
			// worker's sentinel arrived: some other goroutine in the
			// group already failed.
			if err := ctx.Err(); err != nil {
				return err
			}
			return fmt.Errorf("hashpipe: collector: finish channel closed unexpectedly")
		}
		if res == nil {
			seen++
			continue
		}
		if err := h.store.Insert(ctx, res.Index, res.Sha1); err != nil {
			return fmt.Errorf("hashpipe: collector insert idx=%d: %w", res.Index, err)
		}
		if h.meter != nil {
			h.meter.Update(res.Node)
		}
	}
	return nil
}
