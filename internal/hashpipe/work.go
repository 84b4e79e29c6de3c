package hashpipe

import "github.com/kvasari/surehash/internal/treenode"

// WorkItem is one file awaiting a hash, tagged with its position in the
// node stream so the result can be reattached after hashing completes
// out of order. A nil *WorkItem pushed through a Chan is the sentinel
// that tells a worker no more work is coming (spec §4.7's "shutdown
// protocol": one sentinel per worker, workers forward it to the
// collector once they've drained their own backlog).
type WorkItem struct {
	Index uint64
	Node  treenode.Node
	Path  string
}

// Result is the hashed outcome of one WorkItem. An unreadable file
// produces no Result at all: the worker logs a warning and moves on, so
// the node is left without a sha1 attribute and the run continues
// (spec §7). The workers never set Err.
type Result struct {
	Index uint64
	Node  treenode.Node
	Sha1  [20]byte
	Err   error
}
