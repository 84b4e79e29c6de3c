package weave

import (
	"fmt"
	"io"

	"github.com/kvasari/surehash/internal/treenode"
)

// NodeReader adapts a LineStream into a treenode.Reader, decoding one
// node per line.
func NodeReader(ls LineStream) treenode.Reader {
	return func() (treenode.Node, error) {
		line, err := ls.ReadLine()
		if err != nil {
			return treenode.Node{}, err
		}
		n, err := treenode.DecodeLine(line)
		if err != nil {
			return treenode.Node{}, fmt.Errorf("weave: decode node from %q: %w", ls.Name(), err)
		}
		return n, nil
	}
}

// WriteNodes drains src, encoding each node as one line and writing it
// to ls in batches.
func WriteNodes(ls LineStream, src treenode.Reader) error {
	const batchSize = 256
	batch := make([]string, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ls.WriteLines(batch); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for {
		n, err := src()
		if err != nil {
			if err == io.EOF {
				return flush()
			}
			return fmt.Errorf("weave: reading node stream: %w", err)
		}
		batch = append(batch, treenode.EncodeLine(n))
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
}

// NodeWriter batches nodes handed to it one at a time (the shape the
// migrator's push-style emit callback needs) and flushes them to ls in
// the same batch size WriteNodes uses. Callers must call Flush once
// after the last Write to emit any partial trailing batch.
type NodeWriter struct {
	ls    LineStream
	batch []string
}

const nodeWriterBatchSize = 256

// NewNodeWriter returns a NodeWriter appending encoded nodes to ls.
func NewNodeWriter(ls LineStream) *NodeWriter {
	return &NodeWriter{ls: ls, batch: make([]string, 0, nodeWriterBatchSize)}
}

// Write encodes n and appends it to the pending batch, flushing when
// the batch is full.
func (w *NodeWriter) Write(n treenode.Node) error {
	w.batch = append(w.batch, treenode.EncodeLine(n))
	if len(w.batch) == nodeWriterBatchSize {
		return w.Flush()
	}
	return nil
}

// Flush writes out any partially-filled batch.
func (w *NodeWriter) Flush() error {
	if len(w.batch) == 0 {
		return nil
	}
	if err := w.ls.WriteLines(w.batch); err != nil {
		return err
	}
	w.batch = w.batch[:0]
	return nil
}
