package treenode

import (
	"errors"
	"io"
)

// Reader produces one Node per call. io.EOF signals a clean end of stream;
// any other error is fatal and must not be retried (spec §6: "errors
// surface as exceptions and are fatal").
type Reader func() (Node, error)

// SliceReader returns a Reader over an in-memory slice of nodes, used by
// tests and by anything that has already materialised a tree in memory.
func SliceReader(nodes []Node) Reader {
	i := 0
	return func() (Node, error) {
		if i >= len(nodes) {
			return Node{}, io.EOF
		}
		n := nodes[i]
		i++
		return n, nil
	}
}

// Stream is a lazy, single-pass sequence of Nodes over a Reader (C2).
// Iterating it more than once without Memoize is a caller bug: the
// underlying Reader is not rewindable on its own.
type Stream struct {
	read Reader
}

// NewStream wraps a Reader as a single-pass Stream.
func NewStream(read Reader) *Stream {
	return &Stream{read: read}
}

// Next returns the next Node, or io.EOF at the end of the stream.
func (s *Stream) Next() (Node, error) {
	return s.read()
}

// ErrNotYetExhausted is returned by Rewind when the source stream has not
// been fully consumed at least once.
var ErrNotYetExhausted = errors.New("treenode: cannot rewind a stream that has not reached EOF")

// MemoStream buffers every node it emits on its first pass and can be
// Rewind-ed to replay that buffer, without touching the underlying Reader
// again. The hash-update driver's prescan (first pass, C5) and dispatch
// (second pass) share one MemoStream this way (spec §4.2, §9).
type MemoStream struct {
	src       *Stream
	buf       []Node
	done      bool
	pos       int
	replaying bool
}

// Memoize wraps src so it can be rewound after being fully drained once.
func Memoize(src *Stream) *MemoStream {
	return &MemoStream{src: src}
}

// Next returns the next node. While recording (before the first EOF) it
// pulls from the wrapped Stream and buffers the result; while replaying it
// serves from the buffer.
func (m *MemoStream) Next() (Node, error) {
	if m.replaying {
		if m.pos >= len(m.buf) {
			return Node{}, io.EOF
		}
		n := m.buf[m.pos]
		m.pos++
		return n, nil
	}

	n, err := m.src.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			m.done = true
		}
		return Node{}, err
	}
	m.buf = append(m.buf, n)
	return n, nil
}

// Rewind restarts iteration from the beginning of the buffered nodes. It
// fails if the stream has not yet been drained to EOF at least once —
// memoization only guarantees replay of a *complete* pass.
func (m *MemoStream) Rewind() error {
	if !m.done {
		return ErrNotYetExhausted
	}
	m.replaying = true
	m.pos = 0
	return nil
}
