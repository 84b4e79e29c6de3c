// Package migrate implements the generational hash migrator (C9): a
// two-finger merge over two node streams drawn from the same prior-tree
// format, forwarding SHA-1 hashes from the older generation onto
// unchanged files in the newer one.
package migrate

import (
	"errors"
	"fmt"
	"io"

	"github.com/kvasari/surehash/internal/treenode"
)

// state is which half of a directory's grammar the co-walk is currently
// inside: children (subdirectories, before Sep) or files (after Sep,
// before Leave).
type state int

const (
	stateChildren state = iota
	stateFiles
)

// cursor gives a treenode.Stream one node of lookahead, which the
// co-walk needs to compare heads before deciding whether to advance.
type cursor struct {
	src    *treenode.Stream
	cur    treenode.Node
	err    error
	primed bool
}

func newCursor(src *treenode.Stream) *cursor {
	return &cursor{src: src}
}

func (c *cursor) peek() (treenode.Node, error) {
	if !c.primed {
		c.cur, c.err = c.src.Next()
		c.primed = true
	}
	return c.cur, c.err
}

func (c *cursor) advance() {
	c.primed = false
}

// Migrate co-walks older and newer, calling emit once per node of the
// output stream. The output is shaped exactly like newer; sha1 is
// forwarded from older wherever the migration predicate allows.
//
// The walk is iterative (an explicit state stack, one entry per open
// directory level) rather than recursive, so auxiliary memory stays
// proportional to tree depth rather than tree size, per spec.
func Migrate(older, newer treenode.Reader, emit func(treenode.Node) error) error {
	oc := newCursor(treenode.NewStream(older))
	nc := newCursor(treenode.NewStream(newer))

	oh, oerr := oc.peek()
	nh, nerr := nc.peek()
	if oerr != nil {
		return fmt.Errorf("migrate: reading older root: %w", oerr)
	}
	if nerr != nil {
		return fmt.Errorf("migrate: reading newer root: %w", nerr)
	}
	if oh.Kind != treenode.Enter || nh.Kind != treenode.Enter {
		return errors.New("migrate: both streams must begin with a root Enter")
	}
	if oh.Name != nh.Name {
		return errors.New("migrate: root directories have differing names")
	}
	if err := emit(nh); err != nil {
		return err
	}
	oc.advance()
	nc.advance()

	stack := []state{stateChildren}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		oh, oerr := oc.peek()
		nh, nerr := nc.peek()
		if oerr != nil {
			return fmt.Errorf("migrate: unexpected end of older stream: %w", errOrEOF(oerr))
		}
		if nerr != nil {
			return fmt.Errorf("migrate: unexpected end of newer stream: %w", errOrEOF(nerr))
		}

		switch top {
		case stateChildren:
			switch {
			case oh.Kind == treenode.Sep && nh.Kind == treenode.Sep:
				if err := emit(nh); err != nil {
					return err
				}
				oc.advance()
				nc.advance()
				stack[len(stack)-1] = stateFiles

			case oh.Kind == treenode.Enter && nh.Kind == treenode.Sep:
				if err := aconsumeSubtree(oc); err != nil {
					return err
				}

			case oh.Kind == treenode.Sep && nh.Kind == treenode.Enter:
				if err := bconsumeSubtree(nc, emit); err != nil {
					return err
				}

			case oh.Kind == treenode.Enter && nh.Kind == treenode.Enter:
				switch {
				case oh.Name < nh.Name:
					if err := aconsumeSubtree(oc); err != nil {
						return err
					}
				case oh.Name > nh.Name:
					if err := bconsumeSubtree(nc, emit); err != nil {
						return err
					}
				default:
					if err := emit(nh); err != nil {
						return err
					}
					oc.advance()
					nc.advance()
					stack = append(stack, stateChildren)
				}

			default:
				return fmt.Errorf("migrate: invalid node in tree (older=%s newer=%s)", oh.Kind, nh.Kind)
			}

		case stateFiles:
			switch {
			case oh.Kind == treenode.Leave && nh.Kind == treenode.Leave:
				if err := emit(nh); err != nil {
					return err
				}
				oc.advance()
				nc.advance()
				stack = stack[:len(stack)-1]

			case oh.Kind == treenode.File && nh.Kind == treenode.Leave:
				oc.advance()

			case oh.Kind == treenode.Leave && nh.Kind == treenode.File:
				if err := emit(nh); err != nil {
					return err
				}
				nc.advance()

			case oh.Kind == treenode.File && nh.Kind == treenode.File:
				switch {
				case oh.Name < nh.Name:
					oc.advance()
				case oh.Name > nh.Name:
					if err := emit(nh); err != nil {
						return err
					}
					nc.advance()
				default:
					merged := treenode.NewFile(nh.Name, migrateAttrs(oh.Atts, nh.Atts))
					if err := emit(merged); err != nil {
						return err
					}
					oc.advance()
					nc.advance()
				}

			default:
				return fmt.Errorf("migrate: invalid node in file part of tree (older=%s newer=%s)", oh.Kind, nh.Kind)
			}
		}
	}

	return nil
}

// migrateAttrs is the migration predicate: forward older's sha1 onto
// newer only when both sides agree the file is unchanged.
func migrateAttrs(older, newer treenode.Attrs) treenode.Attrs {
	if newer.HasSha1() {
		return newer
	}
	if !older.IsFile() || !newer.IsFile() {
		return newer
	}
	if !older.HasSha1() {
		return newer
	}
	oIno, _ := older.Get(treenode.AttrIno)
	nIno, _ := newer.Get(treenode.AttrIno)
	oCtime, _ := older.Get(treenode.AttrCtime)
	nCtime, _ := newer.Get(treenode.AttrCtime)
	if oIno == nIno && oCtime == nCtime {
		sha1, _ := older.Get(treenode.AttrSha1)
		return newer.WithSha1(sha1)
	}
	return newer
}

// aconsumeSubtree discards an entire subtree from c, starting at its
// Enter, counting nesting until the matching Leave.
func aconsumeSubtree(c *cursor) error {
	depth := 0
	for {
		n, err := c.peek()
		if err != nil {
			return fmt.Errorf("migrate: unexpected end of stream while skipping subtree: %w", errOrEOF(err))
		}
		c.advance()
		switch n.Kind {
		case treenode.Enter:
			depth++
		case treenode.Leave:
			depth--
		}
		if depth == 0 {
			return nil
		}
	}
}

// bconsumeSubtree emits an entire subtree from c, starting at its
// Enter, counting nesting until the matching Leave.
func bconsumeSubtree(c *cursor, emit func(treenode.Node) error) error {
	depth := 0
	for {
		n, err := c.peek()
		if err != nil {
			return fmt.Errorf("migrate: unexpected end of stream while copying subtree: %w", errOrEOF(err))
		}
		c.advance()
		if err := emit(n); err != nil {
			return err
		}
		switch n.Kind {
		case treenode.Enter:
			depth++
		case treenode.Leave:
			depth--
		}
		if depth == 0 {
			return nil
		}
	}
}

func errOrEOF(err error) error {
	if err == io.EOF {
		return errors.New("premature end of stream")
	}
	return err
}
