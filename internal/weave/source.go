package weave

import (
	"io"

	"github.com/kvasari/surehash/internal/treenode"
)

// NodeSource implements treenode.SureTreeSource using this repo's own
// node-stream line encoding (internal/treenode.EncodeLine/DecodeLine)
// carried over a plain or gzip LineStream. It exists so cmd/surehash has
// a runnable default: the real sure-tree snapshot wire format is out of
// scope here, and a site that has one can supply its own
// treenode.SureTreeSource without touching anything in this package or
// internal/hashpipe.
type NodeSource struct{}

// Open implements treenode.SureTreeSource.
func (NodeSource) Open(path string) (treenode.Reader, io.Closer, error) {
	ls, err := OpenReader(path)
	if err != nil {
		return nil, nil, err
	}
	return NodeReader(ls), ls, nil
}
