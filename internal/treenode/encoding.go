package treenode

import (
	"fmt"
	"strings"
)

// Line encoding for one Node, used to persist and reload node streams
// through a weave.LineStream. The sure-tree snapshot format itself is
// an external collaborator this system doesn't parse; this encoding is
// only how *this* repo's own weave deltas represent the node streams it
// writes and reads back, not a claim about any externally produced
// format.
const (
	tagEnter = "E"
	tagLeave = "L"
	tagSep   = "S"
	tagFile  = "F"
)

// EncodeLine renders n as one line (no trailing newline; the caller's
// LineStream adds that).
func EncodeLine(n Node) string {
	var b strings.Builder
	switch n.Kind {
	case Enter:
		b.WriteString(tagEnter)
		b.WriteByte('\t')
		b.WriteString(n.Name)
		writeAttrs(&b, n.Atts)
	case Leave:
		b.WriteString(tagLeave)
	case Sep:
		b.WriteString(tagSep)
	case File:
		b.WriteString(tagFile)
		b.WriteByte('\t')
		b.WriteString(n.Name)
		writeAttrs(&b, n.Atts)
	}
	return b.String()
}

func writeAttrs(b *strings.Builder, atts Attrs) {
	for k, v := range atts {
		b.WriteByte('\t')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
}

// DecodeLine parses one line produced by EncodeLine back into a Node.
func DecodeLine(line string) (Node, error) {
	fields := strings.Split(line, "\t")
	if len(fields) == 0 {
		return Node{}, fmt.Errorf("treenode: empty line")
	}
	switch fields[0] {
	case tagLeave:
		return NewLeave(), nil
	case tagSep:
		return NewSep(), nil
	case tagEnter:
		if len(fields) < 2 {
			return Node{}, fmt.Errorf("treenode: Enter line missing name: %q", line)
		}
		return NewEnter(fields[1], parseAttrs(fields[2:])), nil
	case tagFile:
		if len(fields) < 2 {
			return Node{}, fmt.Errorf("treenode: File line missing name: %q", line)
		}
		return NewFile(fields[1], parseAttrs(fields[2:])), nil
	default:
		return Node{}, fmt.Errorf("treenode: unknown line tag %q", fields[0])
	}
}

func parseAttrs(fields []string) Attrs {
	atts := make(Attrs, len(fields))
	for _, f := range fields {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			continue
		}
		atts[k] = v
	}
	return atts
}
