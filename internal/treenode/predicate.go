package treenode

// NeedsHash reports whether n requires a content hash: it must be a File
// node, its "kind" attribute must be "file" (regular file — symlinks,
// devices, and other non-regular entries never need hashing), and it must
// not already carry a "sha1" attribute (spec §4.4).
func NeedsHash(n Node) bool {
	if n.Kind != File {
		return false
	}
	return n.Atts.IsFile() && !n.Atts.HasSha1()
}
