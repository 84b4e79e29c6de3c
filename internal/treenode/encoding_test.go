package treenode

import "testing"

func TestEncodeDecodeLineRoundTrip(t *testing.T) {
	cases := []Node{
		NewEnter(RootName, Attrs{}),
		NewEnter("sub", Attrs{AttrKind: "dir"}),
		NewSep(),
		NewFile("a.txt", Attrs{AttrKind: KindFile, AttrSize: "3", AttrIno: "10", AttrCtime: "100"}),
		NewLeave(),
	}

	for _, n := range cases {
		line := EncodeLine(n)
		got, err := DecodeLine(line)
		if err != nil {
			t.Fatalf("DecodeLine(%q): %v", line, err)
		}
		if got.Kind != n.Kind || got.Name != n.Name {
			t.Fatalf("round trip mismatch: got %v, want %v", got, n)
		}
		for k, v := range n.Atts {
			if got.Atts[k] != v {
				t.Errorf("attr %q: got %q, want %q", k, got.Atts[k], v)
			}
		}
	}
}

func TestDecodeLineUnknownTag(t *testing.T) {
	if _, err := DecodeLine("Z\tfoo"); err == nil {
		t.Fatal("expected an error for an unknown tag")
	}
}

func TestDecodeLineEnterMissingName(t *testing.T) {
	if _, err := DecodeLine("E"); err == nil {
		t.Fatal("expected an error for a truncated Enter line")
	}
}
