package treenode

import "testing"

func TestAttrsWithSha1DoesNotMutateOriginal(t *testing.T) {
	orig := Attrs{AttrKind: KindFile}
	updated := orig.WithSha1("abc123")

	if orig.HasSha1() {
		t.Error("original Attrs mutated by WithSha1")
	}
	if !updated.HasSha1() {
		t.Error("updated Attrs missing sha1")
	}
	v, _ := updated.Get(AttrSha1)
	if v != "abc123" {
		t.Errorf("sha1 = %q, want %q", v, "abc123")
	}
}

func TestAttrsIsFile(t *testing.T) {
	if (Attrs{AttrKind: KindFile}).IsFile() != true {
		t.Error("expected kind=file to be IsFile")
	}
	if (Attrs{AttrKind: "lnk"}).IsFile() != false {
		t.Error("expected kind=lnk to not be IsFile")
	}
	if (Attrs(nil)).IsFile() != false {
		t.Error("nil Attrs must not be IsFile")
	}
}

func TestKindString(t *testing.T) {
	cases := map[Kind]string{Enter: "Enter", Leave: "Leave", Sep: "Sep", File: "File"}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
