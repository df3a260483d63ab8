package dirty

import (
	"testing"

	"gridedit/internal/pk"
)

type fakeRow struct {
	raw   string
	dirty bool
}

func (r *fakeRow) Key() (pk.Key, bool) { return pk.Parse(r.raw) }
func (r *fakeRow) SetDirty(d bool)     { r.dirty = d }

func TestMark_TagsAndCounts(t *testing.T) {
	tr := New[*fakeRow]()
	r := &fakeRow{raw: `{"id":7}`}
	if !tr.Mark(r) {
		t.Fatalf("expected mark")
	}
	if !r.dirty {
		t.Fatalf("expected row tagged")
	}
	if !tr.SaveEnabled() {
		t.Fatalf("expected save enabled")
	}
	if got := tr.Label(); got != "1 row(s) modified" {
		t.Fatalf("label=%q", got)
	}
	if got := tr.Keys(); len(got) != 1 || got[0] != `{"id":7}` {
		t.Fatalf("keys=%v", got)
	}
}

func TestMark_NoIdentityIsNoop(t *testing.T) {
	tr := New[*fakeRow]()
	r := &fakeRow{raw: `not-json`}
	if tr.Mark(r) {
		t.Fatalf("expected no-op")
	}
	if r.dirty || tr.Len() != 0 || tr.SaveEnabled() {
		t.Fatalf("row without identity must never be tracked")
	}
}

func TestMark_OverwritesByCanonicalKey(t *testing.T) {
	tr := New[*fakeRow]()
	a := &fakeRow{raw: `{"a":1,"b":2}`}
	b := &fakeRow{raw: `{"b":2,"a":1}`}
	tr.Mark(a)
	tr.Mark(b)
	if tr.Len() != 1 {
		t.Fatalf("expected structurally equal keys to collapse, len=%d", tr.Len())
	}
	if got := tr.Rows()[0]; got != b {
		t.Fatalf("expected latest handle to win")
	}
}

func TestUnmark_AndClear(t *testing.T) {
	tr := New[*fakeRow]()
	r1 := &fakeRow{raw: `{"id":1}`}
	r2 := &fakeRow{raw: `{"id":2}`}
	r3 := &fakeRow{raw: `{"id":3}`}
	tr.Mark(r1)
	tr.Mark(r2)
	tr.Mark(r3)
	if got := tr.Label(); got != "3 row(s) modified" {
		t.Fatalf("label=%q", got)
	}

	if !tr.Unmark(r2) {
		t.Fatalf("expected unmark")
	}
	if r2.dirty {
		t.Fatalf("expected untagged")
	}
	rows := tr.Rows()
	if len(rows) != 2 || rows[0] != r1 || rows[1] != r3 {
		t.Fatalf("unexpected order after unmark: %v", tr.Keys())
	}
	if tr.Unmark(r2) {
		t.Fatalf("second unmark should report absent")
	}

	tr.Clear()
	if tr.Len() != 0 || tr.SaveEnabled() || tr.Label() != "" {
		t.Fatalf("expected empty tracker")
	}
	if r1.dirty || r3.dirty {
		t.Fatalf("clear must untag rows")
	}
}
