package cell

import (
	"testing"
	"time"
)

func TestEnterEditMode_FocusesAndSelects(t *testing.T) {
	c := New("name", KindText, "Alice", true)
	if !c.EnterEditMode() {
		t.Fatalf("expected edit mode")
	}
	if !c.Editing() || !c.Input.Focused || !c.Input.Selected {
		t.Fatalf("expected focused+selected input, got %+v", c.Input)
	}
	if c.NowShown() {
		t.Fatalf("text cells have no now affordance")
	}
	if c.EnterEditMode() {
		t.Fatalf("second click on an editing cell must be a no-op")
	}
}

func TestEnterEditMode_TemporalShowsNow(t *testing.T) {
	for _, k := range []InputKind{KindDate, KindDateTime, KindTime} {
		c := New("at", k, "", true)
		c.EnterEditMode()
		if !c.NowShown() {
			t.Fatalf("%s: expected now affordance", k)
		}
		c.ExitEditMode()
		if c.NowShown() {
			t.Fatalf("%s: now affordance should hide on exit", k)
		}
	}
}

func TestExitEditMode_WritesDisplayKeepsOriginal(t *testing.T) {
	c := New("name", KindText, "Alice", true)
	c.EnterEditMode()
	c.SetValue("Alicia")
	c.ExitEditMode()
	if c.Editing() {
		t.Fatalf("expected display mode")
	}
	if c.Display.Text != "Alicia" {
		t.Fatalf("display=%q", c.Display.Text)
	}
	if c.Original != "Alice" {
		t.Fatalf("original must not change on exit, got %q", c.Original)
	}
	if !c.Changed() {
		t.Fatalf("expected changed")
	}
}

func TestCheckbox_CanonicalValue(t *testing.T) {
	c := New("active", KindCheckbox, "false", true)
	if got := c.ReadCurrentValue(); got != "false" {
		t.Fatalf("got %q", got)
	}
	c.EnterEditMode()
	c.Toggle()
	if got := c.ReadCurrentValue(); got != "true" {
		t.Fatalf("got %q", got)
	}
	c.ExitEditMode()
	if c.Display.Text != "true" {
		t.Fatalf("display=%q", c.Display.Text)
	}
}

func TestCheckbox_NullOriginal(t *testing.T) {
	c := New("active", KindCheckbox, "", true)
	c.EnterEditMode()
	c.ExitEditMode()
	if c.Changed() {
		t.Fatalf("untouched NULL boolean must not count as changed")
	}
	if c.Display.Text != "" {
		t.Fatalf("display=%q", c.Display.Text)
	}
	c.Toggle()
	if !c.Changed() {
		t.Fatalf("checking a NULL boolean is a change")
	}
}

func TestMalformedCell_NoOps(t *testing.T) {
	noDisplay := &Cell{Column: "x", Editable: true, Original: "a", Input: &Input{Value: "a"}}
	if noDisplay.EnterEditMode() {
		t.Fatalf("expected no-op without display")
	}
	noInput := &Cell{Column: "x", Editable: true, Original: "a", Display: &Display{Text: "a"}}
	if noInput.EnterEditMode() || noInput.ExitEditMode() {
		t.Fatalf("expected no-op without input")
	}
	if got := noInput.ReadCurrentValue(); got != "a" {
		t.Fatalf("got %q", got)
	}
	if noInput.Changed() {
		t.Fatalf("a cell without input never differs")
	}
}

func TestReadOnlyCell_DoesNotEnterEdit(t *testing.T) {
	c := New("id", KindNumber, "7", false)
	if c.EnterEditMode() {
		t.Fatalf("read-only cells never enter edit mode")
	}
}

func TestFillNow_LayoutPerKind(t *testing.T) {
	now := time.Date(2024, 3, 9, 7, 5, 2, 0, time.UTC)
	cases := map[InputKind]string{
		KindDate:     "2024-03-09",
		KindDateTime: "2024-03-09T07:05:02",
		KindTime:     "07:05:02",
	}
	for k, want := range cases {
		c := New("at", k, "", true)
		if !c.FillNow(now) {
			t.Fatalf("%s: expected fill", k)
		}
		if got := c.ReadCurrentValue(); got != want {
			t.Fatalf("%s: got %q want %q", k, got, want)
		}
	}
	c := New("name", KindText, "x", true)
	if c.FillNow(now) || c.ReadCurrentValue() != "x" {
		t.Fatalf("text cells ignore now")
	}
}

func TestRestoreAndCommit(t *testing.T) {
	c := New("name", KindText, "Alice", true)
	c.EnterEditMode()
	c.SetValue("Bob")
	c.Restore()
	if c.ReadCurrentValue() != "Alice" || c.Display.Text != "Alice" {
		t.Fatalf("restore failed: %q %q", c.ReadCurrentValue(), c.Display.Text)
	}
	c.SetValue("Carol")
	c.Commit(c.ReadCurrentValue())
	if c.Original != "Carol" || c.Display.Text != "Carol" || c.Changed() {
		t.Fatalf("commit failed: %+v", c)
	}
}

func TestKindForDataType(t *testing.T) {
	cases := map[string]InputKind{
		"date":                        KindDate,
		"timestamp with time zone":    KindDateTime,
		"timestamp without time zone": KindDateTime,
		"time without time zone":      KindTime,
		"boolean":                     KindCheckbox,
		"integer":                     KindNumber,
		"double precision":            KindNumber,
		"numeric(10,2)":               KindNumber,
		"text":                        KindText,
		"character varying":           KindText,
		"":                            KindText,
	}
	for dt, want := range cases {
		if got := KindForDataType(dt); got != want {
			t.Fatalf("%q: got %s want %s", dt, got, want)
		}
	}
}
