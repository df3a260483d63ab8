// Package cell is the view model of one grid cell: a static display element
// and an edit input, toggled between display and edit mode.
package cell

import "time"

type Mode int

const (
	ModeDisplay Mode = iota
	ModeEdit
)

// Display is the static text shown when the cell is not being edited.
type Display struct {
	Text string
}

// Input is the edit widget. Checkbox inputs use Checked; all others use Value.
type Input struct {
	Kind     InputKind
	Value    string
	Checked  bool
	Focused  bool
	Selected bool
}

// Cell holds the last server-confirmed value (Original) and the live edit
// buffer (Input). Original only changes through Commit and never on blur.
//
// A cell with a nil Display or Input is malformed; mode changes on it are no-ops.
type Cell struct {
	Column   string
	Editable bool
	Original string

	Display *Display
	Input   *Input

	mode     Mode
	nowShown bool
}

// New returns a well-formed cell showing value.
func New(column string, kind InputKind, value string, editable bool) *Cell {
	c := &Cell{
		Column:   column,
		Editable: editable,
		Original: value,
		Display:  &Display{Text: value},
		Input:    &Input{Kind: kind},
	}
	c.setInput(value)
	return c
}

func (c *Cell) Mode() Mode { return c.mode }

func (c *Cell) Editing() bool { return c.mode == ModeEdit }

// NowShown reports whether the "set to now" affordance is visible.
func (c *Cell) NowShown() bool { return c.nowShown }

func (c *Cell) Kind() InputKind {
	if c.Input == nil {
		return KindText
	}
	return c.Input.Kind
}

func (c *Cell) wellFormed() bool {
	return c != nil && c.Display != nil && c.Input != nil
}

// EnterEditMode swaps the display for the input, focusing and selecting it.
// Clicking a cell that is already editing is a no-op.
func (c *Cell) EnterEditMode() bool {
	if !c.wellFormed() || !c.Editable || c.mode == ModeEdit {
		return false
	}
	c.mode = ModeEdit
	c.Input.Focused = true
	c.Input.Selected = true
	c.nowShown = c.Input.Kind.Temporal()
	return true
}

// ExitEditMode writes the canonical input value into the display text and
// swaps back to display mode.
func (c *Cell) ExitEditMode() bool {
	if !c.wellFormed() || c.mode != ModeEdit {
		return false
	}
	if c.Changed() {
		c.Display.Text = c.ReadCurrentValue()
	} else {
		c.Display.Text = c.Original
	}
	c.mode = ModeDisplay
	c.Input.Focused = false
	c.Input.Selected = false
	c.nowShown = false
	return true
}

// ReadCurrentValue returns the canonical value of the edit buffer.
func (c *Cell) ReadCurrentValue() string {
	if c == nil {
		return ""
	}
	if c.Input == nil {
		return c.Original
	}
	if c.Input.Kind == KindCheckbox {
		if c.Input.Checked {
			return "true"
		}
		return "false"
	}
	return c.Input.Value
}

// Changed reports whether the edit buffer differs from the confirmed value.
// A NULL boolean (any original other than "true"/"false") counts as changed
// only once the box is checked.
func (c *Cell) Changed() bool {
	if c.Input != nil && c.Input.Kind == KindCheckbox && c.Original != "true" && c.Original != "false" {
		return c.Input.Checked
	}
	return c.ReadCurrentValue() != c.Original
}

// SetValue replaces the edit buffer (typing, paste).
func (c *Cell) SetValue(v string) {
	if c.Input == nil {
		return
	}
	c.Input.Selected = false
	c.setInput(v)
}

// Toggle flips a checkbox input.
func (c *Cell) Toggle() {
	if c.Input == nil || c.Input.Kind != KindCheckbox {
		return
	}
	c.Input.Checked = !c.Input.Checked
}

// FillNow writes the client clock into a temporal input, formatted for its kind.
func (c *Cell) FillNow(now time.Time) bool {
	if c.Input == nil {
		return false
	}
	layout := NowLayout(c.Input.Kind)
	if layout == "" {
		return false
	}
	c.SetValue(now.Format(layout))
	return true
}

// NowLayout is the zone-naive layout used for "set to now", or "" for
// non-temporal kinds.
func NowLayout(k InputKind) string {
	switch k {
	case KindDate:
		return "2006-01-02"
	case KindDateTime:
		return "2006-01-02T15:04:05"
	case KindTime:
		return "15:04:05"
	}
	return ""
}

// Restore resets the edit buffer and display text to the original value.
func (c *Cell) Restore() {
	if c == nil {
		return
	}
	c.setInput(c.Original)
	if c.Display != nil {
		c.Display.Text = c.Original
	}
}

// Commit makes v the confirmed value and refreshes the display.
func (c *Cell) Commit(v string) {
	if c == nil {
		return
	}
	c.Original = v
	if c.Display != nil {
		c.Display.Text = v
	}
}

func (c *Cell) setInput(v string) {
	if c.Input == nil {
		return
	}
	if c.Input.Kind == KindCheckbox {
		c.Input.Checked = v == "true"
		return
	}
	c.Input.Value = v
}

// Text is what a renderer shows: the live buffer while editing, the display
// text otherwise.
func (c *Cell) Text() string {
	if c == nil {
		return ""
	}
	if c.mode == ModeEdit && c.Input != nil {
		return c.ReadCurrentValue()
	}
	if c.Display == nil {
		return c.Original
	}
	return c.Display.Text
}
