// Package dirty tracks which rows carry unsaved edits.
package dirty

import (
	"fmt"

	"gridedit/internal/pk"
)

// Row is the handle the tracker stores. Rows without identity are never tracked.
type Row interface {
	Key() (pk.Key, bool)
	SetDirty(bool)
}

// Tracker maps canonical primary-key strings to row handles. Mark, Unmark and
// Clear are its only mutators. Iteration follows insertion order.
type Tracker[R Row] struct {
	rows  map[string]R
	order []string
}

func New[R Row]() *Tracker[R] {
	return &Tracker[R]{rows: map[string]R{}}
}

// Mark inserts (or overwrites) the row and tags it. It reports false for rows
// without identity.
func (t *Tracker[R]) Mark(r R) bool {
	k, ok := r.Key()
	if !ok {
		return false
	}
	s := k.String()
	if _, exists := t.rows[s]; !exists {
		t.order = append(t.order, s)
	}
	t.rows[s] = r
	r.SetDirty(true)
	return true
}

// Unmark removes the row if present and untags it.
func (t *Tracker[R]) Unmark(r R) bool {
	r.SetDirty(false)
	k, ok := r.Key()
	if !ok {
		return false
	}
	s := k.String()
	if _, exists := t.rows[s]; !exists {
		return false
	}
	delete(t.rows, s)
	for i, o := range t.order {
		if o == s {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear drops every entry and untags the rows.
func (t *Tracker[R]) Clear() {
	for _, r := range t.rows {
		r.SetDirty(false)
	}
	t.rows = map[string]R{}
	t.order = nil
}

func (t *Tracker[R]) Len() int { return len(t.rows) }

func (t *Tracker[R]) Has(k pk.Key) bool {
	_, ok := t.rows[k.String()]
	return ok
}

// Keys returns the canonical keys in insertion order.
func (t *Tracker[R]) Keys() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Rows returns the tracked handles in insertion order.
func (t *Tracker[R]) Rows() []R {
	out := make([]R, 0, len(t.order))
	for _, s := range t.order {
		out = append(out, t.rows[s])
	}
	return out
}

// SaveEnabled is the save affordance state implied by the set alone.
func (t *Tracker[R]) SaveEnabled() bool { return len(t.rows) > 0 }

// Label is the human-readable counter; empty when nothing is modified.
func (t *Tracker[R]) Label() string {
	return CountLabel(len(t.rows))
}

func CountLabel(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d row(s) modified", n)
}
