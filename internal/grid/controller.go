// Package grid is the dirty-tracking controller behind an editable grid.
//
// The controller is single-threaded: it receives discrete events (click, blur,
// key, edit, HTTP result) and mutates its rows and dirty set synchronously.
// The only asynchronous leg is the network request; callers either run it
// inline (Save, Insert, Delete) or split it with the Begin*/Finish* pairs so an
// event loop can perform the round trip elsewhere and hand the result back.
package grid

import (
	"context"
	"log/slog"
	"time"

	"gridedit/internal/cell"
	"gridedit/internal/dirty"
	"gridedit/internal/model"
)

// Transport performs the three JSON POSTs.
type Transport interface {
	Save(ctx context.Context, req model.SaveRequest) (model.Result, error)
	Insert(ctx context.Context, req model.InsertRequest) (model.Result, error)
	Delete(ctx context.Context, req model.DeleteRequest) (model.Result, error)
}

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides the clock used for "set to now".
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

type Controller struct {
	cfg       model.GridConfig
	page      model.Page
	rows      []*Row
	dirty     *dirty.Tracker[*Row]
	draft     *Draft
	transport Transport
	inFlight  bool

	logger *slog.Logger
	now    func() time.Time
}

// New builds a controller for one loaded page. A reload builds a new one.
func New(page model.Page, t Transport, opts ...Option) *Controller {
	c := &Controller{
		cfg:       page.Config,
		page:      page,
		dirty:     dirty.New[*Row](),
		transport: t,
		logger:    slog.New(slog.DiscardHandler),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, pr := range page.Rows {
		c.rows = append(c.rows, newRow(page.Config, pr))
	}
	return c
}

func (c *Controller) Config() model.GridConfig { return c.cfg }

// Page returns the paging/sort/filter metadata the controller was loaded with.
func (c *Controller) Page() model.Page { return c.page }

func (c *Controller) Rows() []*Row { return c.rows }

func (c *Controller) Row(i int) *Row {
	if i < 0 || i >= len(c.rows) {
		return nil
	}
	return c.rows[i]
}

// FindRow returns the index of the row with the given canonical key, or -1.
func (c *Controller) FindRow(key string) int {
	for i, r := range c.rows {
		if k, ok := r.Key(); ok && k.String() == key {
			return i
		}
	}
	return -1
}

func (c *Controller) Cell(r, col int) *cell.Cell {
	row := c.Row(r)
	if row == nil || col < 0 || col >= len(row.Cells) {
		return nil
	}
	return row.Cells[col]
}

// DirtyKeys lists the canonical keys of dirty rows in the order they were marked.
func (c *Controller) DirtyKeys() []string { return c.dirty.Keys() }

func (c *Controller) DirtyCount() int { return c.dirty.Len() }

// Label is the "N row(s) modified" counter.
func (c *Controller) Label() string { return c.dirty.Label() }

// SaveEnabled is the save affordance: something to save and nothing in flight.
func (c *Controller) SaveEnabled() bool { return c.dirty.SaveEnabled() && !c.inFlight }

func (c *Controller) InFlight() bool { return c.inFlight }

// Click enters edit mode on a cell. It reports whether the mode changed.
func (c *Controller) Click(r, col int) bool {
	return c.Cell(r, col).EnterEditMode()
}

// Edit replaces the edit buffer of a cell that is in edit mode.
func (c *Controller) Edit(r, col int, v string) bool {
	cl := c.Cell(r, col)
	if cl == nil || !cl.Editing() {
		return false
	}
	cl.SetValue(v)
	return true
}

// Toggle flips a checkbox cell that is in edit mode.
func (c *Controller) Toggle(r, col int) bool {
	cl := c.Cell(r, col)
	if cl == nil || !cl.Editing() || cl.Kind() != cell.KindCheckbox {
		return false
	}
	cl.Toggle()
	return true
}

// FillNow is the "set to now" affordance of temporal cells.
func (c *Controller) FillNow(r, col int) bool {
	cl := c.Cell(r, col)
	if cl == nil || !cl.Editing() {
		return false
	}
	return cl.FillNow(c.now())
}

// Blur leaves edit mode and re-checks the whole row: a row with any changed
// cell is marked dirty, a row with none is unmarked.
func (c *Controller) Blur(r, col int) bool {
	cl := c.Cell(r, col)
	if !cl.ExitEditMode() {
		return false
	}
	c.recheck(c.rows[r])
	return true
}

type Key int

const (
	KeyEscape Key = iota
	KeyEnter
)

// Key handles keys pressed inside an editing cell. Escape restores the buffer
// to the original before leaving edit mode; Enter just releases focus.
func (c *Controller) Key(r, col int, k Key) bool {
	cl := c.Cell(r, col)
	if cl == nil || !cl.Editing() {
		return false
	}
	if k == KeyEscape {
		cl.Restore()
	}
	return c.Blur(r, col)
}

func (c *Controller) recheck(row *Row) {
	if row.Changed() {
		c.dirty.Mark(row)
		return
	}
	c.dirty.Unmark(row)
}

// Revert restores every dirty row to its original values.
func (c *Controller) Revert() Notice {
	n := c.dirty.Len()
	for _, row := range c.dirty.Rows() {
		for _, cl := range row.Cells {
			cl.Restore()
		}
		c.dirty.Unmark(row)
	}
	c.dirty.Clear()
	if n == 0 {
		return Notice{}
	}
	c.logger.Info("reverted rows", "count", n)
	return info("Changes reverted.")
}

// EndEditing blurs every editing cell, so pending buffers are checked before a
// save is built.
func (c *Controller) EndEditing() {
	for i, row := range c.rows {
		for j, cl := range row.Cells {
			if cl.Editing() {
				c.Blur(i, j)
			}
		}
	}
}
