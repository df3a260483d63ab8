package grid

import (
	"gridedit/internal/cell"
	"gridedit/internal/model"
	"gridedit/internal/pk"
)

// Row is one grid row: an optional identity plus one cell per column.
type Row struct {
	key    pk.Key
	hasKey bool
	dirty  bool

	Cells []*cell.Cell
}

func newRow(cfg model.GridConfig, pr model.PageRow) *Row {
	key, ok := pk.Resolve(pr.PK)
	r := &Row{key: key, hasKey: ok}
	for _, col := range cfg.Columns {
		// Rows without identity are read-only: nothing could address them on save.
		editable := ok && !cfg.IsPKColumn(col.Name)
		r.Cells = append(r.Cells, cell.New(col.Name, cell.KindForDataType(col.DataType), pr.Values[col.Name], editable))
	}
	return r
}

func (r *Row) Key() (pk.Key, bool) { return r.key, r.hasKey }

func (r *Row) SetDirty(d bool) { r.dirty = d }

// Dirty is the visual tag set by the tracker.
func (r *Row) Dirty() bool { return r.dirty }

func (r *Row) Cell(column string) *cell.Cell {
	for _, c := range r.Cells {
		if c.Column == column {
			return c
		}
	}
	return nil
}

// Changed reports whether any cell's live value differs from its original.
func (r *Row) Changed() bool {
	for _, c := range r.Cells {
		if c.Changed() {
			return true
		}
	}
	return false
}

// Values returns every editable cell's current value keyed by column name.
func (r *Row) Values() map[string]string {
	out := map[string]string{}
	for _, c := range r.Cells {
		if !c.Editable {
			continue
		}
		out[c.Column] = c.ReadCurrentValue()
	}
	return out
}

// Snapshot is every cell's displayed value keyed by column name.
func (r *Row) Snapshot() map[string]string {
	out := make(map[string]string, len(r.Cells))
	for _, c := range r.Cells {
		out[c.Column] = c.Text()
	}
	return out
}
