package grid

import (
	"time"

	"gridedit/internal/cell"
	"gridedit/internal/model"
)

// Draft is a not-yet-identified row composed for insertion. It is never part
// of the dirty set.
type Draft struct {
	Fields []*cell.Cell
}

// NewDraft builds one field per column, skipping primary-key columns whose
// values the server generates.
func NewDraft(cfg model.GridConfig) *Draft {
	d := &Draft{}
	for _, col := range cfg.Columns {
		if cfg.UsesSequence(col.Name) {
			continue
		}
		f := cell.New(col.Name, cell.KindForDataType(col.DataType), "", true)
		f.EnterEditMode()
		d.Fields = append(d.Fields, f)
	}
	return d
}

func (d *Draft) Field(column string) *cell.Cell {
	for _, f := range d.Fields {
		if f.Column == column {
			return f
		}
	}
	return nil
}

// Set writes a raw value into a field. Checkbox fields take "true"/"false".
func (d *Draft) Set(column, value string) bool {
	f := d.Field(column)
	if f == nil {
		return false
	}
	if f.Kind() == cell.KindCheckbox {
		f.Input.Checked = value == "true"
		return true
	}
	f.SetValue(value)
	return true
}

func (d *Draft) FillNow(column string, now time.Time) bool {
	f := d.Field(column)
	if f == nil {
		return false
	}
	return f.FillNow(now)
}

// Columns is the insert payload: every field's canonical value.
func (d *Draft) Columns() map[string]string {
	out := make(map[string]string, len(d.Fields))
	for _, f := range d.Fields {
		out[f.Column] = f.ReadCurrentValue()
	}
	return out
}
