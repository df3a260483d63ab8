package sandbox

import (
	"encoding/json"
	"fmt"
	"net/http"

	"gridedit/internal/model"
)

func rawJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// handleSave updates rows by primary key. The batch is atomic: any row error
// rolls everything back and reports the per-row errors.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	def, ok := s.table(w, r)
	if !ok {
		return
	}
	if len(def.PKColumns) == 0 {
		fail(w, "Table has no primary key")
		return
	}
	payload, ok := decodePayload(w, r)
	if !ok {
		fail(w, "Invalid JSON")
		return
	}
	items, ok := payload["rows"].([]any)
	if !ok {
		fail(w, "Missing or invalid 'rows' array")
		return
	}

	ctx := r.Context()
	tx, err := s.store.Begin(ctx)
	if err != nil {
		fail(w, err.Error())
		return
	}
	defer tx.Rollback()

	var errs []model.RowError
	var updated int64
	for _, item := range items {
		row, _ := item.(map[string]any)
		key, ok := requestKey(def, row["pk"])
		if !ok {
			errs = append(errs, model.RowError{Row: rawJSON(item), Error: "Invalid or missing primary key"})
			continue
		}
		cols, _ := row["columns"].(map[string]any)
		set := map[string]*string{}
		var rowErr error
		for c, v := range cols {
			col, known := def.column(c)
			if !known || def.isPK(c) {
				continue
			}
			cv, err := coerce(v, col.DataType)
			if err != nil {
				rowErr = err
				break
			}
			set[c] = cv
		}
		if rowErr == nil && len(set) == 0 {
			continue
		}
		if rowErr == nil {
			var n int64
			n, rowErr = tx.Update(ctx, def, key, set)
			updated += n
		}
		if rowErr != nil {
			errs = append(errs, model.RowError{Row: rawJSON(item), Error: rowErr.Error()})
		}
	}
	if len(errs) > 0 {
		s.logger.Warn("save rejected", "table", def.Name, "errors", len(errs))
		writeJSON(w, model.Result{OK: false, Errors: errs})
		return
	}
	if err := tx.Commit(); err != nil {
		fail(w, err.Error())
		return
	}
	s.logger.Info("saved rows", "table", def.Name, "updated", updated)
	writeJSON(w, model.Result{OK: true, Updated: model.IntPtr(int(updated))})
}

// handleInsert inserts one row. Sequence-generated primary-key columns are
// ignored; other primary-key and non-nullable columns require a value.
func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	def, ok := s.table(w, r)
	if !ok {
		return
	}
	payload, ok := decodePayload(w, r)
	if !ok {
		fail(w, "Invalid JSON")
		return
	}
	cols, ok := payload["columns"].(map[string]any)
	if !ok {
		fail(w, "Missing or invalid 'columns' object")
		return
	}

	values := map[string]*string{}
	insertCols := 0
	for _, col := range def.Columns {
		if def.usesSequence(col.Name) {
			continue
		}
		v := cols[col.Name]
		empty := isEmpty(v)
		if def.isPK(col.Name) && empty {
			fail(w, fmt.Sprintf("Primary key column '%s' is required (no sequence).", col.Name))
			return
		}
		if empty && !col.IsNullable {
			fail(w, fmt.Sprintf("Non-nullable column '%s' requires a value.", col.Name))
			return
		}
		insertCols++
		if empty {
			values[col.Name] = nil
			continue
		}
		cv, err := coerce(v, col.DataType)
		if err != nil {
			fail(w, err.Error())
			return
		}
		values[col.Name] = cv
	}
	if insertCols == 0 {
		fail(w, "No columns to insert")
		return
	}

	ctx := r.Context()
	tx, err := s.store.Begin(ctx)
	if err != nil {
		fail(w, err.Error())
		return
	}
	defer tx.Rollback()
	if err := tx.Insert(ctx, def, values); err != nil {
		fail(w, err.Error())
		return
	}
	if err := tx.Commit(); err != nil {
		fail(w, err.Error())
		return
	}
	s.logger.Info("inserted row", "table", def.Name)
	writeJSON(w, model.Result{OK: true, Inserted: model.IntPtr(1)})
}

// handleDelete hard-deletes rows by primary key, atomically.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	def, ok := s.table(w, r)
	if !ok {
		return
	}
	if len(def.PKColumns) == 0 {
		fail(w, "Table has no primary key")
		return
	}
	payload, ok := decodePayload(w, r)
	if !ok {
		fail(w, "Invalid JSON")
		return
	}
	pks, ok := payload["pks"].([]any)
	if !ok {
		fail(w, "Missing or invalid 'pks' array")
		return
	}

	ctx := r.Context()
	tx, err := s.store.Begin(ctx)
	if err != nil {
		fail(w, err.Error())
		return
	}
	defer tx.Rollback()

	var errs []model.RowError
	var deleted int64
	for _, raw := range pks {
		key, ok := requestKey(def, raw)
		if !ok {
			errs = append(errs, model.RowError{PK: rawJSON(raw), Error: "Invalid or missing primary key"})
			continue
		}
		n, err := tx.Delete(ctx, def, key)
		if err != nil {
			errs = append(errs, model.RowError{PK: rawJSON(raw), Error: err.Error()})
			continue
		}
		deleted += n
	}
	if len(errs) > 0 {
		s.logger.Warn("delete rejected", "table", def.Name, "errors", len(errs))
		writeJSON(w, model.Result{OK: false, Errors: errs})
		return
	}
	if err := tx.Commit(); err != nil {
		fail(w, err.Error())
		return
	}
	s.logger.Info("deleted rows", "table", def.Name, "deleted", deleted)
	writeJSON(w, model.Result{OK: true, Deleted: model.IntPtr(int(deleted))})
}
