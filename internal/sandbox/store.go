package sandbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gridedit/internal/pk"

	_ "modernc.org/sqlite"
)

// Store keeps each table's rows as JSON documents keyed by the canonical
// primary-key string. There is no per-column SQL.
type Store struct {
	db *sql.DB
}

type storedRow struct {
	ID     int64
	Key    string
	Values map[string]*string
}

// Open opens (creating if needed) the sqlite file at path.
func Open(ctx context.Context, path string) (*Store, error) {
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: serializes writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS grid_tables (
			name TEXT PRIMARY KEY,
			def_json TEXT NOT NULL,
			next_seq INTEGER NOT NULL DEFAULT 1
		);`,
		`CREATE TABLE IF NOT EXISTS grid_rows (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_name TEXT NOT NULL,
			pk_key TEXT NOT NULL,
			values_json TEXT NOT NULL,
			UNIQUE(table_name, pk_key)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_grid_rows_table ON grid_rows(table_name, id);`,
	}
	for _, st := range stmts {
		if _, err := s.db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

// CSRFToken returns the anti-forgery token, generating it on first use.
func (s *Store) CSRFToken(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = 'csrf_token'`).Scan(&v)
	if err == nil && strings.TrimSpace(v) != "" {
		return v, nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	v = strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO meta(k, v) VALUES('csrf_token', ?)`, v); err != nil {
		return "", err
	}
	return v, nil
}

// Seed creates fixture tables that do not exist yet. Existing tables keep
// their rows, so restarting the sandbox does not discard edits.
func (s *Store) Seed(ctx context.Context, fx Fixture) error {
	for _, def := range fx.Tables {
		if _, ok, err := s.Table(ctx, def.Name); err != nil {
			return err
		} else if ok {
			continue
		}
		if err := s.seedTable(ctx, def); err != nil {
			return fmt.Errorf("seed %s: %w", def.Name, err)
		}
	}
	return nil
}

func (s *Store) seedTable(ctx context.Context, def TableDef) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows := def.Rows
	def.Rows = nil
	b, err := json.Marshal(def)
	if err != nil {
		return err
	}
	if _, err := tx.tx.ExecContext(ctx, `INSERT INTO grid_tables(name, def_json, next_seq) VALUES(?, ?, 1)`, def.Name, string(b)); err != nil {
		return err
	}
	for i, raw := range rows {
		values := map[string]*string{}
		for _, col := range def.Columns {
			v, present := raw[col.Name]
			if !present && def.usesSequence(col.Name) {
				continue
			}
			cv, err := coerce(v, col.DataType)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			values[col.Name] = cv
		}
		if err := tx.Insert(ctx, def, values); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func (s *Store) Tables(ctx context.Context) ([]TableDef, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT def_json FROM grid_tables ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TableDef
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var def TableDef
		if err := json.Unmarshal([]byte(raw), &def); err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

func (s *Store) Table(ctx context.Context, name string) (TableDef, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT def_json FROM grid_tables WHERE name = ?`, name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return TableDef{}, false, nil
	}
	if err != nil {
		return TableDef{}, false, err
	}
	var def TableDef
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return TableDef{}, false, err
	}
	return def, true, nil
}

// Rows returns every row of a table in insertion order.
func (s *Store) Rows(ctx context.Context, table string) ([]storedRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, pk_key, values_json FROM grid_rows WHERE table_name = ? ORDER BY id`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []storedRow
	for rows.Next() {
		var r storedRow
		var raw string
		if err := rows.Scan(&r.ID, &r.Key, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &r.Values); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Tx groups the writes of one request; any row error rolls the batch back.
type Tx struct {
	tx *sql.Tx
}

func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback is a no-op after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

func (t *Tx) get(ctx context.Context, table, key string) (storedRow, bool, error) {
	var r storedRow
	var raw string
	err := t.tx.QueryRowContext(ctx, `SELECT id, pk_key, values_json FROM grid_rows WHERE table_name = ? AND pk_key = ?`, table, key).Scan(&r.ID, &r.Key, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return storedRow{}, false, nil
	}
	if err != nil {
		return storedRow{}, false, err
	}
	if err := json.Unmarshal([]byte(raw), &r.Values); err != nil {
		return storedRow{}, false, err
	}
	return r, true, nil
}

// Update writes already-coerced values into the row with the given key and
// reports the number of rows affected (0 or 1).
func (t *Tx) Update(ctx context.Context, def TableDef, key pk.Key, set map[string]*string) (int64, error) {
	r, ok, err := t.get(ctx, def.Name, key.String())
	if err != nil || !ok {
		return 0, err
	}
	for c, v := range set {
		col, known := def.column(c)
		if !known {
			continue
		}
		if v == nil && !col.IsNullable {
			return 0, notNullError(c)
		}
		r.Values[c] = v
	}
	b, err := json.Marshal(r.Values)
	if err != nil {
		return 0, err
	}
	res, err := t.tx.ExecContext(ctx, `UPDATE grid_rows SET values_json = ? WHERE id = ?`, string(b), r.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Insert assigns sequence values, checks nullability and uniqueness, and
// stores the row.
func (t *Tx) Insert(ctx context.Context, def TableDef, values map[string]*string) error {
	for _, col := range def.Columns {
		if def.usesSequence(col.Name) && values[col.Name] == nil {
			n, err := t.nextSeq(ctx, def.Name)
			if err != nil {
				return err
			}
			values[col.Name] = strPtr(fmt.Sprint(n))
		}
		if values[col.Name] == nil && (!col.IsNullable || def.isPK(col.Name)) {
			return notNullError(col.Name)
		}
	}
	// Tables without a primary key still get a unique storage key; their rows
	// are rendered without identity and stay read-only.
	keyStr := "row-" + uuid.NewString()
	if len(def.PKColumns) > 0 {
		key, err := storedKey(def, values)
		if err != nil {
			return err
		}
		keyStr = key.String()
		if _, exists, err := t.get(ctx, def.Name, keyStr); err != nil {
			return err
		} else if exists {
			return fmt.Errorf("duplicate key value violates unique constraint \"%s_pkey\"", def.Name)
		}
	}
	if err := t.bumpSeq(ctx, def, values); err != nil {
		return err
	}
	b, err := json.Marshal(values)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `INSERT INTO grid_rows(table_name, pk_key, values_json) VALUES(?, ?, ?)`, def.Name, keyStr, string(b))
	return err
}

func (t *Tx) Delete(ctx context.Context, def TableDef, key pk.Key) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM grid_rows WHERE table_name = ? AND pk_key = ?`, def.Name, key.String())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *Tx) nextSeq(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := t.tx.QueryRowContext(ctx, `SELECT next_seq FROM grid_tables WHERE name = ?`, table).Scan(&n); err != nil {
		return 0, err
	}
	if _, err := t.tx.ExecContext(ctx, `UPDATE grid_tables SET next_seq = ? WHERE name = ?`, n+1, table); err != nil {
		return 0, err
	}
	return n, nil
}

// bumpSeq keeps the sequence ahead of explicitly supplied values.
func (t *Tx) bumpSeq(ctx context.Context, def TableDef, values map[string]*string) error {
	for _, c := range def.PKUsesSequence {
		v := values[c]
		if v == nil {
			continue
		}
		var n int64
		if _, err := fmt.Sscan(*v, &n); err != nil {
			continue
		}
		if _, err := t.tx.ExecContext(ctx, `UPDATE grid_tables SET next_seq = ? WHERE name = ? AND next_seq <= ?`, n+1, def.Name, n); err != nil {
			return err
		}
	}
	return nil
}

func notNullError(column string) error {
	return fmt.Errorf("null value in column %q violates not-null constraint", column)
}

// storedKey derives a row's identity from its stored values. Integer columns
// become JSON numbers so keys match what clients echo back.
func storedKey(def TableDef, values map[string]*string) (pk.Key, error) {
	typed := map[string]any{}
	for _, c := range def.PKColumns {
		v := values[c]
		if v == nil {
			return pk.Key{}, notNullError(c)
		}
		col, _ := def.column(c)
		typed[c] = typedPKValue(*v, col.DataType)
	}
	key, ok := pk.FromValues(def.PKColumns, typed)
	if !ok {
		return pk.Key{}, errors.New("Table has no primary key")
	}
	return key, nil
}

func typedPKValue(v string, dataType string) any {
	if isNumericType(dataType) {
		return json.Number(v)
	}
	return v
}

// requestKey validates a primary key sent by a client: an object naming every
// primary-key column. Values are coerced, so "7" and 7 address the same row.
func requestKey(def TableDef, raw any) (pk.Key, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return pk.Key{}, false
	}
	values := map[string]*string{}
	for _, c := range def.PKColumns {
		v, present := obj[c]
		if !present {
			return pk.Key{}, false
		}
		col, _ := def.column(c)
		cv, err := coerce(v, col.DataType)
		if err != nil || cv == nil {
			return pk.Key{}, false
		}
		values[c] = cv
	}
	key, err := storedKey(def, values)
	if err != nil {
		return pk.Key{}, false
	}
	return key, true
}
