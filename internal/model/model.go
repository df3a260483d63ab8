package model

import "encoding/json"

// Column is the per-column metadata embedded in a grid page.
type Column struct {
	Name          string  `json:"name" yaml:"name"`
	DataType      string  `json:"dataType" yaml:"dataType"`
	IsNullable    bool    `json:"isNullable" yaml:"isNullable"`
	ColumnDefault *string `json:"columnDefault,omitempty" yaml:"columnDefault,omitempty"`
}

// GridConfig is read once per page load and never re-fetched in between.
type GridConfig struct {
	DBAlias    string `json:"dbAlias,omitempty"`
	SchemaName string `json:"schemaName,omitempty"`
	TableName  string `json:"tableName"`

	PKColumns      []string `json:"pkColumns"`
	PKUsesSequence []string `json:"pkUsesSequence"`
	Columns        []Column `json:"columns"`

	SaveURL   string `json:"saveUrl"`
	InsertURL string `json:"insertUrl"`
	DeleteURL string `json:"deleteUrl"`
	CSRFToken string `json:"csrfToken"`
}

func (c GridConfig) IsPKColumn(name string) bool {
	for _, pk := range c.PKColumns {
		if pk == name {
			return true
		}
	}
	return false
}

// UsesSequence reports whether the server generates values for the column.
func (c GridConfig) UsesSequence(name string) bool {
	for _, s := range c.PKUsesSequence {
		if s == name {
			return true
		}
	}
	return false
}

func (c GridConfig) Column(name string) (Column, bool) {
	for _, col := range c.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

// PageRow is one rendered row. PK is the raw, serialized primary key attribute;
// it may be missing or malformed, in which case the row is read-only.
type PageRow struct {
	PK     json.RawMessage   `json:"pk,omitempty"`
	Values map[string]string `json:"values"`
}

type Page struct {
	Config  GridConfig        `json:"config"`
	Rows    []PageRow         `json:"rows"`
	Page    int               `json:"page"`
	PerPage int               `json:"perPage"`
	Total   int               `json:"total"`
	Sort    string            `json:"sort,omitempty"`
	Order   string            `json:"order,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
}

// Query selects which page of a grid to load.
type Query struct {
	Sort    string
	Order   string
	Page    int
	PerPage int
	Filters map[string]string
}
