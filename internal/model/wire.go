package model

import (
	"encoding/json"

	"gridedit/internal/pk"
)

type SaveRow struct {
	PK      pk.Key            `json:"pk"`
	Columns map[string]string `json:"columns"`
}

type SaveRequest struct {
	Rows []SaveRow `json:"rows"`
}

type InsertRequest struct {
	Columns map[string]string `json:"columns"`
}

type DeleteRequest struct {
	PKs []pk.Key `json:"pks"`
}

// RowError is one entry of a per-row error list.
type RowError struct {
	Error string          `json:"error"`
	Row   json.RawMessage `json:"row,omitempty"`
	PK    json.RawMessage `json:"pk,omitempty"`
}

// Result is the response envelope shared by all three endpoints.
type Result struct {
	OK       bool       `json:"ok"`
	Error    string     `json:"error,omitempty"`
	Errors   []RowError `json:"errors,omitempty"`
	Updated  *int       `json:"updated,omitempty"`
	Inserted *int       `json:"inserted,omitempty"`
	Deleted  *int       `json:"deleted,omitempty"`
}

const fallbackError = "Unknown error"

// ErrorMessage picks the message to surface for a failed result: the first
// per-row error if present, then the top-level error, then a generic fallback.
func (r Result) ErrorMessage() string {
	if len(r.Errors) > 0 && r.Errors[0].Error != "" {
		return r.Errors[0].Error
	}
	if r.Error != "" {
		return r.Error
	}
	return fallbackError
}

func IntPtr(n int) *int { return &n }
