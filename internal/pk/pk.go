// Package pk resolves row identities.
//
// A primary key arrives as a serialized JSON attribute: either an object mapping
// primary-key column names to scalar values, or an array of scalars. Keys are
// compared through their canonical encoding (sorted object keys, numbers kept
// verbatim), so two structurally equal keys always map to the same string.
package pk

import (
	"bytes"
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
)

var canonical = jsoniter.Config{
	SortMapKeys: true,
	UseNumber:   true,
	EscapeHTML:  false,
}.Froze()

// Key is a resolved primary key. The zero Key means "no identity".
type Key struct {
	value any
	canon string
}

// Resolve parses a serialized primary-key attribute. It reports false when the
// attribute is absent, malformed, or not an object/array of scalars; callers
// treat such rows as read-only.
func Resolve(raw []byte) (Key, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Key{}, false
	}
	var v any
	if err := canonical.Unmarshal(raw, &v); err != nil {
		return Key{}, false
	}
	return fromValue(v)
}

// Parse is Resolve for string input (CLI flags, fixtures).
func Parse(s string) (Key, bool) {
	return Resolve([]byte(s))
}

// FromValues builds an object key from the named columns of a value map.
// Missing columns or non-scalar values yield no identity.
func FromValues(columns []string, values map[string]any) (Key, bool) {
	if len(columns) == 0 {
		return Key{}, false
	}
	obj := make(map[string]any, len(columns))
	for _, c := range columns {
		v, ok := values[c]
		if !ok {
			return Key{}, false
		}
		obj[c] = v
	}
	return fromValue(obj)
}

func fromValue(v any) (Key, bool) {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			return Key{}, false
		}
		for _, x := range t {
			if !isScalar(x) {
				return Key{}, false
			}
		}
	case []any:
		if len(t) == 0 {
			return Key{}, false
		}
		for _, x := range t {
			if !isScalar(x) {
				return Key{}, false
			}
		}
	default:
		return Key{}, false
	}
	b, err := canonical.Marshal(v)
	if err != nil {
		return Key{}, false
	}
	return Key{value: v, canon: string(b)}, true
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, json.Number, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	}
	return false
}

// String returns the canonical encoding used as the dirty-set map key.
func (k Key) String() string { return k.canon }

func (k Key) IsZero() bool { return k.canon == "" }

// Value returns the structured key: map[string]any or []any.
func (k Key) Value() any { return k.value }

// Field returns the scalar stored under column for object keys.
func (k Key) Field(column string) (any, bool) {
	obj, ok := k.value.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[column]
	return v, ok
}

func (k Key) Equal(o Key) bool { return k.canon == o.canon }

func (k Key) MarshalJSON() ([]byte, error) {
	if k.IsZero() {
		return []byte("null"), nil
	}
	return []byte(k.canon), nil
}

// UnmarshalJSON never fails on content: an unusable key decodes to the zero Key.
func (k *Key) UnmarshalJSON(b []byte) error {
	key, _ := Resolve(b)
	*k = key
	return nil
}
