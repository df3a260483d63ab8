package sandbox

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

var (
	boolTypes    = map[string]bool{"boolean": true, "bool": true}
	intTypes     = map[string]bool{"integer": true, "int": true, "int4": true, "int8": true, "int2": true, "bigint": true, "smallint": true, "serial": true, "bigserial": true, "smallserial": true}
	floatTypes   = map[string]bool{"real": true, "double precision": true, "float4": true, "float8": true}
	decimalTypes = map[string]bool{"numeric": true, "decimal": true}
)

func normType(dataType string) string {
	dt := strings.ToLower(strings.TrimSpace(dataType))
	if i := strings.IndexByte(dt, '('); i >= 0 {
		dt = strings.TrimSpace(dt[:i])
	}
	return dt
}

func isIntType(dataType string) bool { return intTypes[normType(dataType)] }

func isNumericType(dataType string) bool {
	dt := normType(dataType)
	return intTypes[dt] || floatTypes[dt] || decimalTypes[dt]
}

func isTemporalType(dataType string) bool {
	dt := normType(dataType)
	return dt == "date" || strings.HasPrefix(dt, "timestamp") || strings.HasPrefix(dt, "time")
}

// rawString renders a decoded JSON value as text. The boolean flag reports a
// JSON null.
func rawString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", true
	case string:
		return t, false
	case bool:
		return strconv.FormatBool(t), false
	case json.Number:
		return t.String(), false
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), false
	case int:
		return strconv.Itoa(t), false
	case int64:
		return strconv.FormatInt(t, 10), false
	default:
		return fmt.Sprint(t), false
	}
}

func isEmpty(v any) bool {
	s, null := rawString(v)
	return null || strings.TrimSpace(s) == ""
}

// coerce normalizes a written value for storage according to the column's
// declared type. nil means SQL NULL. Blank temporal, boolean and numeric values
// become NULL; numbers must parse.
func coerce(v any, dataType string) (*string, error) {
	s, null := rawString(v)
	if null {
		return nil, nil
	}
	dt := normType(dataType)
	trimmed := strings.TrimSpace(s)

	switch {
	case boolTypes[dt]:
		if trimmed == "" {
			return nil, nil
		}
		switch strings.ToLower(trimmed) {
		case "t", "true", "1", "yes", "on":
			return strPtr("true"), nil
		case "f", "false", "0", "no", "off":
			return strPtr("false"), nil
		}
		return nil, nil
	case isTemporalType(dt):
		if trimmed == "" {
			return nil, nil
		}
		if err := checkTemporal(trimmed, dt); err != nil {
			return nil, err
		}
		return strPtr(trimmed), nil
	case intTypes[dt]:
		if trimmed == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			// JSON numbers such as 7.0 still name an integer.
			f, ferr := strconv.ParseFloat(trimmed, 64)
			if ferr != nil || f != float64(int64(f)) {
				return nil, fmt.Errorf("invalid input syntax for type integer: %q", s)
			}
			n = int64(f)
		}
		return strPtr(strconv.FormatInt(n, 10)), nil
	case floatTypes[dt]:
		if trimmed == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid input syntax for type double precision: %q", s)
		}
		return strPtr(strconv.FormatFloat(f, 'f', -1, 64)), nil
	case decimalTypes[dt]:
		if trimmed == "" {
			return nil, nil
		}
		d, _, err := apd.NewFromString(trimmed)
		if err != nil || d.Form != apd.Finite {
			return nil, fmt.Errorf("invalid input syntax for type numeric: %q", s)
		}
		// Text keeps the written scale: "12.50" stays "12.50".
		return strPtr(d.Text('f')), nil
	}
	return strPtr(s), nil
}

var temporalLayouts = map[string][]string{
	"date":      {"2006-01-02"},
	"timestamp": {"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02 15:04", time.RFC3339, "2006-01-02 15:04:05Z07:00"},
	"time":      {"15:04:05", "15:04"},
}

func checkTemporal(s string, dt string) error {
	key := "date"
	label := "date"
	switch {
	case strings.HasPrefix(dt, "timestamp"):
		key, label = "timestamp", "timestamp"
	case strings.HasPrefix(dt, "time"):
		key, label = "time", "time"
	}
	for _, layout := range temporalLayouts[key] {
		if _, err := time.Parse(layout, s); err == nil {
			return nil
		}
	}
	return fmt.Errorf("invalid input syntax for type %s: %q", label, s)
}

func strPtr(s string) *string { return &s }
