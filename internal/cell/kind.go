package cell

import "strings"

// InputKind selects the edit widget for a column.
type InputKind int

const (
	KindText InputKind = iota
	KindNumber
	KindDate
	KindDateTime
	KindTime
	KindCheckbox
)

func (k InputKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime-local"
	case KindTime:
		return "time"
	case KindCheckbox:
		return "checkbox"
	default:
		return "text"
	}
}

// Temporal kinds get the "set to now" affordance.
func (k InputKind) Temporal() bool {
	return k == KindDate || k == KindDateTime || k == KindTime
}

// KindForDataType maps a declared column data type (PostgreSQL spelling) to
// an input kind.
func KindForDataType(dataType string) InputKind {
	dt := strings.ToLower(strings.TrimSpace(dataType))
	switch {
	case dt == "date":
		return KindDate
	case strings.HasPrefix(dt, "timestamp"):
		return KindDateTime
	case strings.HasPrefix(dt, "time"):
		return KindTime
	case dt == "boolean" || dt == "bool":
		return KindCheckbox
	}
	switch dt {
	case "integer", "int", "int2", "int4", "int8", "bigint", "smallint",
		"serial", "bigserial", "smallserial",
		"real", "double precision", "float4", "float8",
		"numeric", "decimal":
		return KindNumber
	}
	if strings.HasPrefix(dt, "numeric(") || strings.HasPrefix(dt, "decimal(") {
		return KindNumber
	}
	return KindText
}
