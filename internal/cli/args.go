package cli

import (
	"fmt"
	"strings"
)

type assignment struct {
	column string
	value  string
}

// parseAssignments splits column=value arguments, keeping their order. The
// value may be empty or contain further '=' characters.
func parseAssignments(args []string) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	seen := map[string]bool{}
	for _, a := range args {
		col, val, ok := strings.Cut(a, "=")
		col = strings.TrimSpace(col)
		if !ok || col == "" {
			return nil, errUsage("expected column=value, got %q", a)
		}
		if seen[col] {
			return nil, errUsage("column %q given twice", col)
		}
		seen[col] = true
		out = append(out, assignment{column: col, value: val})
	}
	return out, nil
}

func filterValue(v any) string {
	return fmt.Sprint(v)
}
