package feedback

import (
	"strconv"
	"strings"

	"coursekit/internal/table"
)

// Round rounds to two decimals. The rounding is done on the exact binary value, ties
// to even, so 2.005 (stored as 2.00499...) becomes 2 and 0.125 becomes 0.12.
func Round(f float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 2, 64), 64)
	if err != nil {
		return f
	}
	return r
}

// FormatValue renders a cell for a message. Floats are rounded to two decimals and
// whole numbers lose their fraction (3.00 -> "3").
func FormatValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(Round(x), 'f', -1, 64)
	case float32:
		return FormatValue(float64(x))
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return table.Format(v)
	}
}

// Normalize converts text cells (CSV, XLSX) to the types the Sheets API returns for
// the same cells: TRUE/FALSE become bools and decimal numbers become float64.
func Normalize(row table.Row) {
	for k, v := range row {
		s, ok := v.(string)
		if !ok {
			continue
		}
		trimmed := strings.TrimSpace(s)
		switch {
		case strings.EqualFold(trimmed, "TRUE"):
			row[k] = true
		case strings.EqualFold(trimmed, "FALSE"):
			row[k] = false
		case strings.Contains(trimmed, "."):
			if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
				row[k] = f
			}
		}
	}
}

// NormalizeTable applies Normalize to every row.
func NormalizeTable(t *table.Table) {
	for _, row := range t.Rows {
		Normalize(row)
	}
}

// truthy treats nil, false, zero and blank text as unset. Text holding a number is
// read as that number, so a 0/1 flag column exported to CSV behaves like the sheet.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case string:
		trimmed := strings.TrimSpace(x)
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return f != 0
		}
		return trimmed != ""
	default:
		return true
	}
}
