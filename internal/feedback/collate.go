package feedback

import (
	"strings"

	"coursekit/internal/table"
)

// Separator joins collated note fields; messages are rendered inside Markdown tables.
const Separator = "<br>"

// Collate joins the listed fields of row in list order, skipping blank cells. Fields
// absent from the row are returned separately.
func Collate(row table.Row, fields []string) (string, []string) {
	var parts, missing []string
	for _, f := range fields {
		if !row.Has(f) {
			missing = append(missing, f)
			continue
		}
		if v := strings.TrimSpace(FormatValue(row[f])); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, Separator), missing
}

// UnknownFields lists header columns carrying one of the prefixes that are not in any
// of the listed field sets, in header order.
func UnknownFields(header []string, prefixes []string, listed ...[]string) []string {
	known := make(map[string]bool)
	for _, l := range listed {
		for _, f := range l {
			known[f] = true
		}
	}
	var unknown []string
	for _, h := range header {
		if known[h] {
			continue
		}
		for _, p := range prefixes {
			if p != "" && strings.HasPrefix(h, p) {
				unknown = append(unknown, h)
				break
			}
		}
	}
	return unknown
}
