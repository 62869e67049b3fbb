// Package table loads header-keyed tabular data from CSV exports, Excel workbooks and
// Google Sheets value ranges, keeping the source column order.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNotFound marks a missing input file.
var ErrNotFound = errors.New("input not found")

// Row maps a column header to its cell value. Values from text sources are strings;
// values from Sheets may also be float64 or bool.
type Row map[string]any

// Has reports whether the column exists in the row.
func (r Row) Has(col string) bool {
	_, ok := r[col]
	return ok
}

// String renders a cell the way it reads in the sheet.
func (r Row) String(col string) string {
	return Format(r[col])
}

// Format renders a raw cell value without any rounding.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

type Table struct {
	Header []string
	Rows   []Row
}

// Index keys rows by a column. Later rows win over earlier ones with the same key.
func (t *Table) Index(col string) map[string]Row {
	idx := make(map[string]Row, len(t.Rows))
	for _, row := range t.Rows {
		key := strings.TrimSpace(row.String(col))
		if key == "" {
			continue
		}
		idx[key] = row
	}
	return idx
}

// HasColumn reports whether the header contains col.
func (t *Table) HasColumn(col string) bool {
	for _, h := range t.Header {
		if h == col {
			return true
		}
	}
	return false
}

// Open picks a reader from the file extension. For workbooks a sheet can be selected
// with a "#Sheet" suffix, e.g. "marks.xlsx#Project 2".
func Open(path string) (*Table, error) {
	file, sheet, _ := strings.Cut(path, "#")
	switch strings.ToLower(filepath.Ext(file)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(file, sheet)
	default:
		return ReadCSV(path)
	}
}

func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()
	return ParseCSV(f)
}

func ParseCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return fromRecords(records), nil
}

func ReadXLSX(path, sheet string) (*Table, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer file.Close()

	if sheet == "" {
		sheets := file.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	}
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows of %s: %w", sheet, err)
	}
	return fromRecords(rows), nil
}

// FromValues builds a table from a Sheets value range; the first row is the header.
func FromValues(values [][]interface{}) *Table {
	t := &Table{}
	if len(values) == 0 {
		return t
	}
	for _, h := range values[0] {
		t.Header = append(t.Header, cleanHeader(Format(h)))
	}
	for _, raw := range values[1:] {
		row := make(Row, len(t.Header))
		for i, col := range t.Header {
			if i < len(raw) {
				row[col] = raw[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func fromRecords(records [][]string) *Table {
	t := &Table{}
	if len(records) == 0 {
		return t
	}
	for _, h := range records[0] {
		t.Header = append(t.Header, cleanHeader(h))
	}
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make(Row, len(t.Header))
		for i, col := range t.Header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func cleanHeader(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
