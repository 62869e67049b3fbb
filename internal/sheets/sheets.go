package sheets

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"coursekit/internal/table"

	"github.com/xuri/excelize/v2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ValuesAPI is the slice of the Sheets API used here.
type ValuesAPI interface {
	Get(ctx context.Context, sheetID, rangeName string) ([][]interface{}, error)
	BatchUpdate(ctx context.Context, sheetID string, data []*sheets.ValueRange) error
}

type Service struct {
	values ValuesAPI
}

func NewService(ctx context.Context, credentialsPath string) (*Service, error) {
	if !filepath.IsAbs(credentialsPath) {
		return nil, fmt.Errorf("credentials path must be absolute: %s", credentialsPath)
	}

	srv, err := sheets.NewService(ctx, option.WithCredentialsFile(credentialsPath), option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, err
	}
	return &Service{values: apiValues{srv: srv}}, nil
}

// NewWithValues builds a Service over any ValuesAPI implementation.
func NewWithValues(v ValuesAPI) *Service {
	return &Service{values: v}
}

// ReadTable reads a whole tab. Cells keep their unformatted type (numbers stay float64,
// checkboxes stay bool).
func (s *Service) ReadTable(ctx context.Context, sheetID, sheetName string) (*table.Table, error) {
	values, err := s.values.Get(ctx, sheetID, quoteSheet(sheetName))
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}
	return table.FromValues(values), nil
}

// UpdateColumn writes values[key] into valueCol of every row whose keyCol equals key.
// It returns how many cells were written.
func (s *Service) UpdateColumn(ctx context.Context, sheetID, sheetName, keyCol, valueCol string, values map[string]string) (int, error) {
	tbl, err := s.ReadTable(ctx, sheetID, sheetName)
	if err != nil {
		return 0, err
	}
	col := -1
	for i, h := range tbl.Header {
		if h == valueCol {
			col = i
		}
	}
	if col == -1 {
		return 0, fmt.Errorf("column %q not found in %s", valueCol, sheetName)
	}
	if !tbl.HasColumn(keyCol) {
		return 0, fmt.Errorf("column %q not found in %s", keyCol, sheetName)
	}
	letter, err := excelize.ColumnNumberToName(col + 1)
	if err != nil {
		return 0, err
	}

	var data []*sheets.ValueRange
	for i, row := range tbl.Rows {
		v, ok := values[strings.TrimSpace(row.String(keyCol))]
		if !ok {
			continue
		}
		// header is row 1, sheet rows are 1-indexed
		cell := fmt.Sprintf("%s!%s%d", quoteSheet(sheetName), letter, i+2)
		data = append(data, &sheets.ValueRange{Range: cell, Values: [][]interface{}{{v}}})
	}
	if len(data) == 0 {
		return 0, nil
	}
	if err := s.values.BatchUpdate(ctx, sheetID, data); err != nil {
		return 0, fmt.Errorf("update sheet %s: %w", sheetName, err)
	}
	return len(data), nil
}

func ExtractSheetID(sheetURL string) (string, error) {
	if sheetURL == "" {
		return "", errors.New("sheet URL cannot be empty")
	}
	// Supports full URLs like https://docs.google.com/spreadsheets/d/<id>/edit
	re := regexp.MustCompile(`^https?://docs\.google\.com/spreadsheets/d/([^/]+)/?`)
	matches := re.FindStringSubmatch(sheetURL)
	if len(matches) == 2 {
		return matches[1], nil
	}
	// Allow providing just the sheet ID.
	if !strings.Contains(sheetURL, "/") {
		return sheetURL, nil
	}
	return "", fmt.Errorf("unable to parse sheet id from URL: %s", sheetURL)
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

type apiValues struct {
	srv *sheets.Service
}

func (a apiValues) Get(ctx context.Context, sheetID, rangeName string) ([][]interface{}, error) {
	resp, err := a.srv.Spreadsheets.Values.Get(sheetID, rangeName).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (a apiValues) BatchUpdate(ctx context.Context, sheetID string, data []*sheets.ValueRange) error {
	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}
	_, err := a.srv.Spreadsheets.Values.BatchUpdate(sheetID, req).Context(ctx).Do()
	return err
}
