package table

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSVKeepsHeaderOrder(t *testing.T) {
	src := "\ufeffTimestamp,Student number,E1(a). Explain,E2. Why\n" +
		"2025-09-01,3001234,\"a, b\",x | y\n" +
		",,,\n" +
		"2025-09-02,3005678,short\n"

	tbl, err := ParseCSV(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"Timestamp", "Student number", "E1(a). Explain", "E2. Why"}, tbl.Header)
	require.Len(t, tbl.Rows, 2, "blank lines are dropped")
	assert.Equal(t, "a, b", tbl.Rows[0].String("E1(a). Explain"))
	assert.Equal(t, "x | y", tbl.Rows[0].String("E2. Why"))
	assert.Equal(t, "", tbl.Rows[1].String("E2. Why"), "short rows are padded")
	assert.True(t, tbl.Rows[1].Has("E2. Why"))
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestIndexLaterRowsWin(t *testing.T) {
	tbl := &Table{
		Header: []string{"id", "v"},
		Rows: []Row{
			{"id": "1", "v": "old"},
			{"id": "", "v": "ignored"},
			{"id": "1", "v": "new"},
			{"id": " 2 ", "v": "two"},
		},
	}
	idx := tbl.Index("id")
	assert.Len(t, idx, 2)
	assert.Equal(t, "new", idx["1"].String("v"))
	assert.Equal(t, "two", idx["2"].String("v"))
}

func TestFromValues(t *testing.T) {
	tbl := FromValues([][]interface{}{
		{"REPO_ID_SUFFIX", "SKIP", "POINTS"},
		{"ssardina", false, 12.5},
		{"alice"},
	})
	assert.Equal(t, []string{"REPO_ID_SUFFIX", "SKIP", "POINTS"}, tbl.Header)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, false, tbl.Rows[0]["SKIP"])
	assert.Equal(t, "12.5", tbl.Rows[0].String("POINTS"))
	assert.Equal(t, "", tbl.Rows[1].String("POINTS"))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "", Format(nil))
	assert.Equal(t, "3", Format(3.0))
	assert.Equal(t, "2.005", Format(2.005))
	assert.Equal(t, "true", Format(true))
	assert.Equal(t, "7", Format(7))
}

func TestOpenWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marks.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"REPO_ID_SUFFIX", "COMMIT"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"ssardina", "abc1234"}))
	_, err := f.NewSheet("Other")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Other", "A1", &[]interface{}{"X"}))
	require.NoError(t, f.SetSheetRow("Other", "A2", &[]interface{}{"y"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"REPO_ID_SUFFIX", "COMMIT"}, tbl.Header)
	assert.Equal(t, "abc1234", tbl.Rows[0].String("COMMIT"))

	tbl, err = Open(path + "#Other")
	require.NoError(t, err)
	assert.Equal(t, "y", tbl.Rows[0].String("X"))

	_, err = Open(filepath.Join(t.TempDir(), "none.xlsx"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestOpenFallsBackToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644))

	tbl, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "2", tbl.Rows[0].String("b"))
}
