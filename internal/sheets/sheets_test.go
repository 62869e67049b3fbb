package sheets

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/sheets/v4"
)

type fakeValues struct {
	values  [][]interface{}
	gotRng  string
	updates []*sheets.ValueRange
}

func (f *fakeValues) Get(_ context.Context, _ string, rangeName string) ([][]interface{}, error) {
	f.gotRng = rangeName
	return f.values, nil
}

func (f *fakeValues) BatchUpdate(_ context.Context, _ string, data []*sheets.ValueRange) error {
	f.updates = append(f.updates, data...)
	return nil
}

func TestReadTable(t *testing.T) {
	fake := &fakeValues{values: [][]interface{}{
		{"REPO_ID_SUFFIX", "POINTS", "SKIP"},
		{"ssardina", 12.5, false},
	}}
	svc := NewWithValues(fake)

	tbl, err := svc.ReadTable(context.Background(), "id", "P2 marking")
	require.NoError(t, err)
	assert.Equal(t, "'P2 marking'", fake.gotRng)
	assert.Equal(t, 12.5, tbl.Rows[0]["POINTS"])
}

func TestUpdateColumn(t *testing.T) {
	fake := &fakeValues{values: [][]interface{}{
		{"NO", "REPO_ID_SUFFIX", "COMMIT"},
		{"1", "alice", ""},
		{"2", "bob", ""},
		{"3", "carol", ""},
	}}
	svc := NewWithValues(fake)

	n, err := svc.UpdateColumn(context.Background(), "id", "marks", "REPO_ID_SUFFIX", "COMMIT",
		map[string]string{"bob": "abc1234", "carol": "def5678", "zed": "0000000"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, fake.updates, 2)
	assert.Equal(t, "'marks'!C3", fake.updates[0].Range)
	assert.Equal(t, [][]interface{}{{"abc1234"}}, fake.updates[0].Values)
	assert.Equal(t, "'marks'!C4", fake.updates[1].Range)
}

func TestUpdateColumnUnknownColumn(t *testing.T) {
	fake := &fakeValues{values: [][]interface{}{{"REPO_ID_SUFFIX"}}}
	_, err := NewWithValues(fake).UpdateColumn(context.Background(), "id", "marks", "REPO_ID_SUFFIX", "COMMIT", nil)
	assert.ErrorContains(t, err, `"COMMIT"`)
}

func TestExtractSheetID(t *testing.T) {
	id, err := ExtractSheetID("https://docs.google.com/spreadsheets/d/1SttMV-U3dA/edit#gid=0")
	require.NoError(t, err)
	assert.Equal(t, "1SttMV-U3dA", id)

	id, err = ExtractSheetID("1SttMV-U3dA")
	require.NoError(t, err)
	assert.Equal(t, "1SttMV-U3dA", id)

	_, err = ExtractSheetID("https://example.com/a/b")
	assert.Error(t, err)
	_, err = ExtractSheetID("")
	assert.Error(t, err)
}
