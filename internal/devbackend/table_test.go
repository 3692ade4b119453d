package devbackend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestNewTablePadsAndTrims(t *testing.T) {
	tbl, err := NewTable("t", "t", [][]string{
		{" a ", "", "c"},
		{"1", " 2 "},
		{"4", "5", "6", "extra"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "column_2", "c"}, tbl.Headers)
	assert.Equal(t, [][]string{{"1", "2", ""}, {"4", "5", "6"}}, tbl.Rows)
}

func TestNewTableRejectsDuplicateHeaders(t *testing.T) {
	_, err := NewTable("t", "t", [][]string{{"a", "a"}, {"1", "2"}})
	assert.Error(t, err)
}

func TestNewTableNeedsData(t *testing.T) {
	_, err := NewTable("t", "t", [][]string{{"a"}})
	assert.Error(t, err)
}

func TestLoadDirReadsCSVAndXLSX(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clinic_visits.csv"), []byte("ward,age\nA,30\nB,41\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "region"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "sales"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "north"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 12))
	require.NoError(t, f.SaveAs(filepath.Join(dir, "sales.xlsx")))
	require.NoError(t, f.Close())

	tables, err := LoadDir(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Len(t, tables, 2)

	clinic := tables["clinic_visits"]
	require.NotNil(t, clinic)
	assert.Equal(t, "clinic visits", clinic.Title)
	assert.Equal(t, []string{"ward", "age"}, clinic.Headers)
	assert.Len(t, clinic.Rows, 2)

	sales := tables["sales"]
	require.NotNil(t, sales)
	assert.Equal(t, [][]string{{"north", "12"}}, sales.Rows)
}

func TestLoadDirMissing(t *testing.T) {
	_, err := LoadDir(context.Background(), filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}
