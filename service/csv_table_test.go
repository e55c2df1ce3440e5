package service

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadCSVTableParsesColumns(t *testing.T) {
	table := mustReadTable(t, strings.Join([]string{
		"week,sales,notes",
		"2024-01-01,\"1,200\",promo",
		"2024-01-08,900,",
	}, "\n"))

	assert.Equal(t, 2, table.Rows)
	assert.Len(t, table.Columns, 3)

	sales, ok := table.Column("sales")
	assert.True(t, ok)
	assert.True(t, sales.Numeric)
	assert.Equal(t, []float64{1200, 900}, sales.Values)

	week, ok := table.Column("week")
	assert.True(t, ok)
	assert.False(t, week.Numeric)
	assert.Equal(t, []string{"2024-01-01", "2024-01-08"}, week.Raw)
}

func TestReadCSVTableEmptyCellsCountAsZero(t *testing.T) {
	table := mustReadTable(t, strings.Join([]string{
		"spend,day",
		"10,1",
		",2",
		"30,3",
	}, "\n"))

	col, ok := table.Column("spend")
	assert.True(t, ok)
	assert.True(t, col.Numeric)
	assert.Equal(t, []float64{10, 0, 30}, col.Values)
}

func TestReadCSVTableErrors(t *testing.T) {
	_, err := ReadCSVTable(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrCSVEmpty)

	_, err = ReadCSVTable(strings.NewReader("a,b\n"))
	assert.ErrorIs(t, err, ErrCSVNoDataRows)
}

func TestLoadCSVTableMissingFile(t *testing.T) {
	_, err := LoadCSVTable(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, ErrDatasetFileNotFound)
}

func TestLoadCSVTableFromFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "demo.csv")
	err := os.WriteFile(file, []byte("kpi,tv_spend\n10,2\n20,3\n"), 0o644)
	assert.NoError(t, err)

	table, err := LoadCSVTable(file)
	assert.NoError(t, err)
	assert.Equal(t, 2, table.Rows)
	assert.Len(t, table.NumericColumns(), 2)
}
