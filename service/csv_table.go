package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var (
	ErrCSVEmpty        = errors.New("csv file has no header row")
	ErrCSVNoDataRows   = errors.New("csv file has no data rows")
	ErrCSVRaggedRecord = errors.New("csv record length does not match header")
)

// Column 一列数据；仅当全部非空单元格可解析为数值时 Numeric 为 true
type Column struct {
	Name    string
	Raw     []string
	Values  []float64
	Numeric bool
}

// Table 按列组织的表格数据，保留原始列顺序
type Table struct {
	Columns []Column
	Rows    int
}

func (t *Table) Column(name string) (Column, bool) {
	for _, col := range t.Columns {
		if col.Name == name {
			return col, true
		}
	}
	return Column{}, false
}

func (t *Table) NumericColumns() []Column {
	var cols []Column
	for _, col := range t.Columns {
		if col.Numeric {
			cols = append(cols, col)
		}
	}
	return cols
}

// LoadCSVTable 读取一个 CSV 文件为列表格
func LoadCSVTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDatasetFileNotFound, path)
		}
		return nil, fmt.Errorf("open csv failed: %w", err)
	}
	defer f.Close()

	return ReadCSVTable(f)
}

func ReadCSVTable(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrCSVEmpty
		}
		return nil, fmt.Errorf("read csv header failed: %w", err)
	}

	raw := make([][]string, len(header))
	rows := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record failed: %w", err)
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("%w: row %d", ErrCSVRaggedRecord, rows+2)
		}
		for i, cell := range record {
			raw[i] = append(raw[i], strings.TrimSpace(cell))
		}
		rows++
	}
	if rows == 0 {
		return nil, ErrCSVNoDataRows
	}

	table := &Table{Rows: rows}
	for i, name := range header {
		col := Column{
			Name: strings.TrimSpace(name),
			Raw:  raw[i],
		}
		col.Values, col.Numeric = parseNumericColumn(raw[i])
		table.Columns = append(table.Columns, col)
	}
	return table, nil
}

func parseNumericColumn(cells []string) ([]float64, bool) {
	values := make([]float64, 0, len(cells))
	seen := false
	for _, cell := range cells {
		if cell == "" {
			values = append(values, 0)
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
		if err != nil {
			return nil, false
		}
		values = append(values, v)
		seen = true
	}
	return values, seen
}
