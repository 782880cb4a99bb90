// Package ingest reads patent and paper tables, normalizes them into
// documents and rebuilds the vector collection from them.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one source record keyed by column name.
type Row map[string]string

// Get returns the value of column and whether the column was present.
func (r Row) Get(column string) (string, bool) {
	v, ok := r[column]
	return v, ok
}

// Table is a header plus rows read from a tabular source.
type Table struct {
	Columns []string
	Rows    []Row
}

// HasColumn reports whether the table header contains column.
func (t *Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// ReadTable reads a .csv or .xlsx file whose first row is the header.
// At most limit data rows are read; limit <= 0 reads everything.
func ReadTable(path string, limit int) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readExcel(path, limit)
	case ".csv", ".txt", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f, limit)
	default:
		return nil, fmt.Errorf("unsupported table format: %s", filepath.Ext(path))
	}
}

// ReadCSV reads comma-separated records with a header row from r.
func ReadCSV(r io.Reader, limit int) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &Table{Columns: cleanHeader(header)}
	for limit <= 0 || len(t.Rows) < limit {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(t.Rows)+1, err)
		}
		t.Rows = append(t.Rows, makeRow(t.Columns, rec))
	}
	return t, nil
}

func readExcel(path string, limit int) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}
	t := &Table{Columns: cleanHeader(rows[0])}
	for _, rec := range rows[1:] {
		if limit > 0 && len(t.Rows) >= limit {
			break
		}
		t.Rows = append(t.Rows, makeRow(t.Columns, rec))
	}
	return t, nil
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		// spreadsheets exported as UTF-8 often carry a BOM on the first cell
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return out
}

// makeRow maps rec onto columns. Short records leave trailing columns absent.
func makeRow(columns, rec []string) Row {
	row := make(Row, len(columns))
	for i, c := range columns {
		if i < len(rec) {
			row[c] = rec[i]
		}
	}
	return row
}
