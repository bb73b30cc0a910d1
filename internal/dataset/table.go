// Package dataset handles uploaded tabular snapshots: CSV parsing, schema
// validation, duplicate-aware merging, and decoding into typed records.
package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Table is a parsed tabular dataset. Rows hold raw cell values in column
// order; column lookup is by name.
type Table struct {
	Columns []string
	Rows    [][]string

	index map[string]int
}

// NewTable builds a table with the given columns and no rows.
func NewTable(columns []string) *Table {
	t := &Table{Columns: columns}
	t.buildIndex()
	return t
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c] = i
	}
}

// HasColumn reports whether the table has the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Cell returns the value of the named column in row i, or "" if the
// column does not exist.
func (t *Table) Cell(i int, column string) string {
	idx, ok := t.index[column]
	if !ok || idx >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][idx]
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ReadCSV parses CSV content into a table. The first record is the header;
// header names are trimmed and lower-cased.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(h))
	}
	table := NewTable(columns)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV row: %w", err)
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

// ReadCSVBytes parses in-memory CSV content into a table.
func ReadCSVBytes(data []byte) (*Table, error) {
	return ReadCSV(bytes.NewReader(data))
}

// EncodeCSV serializes the table back to CSV bytes.
func (t *Table) EncodeCSV() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Columns); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
