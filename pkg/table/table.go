// Package table implements the flat tabular persistence shared by every
// pipeline stage: CSV with a header row, one file per entity, empty string
// encoding null. Writes are atomic (temp file plus rename) so a reader never
// observes a partially written table.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// TimeLayout is the timestamp encoding used across all tables.
const TimeLayout = time.RFC3339

// DateLayout is the day-granularity encoding used for report and order dates.
const DateLayout = "2006-01-02"

// SchemaDriftError reports a required column missing from an input table.
// This is an upstream contract violation and fails the run immediately.
type SchemaDriftError struct {
	Table  string
	Column string
}

func (e *SchemaDriftError) Error() string {
	return fmt.Sprintf("table %s: required column %q is missing", e.Table, e.Column)
}

// Table is an in-memory tabular file: a header row plus data rows, all
// string-encoded.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string

	index map[string]int
}

// New creates an empty table with the given header.
func New(name string, header []string) *Table {
	t := &Table{Name: name, Header: header}
	t.buildIndex()
	return t
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Header))
	for i, col := range t.Header {
		t.index[col] = i
	}
}

// Append adds one data row. The caller is responsible for matching the
// header's column order.
func (t *Table) Append(row ...string) {
	t.Rows = append(t.Rows, row)
}

// Get returns the value of the named column in the given row. Missing
// columns return the empty string; use Require up front to reject them.
func (t *Table) Get(row []string, column string) string {
	i, ok := t.index[column]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Require checks that every named column exists, returning a
// SchemaDriftError for the first one that does not.
func (t *Table) Require(columns ...string) error {
	for _, col := range columns {
		if _, ok := t.index[col]; !ok {
			return &SchemaDriftError{Table: t.Name, Column: col}
		}
	}
	return nil
}

// Read loads a CSV table from a reader. An empty input (header only, or zero
// bytes) yields a table with no rows, not an error.
func Read(reader io.Reader, name string) (*Table, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", name, err)
	}

	t := &Table{Name: name}
	if len(records) > 0 {
		t.Header = records[0]
		t.Rows = records[1:]
	}
	t.buildIndex()
	return t, nil
}

// ReadFile loads a CSV table from disk.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, tableName(path))
}

// WriteFile persists the table atomically: the data is written to a temp
// file in the target directory and renamed into place.
func (t *Table) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.Name, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(t.Header); err != nil {
		f.Close()
		return fmt.Errorf("failed to write header of %s: %w", t.Name, err)
	}
	for _, row := range t.Rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("failed to write row of %s: %w", t.Name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to flush table %s: %w", t.Name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close table %s: %w", t.Name, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to publish table %s: %w", t.Name, err)
	}
	return nil
}

func tableName(path string) string {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	return base
}

// Null-aware encoding helpers. Nil encodes as the empty string.

func FormatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func FormatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func FormatBool(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

func FormatTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(TimeLayout)
}

// Null-aware decoding helpers. The empty string decodes as nil.

func ParseFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func ParseInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func ParseBool(s string) (*bool, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func ParseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	v, err := time.Parse(TimeLayout, s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
