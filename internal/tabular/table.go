// Package tabular reads and writes the header-addressed tables exchanged by the
// recall jobs: CSV exports of the government dataset (UTF-8 or CP949) and XLSX
// workbooks with one table per sheet.
package tabular

import (
	"path/filepath"
	"strings"

	"github.com/lemonscanner/lemon-scanner/internal/errors"
)

// Table is a named grid of string cells with a header row.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

// Index returns the position of column name in the header, or -1.
func (t *Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the trimmed cell of row at column idx, or "" when out of range.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// TrimHeader strips surrounding whitespace and a UTF-8 byte order mark from header names.
func (t *Table) TrimHeader() {
	for i, h := range t.Header {
		t.Header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
}

// Format identifies a supported file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	default:
		return "", errors.Newf("unsupported input format %q", filepath.Ext(path)).
			Component("tabular").
			Category(errors.CategoryValidation).
			Context("path", path).
			Build()
	}
}

// ReadFile reads path as CSV (one table named after the file) or as a workbook
// restricted to sheets (all sheets when empty). encoding applies to CSV only.
func ReadFile(path, encoding string, sheets []string) ([]Table, []string, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, nil, err
	}
	if format == FormatXLSX {
		return ReadWorkbook(path, sheets)
	}
	t, err := ReadCSVFile(path, encoding)
	if err != nil {
		return nil, nil, err
	}
	return []Table{*t}, nil, nil
}
