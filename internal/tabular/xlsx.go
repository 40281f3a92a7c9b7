package tabular

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/xuri/excelize/v2"

	"github.com/lemonscanner/lemon-scanner/internal/errors"
)

// defaultSheet is the sheet excelize creates in a new workbook.
const defaultSheet = "Sheet1"

// Sheet is one output sheet. Row cells keep their Go types so numbers stay numeric in Excel.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// ReadWorkbook reads the named sheets of an XLSX file, or every sheet when
// sheets is empty. Requested sheets that do not exist are returned in missing;
// the call fails only when no sheet could be read.
func ReadWorkbook(path string, sheets []string) (tables []Table, missing []string, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, errors.New(err).
			Component("tabular").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	defer f.Close()

	available := f.GetSheetList()
	wanted := sheets
	if len(wanted) == 0 {
		wanted = available
	}

	for _, name := range wanted {
		if !slices.Contains(available, name) {
			missing = append(missing, name)
			continue
		}
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, missing, errors.New(fmt.Errorf("read sheet %s: %w", name, err)).
				Component("tabular").
				Category(errors.CategoryFileParsing).
				Context("path", path).
				Build()
		}
		if len(rows) == 0 {
			missing = append(missing, name)
			continue
		}
		t := Table{Name: name, Header: rows[0], Rows: rows[1:]}
		t.TrimHeader()
		tables = append(tables, t)
	}

	if len(tables) == 0 {
		return nil, missing, errors.Newf("workbook has no readable sheets").
			Component("tabular").
			Category(errors.CategoryFileParsing).
			Context("path", path).
			Context("missing", missing).
			Build()
	}
	return tables, missing, nil
}

// WriteWorkbook writes sheets to path in order. The file is built next to path
// and renamed into place, so a failed write leaves no partial workbook behind.
// With no sheets the workbook holds a single empty default sheet.
func WriteWorkbook(path string, sheets []Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range sheets {
		if err := writeSheet(f, i, sheet); err != nil {
			return errors.New(fmt.Errorf("write sheet %s: %w", sheet.Name, err)).
				Component("tabular").
				Category(errors.CategoryFileIO).
				Context("path", path).
				Build()
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".lemonscan-*.xlsx")
	if err != nil {
		return errors.New(err).
			Component("tabular").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	if err := f.SaveAs(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return errors.New(err).
			Component("tabular").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return errors.New(err).
			Component("tabular").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}

func writeSheet(f *excelize.File, position int, sheet Sheet) error {
	if position == 0 {
		if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
			return err
		}
	} else if _, err := f.NewSheet(sheet.Name); err != nil {
		return err
	}

	header := make([]any, len(sheet.Header))
	for i, h := range sheet.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return err
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet.Name, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
