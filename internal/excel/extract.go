// Package excel reads header/data tables out of source workbooks.
package excel

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ErrSheetNotFound is returned when the requested sheet is absent from the
// source workbook.
var ErrSheetNotFound = errors.New("sheet not found")

// Table is an extracted header row plus data rows. Rows are kept exactly as
// the sheet stores them: a row may be shorter than the header, and consumers
// must treat missing trailing cells as empty, not as an error.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Extract reads the named sheet from the workbook at path and returns its
// header row plus every data row from dataStartRow to the end of the sheet.
//
// headerRow and dataStartRow are 1-based row numbers matching the source
// document's own numbering. sheet may be empty to select the workbook's
// first sheet. columnLimit, when positive, truncates the header and every
// data row to the first N columns; pass 0 for no limit.
func Extract(path, sheet string, headerRow, dataStartRow, columnLimit int) (*Table, error) {
	if headerRow < 1 || dataStartRow < 1 {
		return nil, fmt.Errorf("row numbers are 1-based: header %d, data start %d", headerRow, dataStartRow)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q in %s", ErrSheetNotFound, sheet, path)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	t := &Table{}
	if headerRow <= len(rows) {
		t.Headers = rows[headerRow-1]
	}
	if dataStartRow <= len(rows) {
		t.Rows = rows[dataStartRow-1:]
	}

	if columnLimit > 0 {
		t.Headers = truncate(t.Headers, columnLimit)
		for i, row := range t.Rows {
			t.Rows[i] = truncate(row, columnLimit)
		}
	}

	return t, nil
}

func truncate(cells []string, limit int) []string {
	if len(cells) > limit {
		return cells[:limit]
	}
	return cells
}
