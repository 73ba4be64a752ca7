package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/docsift/docsift/internal/extract"
	"github.com/docsift/docsift/internal/flatten"
)

const sheetName = "Extractions"

// XLSX renders a workbook in row-expansion mode: each document contributes
// one row per element of its longest array-of-objects field, with scalar
// fields repeated on every row.
func XLSX(results []extract.Result, columns []string) ([]byte, error) {
	f, sheet, err := newWorkbook()
	if err != nil {
		return nil, err
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, col)
	}

	row := 2
	for _, r := range results {
		for _, flat := range flatten.Expand(r.Data) {
			for i, col := range columns {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				_ = f.SetCellValue(sheet, cell, flatten.Render(flat[col]))
			}
			row++
		}
	}

	widenColumns(f, sheet, len(columns))

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// XLSXTransposed renders the fields-as-rows layout over the whole batch: the
// header is "Field, Record 1..N" with one column per document, and each
// subsequent row is one field across all documents. Cell values use join
// mode, since a document occupies a single column.
func XLSXTransposed(results []extract.Result, columns []string) ([]byte, error) {
	f, sheet, err := newWorkbook()
	if err != nil {
		return nil, err
	}

	_ = f.SetCellValue(sheet, "A1", "Field")
	for j := range results {
		cell, _ := excelize.CoordinatesToCellName(j+2, 1)
		_ = f.SetCellValue(sheet, cell, fmt.Sprintf("Record %d", j+1))
	}

	flats := make([]map[string]any, len(results))
	for j, r := range results {
		flats[j] = flatten.Flatten(r.Data)
	}

	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = f.SetCellValue(sheet, cell, col)
		for j := range results {
			cell, _ := excelize.CoordinatesToCellName(j+2, i+2)
			_ = f.SetCellValue(sheet, cell, flatten.Render(flats[j][col]))
		}
	}

	widenColumns(f, sheet, len(results)+1)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func newWorkbook() (*excelize.File, string, error) {
	f := excelize.NewFile()
	if index, _ := f.GetSheetIndex(sheetName); index == -1 {
		if _, err := f.NewSheet(sheetName); err != nil {
			return nil, "", err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(activeIndex)
	return f, sheetName, nil
}

func widenColumns(f *excelize.File, sheet string, n int) {
	for i := 1; i <= n; i++ {
		name, err := excelize.ColumnNumberToName(i)
		if err != nil {
			continue
		}
		_ = f.SetColWidth(sheet, name, name, 22)
	}
}
