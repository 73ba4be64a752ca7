package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/docsift/docsift/internal/common"
	"github.com/docsift/docsift/internal/extract"
	"github.com/docsift/docsift/internal/flatten"
)

const (
	pdfCellHeight = 6.0
	pdfCellLimit  = 90 // max characters rendered per cell
)

// PDF renders a paginated landscape table in join mode: columns are fields,
// rows are documents. The header repeats on every page.
func PDF(results []extract.Result, columns []string, title string) ([]byte, error) {
	if len(columns) == 0 {
		columns = Columns(results)
	}
	pdf, colW := newTablePDF(title, len(columns))

	writeHeaderRow := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range columns {
			pdf.CellFormat(colW, pdfCellHeight, clip(col), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	writeHeaderRow()

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()

	for _, r := range results {
		flat := flatten.Flatten(r.Data)
		if pdf.GetY()+pdfCellHeight > pageH-bottom {
			pdf.AddPage()
			writeHeaderRow()
		}
		for _, col := range columns {
			pdf.CellFormat(colW, pdfCellHeight, clip(flatten.Render(flat[col])), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdfBytes(pdf)
}

// PDFVertical renders the fields-as-rows orientation: one row per field, one
// column per document, or a single "Value" column when the batch holds
// exactly one document.
func PDFVertical(results []extract.Result, columns []string, title string) ([]byte, error) {
	if len(columns) == 0 {
		columns = Columns(results)
	}
	pdf, colW := newTablePDF(title, len(results)+1)

	headers := make([]string, 0, len(results)+1)
	headers = append(headers, "Field")
	if len(results) == 1 {
		headers = append(headers, "Value")
	} else {
		for _, r := range results {
			headers = append(headers, r.FileName)
		}
	}

	writeHeaderRow := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for _, h := range headers {
			pdf.CellFormat(colW, pdfCellHeight, clip(h), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}
	writeHeaderRow()

	flats := make([]map[string]any, len(results))
	for j, r := range results {
		flats[j] = flatten.Flatten(r.Data)
	}

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()

	for _, col := range columns {
		if pdf.GetY()+pdfCellHeight > pageH-bottom {
			pdf.AddPage()
			writeHeaderRow()
		}
		pdf.CellFormat(colW, pdfCellHeight, clip(col), "1", 0, "L", false, 0, "")
		for j := range results {
			pdf.CellFormat(colW, pdfCellHeight, clip(flatten.Render(flats[j][col])), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdfBytes(pdf)
}

func newTablePDF(title string, nCols int) (*fpdf.Fpdf, float64) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, 12)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 9, title, "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Helvetica", "", 8)

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageW - left - right
	if nCols < 1 {
		nCols = 1
	}
	return pdf, usable / float64(nCols)
}

func pdfBytes(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf write: %w", err)
	}
	return buf.Bytes(), nil
}

func clip(s string) string {
	return common.Truncate(s, pdfCellLimit)
}
