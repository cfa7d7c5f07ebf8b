package aging

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"payables/internal/core"
)

// DefaultTitle is used when no report title is configured.
const DefaultTitle = "Accounts Payable Aging Report"

// RenderCSV serializes rep as comma separated text: a title line carrying
// the generation date, a blank separator, the column header, then every row.
func RenderCSV(rep Report, title string) ([]byte, error) {
	if title == "" {
		title = DefaultTitle
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	generated := rep.GeneratedAt
	records := [][]string{
		{title, core.FormatDate(&generated)},
		make([]string, len(Header)),
		Header,
	}
	for _, r := range rep.Rows {
		records = append(records, r.Cells())
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	pdfHeaderFill = [3]int{52, 73, 94}
	pdfVendorFill = [3]int{236, 240, 241}
	pdfColWidths  = [...]float64{70, 40, 40, 40, 40, 40}
)

// RenderPDF writes rep as a landscape A4 table.
func RenderPDF(w io.Writer, rep Report, title string) error {
	if title == "" {
		title = DefaultTitle
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	generated := rep.GeneratedAt
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Generated "+core.FormatDate(&generated), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(pdfHeaderFill[0], pdfHeaderFill[1], pdfHeaderFill[2])
		pdf.SetTextColor(255, 255, 255)
		for i, h := range Header {
			pdf.CellFormat(pdfColWidths[i], 8, h, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
	}
	header()

	for _, r := range rep.Rows {
		if pdf.GetY() > 180 {
			pdf.AddPage()
			header()
		}
		fill := false
		switch r.Kind {
		case RowVendor:
			pdf.SetFont("Arial", "B", 10)
			pdf.SetFillColor(pdfVendorFill[0], pdfVendorFill[1], pdfVendorFill[2])
			fill = true
		case RowSubtotal, RowTotal:
			pdf.SetFont("Arial", "B", 10)
		case RowBlank:
			pdf.Ln(4)
			continue
		default:
			pdf.SetFont("Arial", "", 10)
		}
		for i, c := range r.Cells() {
			align := "R"
			if i < 2 {
				align = "L"
			}
			pdf.CellFormat(pdfColWidths[i], 7, tr(c), "1", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
