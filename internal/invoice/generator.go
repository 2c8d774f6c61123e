package invoice

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
)

const brandName = "Time2Pay"

// Generator renders invoice PDFs. Output depends only on the invoice and the
// clock.
type Generator struct {
	now func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

func (g *Generator) Generate(inv Invoice) ([]byte, error) {
	generated := g.now().UTC()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(13, 13, 13)
	pdf.SetTitle(fmt.Sprintf("Invoice #%d", inv.ClaimID), false)
	pdf.SetCreator(brandName, false)
	pdf.SetCreationDate(generated)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	width := pageWidth - left - right

	// header: lecturer block on the left, invoice number on the right
	top := pdf.GetY()
	pdf.SetTextColor(30, 30, 30)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(width*0.6, 10, brandName, "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "I", 10)
	for _, line := range []string{inv.LecturerName, inv.LecturerEmail, inv.DepartmentName} {
		pdf.CellFormat(width*0.6, 5, tr(orDash(line)), "", 2, "L", false, 0, "")
	}

	pdf.SetXY(left+width*0.6, top)
	pdf.SetFillColor(230, 230, 230)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(width*0.4, 10, fmt.Sprintf("INVOICE #%d", inv.ClaimID), "", 2, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(width*0.4, 7, "Date: "+inv.ClaimDate.Format("2006-01-02"), "", 2, "L", true, 0, "")
	pdf.CellFormat(width*0.4, 7, "Work month: "+inv.WorkMonth, "", 1, "L", true, 0, "")

	pdf.SetX(left)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(width, 8, "Claim Details", "1", 1, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(width, 7, "Hours Worked: "+inv.HoursWorked.StringFixed(2), "LR", 1, "L", true, 0, "")
	pdf.CellFormat(width, 7, "Hourly Rate: "+FormatRand(inv.HourlyRate), "LRB", 1, "L", true, 0, "")
	pdf.Ln(8)

	pdf.SetX(left + width*0.6)
	pdf.CellFormat(width*0.2, 8, "Total Amount:", "", 0, "L", true, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(width*0.2, 8, FormatRand(inv.TotalAmount), "", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.Ln(20)
	pdf.CellFormat(width, 7, "Authorized by: ____________________", "", 1, "L", false, 0, "")
	pdf.CellFormat(width, 7, "Generated: "+generated.Format("2006-01-02 15:04")+" (UTC)", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %d: %w", inv.ClaimID, err)
	}
	return buf.Bytes(), nil
}

// ExportZip renders every invoice into one archive with Invoice_<id>.pdf
// entries.
func ExportZip(gen PDFGenerator, invoices []Invoice) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, inv := range invoices {
		body, err := gen.Generate(inv)
		if err != nil {
			zw.Close()
			return nil, err
		}
		entry, err := zw.Create(FileName(inv.ClaimID))
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("add invoice %d to archive: %w", inv.ClaimID, err)
		}
		if _, err := entry.Write(body); err != nil {
			zw.Close()
			return nil, fmt.Errorf("write invoice %d to archive: %w", inv.ClaimID, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
