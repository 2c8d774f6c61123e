package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName       = "Claims Report"
	ExportFileName  = "Claims_Report.xlsx"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var columns = []string{"Department", "Lecturer", "Work Month", "Claims", "Total Hours", "Total Amount"}

// WriteWorkbook lays the report out as one sheet with a header row and a
// totals row.
func WriteWorkbook(r *Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", "F1", bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, row := range r.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			row.Department,
			row.Lecturer,
			row.WorkMonth,
			row.Claims,
			row.TotalHours.InexactFloat64(),
			row.TotalAmount.InexactFloat64(),
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	totalRow := len(r.Rows) + 2
	totals := []interface{}{"Total", "", "", "", r.TotalHours.InexactFloat64(), r.TotalAmount.InexactFloat64()}
	if err := f.SetSheetRow(SheetName, fmt.Sprintf("A%d", totalRow), &totals); err != nil {
		return nil, fmt.Errorf("write totals: %w", err)
	}
	if err := f.SetCellStyle(SheetName, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("F%d", totalRow), bold); err != nil {
		return nil, fmt.Errorf("style totals: %w", err)
	}

	if err := f.SetColWidth(SheetName, "A", "B", 36); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(SheetName, "C", "F", 14); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
