package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	attendance "rollcall/internal/attendance/domain"
)

// BuildDailyXLSX renders one day's attendance as a spreadsheet.
func BuildDailyXLSX(date string, records []attendance.Record) ([]byte, error) {
	f := excelize.NewFile()
	sheet := "attendance"
	f.SetSheetName("Sheet1", sheet)

	_ = f.SetCellValue(sheet, "A1", "Attendance "+date)
	headers := []string{"Student", "Group", "Schedule", "Marked At (UTC)", "Present", "Marked By"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		_ = f.SetCellValue(sheet, cell, header)
	}
	for i, record := range records {
		row := i + 4
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), record.StudentID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), record.GroupID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), record.ScheduleID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), record.Timestamp.UTC().Format(time.RFC3339))
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), record.Present)
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), record.MarkedBy)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildDailyPDF renders one day's attendance as a PDF.
func BuildDailyPDF(date string, records []attendance.Record) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Attendance Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", date))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Records: %d", len(records)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "Student", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Group", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Schedule", "1", 0, "C", false, 0, "")
	pdf.CellFormat(55, 6, "Marked At (UTC)", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, record := range records {
		pdf.CellFormat(40, 6, record.StudentID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, record.GroupID, "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, record.ScheduleID, "1", 0, "C", false, 0, "")
		pdf.CellFormat(55, 6, record.Timestamp.UTC().Format("2006-01-02 15:04:05"), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
