// Package report renders attendance listings as spreadsheets.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"attendance.service/internal/core/aggregate"
	"attendance.service/internal/core/model"
)

const (
	SummarySheet = "Summary"
	RecordsSheet = "Records"
)

// ContentType is the MIME type of the workbook WriteXLSX produces.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var recordHeaders = []string{"Date", "User ID", "User Name", "Shift", "Check In", "Check Out", "Hours Worked", "Status", "Abnormal"}

// Export is what goes into one workbook.
type Export struct {
	From        time.Time
	To          time.Time
	Rows        []aggregate.Row
	Stats       aggregate.Stats
	Location    *time.Location
	GeneratedAt time.Time
}

// WriteXLSX writes a workbook with a counts sheet and one row per record.
func WriteXLSX(w io.Writer, e Export) error {
	f := excelize.NewFile()
	defer f.Close()

	loc := e.Location
	if loc == nil {
		loc = time.UTC
	}

	index, err := f.NewSheet(SummarySheet)
	if err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if _, err := f.NewSheet(RecordsSheet); err != nil {
		return fmt.Errorf("failed to create records sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	if err := writeSummary(f, e, headerStyle); err != nil {
		return err
	}
	if err := writeRecords(f, e.Rows, loc, headerStyle); err != nil {
		return err
	}
	return f.Write(w)
}

func writeSummary(f *excelize.File, e Export, headerStyle int) error {
	period := "all dates"
	if !e.From.IsZero() || !e.To.IsZero() {
		period = fmt.Sprintf("%s to %s", formatDate(e.From), formatDate(e.To))
	}

	rows := [][]any{
		{"Attendance Report"},
		{},
		{"Period", period},
		{},
		{"Metric", "Count"},
		{"Total", e.Stats.Total},
		{"Present", e.Stats.Present},
		{"Late", e.Stats.Late},
		{"Early Leave", e.Stats.EarlyLeave},
		{"Absent", e.Stats.Absent},
		{"Checked In", e.Stats.CheckedIn},
		{"Abnormal", e.Stats.Abnormal},
		{},
		{"Generated", e.GeneratedAt.UTC().Format(time.RFC3339)},
	}
	for i, values := range rows {
		if len(values) == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &values); err != nil {
			return err
		}
	}

	if err := f.MergeCell(SummarySheet, "A1", "B1"); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "B1", headerStyle); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A5", "B5", headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "A", "B", 22)
}

func writeRecords(f *excelize.File, rows []aggregate.Row, loc *time.Location, headerStyle int) error {
	header := make([]any, len(recordHeaders))
	for i, h := range recordHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(RecordsSheet, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(recordHeaders), 1)
	if err := f.SetCellStyle(RecordsSheet, "A1", last, headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		rec := row.Record
		values := []any{
			rec.Date.Format(model.DateLayout),
			rec.UserID,
			rec.UserName,
			string(rec.Shift),
			formatClock(rec.CheckInTime, loc),
			formatClock(rec.CheckOutTime, loc),
			round2(row.Resolution.HoursWorked),
			string(row.Resolution.Status),
			yesNo(row.Resolution.Abnormal),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(RecordsSheet, cell, &values); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(RecordsSheet, "A", "I", 16); err != nil {
		return err
	}
	return f.SetPanes(RecordsSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(model.DateLayout)
}

func formatClock(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format("15:04")
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
