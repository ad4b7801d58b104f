package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"attendance.service/internal/core/aggregate"
	"attendance.service/internal/core/classifier"
	"attendance.service/internal/core/model"
)

func TestWriteXLSX(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Karachi")
	require.NoError(t, err)
	in := time.Date(2026, 3, 16, 9, 20, 0, 0, loc)
	out := time.Date(2026, 3, 16, 17, 0, 0, 0, loc)

	rows := []aggregate.Row{
		{
			Record:     model.AttendanceRecord{ID: 1, UserID: "u-1", UserName: "Ayesha", Shift: model.ShiftMorning, Date: model.DateOf(in), CheckInTime: &in, CheckOutTime: &out},
			Resolution: classifier.Resolution{Status: model.StatusLate, HoursWorked: 7.666666},
		},
		{
			Record:     model.AttendanceRecord{ID: 2, UserID: "u-2", UserName: "Bilal", Shift: model.ShiftMorning, Date: model.DateOf(in)},
			Resolution: classifier.Resolution{Status: model.StatusAbsent},
		},
	}

	var buf bytes.Buffer
	err = WriteXLSX(&buf, Export{
		From:        model.DateOf(in),
		To:          model.DateOf(in),
		Rows:        rows,
		Stats:       aggregate.Stats{Total: 2, Late: 1, Absent: 1},
		Location:    loc,
		GeneratedAt: time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, RecordsSheet}, f.GetSheetList())

	period, err := f.GetCellValue(SummarySheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-16 to 2026-03-16", period)
	total, err := f.GetCellValue(SummarySheet, "B6")
	require.NoError(t, err)
	assert.Equal(t, "2", total)

	records, err := f.GetRows(RecordsSheet)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, recordHeaders, records[0])
	assert.Equal(t, []string{"2026-03-16", "u-1", "Ayesha", "Morning", "09:20", "17:00", "7.67", "Late", "No"}, records[1])
	assert.Equal(t, "Absent", records[2][7])
}
