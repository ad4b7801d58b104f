package aggregate

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance.service/internal/core/classifier"
	"attendance.service/internal/core/model"
)

// statusResolver returns the stored status, so the tests control the outcome.
func statusResolver(rec model.AttendanceRecord) (classifier.Resolution, error) {
	return classifier.Resolution{Status: rec.Status, Expected: true}, nil
}

func day(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

func dataset() []model.AttendanceRecord {
	statuses := []model.Status{model.StatusPresent, model.StatusLate, model.StatusAbsent, model.StatusEarlyLeave, model.StatusPresent}
	names := []string{"Zara", "Ali", "Bilal"}
	var out []model.AttendanceRecord
	id := int64(1)
	for d := 16; d <= 20; d++ {
		for i, n := range names {
			shift := model.ShiftMorning
			if i == 2 {
				shift = model.ShiftEvening
			}
			out = append(out, model.AttendanceRecord{
				ID:       id,
				UserID:   fmt.Sprintf("u-%d", i),
				UserName: n,
				Date:     day(d),
				Shift:    shift,
				Status:   statuses[(d+i)%len(statuses)],
			})
			id++
		}
	}
	return out
}

func TestCountsIndependentOfPage(t *testing.T) {
	records := dataset()
	f := Filter{From: day(16), To: day(20)}

	first, err := Summarize(records, f, PageRequest{Page: 1, Limit: 4}, statusResolver)
	require.NoError(t, err)
	assert.Equal(t, 15, first.Total)
	assert.Equal(t, 4, first.TotalPages)
	assert.Len(t, first.Rows, 4)

	last, err := Summarize(records, f, PageRequest{Page: 4, Limit: 4}, statusResolver)
	require.NoError(t, err)
	assert.Len(t, last.Rows, 3)
	assert.Equal(t, first.Stats, last.Stats)

	beyond, err := Summarize(records, f, PageRequest{Page: 9, Limit: 4}, statusResolver)
	require.NoError(t, err)
	assert.Empty(t, beyond.Rows)
	assert.NotNil(t, beyond.Rows)
	assert.Equal(t, first.Stats, beyond.Stats)
	assert.Equal(t, 15, beyond.Stats.Total)
	assert.Equal(t, 15, first.Stats.Present+first.Stats.Late+first.Stats.Absent+first.Stats.EarlyLeave)
}

func TestHugePageIsEmpty(t *testing.T) {
	records := dataset()
	f := Filter{From: day(16), To: day(20)}

	for _, page := range []int{math.MaxInt64/DefaultLimit + 2, math.MaxInt64} {
		res, err := Summarize(records, f, PageRequest{Page: page}, statusResolver)
		require.NoError(t, err)
		assert.Empty(t, res.Rows)
		assert.Equal(t, 15, res.Total)
		assert.Equal(t, 15, res.Stats.Total)
		assert.Equal(t, page, res.Page)
	}
}

func TestSortOrder(t *testing.T) {
	res, err := Summarize(dataset(), Filter{}, PageRequest{Limit: 100}, statusResolver)
	require.NoError(t, err)
	require.Len(t, res.Rows, 15)
	got := make([]string, 0, 6)
	for _, r := range res.Rows[:6] {
		got = append(got, fmt.Sprintf("%s/%s", r.Record.Date.Format("02"), r.Record.UserName))
	}
	assert.Equal(t, []string{"20/Ali", "20/Bilal", "20/Zara", "19/Ali", "19/Bilal", "19/Zara"}, got)
}

func TestSortTieBreaksOnID(t *testing.T) {
	rows := []Row{
		{Record: model.AttendanceRecord{ID: 9, UserName: "Ali", Date: day(16)}},
		{Record: model.AttendanceRecord{ID: 3, UserName: "Ali", Date: day(16)}},
	}
	Sort(rows)
	assert.Equal(t, int64(3), rows[0].Record.ID)
}

func TestFilters(t *testing.T) {
	records := dataset()
	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		check     func(t *testing.T, r Row)
	}{
		{name: "date range", filter: Filter{From: day(17), To: day(18)}, wantTotal: 6,
			check: func(t *testing.T, r Row) {
				assert.False(t, r.Record.Date.Before(day(17)) || r.Record.Date.After(day(18)))
			}},
		{name: "shift", filter: Filter{Shift: model.ShiftEvening}, wantTotal: 5,
			check: func(t *testing.T, r Row) { assert.Equal(t, model.ShiftEvening, r.Record.Shift) }},
		{name: "search is case insensitive", filter: Filter{Search: "zAr"}, wantTotal: 5,
			check: func(t *testing.T, r Row) { assert.Equal(t, "Zara", r.Record.UserName) }},
		{name: "status", filter: Filter{Status: model.StatusLate}, wantTotal: 3,
			check: func(t *testing.T, r Row) { assert.Equal(t, model.StatusLate, r.Resolution.Status) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Summarize(records, tt.filter, PageRequest{Limit: 100}, statusResolver)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, res.Total)
			assert.Equal(t, tt.wantTotal, res.Stats.Total)
			for _, r := range res.Rows {
				tt.check(t, r)
			}
		})
	}
}

func TestUnresolvedRecordsAreExcluded(t *testing.T) {
	records := []model.AttendanceRecord{
		{ID: 1, UserName: "Ali", Date: day(16), Status: model.StatusPresent},
		{ID: 2, UserName: "Bilal", Date: day(16), Status: model.StatusNone},
	}
	res, err := Summarize(records, Filter{}, PageRequest{}, statusResolver)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, DefaultLimit, res.Limit)
}

func TestResolverErrorIsReturned(t *testing.T) {
	boom := errors.New("boom")
	_, err := Summarize(dataset(), Filter{}, PageRequest{}, func(model.AttendanceRecord) (classifier.Resolution, error) {
		return classifier.Resolution{}, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestPageRequestNormalize(t *testing.T) {
	assert.Equal(t, PageRequest{Page: 1, Limit: DefaultLimit}, PageRequest{}.Normalize())
	assert.Equal(t, PageRequest{Page: 3, Limit: MaxLimit}, PageRequest{Page: 3, Limit: 1000}.Normalize())
}
