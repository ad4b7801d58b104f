package classifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance.service/internal/core/model"
	"attendance.service/internal/core/settings"
)

type fixture struct {
	snap *settings.Snapshot
	date time.Time
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	snap, err := settings.Build(settings.Defaults())
	require.NoError(t, err)
	// 2026-03-16 is a Monday.
	return fixture{snap: snap, date: time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)}
}

// at returns hh:mm on the fixture date in the attendance timezone.
func (f fixture) at(hour, min int) *time.Time {
	t := time.Date(f.date.Year(), f.date.Month(), f.date.Day(), hour, min, 0, 0, f.snap.Location())
	return &t
}

func (f fixture) input(checkIn, checkOut *time.Time) Input {
	shift, _ := f.snap.Shift(model.ShiftMorning)
	return Input{
		Shift:      shift,
		Global:     f.snap.Global(),
		Location:   f.snap.Location(),
		WorkingDay: true,
		Date:       f.date,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Now:        *f.at(23, 59),
	}
}

func TestTentative(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name    string
		checkIn *time.Time
		want    model.Status
	}{
		{name: "exactly at shift start", checkIn: f.at(9, 0), want: model.StatusPresent},
		{name: "at grace end", checkIn: f.at(9, 15), want: model.StatusPresent},
		{name: "one minute past grace", checkIn: f.at(9, 16), want: model.StatusLate},
		{name: "early within allowance", checkIn: f.at(8, 30), want: model.StatusPresent},
		{name: "very early is clamped", checkIn: f.at(6, 0), want: model.StatusPresent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tentative(f.input(tt.checkIn, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTentativeRejectsOffDay(t *testing.T) {
	f := newFixture(t)
	in := f.input(f.at(9, 0), nil)
	in.WorkingDay = false
	_, err := Tentative(in)
	assert.ErrorIs(t, err, model.ErrOffDayCheckIn)
}

func TestFinal(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name    string
		in, out *time.Time
		want    model.Status
	}{
		// The four reference scenarios for the Morning shift.
		{name: "present", in: f.at(9, 10), out: f.at(16, 45), want: model.StatusPresent},
		{name: "late", in: f.at(9, 20), out: f.at(17, 0), want: model.StatusLate},
		{name: "early leave", in: f.at(9, 5), out: f.at(15, 30), want: model.StatusEarlyLeave},
		{name: "absent below min hours", in: f.at(9, 0), out: f.at(13, 0), want: model.StatusAbsent},

		{name: "one minute before early leave cutoff", in: f.at(9, 0), out: f.at(16, 29), want: model.StatusEarlyLeave},
		{name: "at early leave cutoff", in: f.at(9, 0), out: f.at(16, 30), want: model.StatusPresent},
		{name: "late and short is absent", in: f.at(10, 0), out: f.at(15, 59), want: model.StatusAbsent},
		{name: "late and early leave is early leave", in: f.at(9, 30), out: f.at(16, 0), want: model.StatusEarlyLeave},
		{name: "exactly min hours", in: f.at(9, 0), out: f.at(15, 0), want: model.StatusEarlyLeave},
		{name: "fractional hours are not truncated", in: f.at(9, 1), out: f.at(15, 0), want: model.StatusAbsent},
		// Clamped to 08:30, so 08:30..14:00 is 5.5h.
		{name: "clamped check-in counts from earliest allowed", in: f.at(6, 0), out: f.at(14, 0), want: model.StatusAbsent},
		{name: "overtime is present", in: f.at(8, 45), out: f.at(19, 0), want: model.StatusPresent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Final(f.input(tt.in, tt.out))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHoursWorkedCountsFromEffectiveCheckIn(t *testing.T) {
	f := newFixture(t)
	w := f.input(nil, nil).window()

	tests := []struct {
		name string
		in   *time.Time
		out  *time.Time
		want float64
	}{
		{name: "inside allowance uses recorded time", in: f.at(8, 45), out: f.at(17, 0), want: 8.25},
		{name: "before allowance counts from earliest check-in", in: f.at(6, 0), out: f.at(17, 0), want: 8.5},
		{name: "check-out before effective check-in", in: f.at(6, 0), out: f.at(7, 0), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, HoursWorked(w, *tt.in, *tt.out), 0.0001)
		})
	}
	assert.True(t, w.EarliestCheckIn.Equal(*f.at(8, 30)))
}

func TestFinalErrors(t *testing.T) {
	f := newFixture(t)

	_, err := Final(f.input(nil, f.at(17, 0)))
	assert.ErrorIs(t, err, model.ErrMissingCheckIn)

	_, err = Final(f.input(f.at(12, 0), f.at(11, 0)))
	assert.ErrorIs(t, err, model.ErrCheckOutBeforeCheckIn)

	status, err := Final(f.input(f.at(9, 0), nil))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCheckedIn, status)
}

func TestClassify(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name         string
		in, out      *time.Time
		now          *time.Time
		working      bool
		wantStatus   model.Status
		wantAbnormal bool
		wantExpected bool
	}{
		{name: "checked in during shift", in: f.at(9, 0), now: f.at(12, 0), working: true,
			wantStatus: model.StatusCheckedIn, wantExpected: true},
		{name: "at no-checkout deadline not yet abnormal", in: f.at(9, 0), now: f.at(18, 0), working: true,
			wantStatus: model.StatusCheckedIn, wantExpected: true},
		{name: "past no-checkout deadline is abnormal", in: f.at(9, 0), now: f.at(18, 1), working: true,
			wantStatus: model.StatusCheckedIn, wantAbnormal: true, wantExpected: true},
		{name: "no check-in before day ends", now: f.at(20, 0), working: true,
			wantStatus: model.StatusNone, wantExpected: true},
		{name: "no check-in after day ends is absent", now: f.at(24, 0), working: true,
			wantStatus: model.StatusAbsent, wantExpected: true},
		{name: "no check-in on off day has no status", now: f.at(48, 0), working: false,
			wantStatus: model.StatusNone},
		{name: "completed record", in: f.at(9, 10), out: f.at(16, 45), now: f.at(17, 0), working: true,
			wantStatus: model.StatusPresent, wantExpected: true},
		{name: "accepted check-in on a day later turned holiday", in: f.at(9, 20), out: f.at(17, 0), now: f.at(18, 0), working: false,
			wantStatus: model.StatusLate, wantExpected: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.input(tt.in, tt.out)
			in.Now = *tt.now
			in.WorkingDay = tt.working
			got, err := Classify(in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
			assert.Equal(t, tt.wantAbnormal, got.Abnormal)
			assert.Equal(t, tt.wantExpected, got.Expected)
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	f := newFixture(t)
	in := f.input(f.at(9, 20), f.at(17, 0))
	first, err := Classify(in)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Classify(in)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, model.StatusLate, first.Tentative)
	assert.InDelta(t, 7.6667, first.HoursWorked, 0.001)
}

func TestTimezoneArithmetic(t *testing.T) {
	f := newFixture(t)
	// 04:20 UTC is 09:20 in Asia/Karachi (UTC+5).
	checkIn := time.Date(2026, 3, 16, 4, 20, 0, 0, time.UTC)
	status, err := Tentative(f.input(&checkIn, nil))
	require.NoError(t, err)
	assert.Equal(t, model.StatusLate, status)

	late := time.Date(2026, 3, 16, 22, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC), LocalDate(late, f.snap.Location()))
}

func TestWindowEndHour24(t *testing.T) {
	shift := model.ShiftConfig{StartHour: 16, EndHour: 24, NoCheckoutLateMinutes: 30}
	w := WindowFor(shift, model.GlobalSettings{}, time.UTC, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, time.Date(2026, 3, 17, 0, 30, 0, 0, time.UTC), w.NoCheckoutDeadline)
}
