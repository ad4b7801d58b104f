// Package classifier turns check-in and check-out timestamps into an
// attendance status. Everything here is pure: the same input always yields
// the same result and nothing is read from the outside world.
package classifier

import (
	"time"

	"attendance.service/internal/core/model"
)

// Input is everything one classification needs. Settings are passed in
// explicitly so a caller can't mix two configurations in one decision.
type Input struct {
	Shift      model.ShiftConfig
	Global     model.GlobalSettings
	Location   *time.Location
	WorkingDay bool
	// Date is the calendar date of the shift, as produced by LocalDate.
	Date     time.Time
	CheckIn  *time.Time
	CheckOut *time.Time
	Now      time.Time
}

// Resolution is the read-time view of a record.
type Resolution struct {
	Status model.Status `json:"status"`
	// Tentative is the lateness verdict taken at check-in.
	Tentative model.Status `json:"tentativeStatus,omitempty"`
	// Abnormal marks a check-in with no check-out past the shift's deadline.
	Abnormal bool `json:"abnormal"`
	// Expected is false on non-working days, which carry no attendance expectation.
	Expected    bool    `json:"expected"`
	HoursWorked float64 `json:"hoursWorked,omitempty"`
}

// Window holds the instants a shift's rules compare against on one date.
type Window struct {
	Start              time.Time
	End                time.Time
	EarliestCheckIn    time.Time
	GraceEnd           time.Time
	EarlyLeaveCutoff   time.Time
	NoCheckoutDeadline time.Time
	DayEnd             time.Time
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

// WindowFor lays the shift out on date in loc. An end hour of 24 is the
// following midnight.
func WindowFor(shift model.ShiftConfig, global model.GlobalSettings, loc *time.Location, date time.Time) Window {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	start := time.Date(y, m, d, shift.StartHour, 0, 0, 0, loc)
	end := time.Date(y, m, d, shift.EndHour, 0, 0, 0, loc)
	return Window{
		Start:              start,
		End:                end,
		EarliestCheckIn:    start.Add(-minutes(global.AllowEarlyCheckIn)),
		GraceEnd:           start.Add(minutes(shift.LateThresholdMinutes)),
		EarlyLeaveCutoff:   end.Add(-minutes(shift.EarlyLeaveThresholdMinutes)),
		NoCheckoutDeadline: end.Add(minutes(shift.NoCheckoutLateMinutes)),
		DayEnd:             time.Date(y, m, d+1, 0, 0, 0, 0, loc),
	}
}

// LocalDate is the calendar date of t in loc.
func LocalDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return model.DateOf(t.In(loc))
}

func (in Input) window() Window {
	return WindowFor(in.Shift, in.Global, in.Location, in.Date)
}

// effectiveCheckIn clamps a check-in earlier than the allowance to the
// earliest allowed instant.
func (w Window) effectiveCheckIn(checkIn time.Time) time.Time {
	if checkIn.Before(w.EarliestCheckIn) {
		return w.EarliestCheckIn
	}
	return checkIn
}

// Tentative decides lateness at check-in. Check-ins on non-working days are
// rejected.
func Tentative(in Input) (model.Status, error) {
	if !in.WorkingDay {
		return model.StatusNone, model.ErrOffDayCheckIn
	}
	if in.CheckIn == nil {
		return model.StatusNone, model.ErrMissingCheckIn
	}
	return lateness(in.window(), *in.CheckIn), nil
}

func lateness(w Window, checkIn time.Time) model.Status {
	if w.effectiveCheckIn(checkIn).After(w.GraceEnd) {
		return model.StatusLate
	}
	return model.StatusPresent
}

// Final decides the status of a completed record. The minimum-hours floor is
// checked first and wins over everything else.
func Final(in Input) (model.Status, error) {
	if in.CheckIn == nil {
		return model.StatusNone, model.ErrMissingCheckIn
	}
	if in.CheckOut == nil {
		return model.StatusCheckedIn, nil
	}
	if in.CheckOut.Before(*in.CheckIn) {
		return model.StatusNone, model.ErrCheckOutBeforeCheckIn
	}
	w := in.window()
	status, _ := final(w, in.Shift, *in.CheckIn, *in.CheckOut)
	return status, nil
}

func final(w Window, shift model.ShiftConfig, checkIn, checkOut time.Time) (model.Status, float64) {
	hours := HoursWorked(w, checkIn, checkOut)
	switch {
	case hours < float64(shift.MinHoursForPresent):
		return model.StatusAbsent, hours
	case checkOut.Before(w.EarlyLeaveCutoff):
		return model.StatusEarlyLeave, hours
	case lateness(w, checkIn) == model.StatusLate:
		return model.StatusLate, hours
	default:
		return model.StatusPresent, hours
	}
}

// HoursWorked is the real-valued time between the effective check-in and the
// check-out, not the recorded check-in. A check-in earlier than
// StartHour - AllowEarlyCheckIn counts from w.EarliestCheckIn, so time spent
// before the allowance opens is never credited toward MinHoursForPresent.
// It is never negative.
func HoursWorked(w Window, checkIn, checkOut time.Time) float64 {
	h := checkOut.Sub(w.effectiveCheckIn(checkIn)).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// Classify resolves a record as of in.Now. It is what reports use, so it
// never fails on a non-working day: a check-in that was accepted is judged on
// its timestamps alone.
func Classify(in Input) (Resolution, error) {
	w := in.window()
	res := Resolution{Expected: in.WorkingDay}

	if in.CheckIn == nil {
		if in.CheckOut != nil {
			return res, model.ErrMissingCheckIn
		}
		if in.WorkingDay && !in.Now.Before(w.DayEnd) {
			res.Status = model.StatusAbsent
		}
		return res, nil
	}

	res.Expected = true
	res.Tentative = lateness(w, *in.CheckIn)
	if in.CheckOut == nil {
		res.Status = model.StatusCheckedIn
		res.Abnormal = in.Now.After(w.NoCheckoutDeadline)
		return res, nil
	}
	if in.CheckOut.Before(*in.CheckIn) {
		return res, model.ErrCheckOutBeforeCheckIn
	}
	res.Status, res.HoursWorked = final(w, in.Shift, *in.CheckIn, *in.CheckOut)
	return res, nil
}
