package calendar

import (
	"time"

	"attendance.service/internal/core/model"
)

const day = 24 * time.Hour

// maxOccurrences bounds the expansion of a single entry in one listing.
const maxOccurrences = 400

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / day)
}

// occurrence returns the inclusive dates of the k-th repetition of e.
func occurrence(e model.CalendarEntry, k int) (time.Time, time.Time) {
	start := model.DateOf(e.StartDate)
	span := daysBetween(start, model.DateOf(e.EndDate))
	switch e.Recurrence {
	case model.RecurDaily:
		start = start.AddDate(0, 0, k)
	case model.RecurWeekly:
		start = start.AddDate(0, 0, 7*k)
	case model.RecurMonthly:
		start = start.AddDate(0, k, 0)
	case model.RecurYearly:
		start = start.AddDate(k, 0, 0)
	}
	return start, start.AddDate(0, 0, span)
}

// lastStartingBy returns the index of the last repetition starting on or
// before d, or -1 when e starts after d.
func lastStartingBy(e model.CalendarEntry, d time.Time) int {
	start := model.DateOf(e.StartDate)
	if d.Before(start) {
		return -1
	}
	var k int
	switch e.Recurrence {
	case model.RecurDaily:
		return daysBetween(start, d)
	case model.RecurWeekly:
		return daysBetween(start, d) / 7
	case model.RecurMonthly:
		k = (d.Year()-start.Year())*12 + int(d.Month()) - int(start.Month())
	case model.RecurYearly:
		k = d.Year() - start.Year()
	default:
		return 0
	}
	for k > 0 {
		if s, _ := occurrence(e, k); !s.After(d) {
			break
		}
		k--
	}
	return k
}

// covers reports whether any repetition of e includes date d.
func covers(e model.CalendarEntry, d time.Time) bool {
	for k := lastStartingBy(e, d); k >= 0; k-- {
		s, end := occurrence(e, k)
		if end.Before(d) {
			return false
		}
		if !s.After(d) {
			return true
		}
	}
	return false
}

func occurrencesBetween(e model.CalendarEntry, from, to time.Time) [][2]time.Time {
	k := lastStartingBy(e, from)
	for k > 0 {
		if _, end := occurrence(e, k-1); end.Before(from) {
			break
		}
		k--
	}
	if k < 0 {
		k = 0
	}

	var out [][2]time.Time
	for ; len(out) < maxOccurrences; k++ {
		s, end := occurrence(e, k)
		if s.After(to) {
			break
		}
		if !end.Before(from) {
			out = append(out, [2]time.Time{s, end})
		}
		if e.Recurrence == model.RecurNone || e.Recurrence == "" {
			break
		}
	}
	return out
}
