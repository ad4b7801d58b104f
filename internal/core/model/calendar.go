package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// EntryType classifies a calendar entry.
type EntryType string

const (
	EntryHoliday    EntryType = "Holiday"
	EntryEvent      EntryType = "Event"
	EntryMeeting    EntryType = "Meeting"
	EntryWorkingDay EntryType = "Working Day"
	EntryOther      EntryType = "Other"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntryHoliday, EntryEvent, EntryMeeting, EntryWorkingDay, EntryOther:
		return true
	}
	return false
}

// EntryStatus is the lifecycle state of a calendar entry.
type EntryStatus string

const (
	EntryUpcoming  EntryStatus = "Upcoming"
	EntryCompleted EntryStatus = "Completed"
	EntryCancelled EntryStatus = "Cancelled"
)

func (s EntryStatus) Valid() bool {
	return s == EntryUpcoming || s == EntryCompleted || s == EntryCancelled
}

// Recurrence repeats an entry's date range.
type Recurrence string

const (
	RecurNone    Recurrence = "None"
	RecurDaily   Recurrence = "Daily"
	RecurWeekly  Recurrence = "Weekly"
	RecurMonthly Recurrence = "Monthly"
	RecurYearly  Recurrence = "Yearly"
)

func (r Recurrence) Valid() bool {
	switch r {
	case RecurNone, RecurDaily, RecurWeekly, RecurMonthly, RecurYearly:
		return true
	}
	return false
}

// CalendarEntry is an admin-maintained full-day calendar item. StartDate and
// EndDate are inclusive calendar dates (UTC midnight).
type CalendarEntry struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Type        EntryType   `json:"type"`
	Color       string      `json:"color,omitempty"`
	StartDate   time.Time   `json:"startDate"`
	EndDate     time.Time   `json:"endDate"`
	IsFullDay   bool        `json:"isFullDay"`
	Status      EntryStatus `json:"status"`
	Location    string      `json:"location,omitempty"`
	Recurrence  Recurrence  `json:"recurrence"`
	CreatedBy   string      `json:"createdBy,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// WeeklyPattern is the set of weekdays that are working days by default.
type WeeklyPattern struct {
	days [7]bool
}

// NewWeeklyPattern builds a pattern from weekdays.
func NewWeeklyPattern(days ...time.Weekday) WeeklyPattern {
	var p WeeklyPattern
	for _, d := range days {
		if d >= time.Sunday && d <= time.Saturday {
			p.days[d] = true
		}
	}
	return p
}

// DefaultWeeklyPattern is Monday through Friday.
func DefaultWeeklyPattern() WeeklyPattern {
	return NewWeeklyPattern(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday)
}

// ParseWeeklyPattern builds a pattern from weekday indices, 0=Sunday..6=Saturday.
func ParseWeeklyPattern(indices []int) (WeeklyPattern, error) {
	var p WeeklyPattern
	for _, i := range indices {
		if i < 0 || i > 6 {
			return WeeklyPattern{}, fmt.Errorf("weekday index %d out of range 0..6", i)
		}
		p.days[i] = true
	}
	return p, nil
}

func (p WeeklyPattern) Contains(d time.Weekday) bool {
	if d < time.Sunday || d > time.Saturday {
		return false
	}
	return p.days[d]
}

// Days returns the sorted weekday indices of the pattern.
func (p WeeklyPattern) Days() []int {
	out := make([]int, 0, 7)
	for i, ok := range p.days {
		if ok {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

func (p WeeklyPattern) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Days())
}

func (p *WeeklyPattern) UnmarshalJSON(b []byte) error {
	var idx []int
	if err := json.Unmarshal(b, &idx); err != nil {
		return err
	}
	parsed, err := ParseWeeklyPattern(idx)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
