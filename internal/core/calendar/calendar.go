// Package calendar decides whether a date is a working day from the weekly
// pattern and the admin-maintained calendar entries.
package calendar

import (
	"sort"
	"strings"
	"time"

	"attendance.service/internal/core/model"
)

// overrideRule says what an entry of the given types does to a day. When two
// overriding entries apply, the later CreatedAt wins; priority only breaks an
// exact CreatedAt tie.
type overrideRule struct {
	types    []model.EntryType
	working  bool
	priority int
}

var overrideRules = []overrideRule{
	{types: []model.EntryType{model.EntryWorkingDay}, working: true, priority: 1},
	{types: []model.EntryType{model.EntryHoliday, model.EntryOther}, working: false, priority: 0},
}

func ruleFor(t model.EntryType) (overrideRule, bool) {
	for _, r := range overrideRules {
		for _, rt := range r.types {
			if rt == t {
				return r, true
			}
		}
	}
	return overrideRule{}, false
}

// DayResolution explains how a date was resolved.
type DayResolution struct {
	Date     time.Time `json:"date"`
	Working  bool      `json:"workingDay"`
	Baseline bool      `json:"baseline"`
	// Decisive is the entry that overrode the weekly pattern, if any.
	Decisive *model.CalendarEntry  `json:"decisive,omitempty"`
	Entries  []model.CalendarEntry `json:"entries"`
}

// Calendar is an immutable snapshot of the pattern and entries.
type Calendar struct {
	pattern model.WeeklyPattern
	entries []model.CalendarEntry
}

// New builds a snapshot. Entries are copied.
func New(pattern model.WeeklyPattern, entries []model.CalendarEntry) *Calendar {
	c := &Calendar{pattern: pattern, entries: append([]model.CalendarEntry(nil), entries...)}
	sortEntries(c.entries)
	return c
}

func sortEntries(entries []model.CalendarEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}

func (c *Calendar) Pattern() model.WeeklyPattern { return c.pattern }

// Entries returns every entry, oldest first.
func (c *Calendar) Entries() []model.CalendarEntry {
	return append([]model.CalendarEntry(nil), c.entries...)
}

// Entry looks an entry up by id.
func (c *Calendar) Entry(id string) (model.CalendarEntry, bool) {
	for _, e := range c.entries {
		if e.ID == id {
			return e, true
		}
	}
	return model.CalendarEntry{}, false
}

// WithPattern returns a copy using a different weekly pattern.
func (c *Calendar) WithPattern(p model.WeeklyPattern) *Calendar {
	return &Calendar{pattern: p, entries: c.entries}
}

// WithEntry returns a copy with e inserted, or replacing the entry with the same id.
func (c *Calendar) WithEntry(e model.CalendarEntry) *Calendar {
	next := make([]model.CalendarEntry, 0, len(c.entries)+1)
	for _, old := range c.entries {
		if old.ID != e.ID {
			next = append(next, old)
		}
	}
	next = append(next, e)
	sortEntries(next)
	return &Calendar{pattern: c.pattern, entries: next}
}

// WithoutEntry returns a copy without the entry. ok is false when id is unknown.
func (c *Calendar) WithoutEntry(id string) (*Calendar, bool) {
	next := make([]model.CalendarEntry, 0, len(c.entries))
	for _, old := range c.entries {
		if old.ID != id {
			next = append(next, old)
		}
	}
	if len(next) == len(c.entries) {
		return c, false
	}
	return &Calendar{pattern: c.pattern, entries: next}, true
}

// EntriesOn returns every entry occurring on date, cancelled ones included,
// oldest first.
func (c *Calendar) EntriesOn(date time.Time) []model.CalendarEntry {
	d := model.DateOf(date)
	var out []model.CalendarEntry
	for _, e := range c.entries {
		if covers(e, d) {
			out = append(out, e)
		}
	}
	return out
}

// IsWorkingDay reports whether date is a working day.
func (c *Calendar) IsWorkingDay(date time.Time) bool {
	return c.Resolve(date).Working
}

// Resolve applies the weekly pattern and then the overriding entries of date.
func (c *Calendar) Resolve(date time.Time) DayResolution {
	d := model.DateOf(date)
	res := DayResolution{
		Date:     d,
		Baseline: c.pattern.Contains(d.Weekday()),
		Entries:  c.EntriesOn(d),
	}
	res.Working = res.Baseline

	var (
		best     *model.CalendarEntry
		bestRule overrideRule
	)
	for i := range res.Entries {
		e := &res.Entries[i]
		if e.Status == model.EntryCancelled {
			continue
		}
		rule, ok := ruleFor(e.Type)
		if !ok {
			continue
		}
		if best == nil || wins(e, rule, best, bestRule) {
			best, bestRule = e, rule
		}
	}
	if best != nil {
		decisive := *best
		res.Decisive = &decisive
		res.Working = bestRule.working
	}
	if res.Entries == nil {
		res.Entries = []model.CalendarEntry{}
	}
	return res
}

func wins(e *model.CalendarEntry, rule overrideRule, cur *model.CalendarEntry, curRule overrideRule) bool {
	if !e.CreatedAt.Equal(cur.CreatedAt) {
		return e.CreatedAt.After(cur.CreatedAt)
	}
	return rule.priority > curRule.priority
}

// Occurrence is one expansion of a (possibly recurring) entry.
type Occurrence struct {
	model.CalendarEntry
	OccurrenceStart time.Time `json:"occurrenceStart"`
	OccurrenceEnd   time.Time `json:"occurrenceEnd"`
}

// Filter narrows a calendar listing.
type Filter struct {
	From time.Time
	To   time.Time
	Type model.EntryType
}

// Between lists the occurrences overlapping [from, to], ordered by start date.
// An empty type matches every type.
func (c *Calendar) Between(f Filter) ([]Occurrence, error) {
	from, to := model.DateOf(f.From), model.DateOf(f.To)
	if from.After(to) {
		return nil, &model.RangeError{Start: from, End: to}
	}
	out := []Occurrence{}
	for _, e := range c.entries {
		if f.Type != "" && !strings.EqualFold(string(f.Type), string(e.Type)) {
			continue
		}
		for _, span := range occurrencesBetween(e, from, to) {
			out = append(out, Occurrence{CalendarEntry: e, OccurrenceStart: span[0], OccurrenceEnd: span[1]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurrenceStart.Before(out[j].OccurrenceStart)
	})
	return out, nil
}

// Validate checks an entry before it is stored.
func Validate(e model.CalendarEntry) error {
	if strings.TrimSpace(e.Title) == "" {
		return &model.ValidationError{Field: "title", Reason: "required"}
	}
	if !e.Type.Valid() {
		return &model.ValidationError{Field: "type", Reason: "unknown entry type " + string(e.Type)}
	}
	if !e.Status.Valid() {
		return &model.ValidationError{Field: "status", Reason: "unknown entry status " + string(e.Status)}
	}
	if !e.Recurrence.Valid() {
		return &model.ValidationError{Field: "recurrence", Reason: "unknown recurrence " + string(e.Recurrence)}
	}
	if e.StartDate.IsZero() || e.EndDate.IsZero() {
		return &model.ValidationError{Field: "startDate", Reason: "start and end dates are required"}
	}
	if model.DateOf(e.StartDate).After(model.DateOf(e.EndDate)) {
		return &model.RangeError{Start: e.StartDate, End: e.EndDate}
	}
	return nil
}
