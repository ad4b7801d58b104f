// Package aggregate filters resolved attendance records, counts them and cuts
// out one page.
package aggregate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"attendance.service/internal/core/classifier"
	"attendance.service/internal/core/model"
)

const (
	DefaultLimit = 15
	MaxLimit     = 100
)

// Filter selects records. Zero values match everything; From and To are
// inclusive calendar dates.
type Filter struct {
	From   time.Time
	To     time.Time
	Status model.Status
	Shift  model.ShiftName
	Search string
}

// PageRequest is 1-indexed.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize applies the defaults and caps the page size.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Stats are counted over the whole filtered set, never just one page.
type Stats struct {
	Total      int `json:"total"`
	Present    int `json:"present"`
	Late       int `json:"late"`
	Absent     int `json:"absent"`
	EarlyLeave int `json:"earlyLeave"`
	CheckedIn  int `json:"checkedIn"`
	Abnormal   int `json:"abnormal"`
}

func (s *Stats) add(r classifier.Resolution) {
	s.Total++
	switch r.Status {
	case model.StatusPresent:
		s.Present++
	case model.StatusLate:
		s.Late++
	case model.StatusAbsent:
		s.Absent++
	case model.StatusEarlyLeave:
		s.EarlyLeave++
	case model.StatusCheckedIn:
		s.CheckedIn++
	}
	if r.Abnormal {
		s.Abnormal++
	}
}

// Row is a record together with its read-time resolution.
type Row struct {
	Record     model.AttendanceRecord `json:"record"`
	Resolution classifier.Resolution  `json:"resolution"`
}

type Result struct {
	Rows       []Row `json:"data"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int   `json:"total"`
	TotalPages int   `json:"totalPages"`
	Stats      Stats `json:"stats"`
}

// Resolver classifies one record as of the time of the report.
type Resolver func(model.AttendanceRecord) (classifier.Resolution, error)

// Matches applies the parts of f that don't need a resolution.
func (f Filter) Matches(rec model.AttendanceRecord) bool {
	d := model.DateOf(rec.Date)
	if !f.From.IsZero() && d.Before(model.DateOf(f.From)) {
		return false
	}
	if !f.To.IsZero() && d.After(model.DateOf(f.To)) {
		return false
	}
	if f.Shift != "" && rec.Shift != f.Shift {
		return false
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		q = strings.ToLower(q)
		if !strings.Contains(strings.ToLower(rec.UserName), q) && !strings.Contains(strings.ToLower(rec.UserID), q) {
			return false
		}
	}
	return true
}

// Collect resolves every record and keeps those matching f, sorted. Records
// that resolve to no status (a day still in progress without a check-in, or a
// non-working day) are left out.
func Collect(records []model.AttendanceRecord, f Filter, resolve Resolver) ([]Row, Stats, error) {
	var stats Stats
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if !f.Matches(rec) {
			continue
		}
		r, err := resolve(rec)
		if err != nil {
			return nil, Stats{}, fmt.Errorf("resolve record %d: %w", rec.ID, err)
		}
		if r.Status == model.StatusNone {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		stats.add(r)
		rows = append(rows, Row{Record: rec, Resolution: r})
	}
	Sort(rows)
	return rows, stats, nil
}

// Summarize collects the matching rows, counts them and returns the requested
// page. A page past the end is empty but carries the same counts.
func Summarize(records []model.AttendanceRecord, f Filter, p PageRequest, resolve Resolver) (Result, error) {
	p = p.Normalize()
	rows, stats, err := Collect(records, f, resolve)
	if err != nil {
		return Result{}, err
	}

	res := Result{Rows: []Row{}, Page: p.Page, Limit: p.Limit, Stats: stats}
	res.Total = len(rows)
	res.TotalPages = (res.Total + p.Limit - 1) / p.Limit
	// Compare pages first so a huge page number cannot overflow the offset.
	if p.Page <= res.TotalPages {
		start := (p.Page - 1) * p.Limit
		end := start + p.Limit
		if end > len(rows) {
			end = len(rows)
		}
		res.Rows = rows[start:end]
	}
	return res, nil
}

// Sort orders rows newest date first, then by user name, then by id.
func Sort(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Record, rows[j].Record
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		if a.UserName != b.UserName {
			return a.UserName < b.UserName
		}
		return a.ID < b.ID
	})
}
