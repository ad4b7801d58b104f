package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"attendance.service/internal/core/aggregate"
	"attendance.service/internal/core/calendar"
	"attendance.service/internal/core/classifier"
	"attendance.service/internal/core/model"
	"attendance.service/internal/core/settings"
	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/ports/repository"
)

type AttendanceService struct {
	repo      repository.AttendanceRepository
	publisher messaging.Publisher
	settings  *settings.Store
	calendar  *calendar.Store
	now       func() time.Time
}

// NewAttendanceService wires the record repository, the queue publisher and
// the two configuration stores. publisher may be nil when nothing downstream
// needs classified days.
func NewAttendanceService(repo repository.AttendanceRepository, publisher messaging.Publisher, st *settings.Store, cal *calendar.Store) *AttendanceService {
	return &AttendanceService{
		repo:      repo,
		publisher: publisher,
		settings:  st,
		calendar:  cal,
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (s *AttendanceService) WithClock(now func() time.Time) *AttendanceService {
	s.now = now
	return s
}

type CheckInRequest struct {
	UserID   string
	UserName string
	Shift    model.ShiftName
	// At defaults to the current time.
	At       time.Time
	SourceIP string
}

type CheckOutRequest struct {
	UserID   string
	Shift    model.ShiftName
	At       time.Time
	SourceIP string
}

// view is one consistent pair of configuration snapshots plus the instant a
// decision is taken at.
type view struct {
	settings *settings.Snapshot
	calendar *calendar.Calendar
	now      time.Time
}

func (s *AttendanceService) view() view {
	return view{settings: s.settings.Snapshot(), calendar: s.calendar.Calendar(), now: s.now()}
}

func (v view) input(rec model.AttendanceRecord) (classifier.Input, error) {
	shift, ok := v.settings.Shift(rec.Shift)
	if !ok {
		return classifier.Input{}, model.ErrUnknownShift
	}
	return classifier.Input{
		Shift:      shift,
		Global:     v.settings.Global(),
		Location:   v.settings.Location(),
		WorkingDay: v.calendar.IsWorkingDay(rec.Date),
		Date:       rec.Date,
		CheckIn:    rec.CheckInTime,
		CheckOut:   rec.CheckOutTime,
		Now:        v.now,
	}, nil
}

func (v view) resolve(rec model.AttendanceRecord) (classifier.Resolution, error) {
	in, err := v.input(rec)
	if err != nil {
		return classifier.Resolution{}, err
	}
	return classifier.Classify(in)
}

func eventError(op string, rec model.AttendanceRecord, err error) error {
	return &model.EventError{
		Op:       op,
		RecordID: rec.ID,
		UserID:   rec.UserID,
		Shift:    rec.Shift,
		Date:     rec.Date,
		CheckIn:  rec.CheckInTime,
		CheckOut: rec.CheckOutTime,
		Err:      err,
	}
}

// CheckIn opens the user's record for a shift. Lateness is decided here and
// kept as the tentative status.
func (s *AttendanceService) CheckIn(ctx context.Context, req CheckInRequest) (aggregate.Row, error) {
	v := s.view()
	at := req.At
	if at.IsZero() {
		at = v.now
	}
	rec := model.AttendanceRecord{
		UserID:      req.UserID,
		UserName:    req.UserName,
		Shift:       req.Shift,
		Date:        classifier.LocalDate(at, v.settings.Location()),
		CheckInTime: &at,
		Status:      model.StatusCheckedIn,
	}
	if req.SourceIP != "" && !v.settings.IPAllowed(req.SourceIP) {
		return aggregate.Row{}, eventError("check-in", rec, model.ErrIPNotAllowed)
	}

	in, err := v.input(rec)
	if err != nil {
		return aggregate.Row{}, eventError("check-in", rec, err)
	}
	tentative, err := classifier.Tentative(in)
	if err != nil {
		return aggregate.Row{}, eventError("check-in", rec, err)
	}
	rec.Tentative = tentative

	existing, err := s.repo.FindForDay(ctx, rec.UserID, rec.Date, rec.Shift)
	if err != nil {
		return aggregate.Row{}, fmt.Errorf("failed to look up the day's record: %w", err)
	}
	if existing != nil {
		return aggregate.Row{}, eventError("check-in", *existing, model.ErrDuplicateCheckIn)
	}

	if _, err := s.repo.Create(ctx, &rec); err != nil {
		if errors.Is(err, model.ErrDuplicateCheckIn) {
			return aggregate.Row{}, eventError("check-in", rec, err)
		}
		return aggregate.Row{}, fmt.Errorf("failed to create check-in record: %w", err)
	}

	log.Ctx(ctx).Info().
		Int64("record_id", rec.ID).
		Str("user_id", rec.UserID).
		Str("shift", string(rec.Shift)).
		Str("tentative", string(tentative)).
		Msg("Check-in recorded")

	res, err := v.resolve(rec)
	return aggregate.Row{Record: rec, Resolution: res}, err
}

// CheckOut closes the user's open record for the shift on the check-out's
// local date, classifies the day and hands the result to payroll and email.
func (s *AttendanceService) CheckOut(ctx context.Context, req CheckOutRequest) (aggregate.Row, error) {
	v := s.view()
	at := req.At
	if at.IsZero() {
		at = v.now
	}
	attempt := model.AttendanceRecord{
		UserID:       req.UserID,
		Shift:        req.Shift,
		Date:         classifier.LocalDate(at, v.settings.Location()),
		CheckOutTime: &at,
	}
	if req.SourceIP != "" && !v.settings.IPAllowed(req.SourceIP) {
		return aggregate.Row{}, eventError("check-out", attempt, model.ErrIPNotAllowed)
	}
	if _, ok := v.settings.Shift(req.Shift); !ok {
		return aggregate.Row{}, eventError("check-out", attempt, model.ErrUnknownShift)
	}

	// Only the same day's record can be closed; an earlier day's open
	// check-in stays open and resolves as abnormal.
	open, err := s.repo.FindOpen(ctx, req.UserID, attempt.Date, req.Shift)
	if err != nil {
		return aggregate.Row{}, fmt.Errorf("failed to query open check-in: %w", err)
	}
	if open == nil {
		return aggregate.Row{}, eventError("check-out", attempt, model.ErrMissingCheckIn)
	}

	rec := *open
	rec.CheckOutTime = &at
	if at.Before(*rec.CheckInTime) {
		return aggregate.Row{}, eventError("check-out", rec, model.ErrCheckOutBeforeCheckIn)
	}

	res, err := v.resolve(rec)
	if err != nil {
		return aggregate.Row{}, eventError("check-out", rec, err)
	}
	rec.Status, rec.HoursWorked = res.Status, res.HoursWorked

	if err := s.repo.UpdateCheckOut(ctx, rec.ID, at, rec.HoursWorked, rec.Status, rec.UserID); err != nil {
		return aggregate.Row{}, fmt.Errorf("failed to update check-out record: %w", err)
	}
	rec.PayrollStatus = model.DeliveryPending

	log.Ctx(ctx).Info().
		Int64("record_id", rec.ID).
		Str("user_id", rec.UserID).
		Str("status", string(rec.Status)).
		Float64("hours_worked", rec.HoursWorked).
		Msg("Check-out classified")

	s.publish(ctx, rec, v.now, true)
	return aggregate.Row{Record: rec, Resolution: res}, nil
}

// publish hands a classified record downstream. Failures are logged and the
// delivery status stays PENDING so the record can be replayed.
func (s *AttendanceService) publish(ctx context.Context, rec model.AttendanceRecord, now time.Time, withEmail bool) {
	if s.publisher == nil || rec.CheckInTime == nil || rec.CheckOutTime == nil {
		return
	}
	event := messaging.AttendanceClassifiedEvent{
		RecordID:     rec.ID,
		UserID:       rec.UserID,
		UserName:     rec.UserName,
		Date:         rec.Date.Format(model.DateLayout),
		Shift:        rec.Shift,
		Status:       rec.Status,
		HoursWorked:  rec.HoursWorked,
		CheckInTime:  *rec.CheckInTime,
		CheckOutTime: *rec.CheckOutTime,
		OccurredAt:   now,
	}
	if withEmail {
		if err := s.publisher.PublishEmail(ctx, event); err != nil {
			log.Ctx(ctx).Warn().Err(err).Int64("record_id", rec.ID).Msg("Failed to publish email event")
		}
	}
	if err := s.publisher.PublishPayroll(ctx, event); err != nil {
		log.Ctx(ctx).Warn().Err(err).Int64("record_id", rec.ID).Msg("Failed to publish payroll event")
	}
}

// ResolveStatus classifies a record against the configuration in effect now.
// Calling it twice with nothing changed in between gives the same answer.
func (s *AttendanceService) ResolveStatus(rec model.AttendanceRecord) (classifier.Resolution, error) {
	return s.view().resolve(rec)
}

// IsWorkingDay answers for the calendar in effect now.
func (s *AttendanceService) IsWorkingDay(date time.Time) bool {
	return s.calendar.Calendar().IsWorkingDay(date)
}

// Location is the attendance timezone in effect now.
func (s *AttendanceService) Location() *time.Location {
	return s.settings.Snapshot().Location()
}

func (s *AttendanceService) GetRecord(ctx context.Context, id int64) (aggregate.Row, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return aggregate.Row{}, err
	}
	res, err := s.ResolveStatus(*rec)
	if err != nil {
		return aggregate.Row{}, eventError("resolve", *rec, err)
	}
	return aggregate.Row{Record: *rec, Resolution: res}, nil
}

// History pages through the records matching f, resolved at read time.
func (s *AttendanceService) History(ctx context.Context, f aggregate.Filter, p aggregate.PageRequest) (aggregate.Result, error) {
	return s.history(ctx, repository.RecordQuery{}, f, p)
}

// HistoryByName is History restricted to one user name, matched case-insensitively.
func (s *AttendanceService) HistoryByName(ctx context.Context, name string, f aggregate.Filter, p aggregate.PageRequest) (aggregate.Result, error) {
	return s.history(ctx, repository.RecordQuery{UserName: name}, f, p)
}

// StatusBoard lists every record of one date.
func (s *AttendanceService) StatusBoard(ctx context.Context, date time.Time, f aggregate.Filter, p aggregate.PageRequest) (aggregate.Result, error) {
	f.From, f.To = date, date
	return s.history(ctx, repository.RecordQuery{}, f, p)
}

func (s *AttendanceService) history(ctx context.Context, q repository.RecordQuery, f aggregate.Filter, p aggregate.PageRequest) (aggregate.Result, error) {
	records, err := s.list(ctx, q, f)
	if err != nil {
		return aggregate.Result{}, err
	}
	return aggregate.Summarize(records, f, p, s.view().resolve)
}

// Export returns every matching row, unpaged, plus the counts.
func (s *AttendanceService) Export(ctx context.Context, f aggregate.Filter) ([]aggregate.Row, aggregate.Stats, error) {
	records, err := s.list(ctx, repository.RecordQuery{}, f)
	if err != nil {
		return nil, aggregate.Stats{}, err
	}
	return aggregate.Collect(records, f, s.view().resolve)
}

// list pushes the filters that don't depend on resolution down to storage.
// Status is resolved at read time so it can't be pushed down.
func (s *AttendanceService) list(ctx context.Context, q repository.RecordQuery, f aggregate.Filter) ([]model.AttendanceRecord, error) {
	if !f.From.IsZero() && !f.To.IsZero() && model.DateOf(f.From).After(model.DateOf(f.To)) {
		return nil, &model.RangeError{Start: f.From, End: f.To}
	}
	q.From, q.To, q.Shift, q.Search = f.From, f.To, f.Shift, f.Search
	records, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance records: %w", err)
	}
	return records, nil
}

// Correction is an admin edit of a record. Nil fields stay unchanged.
type Correction struct {
	UserName      *string
	Shift         *model.ShiftName
	CheckIn       *time.Time
	CheckOut      *time.Time
	ClearCheckOut bool
}

// CorrectRecord applies an admin correction and re-classifies the record.
func (s *AttendanceService) CorrectRecord(ctx context.Context, id int64, c Correction, actor string) (aggregate.Row, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return aggregate.Row{}, err
	}
	v := s.view()

	next := *rec
	if c.UserName != nil {
		next.UserName = *c.UserName
	}
	if c.Shift != nil {
		next.Shift = *c.Shift
	}
	if c.CheckIn != nil {
		in := *c.CheckIn
		next.CheckInTime = &in
		next.Date = classifier.LocalDate(in, v.settings.Location())
	}
	if c.ClearCheckOut {
		next.CheckOutTime = nil
	} else if c.CheckOut != nil {
		out := *c.CheckOut
		next.CheckOutTime = &out
	}

	if next.CheckOutTime != nil && next.CheckInTime == nil {
		return aggregate.Row{}, eventError("correct", next, model.ErrMissingCheckIn)
	}
	res, err := v.resolve(next)
	if err != nil {
		return aggregate.Row{}, eventError("correct", next, err)
	}
	next.Status, next.Tentative, next.HoursWorked = res.Status, res.Tentative, res.HoursWorked
	if next.CheckInTime != nil && next.CheckOutTime == nil {
		next.Status = model.StatusCheckedIn
	}

	if err := s.repo.Update(ctx, &next); err != nil {
		if errors.Is(err, model.ErrDuplicateCheckIn) {
			return aggregate.Row{}, eventError("correct", next, err)
		}
		return aggregate.Row{}, err
	}

	log.Ctx(ctx).Info().
		Int64("record_id", id).
		Str("actor", actor).
		Str("status", string(next.Status)).
		Msg("Attendance record corrected")

	if next.CheckOutTime != nil {
		if err := s.repo.UpdatePayrollStatus(ctx, id, model.DeliveryPending, 0); err != nil {
			log.Ctx(ctx).Warn().Err(err).Int64("record_id", id).Msg("Failed to reset payroll status")
		}
		next.PayrollStatus, next.PayrollRetryCount = model.DeliveryPending, 0
		s.publish(ctx, next, v.now, false)
	}
	return aggregate.Row{Record: next, Resolution: res}, nil
}

func (s *AttendanceService) DeleteRecord(ctx context.Context, id int64, actor string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	log.Ctx(ctx).Info().Int64("record_id", id).Str("actor", actor).Msg("Attendance record deleted")
	return nil
}

// RosterEntry is someone expected to attend a shift.
type RosterEntry struct {
	UserID   string
	UserName string
	Shift    model.ShiftName
}

type CloseDayResult struct {
	Date       time.Time `json:"date"`
	WorkingDay bool      `json:"workingDay"`
	Created    int       `json:"created"`
	Skipped    int       `json:"skipped"`
}

// CloseDay stores a record without check-in for every roster member that has
// none for an elapsed working day. Those records resolve to Absent. A
// non-working day creates nothing.
func (s *AttendanceService) CloseDay(ctx context.Context, date time.Time, roster []RosterEntry, actor string) (CloseDayResult, error) {
	v := s.view()
	date = model.DateOf(date)
	out := CloseDayResult{Date: date, WorkingDay: v.calendar.IsWorkingDay(date)}
	if !out.WorkingDay {
		return out, nil
	}

	loc := v.settings.Location()
	dayEnd := time.Date(date.Year(), date.Month(), date.Day()+1, 0, 0, 0, 0, loc)
	if v.now.Before(dayEnd) {
		return out, &model.EventError{Op: "close-day", Date: date, Err: model.ErrDayNotElapsed}
	}

	for _, member := range roster {
		rec := model.AttendanceRecord{UserID: member.UserID, UserName: member.UserName, Shift: member.Shift, Date: date}
		if _, ok := v.settings.Shift(member.Shift); !ok {
			return out, eventError("close-day", rec, model.ErrUnknownShift)
		}
		existing, err := s.repo.FindForDay(ctx, member.UserID, date, member.Shift)
		if err != nil {
			return out, fmt.Errorf("failed to look up the day's record: %w", err)
		}
		if existing != nil {
			out.Skipped++
			continue
		}
		rec.Status = model.StatusAbsent
		if _, err := s.repo.Create(ctx, &rec); err != nil {
			if errors.Is(err, model.ErrDuplicateCheckIn) {
				out.Skipped++
				continue
			}
			return out, fmt.Errorf("failed to store absence: %w", err)
		}
		out.Created++
	}

	log.Ctx(ctx).Info().
		Str("date", date.Format(model.DateLayout)).
		Str("actor", actor).
		Int("created", out.Created).
		Int("skipped", out.Skipped).
		Msg("Day closed")
	return out, nil
}
