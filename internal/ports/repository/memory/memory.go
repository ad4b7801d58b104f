// Package memory is an in-process implementation of the repositories, used by
// tests and by STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/repository"
)

type dayKey struct {
	userID string
	date   time.Time
	shift  model.ShiftName
}

// DB holds every table. The zero value is not usable; call New.
type DB struct {
	records  *recordTable
	calendar *calendarTable
	settings *settingsTable
}

type recordTable struct {
	mutex sync.RWMutex
	pk    int64
	table map[int64]*model.AttendanceRecord
}

type calendarTable struct {
	mutex       sync.RWMutex
	table       map[string]model.CalendarEntry
	workingDays *model.WeeklyPattern
}

type settingsTable struct {
	mutex sync.RWMutex
	doc   *model.AttendanceSettings
}

func New() *DB {
	return &DB{
		records:  &recordTable{table: map[int64]*model.AttendanceRecord{}},
		calendar: &calendarTable{table: map[string]model.CalendarEntry{}},
		settings: &settingsTable{},
	}
}

func copyRecord(rec *model.AttendanceRecord) model.AttendanceRecord {
	out := *rec
	if rec.CheckInTime != nil {
		t := *rec.CheckInTime
		out.CheckInTime = &t
	}
	if rec.CheckOutTime != nil {
		t := *rec.CheckOutTime
		out.CheckOutTime = &t
	}
	return out
}

type attendanceRepository struct {
	db  *recordTable
	now func() time.Time
}

// NewAttendanceRepository returns the record table of db as a repository.
func NewAttendanceRepository(db *DB) repository.AttendanceRepository {
	return &attendanceRepository{db: db.records, now: time.Now}
}

func (repo *attendanceRepository) keyOf(rec *model.AttendanceRecord) dayKey {
	return dayKey{userID: rec.UserID, date: model.DateOf(rec.Date), shift: rec.Shift}
}

func (repo *attendanceRepository) taken(key dayKey, exceptID int64) bool {
	for id, rec := range repo.db.table {
		if id != exceptID && repo.keyOf(rec) == key {
			return true
		}
	}
	return false
}

func (repo *attendanceRepository) Create(_ context.Context, rec *model.AttendanceRecord) (int64, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if repo.taken(repo.keyOf(rec), 0) {
		return 0, model.ErrDuplicateCheckIn
	}
	repo.db.pk++
	now := repo.now().UTC()
	rec.ID = repo.db.pk
	rec.Date = model.DateOf(rec.Date)
	rec.CreatedAt, rec.UpdatedAt = now, now
	rec.PayrollStatus, rec.EmailStatus = model.DeliveryPending, model.DeliveryPending
	rec.PayrollRetryCount, rec.EmailRetryCount = 0, 0
	stored := copyRecord(rec)
	repo.db.table[rec.ID] = &stored
	return rec.ID, nil
}

func (repo *attendanceRepository) UpdateCheckOut(_ context.Context, id int64, checkOut time.Time, hoursWorked float64, status model.Status, _ string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.table[id]
	if !ok {
		return model.ErrRecordNotFound
	}
	rec.CheckOutTime = &checkOut
	rec.HoursWorked = hoursWorked
	rec.Status = status
	rec.PayrollStatus = model.DeliveryPending
	rec.UpdatedAt = repo.now().UTC()
	return nil
}

func (repo *attendanceRepository) FindOpen(_ context.Context, userID string, date time.Time, shift model.ShiftName) (*model.AttendanceRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	key := dayKey{userID: userID, date: model.DateOf(date), shift: shift}
	for _, rec := range repo.db.table {
		if repo.keyOf(rec) != key || rec.CheckInTime == nil || rec.CheckOutTime != nil {
			continue
		}
		out := copyRecord(rec)
		return &out, nil
	}
	return nil, nil
}

func (repo *attendanceRepository) FindForDay(_ context.Context, userID string, date time.Time, shift model.ShiftName) (*model.AttendanceRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	key := dayKey{userID: userID, date: model.DateOf(date), shift: shift}
	for _, rec := range repo.db.table {
		if repo.keyOf(rec) == key {
			out := copyRecord(rec)
			return &out, nil
		}
	}
	return nil, nil
}

func (repo *attendanceRepository) Get(_ context.Context, id int64) (*model.AttendanceRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rec, ok := repo.db.table[id]
	if !ok {
		return nil, model.ErrRecordNotFound
	}
	out := copyRecord(rec)
	return &out, nil
}

func (repo *attendanceRepository) List(_ context.Context, q repository.RecordQuery) ([]model.AttendanceRecord, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := []model.AttendanceRecord{}
	for _, rec := range repo.db.table {
		switch {
		case !q.From.IsZero() && rec.Date.Before(model.DateOf(q.From)):
		case !q.To.IsZero() && rec.Date.After(model.DateOf(q.To)):
		case q.UserID != "" && rec.UserID != q.UserID:
		case q.UserName != "" && !strings.EqualFold(rec.UserName, q.UserName):
		case q.Shift != "" && rec.Shift != q.Shift:
		case search != "" && !strings.Contains(strings.ToLower(rec.UserName), search) &&
			!strings.Contains(strings.ToLower(rec.UserID), search):
		default:
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		if out[i].UserName != out[j].UserName {
			return out[i].UserName < out[j].UserName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (repo *attendanceRepository) Update(_ context.Context, rec *model.AttendanceRecord) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[rec.ID]
	if !ok {
		return model.ErrRecordNotFound
	}
	if repo.taken(repo.keyOf(rec), rec.ID) {
		return model.ErrDuplicateCheckIn
	}
	next := copyRecord(rec)
	next.Date = model.DateOf(next.Date)
	next.UserID = orig.UserID
	next.CreatedAt = orig.CreatedAt
	next.PayrollStatus, next.PayrollRetryCount = orig.PayrollStatus, orig.PayrollRetryCount
	next.EmailStatus, next.EmailRetryCount = orig.EmailStatus, orig.EmailRetryCount
	next.UpdatedAt = repo.now().UTC()
	repo.db.table[rec.ID] = &next
	rec.UpdatedAt = next.UpdatedAt
	return nil
}

func (repo *attendanceRepository) Delete(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return model.ErrRecordNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *attendanceRepository) UpdatePayrollStatus(_ context.Context, id int64, status model.DeliveryStatus, retryCount int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if rec, ok := repo.db.table[id]; ok {
		rec.PayrollStatus, rec.PayrollRetryCount = status, retryCount
	}
	return nil
}

func (repo *attendanceRepository) UpdateEmailStatus(_ context.Context, id int64, status model.DeliveryStatus, retryCount int) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if rec, ok := repo.db.table[id]; ok {
		rec.EmailStatus, rec.EmailRetryCount = status, retryCount
	}
	return nil
}

type calendarRepository struct {
	db *calendarTable
}

func NewCalendarRepository(db *DB) repository.CalendarRepository {
	return &calendarRepository{db: db.calendar}
}

func (repo *calendarRepository) ListEntries(context.Context) ([]model.CalendarEntry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	out := make([]model.CalendarEntry, 0, len(repo.db.table))
	for _, e := range repo.db.table {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (repo *calendarRepository) CreateEntry(_ context.Context, e model.CalendarEntry) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[e.ID] = e
	return nil
}

func (repo *calendarRepository) UpdateEntry(_ context.Context, e model.CalendarEntry) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.table[e.ID]
	if !ok {
		return model.ErrEntryNotFound
	}
	e.CreatedAt, e.CreatedBy = orig.CreatedAt, orig.CreatedBy
	repo.db.table[e.ID] = e
	return nil
}

func (repo *calendarRepository) DeleteEntry(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return model.ErrEntryNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *calendarRepository) WorkingDays(context.Context) (model.WeeklyPattern, bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if repo.db.workingDays == nil {
		return model.WeeklyPattern{}, false, nil
	}
	return *repo.db.workingDays, true, nil
}

func (repo *calendarRepository) SaveWorkingDays(_ context.Context, p model.WeeklyPattern, _ string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.workingDays = &p
	return nil
}

type settingsRepository struct {
	db *settingsTable
}

func NewSettingsRepository(db *DB) repository.SettingsRepository {
	return &settingsRepository{db: db.settings}
}

func (repo *settingsRepository) Load(context.Context) (*model.AttendanceSettings, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if repo.db.doc == nil {
		return nil, nil
	}
	s := repo.db.doc.Clone()
	return &s, nil
}

func (repo *settingsRepository) Save(_ context.Context, s model.AttendanceSettings) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	c := s.Clone()
	repo.db.doc = &c
	return nil
}
