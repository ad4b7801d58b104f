package repository

import (
	"context"
	"time"

	"attendance.service/internal/core/model"
)

// RecordQuery narrows a record listing. Zero values match everything; From
// and To are inclusive dates.
type RecordQuery struct {
	From     time.Time
	To       time.Time
	UserID   string
	UserName string
	Shift    model.ShiftName
	Search   string
}

// AttendanceRepository contract
type AttendanceRepository interface {
	// Create stores a new record. A second record for the same user, date and
	// shift fails with model.ErrDuplicateCheckIn.
	Create(ctx context.Context, rec *model.AttendanceRecord) (int64, error)
	UpdateCheckOut(ctx context.Context, id int64, checkOut time.Time, hoursWorked float64, status model.Status, userID string) error
	// FindOpen returns the user's record for date and shift when it has a
	// check-in but no check-out, or nil.
	FindOpen(ctx context.Context, userID string, date time.Time, shift model.ShiftName) (*model.AttendanceRecord, error)
	FindForDay(ctx context.Context, userID string, date time.Time, shift model.ShiftName) (*model.AttendanceRecord, error)
	Get(ctx context.Context, id int64) (*model.AttendanceRecord, error)
	List(ctx context.Context, q RecordQuery) ([]model.AttendanceRecord, error)
	Update(ctx context.Context, rec *model.AttendanceRecord) error
	Delete(ctx context.Context, id int64) error
	UpdatePayrollStatus(ctx context.Context, id int64, status model.DeliveryStatus, retryCount int) error
	UpdateEmailStatus(ctx context.Context, id int64, status model.DeliveryStatus, retryCount int) error
}

// CalendarRepository persists calendar entries and the weekly pattern.
type CalendarRepository interface {
	ListEntries(ctx context.Context) ([]model.CalendarEntry, error)
	CreateEntry(ctx context.Context, e model.CalendarEntry) error
	UpdateEntry(ctx context.Context, e model.CalendarEntry) error
	DeleteEntry(ctx context.Context, id string) error
	// WorkingDays returns the stored pattern; ok is false when none was saved yet.
	WorkingDays(ctx context.Context) (p model.WeeklyPattern, ok bool, err error)
	SaveWorkingDays(ctx context.Context, p model.WeeklyPattern, updatedBy string) error
}

// SettingsRepository persists the attendance settings document.
type SettingsRepository interface {
	// Load returns nil when nothing was saved yet.
	Load(ctx context.Context) (*model.AttendanceSettings, error)
	Save(ctx context.Context, s model.AttendanceSettings) error
}
