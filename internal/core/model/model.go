package model

import (
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// ShiftName identifies one of the daily shifts.
type ShiftName string

const (
	ShiftMorning ShiftName = "Morning"
	ShiftEvening ShiftName = "Evening"
)

// ShiftNames lists every supported shift in display order.
var ShiftNames = []ShiftName{ShiftMorning, ShiftEvening}

// Valid reports whether the shift name is one we know about.
func (s ShiftName) Valid() bool {
	return s == ShiftMorning || s == ShiftEvening
}

// Status is the classified attendance status of a record.
type Status string

const (
	StatusNone       Status = ""
	StatusPresent    Status = "Present"
	StatusLate       Status = "Late"
	StatusEarlyLeave Status = "Early Leave"
	StatusAbsent     Status = "Absent"
	StatusCheckedIn  Status = "Checked In"
)

// ParseStatus accepts the display form of a status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPresent, StatusLate, StatusEarlyLeave, StatusAbsent, StatusCheckedIn:
		return Status(s), true
	}
	return StatusNone, false
}

// DeliveryStatus defines the state of a downstream delivery (payroll export, email).
type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "PENDING"
	DeliveryProcessing DeliveryStatus = "PROCESSING"
	DeliveryCompleted  DeliveryStatus = "COMPLETED"
	DeliveryFailed     DeliveryStatus = "FAILED"
)

// AttendanceRecord is one user's attendance for one shift on one date.
type AttendanceRecord struct {
	ID           int64      `json:"id"`
	UserID       string     `json:"userId"`
	UserName     string     `json:"userName"`
	Date         time.Time  `json:"date"`
	Shift        ShiftName  `json:"shift"`
	CheckInTime  *time.Time `json:"checkInTime,omitempty"`
	CheckOutTime *time.Time `json:"checkOutTime,omitempty"`
	// Status is the value stored at ingestion time. Reports re-resolve it.
	Status            Status         `json:"status"`
	Tentative         Status         `json:"tentativeStatus,omitempty"`
	HoursWorked       float64        `json:"hoursWorked,omitempty"`
	PayrollStatus     DeliveryStatus `json:"payrollStatus"`
	PayrollRetryCount int            `json:"payrollRetryCount"`
	EmailStatus       DeliveryStatus `json:"emailStatus"`
	EmailRetryCount   int            `json:"emailRetryCount"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// DateOf strips the clock from t, keeping t's own calendar date. Convert t to
// the attendance timezone first.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses YYYY-MM-DD or an RFC3339 timestamp into a calendar date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return DateOf(t), nil
}
