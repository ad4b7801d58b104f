package messaging

import (
	"time"

	"attendance.service/internal/core/model"
)

// EventKind is the kind of a device event.
type EventKind string

const (
	KindCheckIn  EventKind = "CHECK_IN"
	KindCheckOut EventKind = "CHECK_OUT"
)

// DeviceEvent is the JSON payload a kiosk or device puts on the ingest queue.
type DeviceEvent struct {
	EventID    string          `json:"eventId"`
	UserID     string          `json:"userId"`
	UserName   string          `json:"userName"`
	Shift      model.ShiftName `json:"shift"`
	Kind       EventKind       `json:"kind"`
	OccurredAt time.Time       `json:"occurredAt"`
	SourceIP   string          `json:"sourceIp,omitempty"`
}

// AttendanceClassifiedEvent is sent to the payroll and email queues once a
// check-out has been classified.
type AttendanceClassifiedEvent struct {
	RecordID     int64           `json:"recordId"`
	UserID       string          `json:"userId"`
	UserName     string          `json:"userName"`
	Date         string          `json:"date"`
	Shift        model.ShiftName `json:"shift"`
	Status       model.Status    `json:"status"`
	HoursWorked  float64         `json:"hoursWorked"`
	CheckInTime  time.Time       `json:"checkInTime"`
	CheckOutTime time.Time       `json:"checkOutTime"`
	OccurredAt   time.Time       `json:"occurredAt"`
}
