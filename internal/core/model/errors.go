package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrOffDayCheckIn         = errors.New("check-in on a non-working day")
	ErrDuplicateCheckIn      = errors.New("already checked in")
	ErrMissingCheckIn        = errors.New("check-out without an open check-in")
	ErrCheckOutBeforeCheckIn = errors.New("check-out precedes check-in")
	ErrUnknownShift          = errors.New("unknown shift")
	ErrDayNotElapsed         = errors.New("day has not fully elapsed")
	ErrIPNotAllowed          = errors.New("source address is not on the allow-list")

	ErrRecordNotFound = errors.New("attendance record not found")
	ErrEntryNotFound  = errors.New("calendar entry not found")
)

// EventError carries the identity and timestamps of the event that could not
// be applied, so an operator can correct it.
type EventError struct {
	Op       string
	RecordID int64
	UserID   string
	Shift    ShiftName
	Date     time.Time
	CheckIn  *time.Time
	CheckOut *time.Time
	Err      error
}

func (e *EventError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %v (user=%s shift=%s", e.Op, e.Err, e.UserID, e.Shift)
	if e.RecordID != 0 {
		fmt.Fprintf(&b, " record=%d", e.RecordID)
	}
	if !e.Date.IsZero() {
		fmt.Fprintf(&b, " date=%s", e.Date.Format(DateLayout))
	}
	if e.CheckIn != nil {
		fmt.Fprintf(&b, " checkIn=%s", e.CheckIn.Format(time.RFC3339))
	}
	if e.CheckOut != nil {
		fmt.Fprintf(&b, " checkOut=%s", e.CheckOut.Format(time.RFC3339))
	}
	b.WriteString(")")
	return b.String()
}

func (e *EventError) Unwrap() error { return e.Err }

// ConfigurationError rejects an invalid settings document. The previous
// configuration stays in effect.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// RangeError rejects a calendar entry whose start is after its end.
type RangeError struct {
	Start time.Time
	End   time.Time
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("invalid date range: start %s is after end %s",
		e.Start.Format(DateLayout), e.End.Format(DateLayout))
}

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// IsEventError reports whether err is a per-event domain failure that retrying
// will not fix.
func IsEventError(err error) bool {
	var ev *EventError
	return errors.As(err, &ev)
}
