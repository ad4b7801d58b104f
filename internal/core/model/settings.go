package model

import "time"

// ShiftConfig holds the time window and thresholds of one shift.
// The window is [StartHour, EndHour) on a single calendar day.
type ShiftConfig struct {
	Name                       ShiftName `json:"name"`
	StartHour                  int       `json:"startHour"`
	EndHour                    int       `json:"endHour"`
	LateThresholdMinutes       int       `json:"lateThresholdMinutes"`
	EarlyLeaveThresholdMinutes int       `json:"earlyLeaveThresholdMinutes"`
	NoCheckoutLateMinutes      int       `json:"noCheckoutLateMinutes"`
	MinHoursForPresent         int       `json:"minHoursForPresent"`
}

// GlobalSettings applies to every shift.
type GlobalSettings struct {
	// AllowEarlyCheckIn is how many minutes before shift start a check-in is
	// still counted at face value.
	AllowEarlyCheckIn int      `json:"allowEarlyCheckIn"`
	Timezone          string   `json:"timezone"`
	AllowedIPs        []string `json:"allowedIPs"`
}

// AttendanceSettings is the admin-owned configuration document. It is always
// read and replaced as a whole.
type AttendanceSettings struct {
	Shifts map[ShiftName]ShiftConfig `json:"shifts"`
	GlobalSettings
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
}

// Clone returns a deep copy so callers can't mutate a published snapshot.
func (s AttendanceSettings) Clone() AttendanceSettings {
	out := s
	out.Shifts = make(map[ShiftName]ShiftConfig, len(s.Shifts))
	for k, v := range s.Shifts {
		out.Shifts[k] = v
	}
	out.AllowedIPs = append([]string(nil), s.AllowedIPs...)
	return out
}
