package settings

import "attendance.service/internal/core/model"

// DefaultTimezone is used when no timezone is configured.
const DefaultTimezone = "Asia/Karachi"

// Defaults returns the settings written on first boot.
func Defaults() model.AttendanceSettings {
	return model.AttendanceSettings{
		Shifts: map[model.ShiftName]model.ShiftConfig{
			model.ShiftMorning: {
				Name:                       model.ShiftMorning,
				StartHour:                  9,
				EndHour:                    17,
				LateThresholdMinutes:       15,
				EarlyLeaveThresholdMinutes: 30,
				NoCheckoutLateMinutes:      60,
				MinHoursForPresent:         6,
			},
			model.ShiftEvening: {
				Name:                       model.ShiftEvening,
				StartHour:                  17,
				EndHour:                    23,
				LateThresholdMinutes:       15,
				EarlyLeaveThresholdMinutes: 30,
				NoCheckoutLateMinutes:      60,
				MinHoursForPresent:         4,
			},
		},
		GlobalSettings: model.GlobalSettings{
			AllowEarlyCheckIn: 30,
			Timezone:          DefaultTimezone,
			AllowedIPs:        []string{},
		},
	}
}
