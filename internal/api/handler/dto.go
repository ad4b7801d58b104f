package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"attendance.service/internal/core/model"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &model.ValidationError{Field: "body", Reason: "invalid JSON: " + err.Error()}
	}
	return check(dst)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		return &model.ValidationError{Field: field, Reason: reasonFor(fe)}
	}
	return &model.ValidationError{Field: "body", Reason: err.Error()}
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "ip", "cidr", "ip|cidr":
		return "must be an IP address or CIDR range"
	case "datetime":
		return "must be a date in " + fe.Param() + " format"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

type CheckInRequest struct {
	UserID   string `json:"userId" validate:"omitempty,max=64"`
	UserName string `json:"userName" validate:"omitempty,max=128"`
	Shift    string `json:"shift" validate:"required,oneof=Morning Evening"`
	// Time defaults to now. RFC3339.
	Time *time.Time `json:"time"`
}

type CheckOutRequest struct {
	UserID string     `json:"userId" validate:"omitempty,max=64"`
	Shift  string     `json:"shift" validate:"required,oneof=Morning Evening"`
	Time   *time.Time `json:"time"`
}

type CorrectionRequest struct {
	UserName      *string    `json:"userName" validate:"omitempty,max=128"`
	Shift         *string    `json:"shift" validate:"omitempty,oneof=Morning Evening"`
	CheckInTime   *time.Time `json:"checkInTime"`
	CheckOutTime  *time.Time `json:"checkOutTime"`
	ClearCheckOut bool       `json:"clearCheckOut"`
}

type RosterMember struct {
	UserID   string `json:"userId" validate:"required,max=64"`
	UserName string `json:"userName" validate:"max=128"`
	Shift    string `json:"shift" validate:"required,oneof=Morning Evening"`
}

type CloseDayRequest struct {
	Date   string         `json:"date" validate:"required,datetime=2006-01-02"`
	Roster []RosterMember `json:"roster" validate:"required,min=1,dive"`
}

type CalendarEntryRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Type        string `json:"type" validate:"required,oneof=Holiday Event Meeting 'Working Day' Other"`
	Color       string `json:"color" validate:"omitempty,max=32"`
	StartDate   string `json:"startDate" validate:"required"`
	EndDate     string `json:"endDate" validate:"required"`
	IsFullDay   *bool  `json:"isFullDay"`
	Status      string `json:"status" validate:"omitempty,oneof=Upcoming Completed Cancelled"`
	Location    string `json:"location" validate:"max=200"`
	Recurrence  string `json:"recurrence" validate:"omitempty,oneof=None Daily Weekly Monthly Yearly"`
}

type WorkingDaysRequest struct {
	WorkingDays []int `json:"workingDays" validate:"required,max=7,dive,min=0,max=6"`
}

type WorkingDaysResponse struct {
	WorkingDays model.WeeklyPattern `json:"workingDays"`
}

type SettingsRequest struct {
	Shifts            map[model.ShiftName]model.ShiftConfig `json:"shifts" validate:"required"`
	AllowEarlyCheckIn int                                   `json:"allowEarlyCheckIn" validate:"min=0,max=720"`
	Timezone          string                                `json:"timezone" validate:"required"`
	AllowedIPs        []string                              `json:"allowedIPs" validate:"dive,ip|cidr"`
}

func (s SettingsRequest) toModel() model.AttendanceSettings {
	return model.AttendanceSettings{
		Shifts: s.Shifts,
		GlobalSettings: model.GlobalSettings{
			AllowEarlyCheckIn: s.AllowEarlyCheckIn,
			Timezone:          s.Timezone,
			AllowedIPs:        s.AllowedIPs,
		},
	}
}
