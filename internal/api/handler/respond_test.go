package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"attendance.service/internal/core/model"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&model.ValidationError{Field: "shift", Reason: "is required"}, http.StatusBadRequest},
		{&model.RangeError{}, http.StatusBadRequest},
		{&model.ConfigurationError{Field: "timezone", Reason: "unknown"}, http.StatusBadRequest},
		{&model.EventError{Op: "check-in", Err: model.ErrUnknownShift}, http.StatusBadRequest},
		{fmt.Errorf("get: %w", model.ErrRecordNotFound), http.StatusNotFound},
		{model.ErrEntryNotFound, http.StatusNotFound},
		{&model.EventError{Op: "check-in", Err: model.ErrIPNotAllowed}, http.StatusForbidden},
		{&model.EventError{Op: "check-in", Err: model.ErrDuplicateCheckIn}, http.StatusConflict},
		{&model.EventError{Op: "check-in", Err: model.ErrOffDayCheckIn}, http.StatusUnprocessableEntity},
		{&model.EventError{Op: "check-out", Err: model.ErrMissingCheckIn}, http.StatusUnprocessableEntity},
		{&model.EventError{Op: "close-day", Err: model.ErrDayNotElapsed}, http.StatusUnprocessableEntity},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestClientIP(t *testing.T) {
	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/24"), netip.MustParsePrefix("192.0.2.7/32")}

	tests := []struct {
		name    string
		trusted []netip.Prefix
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "remote addr", trusted: proxies, remote: "10.0.1.5:4242", want: "10.0.1.5"},
		{name: "ipv6", remote: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "spoofed header from client", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "10.0.0.5"}, remote: "203.0.113.9:5000", want: "203.0.113.9"},
		{name: "no trusted proxies", headers: map[string]string{"X-Forwarded-For": "10.0.0.5", "X-Real-IP": "10.0.0.6"}, remote: "203.0.113.9:5000", want: "203.0.113.9"},
		{name: "nearest untrusted hop", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "10.0.0.5, 198.51.100.4, 192.0.2.7"}, remote: "10.0.0.1:80", want: "198.51.100.4"},
		{name: "all hops trusted", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "10.0.0.9, 10.0.0.2"}, remote: "10.0.0.1:80", want: "10.0.0.9"},
		{name: "malformed hop", trusted: proxies, headers: map[string]string{"X-Forwarded-For": "unknown"}, remote: "10.0.0.1:80", want: "unknown"},
		{name: "real ip from proxy", trusted: proxies, headers: map[string]string{"X-Real-IP": "198.51.100.2"}, remote: "192.0.2.7:80", want: "198.51.100.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, NewClientIP(tt.trusted).From(r))
		})
	}

	var unset *ClientIP
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:5000"
	r.Header.Set("X-Forwarded-For", "10.0.0.5")
	assert.Equal(t, "203.0.113.9", unset.From(r))
}

func TestCheckReportsJSONFieldNames(t *testing.T) {
	err := check(CloseDayRequest{Date: "2026-03-16", Roster: []RosterMember{{UserID: "u-1", Shift: "Night"}}})
	var verr *model.ValidationError
	if assert.ErrorAs(t, err, &verr) {
		assert.Equal(t, "roster[0].shift", verr.Field)
	}

	assert.NoError(t, check(CalendarEntryRequest{Title: "Makeup", Type: "Working Day", StartDate: "2026-03-21", EndDate: "2026-03-21"}))
}
