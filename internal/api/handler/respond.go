package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"attendance.service/internal/core/model"
)

var errForbidden = errors.New("only admins may record attendance for another user")

type errorBody struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var (
		cfgErr   *model.ConfigurationError
		rangeErr *model.RangeError
		valErr   *model.ValidationError
	)
	switch {
	case errors.As(err, &valErr), errors.As(err, &rangeErr), errors.As(err, &cfgErr),
		errors.Is(err, model.ErrUnknownShift):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrRecordNotFound), errors.Is(err, model.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrIPNotAllowed), errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrDuplicateCheckIn):
		return http.StatusConflict
	case errors.Is(err, model.ErrOffDayCheckIn), errors.Is(err, model.ErrMissingCheckIn),
		errors.Is(err, model.ErrCheckOutBeforeCheckIn), errors.Is(err, model.ErrDayNotElapsed):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeJSON(w, status, errorBody{Error: "internal server error"})
		return
	}

	body := errorBody{Error: err.Error()}
	var evErr *model.EventError
	if errors.As(err, &evErr) {
		body.Error = evErr.Err.Error()
		body.Details = map[string]any{"op": evErr.Op, "userId": evErr.UserID}
		if evErr.Shift != "" {
			body.Details["shift"] = evErr.Shift
		}
		if evErr.RecordID != 0 {
			body.Details["recordId"] = evErr.RecordID
		}
		if !evErr.Date.IsZero() {
			body.Details["date"] = evErr.Date.Format(model.DateLayout)
		}
		if evErr.CheckIn != nil {
			body.Details["checkInTime"] = evErr.CheckIn.Format(time.RFC3339)
		}
		if evErr.CheckOut != nil {
			body.Details["checkOutTime"] = evErr.CheckOut.Format(time.RFC3339)
		}
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, r *http.Request, field, reason string) {
	writeError(w, r, &model.ValidationError{Field: field, Reason: reason})
}
