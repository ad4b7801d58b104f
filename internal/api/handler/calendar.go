package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"attendance.service/internal/core"
	"attendance.service/internal/core/calendar"
	"attendance.service/internal/core/model"
)

type CalendarHandler struct {
	Service *core.CalendarService
	// SeedFile is the YAML seed; empty uses the built-in sample.
	SeedFile string
	// Location decides what "today" is for the working-day lookup.
	Location func() *time.Location
}

func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f calendar.Filter
	var err error
	if v := q.Get("start"); v != "" {
		if f.From, err = model.ParseDate(v); err != nil {
			badRequest(w, r, "start", "must be YYYY-MM-DD")
			return
		}
	}
	if v := q.Get("end"); v != "" {
		if f.To, err = model.ParseDate(v); err != nil {
			badRequest(w, r, "end", "must be YYYY-MM-DD")
			return
		}
	}
	if v := q.Get("type"); v != "" && v != "all" {
		f.Type = model.EntryType(v)
		if !f.Type.Valid() {
			badRequest(w, r, "type", "unknown entry type")
			return
		}
	}

	occ, err := h.Service.List(f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if occ == nil {
		occ = []calendar.Occurrence{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": occ})
}

func (h *CalendarHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.Service.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func entryInput(req CalendarEntryRequest) (core.EntryInput, error) {
	start, err := model.ParseDate(req.StartDate)
	if err != nil {
		return core.EntryInput{}, &model.ValidationError{Field: "startDate", Reason: "must be YYYY-MM-DD"}
	}
	end, err := model.ParseDate(req.EndDate)
	if err != nil {
		return core.EntryInput{}, &model.ValidationError{Field: "endDate", Reason: "must be YYYY-MM-DD"}
	}
	return core.EntryInput{
		Title:       req.Title,
		Description: req.Description,
		Type:        model.EntryType(req.Type),
		Color:       req.Color,
		StartDate:   start,
		EndDate:     end,
		IsFullDay:   req.IsFullDay,
		Status:      model.EntryStatus(req.Status),
		Location:    req.Location,
		Recurrence:  model.Recurrence(req.Recurrence),
	}, nil
}

func (h *CalendarHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CalendarEntryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := entryInput(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.Service.Create(r.Context(), in, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *CalendarHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req CalendarEntryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := entryInput(req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.Service.Update(r.Context(), mux.Vars(r)["id"], in, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *CalendarHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), mux.Vars(r)["id"], actor(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CalendarHandler) GetWorkingDays(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, WorkingDaysResponse{WorkingDays: h.Service.WorkingDays()})
}

func (h *CalendarHandler) SetWorkingDays(w http.ResponseWriter, r *http.Request) {
	var req WorkingDaysRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := model.ParseWeeklyPattern(req.WorkingDays)
	if err != nil {
		badRequest(w, r, "workingDays", err.Error())
		return
	}
	p, err = h.Service.SetWorkingDays(r.Context(), p, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WorkingDaysResponse{WorkingDays: p})
}

// WorkingDay explains whether ?date= (default today) is a working day.
func (h *CalendarHandler) WorkingDay(w http.ResponseWriter, r *http.Request) {
	loc := time.UTC
	if h.Location != nil {
		loc = h.Location()
	}
	date := model.DateOf(time.Now().In(loc))
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := model.ParseDate(v)
		if err != nil {
			badRequest(w, r, "date", "must be YYYY-MM-DD")
			return
		}
		date = d
	}
	writeJSON(w, http.StatusOK, h.Service.Resolve(date))
}

func (h *CalendarHandler) Seed(w http.ResponseWriter, r *http.Request) {
	entries, err := calendar.LoadSeedFile(h.SeedFile)
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := h.Service.Seed(r.Context(), entries, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if created == nil {
		created = []model.CalendarEntry{}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"created": len(created), "data": created})
}
