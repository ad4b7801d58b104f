package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"attendance.service/internal/api/middleware"
	"attendance.service/internal/core"
	"attendance.service/internal/core/aggregate"
	"attendance.service/internal/core/model"
	"attendance.service/internal/report"
)

type AttendanceHandler struct {
	Service *core.AttendanceService
	// ClientIP resolves the source address checked against the allow-list.
	// Nil means the socket address is always used.
	ClientIP *ClientIP
}

// subject resolves whose attendance a request records. Only admins may act
// for someone else.
func subject(r *http.Request, userID, userName string) (string, string, error) {
	id, _ := middleware.IdentityFrom(r.Context())
	if userID == "" {
		userID = id.UserID
	}
	if userName == "" && userID == id.UserID {
		userName = id.Name
	}
	if userID == "" {
		return "", "", &model.ValidationError{Field: "userId", Reason: "is required"}
	}
	if userID != id.UserID && !id.IsAdmin() {
		return "", "", errForbidden
	}
	return userID, userName, nil
}

func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req CheckInRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	userID, userName, err := subject(r, req.UserID, req.UserName)
	if err != nil {
		writeError(w, r, err)
		return
	}

	in := core.CheckInRequest{UserID: userID, UserName: userName, Shift: model.ShiftName(req.Shift), SourceIP: h.ClientIP.From(r)}
	if req.Time != nil {
		in.At = *req.Time
	}
	row, err := h.Service.CheckIn(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req CheckOutRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	userID, _, err := subject(r, req.UserID, "")
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := core.CheckOutRequest{UserID: userID, Shift: model.ShiftName(req.Shift), SourceIP: h.ClientIP.From(r)}
	if req.Time != nil {
		out.At = *req.Time
	}
	row, err := h.Service.CheckOut(r.Context(), out)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type historyResponse struct {
	Data       []aggregate.Row `json:"data"`
	Pagination pagination      `json:"pagination"`
	Stats      aggregate.Stats `json:"stats"`
}

func toHistory(res aggregate.Result) historyResponse {
	rows := res.Rows
	if rows == nil {
		rows = []aggregate.Row{}
	}
	return historyResponse{
		Data:       rows,
		Pagination: pagination{Page: res.Page, Limit: res.Limit, Total: res.Total, TotalPages: res.TotalPages},
		Stats:      res.Stats,
	}
}

// parseFilter reads startDate, endDate, status, shift and search.
func parseFilter(r *http.Request) (aggregate.Filter, error) {
	q := r.URL.Query()
	var f aggregate.Filter
	var err error
	if v := q.Get("startDate"); v != "" {
		if f.From, err = model.ParseDate(v); err != nil {
			return f, &model.ValidationError{Field: "startDate", Reason: "must be YYYY-MM-DD"}
		}
	}
	if v := q.Get("endDate"); v != "" {
		if f.To, err = model.ParseDate(v); err != nil {
			return f, &model.ValidationError{Field: "endDate", Reason: "must be YYYY-MM-DD"}
		}
	}
	if v := q.Get("status"); v != "" && !strings.EqualFold(v, "all") {
		st, ok := model.ParseStatus(v)
		if !ok {
			return f, &model.ValidationError{Field: "status", Reason: "unknown status " + strconv.Quote(v)}
		}
		f.Status = st
	}
	if v := q.Get("shift"); v != "" && !strings.EqualFold(v, "all") {
		if !model.ShiftName(v).Valid() {
			return f, &model.ValidationError{Field: "shift", Reason: "must be Morning or Evening"}
		}
		f.Shift = model.ShiftName(v)
	}
	f.Search = strings.TrimSpace(q.Get("search"))
	return f, nil
}

func parsePage(r *http.Request) (aggregate.PageRequest, error) {
	var p aggregate.PageRequest
	q := r.URL.Query()
	for _, field := range []struct {
		name string
		dst  *int
	}{{"page", &p.Page}, {"limit", &p.Limit}} {
		v := q.Get(field.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, &model.ValidationError{Field: field.name, Reason: "must be a positive integer"}
		}
		*field.dst = n
	}
	return p, nil
}

func (h *AttendanceHandler) History(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := parsePage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Service.History(r.Context(), f, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistory(res))
}

func (h *AttendanceHandler) HistoryByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(mux.Vars(r)["name"])
	if name == "" {
		badRequest(w, r, "name", "is required")
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := parsePage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Service.HistoryByName(r.Context(), name, f, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistory(res))
}

// StatusBoard lists every record of ?date=, today in the attendance timezone
// by default.
func (h *AttendanceHandler) StatusBoard(w http.ResponseWriter, r *http.Request) {
	date := model.DateOf(time.Now().In(h.Service.Location()))
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := model.ParseDate(v)
		if err != nil {
			badRequest(w, r, "date", "must be YYYY-MM-DD")
			return
		}
		date = d
	}
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := parsePage(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Service.StatusBoard(r.Context(), date, f, p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistory(res))
}

func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rows, stats, err := h.Service.Export(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := "attendance.xlsx"
	if !f.From.IsZero() || !f.To.IsZero() {
		name = fmt.Sprintf("attendance_%s_%s.xlsx", dateOrAll(f.From), dateOrAll(f.To))
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	err = report.WriteXLSX(w, report.Export{
		From:        f.From,
		To:          f.To,
		Rows:        rows,
		Stats:       stats,
		Location:    h.Service.Location(),
		GeneratedAt: time.Now(),
	})
	if err != nil {
		writeError(w, r, fmt.Errorf("failed to write workbook: %w", err))
	}
}

func dateOrAll(t time.Time) string {
	if t.IsZero() {
		return "all"
	}
	return t.Format(model.DateLayout)
}

func recordID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		return 0, &model.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}

func (h *AttendanceHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	row, err := h.Service.GetRecord(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *AttendanceHandler) CorrectRecord(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req CorrectionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c := core.Correction{
		UserName:      req.UserName,
		CheckIn:       req.CheckInTime,
		CheckOut:      req.CheckOutTime,
		ClearCheckOut: req.ClearCheckOut,
	}
	if req.Shift != nil {
		shift := model.ShiftName(*req.Shift)
		c.Shift = &shift
	}
	row, err := h.Service.CorrectRecord(r.Context(), id, c, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *AttendanceHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Service.DeleteRecord(r.Context(), id, actor(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AttendanceHandler) CloseDay(w http.ResponseWriter, r *http.Request) {
	var req CloseDayRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		badRequest(w, r, "date", "must be YYYY-MM-DD")
		return
	}
	roster := make([]core.RosterEntry, len(req.Roster))
	for i, m := range req.Roster {
		roster[i] = core.RosterEntry{UserID: m.UserID, UserName: m.UserName, Shift: model.ShiftName(m.Shift)}
	}
	res, err := h.Service.CloseDay(r.Context(), date, roster, actor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func actor(r *http.Request) string {
	id, _ := middleware.IdentityFrom(r.Context())
	return id.UserID
}
