package api

import (
	"net/http"
	"net/netip"

	"github.com/gorilla/mux"

	"attendance.service/internal/api/handler"
	"attendance.service/internal/api/middleware"
	"attendance.service/internal/core"
)

type Deps struct {
	Attendance *core.AttendanceService
	Calendar   *core.CalendarService
	Settings   *core.SettingsService
	JWTSecret  []byte
	SeedFile   string
	// TrustedProxies may set X-Forwarded-For; other clients are judged by
	// their socket address.
	TrustedProxies []netip.Prefix
}

// NewRouter sets up the gorilla/mux router and defines all API routes.
func NewRouter(d Deps) *mux.Router {
	attendance := &handler.AttendanceHandler{Service: d.Attendance, ClientIP: handler.NewClientIP(d.TrustedProxies)}
	cal := &handler.CalendarHandler{Service: d.Calendar, SeedFile: d.SeedFile, Location: d.Attendance.Location}
	settings := &handler.SettingsHandler{Service: d.Settings}

	r := mux.NewRouter()
	r.Use(middleware.RequestLogger)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Service is operational."))
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.Authenticate(d.JWTSecret))
	admin := func(h http.HandlerFunc) http.Handler { return middleware.RequireAdmin(h) }

	api.HandleFunc("/attendance/check-in", attendance.CheckIn).Methods(http.MethodPost)
	api.HandleFunc("/attendance/check-out", attendance.CheckOut).Methods(http.MethodPost)
	api.HandleFunc("/attendance/status", attendance.StatusBoard).Methods(http.MethodGet)
	api.HandleFunc("/attendance/history", attendance.History).Methods(http.MethodGet)
	api.HandleFunc("/attendance/history/export", attendance.Export).Methods(http.MethodGet)
	api.HandleFunc("/attendance/history/by-name/{name}", attendance.HistoryByName).Methods(http.MethodGet)
	api.HandleFunc("/attendance/records/{id:[0-9]+}", attendance.GetRecord).Methods(http.MethodGet)
	api.Handle("/attendance/records/{id:[0-9]+}", admin(attendance.CorrectRecord)).Methods(http.MethodPut)
	api.Handle("/attendance/records/{id:[0-9]+}", admin(attendance.DeleteRecord)).Methods(http.MethodDelete)
	api.Handle("/attendance/close-day", admin(attendance.CloseDay)).Methods(http.MethodPost)
	api.HandleFunc("/attendance/settings", settings.Get).Methods(http.MethodGet)
	api.Handle("/attendance/settings", admin(settings.Replace)).Methods(http.MethodPut)

	// Fixed calendar paths go before /calendar/{id}.
	api.HandleFunc("/calendar/settings", cal.GetWorkingDays).Methods(http.MethodGet)
	api.Handle("/calendar/settings", admin(cal.SetWorkingDays)).Methods(http.MethodPut)
	api.HandleFunc("/calendar/working-day", cal.WorkingDay).Methods(http.MethodGet)
	api.Handle("/calendar/seed", admin(cal.Seed)).Methods(http.MethodPost)
	api.HandleFunc("/calendar", cal.List).Methods(http.MethodGet)
	api.Handle("/calendar", admin(cal.Create)).Methods(http.MethodPost)
	api.HandleFunc("/calendar/{id}", cal.Get).Methods(http.MethodGet)
	api.Handle("/calendar/{id}", admin(cal.Update)).Methods(http.MethodPut)
	api.Handle("/calendar/{id}", admin(cal.Delete)).Methods(http.MethodDelete)

	return r
}
