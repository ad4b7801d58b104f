package main

import (
	"encoding/json"
	"flag"
	"math/rand"
	"net/http"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"attendance.service/internal/worker/payrollapi"
)

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	failRate := flag.Float64("fail-rate", 0, "share of requests answered with 503, to exercise retries and the breaker")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		mu   sync.Mutex
		seen = map[string]int{}
	)
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var entry payrollapi.Entry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)
			return
		}
		if rand.Float64() < *failRate {
			log.Warn().Str("external_id", entry.ExternalID).Msg("Simulated payroll outage")
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}

		mu.Lock()
		seen[entry.ExternalID]++
		n := seen[entry.ExternalID]
		mu.Unlock()

		log.Info().
			Str("external_id", entry.ExternalID).
			Str("employee_id", entry.EmployeeID).
			Str("date", entry.Date).
			Str("status", entry.Status).
			Float64("hours", entry.HoursWorked).
			Int("deliveries", n).
			Msg("Received attendance entry")
		w.WriteHeader(http.StatusOK)
	})

	log.Info().Str("addr", *addr).Msg("Payroll API mock server starting")
	log.Fatal().Err(http.ListenAndServe(*addr, nil)).Msg("server stopped")
}
