package payrollapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"attendance.service/internal/ports/messaging"
)

// Client contract for the payroll system
type Client interface {
	RecordAttendance(ctx context.Context, event messaging.AttendanceClassifiedEvent) error
}

// Entry is the payload the payroll system accepts for one classified shift.
type Entry struct {
	ExternalID  string  `json:"externalId"`
	EmployeeID  string  `json:"employeeId"`
	Date        string  `json:"date"`
	Shift       string  `json:"shift"`
	Status      string  `json:"status"`
	HoursWorked float64 `json:"hoursWorked"`
	CheckIn     string  `json:"checkIn"`
	CheckOut    string  `json:"checkOut"`
}

// EntryFor maps a classified event to the payroll payload. ExternalID is
// stable per record so the payroll system can deduplicate replays.
func EntryFor(event messaging.AttendanceClassifiedEvent) Entry {
	return Entry{
		ExternalID:  fmt.Sprintf("attendance-%d", event.RecordID),
		EmployeeID:  event.UserID,
		Date:        event.Date,
		Shift:       string(event.Shift),
		Status:      string(event.Status),
		HoursWorked: event.HoursWorked,
		CheckIn:     event.CheckInTime.UTC().Format(time.RFC3339),
		CheckOut:    event.CheckOutTime.UTC().Format(time.RFC3339),
	}
}

// HTTPClient posts entries to the payroll API.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: baseURL,
	}
}

func (c *HTTPClient) RecordAttendance(ctx context.Context, event messaging.AttendanceClassifiedEvent) error {
	payload, err := json.Marshal(EntryFor(event))
	if err != nil {
		return fmt.Errorf("failed to marshal payroll payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create payroll request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call payroll api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("payroll api returned non-successful status code: %d", resp.StatusCode)
	}

	log.Ctx(ctx).Info().Int64("record_id", event.RecordID).Str("status", string(event.Status)).Msg("Attendance recorded in payroll")
	return nil
}
