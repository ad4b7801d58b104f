package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/ports/repository"
	"attendance.service/internal/worker"
	"attendance.service/internal/worker/payrollapi"
)

// Processor handles jobs from the payroll queue. Calls to the payroll API go
// through a circuit breaker so an outage doesn't get hammered by retries.
type Processor struct {
	repo    repository.AttendanceRepository
	payroll payrollapi.Client
	cb      *gobreaker.CircuitBreaker
}

func NewProcessor(repo repository.AttendanceRepository, payroll payrollapi.Client) *Processor {
	settings := gobreaker.Settings{
		Name:        "Payroll-API",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Trip when at least half of 10 or more requests failed.
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	}

	return &Processor{
		repo:    repo,
		payroll: payroll,
		cb:      gobreaker.NewCircuitBreaker(settings),
	}
}

func (p *Processor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event messaging.AttendanceClassifiedEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal payroll event")
		return false, 0, err
	}

	record, err := p.repo.Get(ctx, event.RecordID)
	if errors.Is(err, model.ErrRecordNotFound) {
		log.Ctx(ctx).Warn().Int64("record_id", event.RecordID).Msg("Record deleted before payroll export. Skipping.")
		return false, 0, nil
	}
	if err != nil {
		return true, 10, fmt.Errorf("failed to get record from db: %w", err)
	}

	if record.PayrollStatus == model.DeliveryCompleted {
		log.Ctx(ctx).Info().Int64("record_id", event.RecordID).Msg("Payroll already recorded. Skipping.")
		return false, 0, nil
	}

	_, err = p.cb.Execute(func() (interface{}, error) {
		return nil, p.payroll.RecordAttendance(ctx, event)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			log.Ctx(ctx).Warn().Msg("Circuit breaker is open; skipping payroll API call")
		}
		newCount := record.PayrollRetryCount + 1
		if uerr := p.repo.UpdatePayrollStatus(ctx, event.RecordID, model.DeliveryPending, newCount); uerr != nil {
			log.Ctx(ctx).Error().Err(uerr).Int64("record_id", event.RecordID).Msg("Failed to store payroll retry count")
		}
		return true, worker.CalculateBackoff(newCount), err
	}

	err = p.repo.UpdatePayrollStatus(ctx, event.RecordID, model.DeliveryCompleted, 0)
	return false, 0, err
}
