// Package ingest turns device events from the ingest queue into check-ins and
// check-outs.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"

	"attendance.service/internal/core"
	"attendance.service/internal/core/aggregate"
	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/worker"
)

// Recorder is the part of the attendance service the processor drives.
type Recorder interface {
	CheckIn(ctx context.Context, req core.CheckInRequest) (aggregate.Row, error)
	CheckOut(ctx context.Context, req core.CheckOutRequest) (aggregate.Row, error)
}

type Processor struct {
	recorder Recorder
}

func NewProcessor(recorder Recorder) *Processor {
	return &Processor{recorder: recorder}
}

// Process applies one device event. Events the engine rejects (off-day,
// duplicate, missing check-in...) are logged and dropped; storage failures
// are retried with backoff.
func (p *Processor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	if msg.Body == nil {
		return false, 0, fmt.Errorf("empty device event")
	}
	var event messaging.DeviceEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal device event")
		return false, 0, err
	}
	if event.UserID == "" {
		return false, 0, fmt.Errorf("device event %q has no userId", event.EventID)
	}

	var err error
	switch event.Kind {
	case messaging.KindCheckIn:
		_, err = p.recorder.CheckIn(ctx, core.CheckInRequest{
			UserID:   event.UserID,
			UserName: event.UserName,
			Shift:    event.Shift,
			At:       event.OccurredAt,
			SourceIP: event.SourceIP,
		})
	case messaging.KindCheckOut:
		_, err = p.recorder.CheckOut(ctx, core.CheckOutRequest{
			UserID:   event.UserID,
			Shift:    event.Shift,
			At:       event.OccurredAt,
			SourceIP: event.SourceIP,
		})
	default:
		return false, 0, fmt.Errorf("device event %q has unknown kind %q", event.EventID, event.Kind)
	}

	if err == nil {
		log.Ctx(ctx).Info().Str("event_id", event.EventID).Str("kind", string(event.Kind)).Msg("Device event applied")
		return false, 0, nil
	}
	if model.IsEventError(err) {
		log.Ctx(ctx).Warn().Err(err).Str("event_id", event.EventID).Str("kind", string(event.Kind)).Msg("Device event rejected")
		return false, 0, nil
	}
	return true, worker.CalculateBackoff(receiveCount(msg)), err
}

// receiveCount is how many times SQS has delivered the message before.
func receiveCount(msg types.Message) int {
	n, err := strconv.Atoi(msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil || n < 1 {
		return 0
	}
	return n - 1
}
