package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog/log"

	"attendance.service/internal/core"
	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/ports/repository"
	"attendance.service/internal/worker"
)

type EmailProcessor struct {
	emailService core.EmailService
	repo         repository.AttendanceRepository
	domain       string
}

// NewProcessor sets up a processor that mails each user their day summary.
// Addresses are userID@domain.
func NewProcessor(emailService core.EmailService, repo repository.AttendanceRepository, domain string) *EmailProcessor {
	return &EmailProcessor{
		emailService: emailService,
		repo:         repo,
		domain:       domain,
	}
}

func (p *EmailProcessor) Process(ctx context.Context, msg types.Message) (bool, int32, error) {
	var event messaging.AttendanceClassifiedEvent
	if err := json.Unmarshal([]byte(*msg.Body), &event); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to unmarshal email event")
		return false, 0, err
	}

	record, err := p.repo.Get(ctx, event.RecordID)
	if errors.Is(err, model.ErrRecordNotFound) {
		return false, 0, nil
	}
	if err != nil {
		return true, 10, fmt.Errorf("failed to get record from db for email processing: %w", err)
	}

	if record.EmailStatus == model.DeliveryCompleted {
		log.Ctx(ctx).Info().Int64("record_id", event.RecordID).Msg("Email already sent. Skipping.")
		return false, 0, nil
	}

	err = p.emailService.SendDaySummary(ctx, event.UserID+"@"+p.domain, event)
	if err != nil {
		newCount := record.EmailRetryCount + 1
		if uerr := p.repo.UpdateEmailStatus(ctx, event.RecordID, model.DeliveryPending, newCount); uerr != nil {
			log.Ctx(ctx).Error().Err(uerr).Int64("record_id", event.RecordID).Msg("Failed to store email retry count")
		}
		return true, worker.CalculateBackoff(newCount), err
	}

	err = p.repo.UpdateEmailStatus(ctx, event.RecordID, model.DeliveryCompleted, 0)
	return false, 0, err
}
