package core

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"attendance.service/internal/ports/messaging"
	"attendance.service/pkg/telemetry"
)

type EmailService interface {
	SendDaySummary(ctx context.Context, to string, event messaging.AttendanceClassifiedEvent) error
}

// SESClient is the part of the SES client we use.
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SESEmailService struct {
	client SESClient
	sender string
}

func NewSESEmailService(client SESClient, sender string) *SESEmailService {
	return &SESEmailService{client: client, sender: sender}
}

func (s *SESEmailService) SendDaySummary(ctx context.Context, to string, event messaging.AttendanceClassifiedEvent) error {
	tracer := otel.Tracer("ses-email-service")
	ctx, span := tracer.Start(ctx, "send_email", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	if userID := telemetry.GetUserIDFromContext(ctx); userID != "" {
		span.SetAttributes(attribute.String("app.userId", userID))
	}

	input := &ses.SendEmailInput{
		Source: aws.String(s.sender),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(fmt.Sprintf("Attendance %s: %s", event.Date, event.Status)),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(DaySummaryText(event)),
				},
			},
		},
	}

	_, err := s.client.SendEmail(ctx, input)
	return err
}

// DaySummaryText is the plain-text body of the summary email.
func DaySummaryText(event messaging.AttendanceClassifiedEvent) string {
	name := event.UserName
	if name == "" {
		name = event.UserID
	}
	return fmt.Sprintf("Hello %s,\n\nYour %s shift on %s was recorded as %s.\nChecked in: %s\nChecked out: %s\nHours worked: %.2f\n",
		name, event.Shift, event.Date, event.Status,
		event.CheckInTime.Format("15:04 MST"), event.CheckOutTime.Format("15:04 MST"), event.HoursWorked)
}
