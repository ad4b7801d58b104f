package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Producer struct {
	sender          MessageSender
	payrollQueueURL string
	emailQueueURL   string
}

func NewProducer(sender MessageSender, payrollQueueURL, emailQueueURL string) *Producer {
	return &Producer{
		sender:          sender,
		payrollQueueURL: payrollQueueURL,
		emailQueueURL:   emailQueueURL,
	}
}

func NewSQSProducer(client SQSClient, payrollQueueURL, emailQueueURL string) *Producer {
	return NewProducer(NewSQSSender(client), payrollQueueURL, emailQueueURL)
}

func (p *Producer) PublishPayroll(ctx context.Context, event AttendanceClassifiedEvent) error {
	return Publish(ctx, p.sender, p.payrollQueueURL, event)
}

func (p *Producer) PublishEmail(ctx context.Context, event AttendanceClassifiedEvent) error {
	return Publish(ctx, p.sender, p.emailQueueURL, event)
}

// Publish marshals body and sends it to destination, tagging the current span
// with the user the message is about.
func Publish(ctx context.Context, sender MessageSender, destination string, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal body: %w", err)
	}

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		var payload struct {
			UserID string `json:"userId"`
		}
		if err := json.Unmarshal(b, &payload); err == nil && payload.UserID != "" {
			span.SetAttributes(attribute.String("app.userId", payload.UserID))
		}
	}

	if err := sender.SendMessage(ctx, destination, b); err != nil {
		return fmt.Errorf("failed to send message to %s: %w", destination, err)
	}
	return nil
}
