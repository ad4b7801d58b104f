package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance.service/internal/core/model"
)

type sentMessage struct {
	destination string
	body        []byte
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendMessage(_ context.Context, destination string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{destination: destination, body: body})
	return nil
}

func classified() AttendanceClassifiedEvent {
	in := time.Date(2026, 3, 16, 4, 0, 0, 0, time.UTC)
	return AttendanceClassifiedEvent{
		RecordID:     7,
		UserID:       "u-1",
		UserName:     "Ayesha",
		Date:         "2026-03-16",
		Shift:        model.ShiftMorning,
		Status:       model.StatusPresent,
		HoursWorked:  8,
		CheckInTime:  in,
		CheckOutTime: in.Add(8 * time.Hour),
	}
}

func TestProducer_RoutesByQueue(t *testing.T) {
	sender := &fakeSender{}
	p := NewProducer(sender, "payroll-url", "email-url")

	require.NoError(t, p.PublishPayroll(context.Background(), classified()))
	require.NoError(t, p.PublishEmail(context.Background(), classified()))

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "payroll-url", sender.sent[0].destination)
	assert.Equal(t, "email-url", sender.sent[1].destination)

	var got AttendanceClassifiedEvent
	require.NoError(t, json.Unmarshal(sender.sent[0].body, &got))
	assert.Equal(t, classified(), got)
}

func TestPublish_WrapsSendError(t *testing.T) {
	boom := errors.New("queue down")
	err := Publish(context.Background(), &fakeSender{err: boom}, "q", classified())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "q")
}

func TestPublish_RejectsUnmarshalableBody(t *testing.T) {
	err := Publish(context.Background(), &fakeSender{}, "q", map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

type fakeSQS struct {
	input *sqs.SendMessageInput
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = in
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSSender_SendsBodyToQueue(t *testing.T) {
	client := &fakeSQS{}
	err := NewSQSSender(client).SendMessage(context.Background(), "queue-url", []byte(`{"userId":"u-1"}`))
	require.NoError(t, err)

	require.NotNil(t, client.input)
	assert.Equal(t, "queue-url", aws.ToString(client.input.QueueUrl))
	assert.Equal(t, `{"userId":"u-1"}`, aws.ToString(client.input.MessageBody))
	assert.NotNil(t, client.input.MessageAttributes)
}
