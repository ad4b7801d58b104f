package email

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/messaging"
	"attendance.service/internal/ports/repository/memory"
)

type fakeEmail struct {
	to  []string
	err error
}

func (f *fakeEmail) SendDaySummary(_ context.Context, to string, _ messaging.AttendanceClassifiedEvent) error {
	f.to = append(f.to, to)
	return f.err
}

func TestEmailProcessor(t *testing.T) {
	repo := memory.NewAttendanceRepository(memory.New())
	in := time.Date(2026, 3, 16, 4, 0, 0, 0, time.UTC)
	rec := model.AttendanceRecord{UserID: "u-1", Shift: model.ShiftMorning, Date: in, CheckInTime: &in}
	_, err := repo.Create(context.Background(), &rec)
	require.NoError(t, err)

	body, err := json.Marshal(messaging.AttendanceClassifiedEvent{RecordID: rec.ID, UserID: "u-1", Status: model.StatusLate})
	require.NoError(t, err)
	msg := types.Message{Body: aws.String(string(body))}

	failing := &fakeEmail{err: errors.New("throttled")}
	retry, delay, err := NewProcessor(failing, repo, "example.com").Process(context.Background(), msg)
	assert.Error(t, err)
	assert.True(t, retry)
	assert.Equal(t, int32(20), delay)

	sender := &fakeEmail{}
	p := NewProcessor(sender, repo, "example.com")
	retry, _, err = p.Process(context.Background(), msg)
	require.NoError(t, err)
	assert.False(t, retry)
	assert.Equal(t, []string{"u-1@example.com"}, sender.to)

	stored, err := repo.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryCompleted, stored.EmailStatus)
	assert.Equal(t, 0, stored.EmailRetryCount)

	_, _, err = p.Process(context.Background(), msg)
	require.NoError(t, err)
	assert.Len(t, sender.to, 1, "already sent")
}
