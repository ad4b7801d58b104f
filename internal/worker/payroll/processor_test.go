package payroll

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
	"attendance.service/internal/ports/repository"
	"attendance.service/internal/ports/repository/memory"
)

type fakePayroll struct {
	calls int
	err   error
}

func (f *fakePayroll) RecordAttendance(context.Context, messaging.AttendanceClassifiedEvent) error {
	f.calls++
	return f.err
}

func seedRecord(t *testing.T, repo repository.AttendanceRepository) model.AttendanceRecord {
	t.Helper()
	in := time.Date(2026, 3, 16, 4, 0, 0, 0, time.UTC)
	rec := model.AttendanceRecord{UserID: "u-1", UserName: "Ayesha", Shift: model.ShiftMorning, Date: in, CheckInTime: &in}
	_, err := repo.Create(context.Background(), &rec)
	require.NoError(t, err)
	require.NoError(t, repo.UpdateCheckOut(context.Background(), rec.ID, in.Add(8*time.Hour), 8, model.StatusPresent, rec.UserID))
	return rec
}

func eventMessage(t *testing.T, id int64) types.Message {
	t.Helper()
	body, err := json.Marshal(messaging.AttendanceClassifiedEvent{RecordID: id, UserID: "u-1", Status: model.StatusPresent, HoursWorked: 8})
	require.NoError(t, err)
	return types.Message{Body: aws.String(string(body))}
}

func TestProcessMarksPayrollCompleted(t *testing.T) {
	repo := memory.NewAttendanceRepository(memory.New())
	rec := seedRecord(t, repo)
	api := &fakePayroll{}
	p := NewProcessor(repo, api)

	retry, _, err := p.Process(context.Background(), eventMessage(t, rec.ID))
	require.NoError(t, err)
	assert.False(t, retry)

	stored, err := repo.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryCompleted, stored.PayrollStatus)

	// A redelivery is skipped.
	_, _, err = p.Process(context.Background(), eventMessage(t, rec.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, api.calls)
}

func TestProcessRetriesWithBackoff(t *testing.T) {
	repo := memory.NewAttendanceRepository(memory.New())
	rec := seedRecord(t, repo)
	p := NewProcessor(repo, &fakePayroll{err: errors.New("503")})

	for _, want := range []int32{20, 40, 80} {
		retry, delay, err := p.Process(context.Background(), eventMessage(t, rec.ID))
		assert.Error(t, err)
		assert.True(t, retry)
		assert.Equal(t, want, delay)
	}
	stored, err := repo.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeliveryPending, stored.PayrollStatus)
	assert.Equal(t, 3, stored.PayrollRetryCount)
}

func TestProcessBreakerOpensAfterRepeatedFailures(t *testing.T) {
	repo := memory.NewAttendanceRepository(memory.New())
	rec := seedRecord(t, repo)
	api := &fakePayroll{err: errors.New("503")}
	p := NewProcessor(repo, api)

	for i := 0; i < 15; i++ {
		_, _, _ = p.Process(context.Background(), eventMessage(t, rec.ID))
	}
	assert.Equal(t, 10, api.calls, "calls stop once the breaker trips")
}

func TestProcessSkipsDeletedAndMalformed(t *testing.T) {
	repo := memory.NewAttendanceRepository(memory.New())
	p := NewProcessor(repo, &fakePayroll{})

	retry, _, err := p.Process(context.Background(), eventMessage(t, 404))
	assert.NoError(t, err)
	assert.False(t, retry)

	retry, _, err = p.Process(context.Background(), types.Message{Body: aws.String("not json")})
	assert.Error(t, err)
	assert.False(t, retry)
}
