package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"attendance.service/internal/core/calendar"
	"attendance.service/internal/core/model"
)

// Reload re-reads settings and calendar from storage and publishes them. It
// keeps processes that don't serve the admin API in step with those that do.
// Each read happens under the store's writer lock, so an admin write in this
// process is never replaced by an older stored copy. A stored document that
// fails validation leaves the current one in place.
func (s Stores) Reload(ctx context.Context, storage *Storage) error {
	_, err := s.Settings.Refresh(func() (*model.AttendanceSettings, error) {
		doc, err := storage.Settings.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to reload attendance settings: %w", err)
		}
		return doc, nil
	})
	if err != nil {
		return err
	}

	_, err = s.Calendar.Update(func(cur *calendar.Calendar) (*calendar.Calendar, error) {
		entries, err := storage.Calendar.ListEntries(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to reload calendar entries: %w", err)
		}
		pattern, ok, err := storage.Calendar.WorkingDays(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to reload working days: %w", err)
		}
		if !ok {
			pattern = cur.Pattern()
		}
		return calendar.New(pattern, entries), nil
	})
	return err
}

// Watch calls Reload every interval until ctx is done.
func (s Stores) Watch(ctx context.Context, storage *Storage, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Reload(ctx, storage); err != nil {
				log.Ctx(ctx).Error().Err(err).Msg("Failed to reload attendance configuration")
			}
		}
	}
}
