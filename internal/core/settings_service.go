package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"attendance.service/internal/core/model"
	"attendance.service/internal/core/settings"
	"attendance.service/internal/ports/repository"
)

// LoadSettings builds the settings store from storage, writing defaults on
// first boot. An invalid stored document is a configuration error and the
// caller should refuse to start.
func LoadSettings(ctx context.Context, repo repository.SettingsRepository, defaults model.AttendanceSettings) (*settings.Store, error) {
	stored, err := repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance settings: %w", err)
	}
	if stored != nil {
		return settings.NewStore(*stored)
	}

	store, err := settings.NewStore(defaults)
	if err != nil {
		return nil, err
	}
	doc := store.Snapshot().Settings()
	doc.UpdatedBy = "system"
	if err := repo.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save default attendance settings: %w", err)
	}
	log.Ctx(ctx).Info().Str("timezone", doc.Timezone).Msg("Stored default attendance settings")
	return store, nil
}

type SettingsService struct {
	repo  repository.SettingsRepository
	store *settings.Store
	now   func() time.Time
}

func NewSettingsService(repo repository.SettingsRepository, store *settings.Store) *SettingsService {
	return &SettingsService{repo: repo, store: store, now: time.Now}
}

func (s *SettingsService) Get() model.AttendanceSettings {
	return s.store.Snapshot().Settings()
}

// Update replaces the whole settings document. On a validation or storage
// error the previous document stays in effect.
func (s *SettingsService) Update(ctx context.Context, next model.AttendanceSettings, actor string) (model.AttendanceSettings, error) {
	next.UpdatedAt = s.now().UTC()
	next.UpdatedBy = actor

	snap, err := s.store.Replace(next, func(doc model.AttendanceSettings) error {
		return s.repo.Save(ctx, doc)
	})
	if err != nil {
		return model.AttendanceSettings{}, err
	}

	log.Ctx(ctx).Info().Str("actor", actor).Str("timezone", snap.Location().String()).Msg("Attendance settings replaced")
	return snap.Settings(), nil
}
