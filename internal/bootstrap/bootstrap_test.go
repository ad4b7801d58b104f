package bootstrap

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance.service/internal/config"
	"attendance.service/internal/core"
	"attendance.service/internal/core/model"
	"attendance.service/internal/ports/repository"
)

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	t.Setenv("STORAGE_DRIVER", "memory")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	return cfg
}

func TestLoadStoresSeedsDefaultsOnce(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	storage, err := OpenStorage(ctx, cfg)
	require.NoError(t, err)
	defer storage.Close()

	stores, err := LoadStores(ctx, cfg, storage)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Karachi", stores.Settings.Snapshot().Location().String())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, stores.Calendar.Calendar().Pattern().Days())

	stored, err := storage.Settings.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "system", stored.UpdatedBy)

	// A second boot with other defaults keeps what is stored.
	cfg.MorningStartHour = 8
	cfg.DefaultWorkingDays = "0,1,2,3,4"
	again, err := LoadStores(ctx, cfg, storage)
	require.NoError(t, err)
	shift, ok := again.Settings.Snapshot().Shift(model.ShiftMorning)
	require.True(t, ok)
	assert.Equal(t, 9, shift.StartHour)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, again.Calendar.Calendar().Pattern().Days())
}

func TestLoadStoresRejectsInvalidDefaults(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "inverted shift", mutate: func(c *config.Config) { c.EveningStartHour, c.EveningEndHour = 23, 17 }},
		{name: "unknown timezone", mutate: func(c *config.Config) { c.DefaultTimezone = "Mars/Olympus" }},
		{name: "bad working days", mutate: func(c *config.Config) { c.DefaultWorkingDays = "1,2,9" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig(t)
			tt.mutate(&cfg)
			storage, err := OpenStorage(ctx, cfg)
			require.NoError(t, err)

			_, err = LoadStores(ctx, cfg, storage)
			assert.Error(t, err)
		})
	}

	var cfgErr *model.ConfigurationError
	cfg := memoryConfig(t)
	cfg.MorningLateMinutes = -5
	storage, err := OpenStorage(ctx, cfg)
	require.NoError(t, err)
	_, err = LoadStores(ctx, cfg, storage)
	assert.True(t, errors.As(err, &cfgErr), "%v", err)
}

func TestOpenStorageUnknownDriver(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.StorageDriver = "cassandra"
	_, err := OpenStorage(context.Background(), cfg)
	assert.Error(t, err)
}

func TestReloadPicksUpChangesFromStorage(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	storage, err := OpenStorage(ctx, cfg)
	require.NoError(t, err)
	stores, err := LoadStores(ctx, cfg, storage)
	require.NoError(t, err)

	// Another process edits storage.
	eid := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	doc, err := storage.Settings.Load(ctx)
	require.NoError(t, err)
	m := doc.Shifts[model.ShiftMorning]
	m.LateThresholdMinutes = 25
	doc.Shifts[model.ShiftMorning] = m
	require.NoError(t, storage.Settings.Save(ctx, *doc))
	require.NoError(t, storage.Calendar.SaveWorkingDays(ctx, model.DefaultWeeklyPattern(), "admin"))
	require.NoError(t, storage.Calendar.CreateEntry(ctx, model.CalendarEntry{
		ID: "e-1", Title: "Eid", Type: model.EntryHoliday, Status: model.EntryUpcoming, Recurrence: model.RecurNone,
		StartDate: eid, EndDate: eid,
	}))

	require.NoError(t, stores.Reload(ctx, storage))
	shift, _ := stores.Settings.Snapshot().Shift(model.ShiftMorning)
	assert.Equal(t, 25, shift.LateThresholdMinutes)
	assert.Len(t, stores.Calendar.Calendar().Entries(), 1)

	// An invalid stored document is ignored.
	m.StartHour = 30
	doc.Shifts[model.ShiftMorning] = m
	require.NoError(t, storage.Settings.Save(ctx, *doc))
	assert.Error(t, stores.Reload(ctx, storage))
	shift, _ = stores.Settings.Snapshot().Shift(model.ShiftMorning)
	assert.Equal(t, 9, shift.StartHour)
}

// gatedSettings pauses the first Load until release is closed.
type gatedSettings struct {
	repository.SettingsRepository
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSettings) Load(ctx context.Context) (*model.AttendanceSettings, error) {
	doc, err := g.SettingsRepository.Load(ctx)
	if g.entered != nil {
		close(g.entered)
		g.entered = nil
		<-g.release
	}
	return doc, err
}

func TestReloadDoesNotOverwriteConcurrentAdminWrite(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig(t)
	storage, err := OpenStorage(ctx, cfg)
	require.NoError(t, err)
	stores, err := LoadStores(ctx, cfg, storage)
	require.NoError(t, err)

	entered, release := make(chan struct{}), make(chan struct{})
	gated := &Storage{
		Records:  storage.Records,
		Calendar: storage.Calendar,
		Settings: &gatedSettings{SettingsRepository: storage.Settings, entered: entered, release: release},
	}
	reloaded := make(chan error, 1)
	go func() { reloaded <- stores.Reload(ctx, gated) }()
	<-entered

	svc := core.NewSettingsService(storage.Settings, stores.Settings)
	next := svc.Get()
	next.Timezone = "Europe/Bucharest"
	updated := make(chan error, 1)
	go func() {
		_, err := svc.Update(ctx, next, "admin")
		updated <- err
	}()

	select {
	case err := <-updated:
		t.Fatalf("settings update finished while a reload held the store: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-reloaded)
	require.NoError(t, <-updated)
	assert.Equal(t, "Europe/Bucharest", stores.Settings.Snapshot().Location().String())

	stored, err := storage.Settings.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Bucharest", stored.Timezone)
}
