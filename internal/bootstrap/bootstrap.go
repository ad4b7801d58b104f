// Package bootstrap opens storage and builds the configuration stores shared
// by the API and the workers.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"attendance.service/internal/config"
	"attendance.service/internal/core"
	"attendance.service/internal/core/calendar"
	"attendance.service/internal/core/settings"
	"attendance.service/internal/ports/repository"
	"attendance.service/internal/ports/repository/memory"
	"attendance.service/pkg/database"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Storage is one set of repositories over a single backend.
type Storage struct {
	Records  repository.AttendanceRepository
	Calendar repository.CalendarRepository
	Settings repository.SettingsRepository

	db *sql.DB
}

func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// OpenStorage connects to the backend named by STORAGE_DRIVER and, for
// Postgres with DB_MIGRATE set, applies the schema.
func OpenStorage(ctx context.Context, cfg config.Config) (*Storage, error) {
	switch strings.ToLower(cfg.StorageDriver) {
	case DriverMemory:
		log.Ctx(ctx).Warn().Msg("Using in-memory storage; data is lost on restart")
		db := memory.New()
		return &Storage{
			Records:  memory.NewAttendanceRepository(db),
			Calendar: memory.NewCalendarRepository(db),
			Settings: memory.NewSettingsRepository(db),
		}, nil
	case DriverPostgres, "":
		db, err := database.NewInstrumentedConnection(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("error opening database: %w", err)
		}
		log.Ctx(ctx).Info().Str("host", cfg.DBHost).Msg("Successfully connected to the database.")
		if cfg.DBMigrate {
			if err := database.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, err
			}
		}
		return &Storage{
			Records:  repository.NewAttendanceRecordRepository(db),
			Calendar: repository.NewCalendarEntryRepository(db),
			Settings: repository.NewSettingsDocumentRepository(db),
			db:       db,
		}, nil
	}
	return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
}

// Stores are the two configuration snapshots every classification reads.
type Stores struct {
	Settings *settings.Store
	Calendar *calendar.Store
}

// LoadStores reads settings and calendar from storage, seeding both from
// cfg on first boot. An invalid stored or default configuration is an error;
// callers treat it as fatal.
func LoadStores(ctx context.Context, cfg config.Config, s *Storage) (Stores, error) {
	st, err := core.LoadSettings(ctx, s.Settings, cfg.DefaultSettings())
	if err != nil {
		return Stores{}, err
	}
	pattern, err := cfg.WorkingDays()
	if err != nil {
		return Stores{}, err
	}
	cal, err := core.LoadCalendar(ctx, s.Calendar, pattern)
	if err != nil {
		return Stores{}, err
	}

	snap := st.Snapshot()
	log.Ctx(ctx).Info().
		Str("timezone", snap.Location().String()).
		Ints("working_days", cal.Calendar().Pattern().Days()).
		Int("calendar_entries", len(cal.Calendar().Entries())).
		Msg("Attendance configuration loaded")
	return Stores{Settings: st, Calendar: cal}, nil
}
