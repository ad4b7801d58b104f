package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sort"

	"github.com/rs/zerolog/log"

	"attendance.service/migrations"
)

// Migrate applies every embedded schema file in name order. The files are
// idempotent, so running them on each start is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := fs.ReadFile(migrations.FS, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		log.Ctx(ctx).Info().Str("migration", name).Msg("Applied migration")
	}
	return nil
}
