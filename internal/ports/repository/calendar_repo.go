package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"attendance.service/internal/core/model"
)

// CalendarEntryRepository is the PostgreSQL implementation of CalendarRepository.
type CalendarEntryRepository struct {
	DB *sql.DB
}

func NewCalendarEntryRepository(db *sql.DB) *CalendarEntryRepository {
	return &CalendarEntryRepository{DB: db}
}

const entryColumns = `id, title, description, entry_type, color, start_date, end_date, is_full_day,
	status, location, recurrence, created_by, created_at, updated_at`

func (r *CalendarEntryRepository) ListEntries(ctx context.Context) ([]model.CalendarEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+entryColumns+` FROM calendar_entries ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.CalendarEntry{}
	for rows.Next() {
		var e model.CalendarEntry
		err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Type, &e.Color, &e.StartDate, &e.EndDate,
			&e.IsFullDay, &e.Status, &e.Location, &e.Recurrence, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
		if err != nil {
			return nil, err
		}
		e.StartDate, e.EndDate = model.DateOf(e.StartDate), model.DateOf(e.EndDate)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *CalendarEntryRepository) CreateEntry(ctx context.Context, e model.CalendarEntry) error {
	query := `INSERT INTO calendar_entries (` + entryColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.DB.ExecContext(ctx, query, e.ID, e.Title, e.Description, e.Type, e.Color,
		e.StartDate, e.EndDate, e.IsFullDay, e.Status, e.Location, e.Recurrence, e.CreatedBy, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert calendar entry %s: %w", e.ID, err)
	}
	return nil
}

// UpdateEntry rewrites every editable field; id, creator and creation time stay.
func (r *CalendarEntryRepository) UpdateEntry(ctx context.Context, e model.CalendarEntry) error {
	query := `UPDATE calendar_entries
	          SET title = $1, description = $2, entry_type = $3, color = $4, start_date = $5, end_date = $6,
	              is_full_day = $7, status = $8, location = $9, recurrence = $10, updated_at = $11
	          WHERE id = $12`

	res, err := r.DB.ExecContext(ctx, query, e.Title, e.Description, e.Type, e.Color, e.StartDate, e.EndDate,
		e.IsFullDay, e.Status, e.Location, e.Recurrence, e.UpdatedAt, e.ID)
	if err != nil {
		return err
	}
	return requireRow(res, model.ErrEntryNotFound)
}

func (r *CalendarEntryRepository) DeleteEntry(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM calendar_entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, model.ErrEntryNotFound)
}

func (r *CalendarEntryRepository) WorkingDays(ctx context.Context) (model.WeeklyPattern, bool, error) {
	var raw []byte
	err := r.DB.QueryRowContext(ctx, `SELECT working_days FROM calendar_settings WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WeeklyPattern{}, false, nil
	}
	if err != nil {
		return model.WeeklyPattern{}, false, err
	}
	var p model.WeeklyPattern
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.WeeklyPattern{}, false, fmt.Errorf("decode working days: %w", err)
	}
	return p, true, nil
}

func (r *CalendarEntryRepository) SaveWorkingDays(ctx context.Context, p model.WeeklyPattern, updatedBy string) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	query := `INSERT INTO calendar_settings (id, working_days, updated_by, updated_at)
	          VALUES (1, $1, $2, now())
	          ON CONFLICT (id) DO UPDATE
	          SET working_days = EXCLUDED.working_days, updated_by = EXCLUDED.updated_by, updated_at = now()`
	_, err = r.DB.ExecContext(ctx, query, raw, updatedBy)
	return err
}
