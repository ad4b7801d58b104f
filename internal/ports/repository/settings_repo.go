package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"attendance.service/internal/core/model"
)

// SettingsDocumentRepository keeps the settings as a single JSONB row.
type SettingsDocumentRepository struct {
	DB *sql.DB
}

func NewSettingsDocumentRepository(db *sql.DB) *SettingsDocumentRepository {
	return &SettingsDocumentRepository{DB: db}
}

func (r *SettingsDocumentRepository) Load(ctx context.Context) (*model.AttendanceSettings, error) {
	var raw []byte
	err := r.DB.QueryRowContext(ctx, `SELECT document FROM attendance_settings WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s model.AttendanceSettings
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode attendance settings: %w", err)
	}
	return &s, nil
}

// Save replaces the whole document in one statement.
func (r *SettingsDocumentRepository) Save(ctx context.Context, s model.AttendanceSettings) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	query := `INSERT INTO attendance_settings (id, document, updated_by, updated_at)
	          VALUES (1, $1, $2, now())
	          ON CONFLICT (id) DO UPDATE
	          SET document = EXCLUDED.document, updated_by = EXCLUDED.updated_by, updated_at = now()`
	_, err = r.DB.ExecContext(ctx, query, raw, s.UpdatedBy)
	return err
}
