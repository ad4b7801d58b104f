package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"attendance.service/internal/core/model"
)

const uniqueViolation = "23505"

// AttendanceRecordRepository is the PostgreSQL implementation.
type AttendanceRecordRepository struct {
	DB *sql.DB
}

func NewAttendanceRecordRepository(db *sql.DB) *AttendanceRecordRepository {
	return &AttendanceRecordRepository{DB: db}
}

const recordColumns = `id, user_id, user_name, work_date, shift, check_in_time, check_out_time,
	status, tentative_status, hours_worked, payroll_status, payroll_retry_count,
	email_status, email_retry_count, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.AttendanceRecord, error) {
	var (
		rec         model.AttendanceRecord
		checkIn     sql.NullTime
		checkOut    sql.NullTime
		tentative   sql.NullString
		hoursWorked sql.NullFloat64
	)
	err := row.Scan(&rec.ID, &rec.UserID, &rec.UserName, &rec.Date, &rec.Shift, &checkIn, &checkOut,
		&rec.Status, &tentative, &hoursWorked, &rec.PayrollStatus, &rec.PayrollRetryCount,
		&rec.EmailStatus, &rec.EmailRetryCount, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if checkIn.Valid {
		t := checkIn.Time
		rec.CheckInTime = &t
	}
	if checkOut.Valid {
		t := checkOut.Time
		rec.CheckOutTime = &t
	}
	rec.Tentative = model.Status(tentative.String)
	rec.HoursWorked = hoursWorked.Float64
	rec.Date = model.DateOf(rec.Date)
	return &rec, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func tagUser(ctx context.Context, userID string) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("app.userId", userID))
}

// Create inserts a record and returns its id.
func (r *AttendanceRecordRepository) Create(ctx context.Context, rec *model.AttendanceRecord) (int64, error) {
	tagUser(ctx, rec.UserID)

	query := `INSERT INTO attendance_records
	            (user_id, user_name, work_date, shift, check_in_time, check_out_time, status, tentative_status,
	             hours_worked, payroll_status, payroll_retry_count, email_status, email_retry_count)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, 0)
	          RETURNING id, created_at, updated_at`

	err := r.DB.QueryRowContext(ctx, query,
		rec.UserID, rec.UserName, rec.Date, rec.Shift, nullTime(rec.CheckInTime), nullTime(rec.CheckOutTime),
		rec.Status, rec.Tentative, rec.HoursWorked, model.DeliveryPending, model.DeliveryPending,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, model.ErrDuplicateCheckIn
		}
		return 0, err
	}
	rec.PayrollStatus, rec.EmailStatus = model.DeliveryPending, model.DeliveryPending
	return rec.ID, nil
}

// UpdateCheckOut closes an open record.
func (r *AttendanceRecordRepository) UpdateCheckOut(ctx context.Context, id int64, checkOut time.Time, hoursWorked float64, status model.Status, userID string) error {
	tagUser(ctx, userID)

	query := `UPDATE attendance_records
	          SET check_out_time = $1,
	              hours_worked = $2,
	              status = $3,
	              payroll_status = $4,
	              updated_at = now()
	          WHERE id = $5`

	res, err := r.DB.ExecContext(ctx, query, checkOut, hoursWorked, status, model.DeliveryPending, id)
	if err != nil {
		return err
	}
	return requireRow(res, model.ErrRecordNotFound)
}

// FindOpen returns the user's record for one date and shift that has a
// check-in but no check-out, or nil.
func (r *AttendanceRecordRepository) FindOpen(ctx context.Context, userID string, date time.Time, shift model.ShiftName) (*model.AttendanceRecord, error) {
	tagUser(ctx, userID)

	query := `SELECT ` + recordColumns + `
	          FROM attendance_records
	          WHERE user_id = $1 AND work_date = $2 AND shift = $3
	            AND check_in_time IS NOT NULL AND check_out_time IS NULL`

	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, userID, model.DateOf(date), shift))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// FindForDay returns the user's record for one date and shift, or nil.
func (r *AttendanceRecordRepository) FindForDay(ctx context.Context, userID string, date time.Time, shift model.ShiftName) (*model.AttendanceRecord, error) {
	tagUser(ctx, userID)

	query := `SELECT ` + recordColumns + `
	          FROM attendance_records
	          WHERE user_id = $1 AND work_date = $2 AND shift = $3`

	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, userID, model.DateOf(date), shift))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// Get fetches a complete record by its ID.
func (r *AttendanceRecordRepository) Get(ctx context.Context, id int64) (*model.AttendanceRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM attendance_records WHERE id = $1`

	rec, err := scanRecord(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrRecordNotFound
	}
	return rec, err
}

// List returns matching records ordered by date desc, user name, id.
func (r *AttendanceRecordRepository) List(ctx context.Context, q RecordQuery) ([]model.AttendanceRecord, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if !q.From.IsZero() {
		where = append(where, "work_date >= "+arg(model.DateOf(q.From)))
	}
	if !q.To.IsZero() {
		where = append(where, "work_date <= "+arg(model.DateOf(q.To)))
	}
	if q.UserID != "" {
		where = append(where, "user_id = "+arg(q.UserID))
	}
	if q.UserName != "" {
		where = append(where, "lower(user_name) = lower("+arg(q.UserName)+")")
	}
	if q.Shift != "" {
		where = append(where, "shift = "+arg(q.Shift))
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		p := arg("%" + escapeLike(s) + "%")
		where = append(where, "(user_name ILIKE "+p+" OR user_id ILIKE "+p+")")
	}

	query := `SELECT ` + recordColumns + ` FROM attendance_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY work_date DESC, user_name ASC, id ASC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.AttendanceRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Update overwrites the mutable fields of a record after a correction.
func (r *AttendanceRecordRepository) Update(ctx context.Context, rec *model.AttendanceRecord) error {
	tagUser(ctx, rec.UserID)

	query := `UPDATE attendance_records
	          SET user_name = $1, work_date = $2, shift = $3, check_in_time = $4, check_out_time = $5,
	              status = $6, tentative_status = $7, hours_worked = $8, updated_at = now()
	          WHERE id = $9
	          RETURNING updated_at`

	err := r.DB.QueryRowContext(ctx, query,
		rec.UserName, model.DateOf(rec.Date), rec.Shift, nullTime(rec.CheckInTime), nullTime(rec.CheckOutTime),
		rec.Status, rec.Tentative, rec.HoursWorked, rec.ID,
	).Scan(&rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrRecordNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return model.ErrDuplicateCheckIn
	}
	return err
}

func (r *AttendanceRecordRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res, model.ErrRecordNotFound)
}

// UpdatePayrollStatus updates the status and retry count of the payroll export.
func (r *AttendanceRecordRepository) UpdatePayrollStatus(ctx context.Context, id int64, status model.DeliveryStatus, retryCount int) error {
	query := `UPDATE attendance_records
	          SET payroll_status = $1,
	              payroll_retry_count = $2
	          WHERE id = $3`

	_, err := r.DB.ExecContext(ctx, query, status, retryCount, id)
	return err
}

// UpdateEmailStatus updates the status and retry count of the summary email.
func (r *AttendanceRecordRepository) UpdateEmailStatus(ctx context.Context, id int64, status model.DeliveryStatus, retryCount int) error {
	query := `UPDATE attendance_records SET email_status = $1, email_retry_count = $2 WHERE id = $3`
	_, err := r.DB.ExecContext(ctx, query, status, retryCount, id)
	return err
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
