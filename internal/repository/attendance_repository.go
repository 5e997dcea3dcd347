package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tejaskp/portal-api/internal/models"
)

// AttendanceRepository manages persistence for daily attendance rows.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an AttendanceRepository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// FindByUserAndDate returns the attendance row for a user on a calendar day.
func (r *AttendanceRepository) FindByUserAndDate(ctx context.Context, userID, date string) (*models.Attendance, error) {
	const query = `SELECT id, user_id, date, login_time, logout_time, status, remarks, created_at, updated_at
        FROM attendance WHERE user_id = $1 AND date = $2 LIMIT 1`
	var record models.Attendance
	if err := r.db.GetContext(ctx, &record, query, userID, date); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return &record, nil
}

// Create inserts a new attendance row.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.Attendance) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO attendance (id, user_id, date, login_time, logout_time, status, remarks, created_at, updated_at)
        VALUES (:id, :user_id, :date, :login_time, :logout_time, :status, :remarks, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// UpdateCheckout records the logout time and the final status of the day.
func (r *AttendanceRepository) UpdateCheckout(ctx context.Context, id string, logoutTime time.Time, status models.AttendanceStatus, remarks string) error {
	const query = `UPDATE attendance SET logout_time = $2, status = $3, remarks = $4, updated_at = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, logoutTime, status, remarks, time.Now().UTC()); err != nil {
		return fmt.Errorf("update checkout: %w", err)
	}
	return nil
}

// CountLateInMonth counts LATE rows for a user within a month, excluding the
// given date. Dates are YYYY-MM-DD strings so a prefix match covers the month.
func (r *AttendanceRepository) CountLateInMonth(ctx context.Context, userID, monthPrefix, excludeDate string) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance
        WHERE user_id = $1 AND status = $2 AND date LIKE $3 AND date <> $4`
	var count int
	if err := r.db.GetContext(ctx, &count, query, userID, models.AttendanceLate, monthPrefix+"%", excludeDate); err != nil {
		return 0, fmt.Errorf("count late attendance: %w", err)
	}
	return count, nil
}

// ListByUser returns a user's attendance history, most recent first.
func (r *AttendanceRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.Attendance, error) {
	if limit <= 0 || limit > 366 {
		limit = 31
	}
	query := fmt.Sprintf(`SELECT id, user_id, date, login_time, logout_time, status, remarks, created_at, updated_at
        FROM attendance WHERE user_id = $1 ORDER BY date DESC LIMIT %d`, limit)
	var records []models.Attendance
	if err := r.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// ListByDate returns all attendance rows for a day joined with user metadata.
func (r *AttendanceRepository) ListByDate(ctx context.Context, date string) ([]models.AttendanceRecord, error) {
	const query = `SELECT a.id, a.user_id, a.date, a.login_time, a.logout_time, a.status, a.remarks, a.created_at, a.updated_at,
        u.name AS user_name, u.role AS user_role
        FROM attendance a JOIN users u ON u.id = a.user_id
        WHERE a.date = $1 ORDER BY a.login_time ASC`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, date); err != nil {
		return nil, fmt.Errorf("list attendance by date: %w", err)
	}
	return records, nil
}

// CountByDate counts check-ins on a day regardless of status.
func (r *AttendanceRepository) CountByDate(ctx context.Context, date string) (int, error) {
	const query = `SELECT COUNT(*) FROM attendance WHERE date = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, date); err != nil {
		return 0, fmt.Errorf("count attendance by date: %w", err)
	}
	return count, nil
}
