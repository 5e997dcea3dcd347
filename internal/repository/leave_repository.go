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

// LeaveRepository manages persistence for leave requests and the stored PL ledger.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs a LeaveRepository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// Create inserts a new leave request.
func (r *LeaveRepository) Create(ctx context.Context, leave *models.Leave) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if leave.CreatedAt.IsZero() {
		leave.CreatedAt = now
	}
	leave.UpdatedAt = now
	const query = `INSERT INTO leaves (id, user_id, start_date, end_date, type, reason, is_half_day, status, created_at, updated_at)
        VALUES (:id, :user_id, :start_date, :end_date, :type, :reason, :is_half_day, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return fmt.Errorf("create leave: %w", err)
	}
	return nil
}

// FindByID returns a leave request by identifier.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.Leave, error) {
	const query = `SELECT id, user_id, start_date, end_date, type, reason, is_half_day, status, created_at, updated_at
        FROM leaves WHERE id = $1 LIMIT 1`
	var leave models.Leave
	if err := r.db.GetContext(ctx, &leave, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find leave: %w", err)
	}
	return &leave, nil
}

// ListByUser returns a user's leave requests, most recent first.
func (r *LeaveRepository) ListByUser(ctx context.Context, userID string) ([]models.Leave, error) {
	const query = `SELECT id, user_id, start_date, end_date, type, reason, is_half_day, status, created_at, updated_at
        FROM leaves WHERE user_id = $1 ORDER BY created_at DESC`
	var leaves []models.Leave
	if err := r.db.SelectContext(ctx, &leaves, query, userID); err != nil {
		return nil, fmt.Errorf("list leaves: %w", err)
	}
	return leaves, nil
}

// ListAll returns every leave request joined with requester metadata,
// optionally filtered by status.
func (r *LeaveRepository) ListAll(ctx context.Context, status *models.LeaveStatus) ([]models.LeaveRecord, error) {
	query := `SELECT l.id, l.user_id, l.start_date, l.end_date, l.type, l.reason, l.is_half_day, l.status, l.created_at, l.updated_at,
        u.name AS user_name, u.role AS user_role, u.mobile AS user_mobile
        FROM leaves l JOIN users u ON u.id = l.user_id`
	var args []interface{}
	if status != nil {
		query += " WHERE l.status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY l.created_at DESC"
	var records []models.LeaveRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list all leaves: %w", err)
	}
	return records, nil
}

// UpdateStatus transitions a leave request through the approval workflow.
func (r *LeaveRepository) UpdateStatus(ctx context.Context, id string, status models.LeaveStatus) error {
	const query = `UPDATE leaves SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update leave status: %w", err)
	}
	return nil
}

// ListApprovedByYear returns a user's approved leaves whose start date falls
// in the given year.
func (r *LeaveRepository) ListApprovedByYear(ctx context.Context, userID string, year int) ([]models.Leave, error) {
	const query = `SELECT id, user_id, start_date, end_date, type, reason, is_half_day, status, created_at, updated_at
        FROM leaves WHERE user_id = $1 AND status = $2 AND start_date LIKE $3`
	prefix := fmt.Sprintf("%04d-%%", year)
	var leaves []models.Leave
	if err := r.db.SelectContext(ctx, &leaves, query, userID, models.LeaveApproved, prefix); err != nil {
		return nil, fmt.Errorf("list approved leaves: %w", err)
	}
	return leaves, nil
}

// GetBalanceRow returns the stored PL ledger row for a user and year, if any.
func (r *LeaveRepository) GetBalanceRow(ctx context.Context, userID string, year int) (*models.LeaveBalanceRow, error) {
	const query = `SELECT id, user_id, year, pl, created_at, updated_at FROM leave_balances
        WHERE user_id = $1 AND year = $2 LIMIT 1`
	var row models.LeaveBalanceRow
	if err := r.db.GetContext(ctx, &row, query, userID, year); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get leave balance: %w", err)
	}
	return &row, nil
}

// UpsertBalanceRow creates or updates the stored PL ledger for a user and year.
func (r *LeaveRepository) UpsertBalanceRow(ctx context.Context, userID string, year int, pl float64) error {
	now := time.Now().UTC()
	const query = `INSERT INTO leave_balances (id, user_id, year, pl, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $5)
        ON CONFLICT (user_id, year) DO UPDATE SET pl = EXCLUDED.pl, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.ExecContext(ctx, query, uuid.NewString(), userID, year, pl, now); err != nil {
		return fmt.Errorf("upsert leave balance: %w", err)
	}
	return nil
}
