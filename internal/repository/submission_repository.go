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

// SubmissionRepository manages persistence for weekly document submissions.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Create inserts a submission row.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO submissions (id, user_id, week_start_date, pdf_path, excel_path,
        status, submitted_at, created_at)
        VALUES (:id, :user_id, :week_start_date, :pdf_path, :excel_path,
        :status, :submitted_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	return nil
}

// ListByUser returns a user's submissions, most recent week first.
func (r *SubmissionRepository) ListByUser(ctx context.Context, userID string) ([]models.Submission, error) {
	const query = `SELECT id, user_id, week_start_date, pdf_path, excel_path, status, submitted_at, created_at
        FROM submissions WHERE user_id = $1 ORDER BY week_start_date DESC, created_at DESC`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, userID); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// ListByWeek returns every submission for one week, newest upload first.
func (r *SubmissionRepository) ListByWeek(ctx context.Context, weekStartDate string) ([]models.Submission, error) {
	const query = `SELECT id, user_id, week_start_date, pdf_path, excel_path, status, submitted_at, created_at
        FROM submissions WHERE week_start_date = $1 ORDER BY created_at DESC`
	var submissions []models.Submission
	if err := r.db.SelectContext(ctx, &submissions, query, weekStartDate); err != nil {
		return nil, fmt.Errorf("list submissions by week: %w", err)
	}
	return submissions, nil
}

// FindLatest returns a user's newest upload for one week.
func (r *SubmissionRepository) FindLatest(ctx context.Context, userID, weekStartDate string) (*models.Submission, error) {
	const query = `SELECT id, user_id, week_start_date, pdf_path, excel_path, status, submitted_at, created_at
        FROM submissions WHERE user_id = $1 AND week_start_date = $2
        ORDER BY created_at DESC LIMIT 1`
	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, userID, weekStartDate); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find latest submission: %w", err)
	}
	return &submission, nil
}

// UpdateStatus moves a submission through review.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE submissions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a submission row.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
