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

// ReferralRepository manages persistence for referrals and the wallet credit
// that follows an approval.
type ReferralRepository struct {
	db *sqlx.DB
}

// NewReferralRepository constructs a ReferralRepository.
func NewReferralRepository(db *sqlx.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// Create inserts a new referral.
func (r *ReferralRepository) Create(ctx context.Context, referral *models.Referral) error {
	if referral.ID == "" {
		referral.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if referral.CreatedAt.IsZero() {
		referral.CreatedAt = now
	}
	referral.UpdatedAt = now
	const query = `INSERT INTO referrals (id, referrer_id, type, status, amount, description, created_at, updated_at)
        VALUES (:id, :referrer_id, :type, :status, :amount, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, referral); err != nil {
		return fmt.Errorf("create referral: %w", err)
	}
	return nil
}

// FindByID returns a referral by identifier.
func (r *ReferralRepository) FindByID(ctx context.Context, id string) (*models.Referral, error) {
	const query = `SELECT id, referrer_id, type, status, amount, description, created_at, updated_at
        FROM referrals WHERE id = $1 LIMIT 1`
	var referral models.Referral
	if err := r.db.GetContext(ctx, &referral, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find referral: %w", err)
	}
	return &referral, nil
}

// ListByReferrer returns a user's referrals, most recent first.
func (r *ReferralRepository) ListByReferrer(ctx context.Context, referrerID string) ([]models.Referral, error) {
	const query = `SELECT id, referrer_id, type, status, amount, description, created_at, updated_at
        FROM referrals WHERE referrer_id = $1 ORDER BY created_at DESC`
	var referrals []models.Referral
	if err := r.db.SelectContext(ctx, &referrals, query, referrerID); err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	return referrals, nil
}

// ListAll returns every referral joined with referrer metadata.
func (r *ReferralRepository) ListAll(ctx context.Context) ([]models.ReferralRecord, error) {
	const query = `SELECT r.id, r.referrer_id, r.type, r.status, r.amount, r.description, r.created_at, r.updated_at,
        u.name AS referrer_name, u.mobile AS referrer_mobile
        FROM referrals r JOIN users u ON u.id = r.referrer_id
        ORDER BY r.created_at DESC`
	var records []models.ReferralRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list all referrals: %w", err)
	}
	return records, nil
}

// Approve marks a referral approved with a payout, credits the referrer's
// wallet and drops a success notification, all in one transaction.
func (r *ReferralRepository) Approve(ctx context.Context, referral *models.Referral, amount float64, notification *models.Notification) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve referral: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const referralQuery = `UPDATE referrals SET status = $2, amount = $3, updated_at = $4
        WHERE id = $1 AND status = $5`
	res, err := tx.ExecContext(ctx, referralQuery, referral.ID, models.ReferralApproved, amount, now, models.ReferralPending)
	if err != nil {
		return fmt.Errorf("approve referral: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve referral rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	const walletQuery = `UPDATE users SET wallet_balance = wallet_balance + $2, updated_at = $3 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, walletQuery, referral.ReferrerID, amount, now); err != nil {
		return fmt.Errorf("credit wallet: %w", err)
	}

	if notification != nil {
		if notification.ID == "" {
			notification.ID = uuid.NewString()
		}
		if notification.CreatedAt.IsZero() {
			notification.CreatedAt = now
		}
		const notifyQuery = `INSERT INTO notifications (id, user_id, title, message, type, is_read, created_at)
            VALUES (:id, :user_id, :title, :message, :type, :is_read, :created_at)`
		if _, err := tx.NamedExecContext(ctx, notifyQuery, notification); err != nil {
			return fmt.Errorf("notify referrer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve referral: %w", err)
	}
	commit = true
	return nil
}

// UpdateStatus performs a plain status transition without any wallet movement.
func (r *ReferralRepository) UpdateStatus(ctx context.Context, id string, status models.ReferralStatus) error {
	const query = `UPDATE referrals SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update referral status: %w", err)
	}
	return nil
}

// Stats aggregates a referrer's history.
func (r *ReferralRepository) Stats(ctx context.Context, referrerID string) (*models.ReferralStats, error) {
	const query = `SELECT
        COUNT(*) AS total,
        COUNT(*) FILTER (WHERE status = 'PENDING') AS pending,
        COUNT(*) FILTER (WHERE status = 'APPROVED') AS approved,
        COUNT(*) FILTER (WHERE status = 'REJECTED') AS rejected,
        COALESCE(SUM(amount) FILTER (WHERE status = 'APPROVED'), 0) AS total_earned
        FROM referrals WHERE referrer_id = $1`
	var stats struct {
		Total       int     `db:"total"`
		Pending     int     `db:"pending"`
		Approved    int     `db:"approved"`
		Rejected    int     `db:"rejected"`
		TotalEarned float64 `db:"total_earned"`
	}
	if err := r.db.GetContext(ctx, &stats, query, referrerID); err != nil {
		return nil, fmt.Errorf("referral stats: %w", err)
	}
	return &models.ReferralStats{
		Total:       stats.Total,
		Pending:     stats.Pending,
		Approved:    stats.Approved,
		Rejected:    stats.Rejected,
		TotalEarned: stats.TotalEarned,
	}, nil
}
