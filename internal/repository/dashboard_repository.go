package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tejaskp/portal-api/internal/models"
)

// DashboardRepository aggregates revenue and activity figures for the admin
// dashboard.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs a DashboardRepository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// TotalRevenue sums paid amounts across all invoices.
func (r *DashboardRepository) TotalRevenue(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(SUM(paid_amount), 0) FROM invoices`
	var total float64
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("total revenue: %w", err)
	}
	return total, nil
}

// CountUsers counts all non-admin accounts.
func (r *DashboardRepository) CountUsers(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE role <> $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, models.RoleAdmin); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// TotalPending sums outstanding fees across all users.
func (r *DashboardRepository) TotalPending(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(SUM(pending_amount), 0) FROM users`
	var total float64
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("total pending: %w", err)
	}
	return total, nil
}

// MonthlyRevenue returns per-month paid sums for a calendar year, indexed
// January through December.
func (r *DashboardRepository) MonthlyRevenue(ctx context.Context, year int) ([12]float64, error) {
	const query = `SELECT EXTRACT(MONTH FROM created_at)::int AS month, COALESCE(SUM(paid_amount), 0) AS amount
        FROM invoices WHERE created_at >= $1 AND created_at < $2 GROUP BY 1 ORDER BY 1`
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	var rows []struct {
		Month  int     `db:"month"`
		Amount float64 `db:"amount"`
	}
	var monthly [12]float64
	if err := r.db.SelectContext(ctx, &rows, query, start, end); err != nil {
		return monthly, fmt.Errorf("monthly revenue: %w", err)
	}
	for _, row := range rows {
		if row.Month >= 1 && row.Month <= 12 {
			monthly[row.Month-1] = row.Amount
		}
	}
	return monthly, nil
}

// PendingDues lists users carrying unpaid fees, largest dues first.
func (r *DashboardRepository) PendingDues(ctx context.Context) ([]models.PendingDue, error) {
	const query = `SELECT id, name, mobile, course, total_fees, paid_amount, pending_amount
        FROM users WHERE pending_amount > 0 ORDER BY pending_amount DESC`
	var dues []models.PendingDue
	if err := r.db.SelectContext(ctx, &dues, query); err != nil {
		return nil, fmt.Errorf("pending dues: %w", err)
	}
	return dues, nil
}

// CreatePurchase records an expense in the finance ledger.
func (r *DashboardRepository) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	if purchase.ID == "" {
		purchase.ID = uuid.NewString()
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO purchases (id, amount, description, category, date, created_at)
        VALUES (:id, :amount, :description, :category, :date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, purchase); err != nil {
		return fmt.Errorf("create purchase: %w", err)
	}
	return nil
}

// ListPurchases returns the expense ledger, newest first.
func (r *DashboardRepository) ListPurchases(ctx context.Context) ([]models.Purchase, error) {
	const query = `SELECT id, amount, description, category, date, created_at
        FROM purchases ORDER BY date DESC, created_at DESC`
	var purchases []models.Purchase
	if err := r.db.SelectContext(ctx, &purchases, query); err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return purchases, nil
}
