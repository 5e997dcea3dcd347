package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tejaskp/portal-api/internal/models"
)

const invoiceColumns = `id, invoice_number, customer_name, type, items, subtotal, sgst, cgst, discount, total,
        paid_amount, due_date, status, user_id, created_at, updated_at`

// InvoiceRepository manages persistence for invoices. Number allocation and
// user ledger updates run inside a single transaction.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository constructs an InvoiceRepository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// nextNumber allocates the next sequential invoice number inside the given
// transaction. Existing generated numbers are locked so concurrent creators
// serialize; imported numbers are excluded from the sequence.
func nextNumber(ctx context.Context, tx *sqlx.Tx, prefix, importedPrefix string, padding int) (string, error) {
	query := `SELECT invoice_number FROM invoices
        WHERE invoice_number LIKE $1 AND invoice_number NOT LIKE $2 FOR UPDATE`
	var numbers []string
	if err := tx.SelectContext(ctx, &numbers, query, prefix+"%", importedPrefix+"%"); err != nil {
		return "", fmt.Errorf("lock invoice numbers: %w", err)
	}
	max := 0
	for _, num := range numbers {
		n, err := strconv.Atoi(strings.TrimPrefix(num, prefix))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, padding, max+1), nil
}

// CreateWithUser inserts an invoice and, when it is linked to a user, folds
// the paid and pending amounts into that user's fee ledger atomically. When
// the invoice number is empty the next sequential number is allocated.
func (r *InvoiceRepository) CreateWithUser(ctx context.Context, invoice *models.Invoice, prefix, importedPrefix string, padding int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create invoice: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	if invoice.InvoiceNumber == "" {
		number, err := nextNumber(ctx, tx, prefix, importedPrefix, padding)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number
	}

	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = now
	}
	invoice.UpdatedAt = now

	const insertQuery = `INSERT INTO invoices (id, invoice_number, customer_name, type, items, subtotal, sgst, cgst, discount, total,
        paid_amount, due_date, status, user_id, created_at, updated_at)
        VALUES (:id, :invoice_number, :customer_name, :type, :items, :subtotal, :sgst, :cgst, :discount, :total,
        :paid_amount, :due_date, :status, :user_id, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, invoice); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}

	if invoice.UserID != nil {
		const userQuery = `UPDATE users SET paid_amount = paid_amount + $2,
            pending_amount = total_fees - (paid_amount + $2), updated_at = $3 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, userQuery, *invoice.UserID, invoice.PaidAmount, now); err != nil {
			return fmt.Errorf("apply invoice to user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create invoice: %w", err)
	}
	commit = true
	return nil
}

// HasRecentDuplicate reports whether an equivalent invoice was already
// created after the given cutoff. Linked invoices match on user and total,
// walk-in invoices on customer name and total.
func (r *InvoiceRepository) HasRecentDuplicate(ctx context.Context, userID *string, customerName string, total float64, since time.Time) (bool, error) {
	var (
		query string
		args  []interface{}
	)
	if userID != nil {
		query = `SELECT 1 FROM invoices WHERE user_id = $1 AND total = $2 AND created_at > $3 LIMIT 1`
		args = []interface{}{*userID, total, since}
	} else {
		query = `SELECT 1 FROM invoices WHERE user_id IS NULL AND customer_name = $1 AND total = $2 AND created_at > $3 LIMIT 1`
		args = []interface{}{customerName, total, since}
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check duplicate invoice: %w", err)
	}
	return true, nil
}

// FindByID returns an invoice by identifier.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE id = $1 LIMIT 1`, invoiceColumns)
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find invoice: %w", err)
	}
	return &invoice, nil
}

// List returns all invoices joined with the linked user, most recent first.
func (r *InvoiceRepository) List(ctx context.Context) ([]models.InvoiceRecord, error) {
	const query = `SELECT i.id, i.invoice_number, i.customer_name, i.type, i.items, i.subtotal, i.sgst, i.cgst, i.discount, i.total,
        i.paid_amount, i.due_date, i.status, i.user_id, i.created_at, i.updated_at,
        u.name AS user_name, u.mobile AS user_mobile
        FROM invoices i LEFT JOIN users u ON u.id = i.user_id
        ORDER BY i.created_at DESC`
	var records []models.InvoiceRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return records, nil
}

// ListByUser returns invoices linked to a user, most recent first.
func (r *InvoiceRepository) ListByUser(ctx context.Context, userID string) ([]models.Invoice, error) {
	query := fmt.Sprintf(`SELECT %s FROM invoices WHERE user_id = $1 ORDER BY created_at DESC`, invoiceColumns)
	var invoices []models.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query, userID); err != nil {
		return nil, fmt.Errorf("list user invoices: %w", err)
	}
	return invoices, nil
}

// RecordPayment adds a payment to an invoice and mirrors it on the linked
// user's ledger in the same transaction.
func (r *InvoiceRepository) RecordPayment(ctx context.Context, id string, amount float64, status models.InvoiceStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record payment: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	const invoiceQuery = `UPDATE invoices SET paid_amount = paid_amount + $2, status = $3, updated_at = $4
        WHERE id = $1 RETURNING user_id`
	var userID *string
	if err := tx.GetContext(ctx, &userID, invoiceQuery, id, amount, status, now); err != nil {
		return fmt.Errorf("record payment: %w", err)
	}

	if userID != nil {
		const userQuery = `UPDATE users SET paid_amount = paid_amount + $2,
            pending_amount = total_fees - (paid_amount + $2), updated_at = $3 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, userQuery, *userID, amount, now); err != nil {
			return fmt.Errorf("apply payment to user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record payment: %w", err)
	}
	commit = true
	return nil
}

// Delete removes an invoice and reverses its contribution to the linked
// user's ledger atomically.
func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete invoice: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	const deleteQuery = `DELETE FROM invoices WHERE id = $1 RETURNING user_id, paid_amount`
	var row struct {
		UserID     *string `db:"user_id"`
		PaidAmount float64 `db:"paid_amount"`
	}
	if err := tx.GetContext(ctx, &row, deleteQuery, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}

	if row.UserID != nil {
		const userQuery = `UPDATE users SET paid_amount = paid_amount - $2,
            pending_amount = total_fees - (paid_amount - $2), updated_at = $3 WHERE id = $1`
		if _, err := tx.ExecContext(ctx, userQuery, *row.UserID, row.PaidAmount, time.Now().UTC()); err != nil {
			return fmt.Errorf("reverse invoice on user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete invoice: %w", err)
	}
	commit = true
	return nil
}
