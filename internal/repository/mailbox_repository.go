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

// MailboxRepository manages persistence for mailboxes, emails and the
// per-mailbox recipient rows an email fans out to.
type MailboxRepository struct {
	db *sqlx.DB
}

// NewMailboxRepository constructs a MailboxRepository.
func NewMailboxRepository(db *sqlx.DB) *MailboxRepository {
	return &MailboxRepository{db: db}
}

// FindByUserID returns a user's mailbox.
func (r *MailboxRepository) FindByUserID(ctx context.Context, userID string) (*models.Mailbox, error) {
	const query = `SELECT id, user_id, email_address, created_at FROM mailboxes WHERE user_id = $1 LIMIT 1`
	var mailbox models.Mailbox
	if err := r.db.GetContext(ctx, &mailbox, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find mailbox by user: %w", err)
	}
	return &mailbox, nil
}

// FindByAddress returns a mailbox by its internal address.
func (r *MailboxRepository) FindByAddress(ctx context.Context, address string) (*models.Mailbox, error) {
	const query = `SELECT id, user_id, email_address, created_at FROM mailboxes WHERE email_address = $1 LIMIT 1`
	var mailbox models.Mailbox
	if err := r.db.GetContext(ctx, &mailbox, query, address); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find mailbox by address: %w", err)
	}
	return &mailbox, nil
}

// Create provisions a mailbox for a user.
func (r *MailboxRepository) Create(ctx context.Context, mailbox *models.Mailbox) error {
	if mailbox.ID == "" {
		mailbox.ID = uuid.NewString()
	}
	if mailbox.CreatedAt.IsZero() {
		mailbox.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO mailboxes (id, user_id, email_address, created_at)
        VALUES (:id, :user_id, :email_address, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, mailbox); err != nil {
		return fmt.Errorf("create mailbox: %w", err)
	}
	return nil
}

// CreateEmail stores an email body.
func (r *MailboxRepository) CreateEmail(ctx context.Context, email *models.Email) error {
	if email.ID == "" {
		email.ID = uuid.NewString()
	}
	if email.CreatedAt.IsZero() {
		email.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO emails (id, sender_id, external_from, subject, body, is_draft, created_at)
        VALUES (:id, :sender_id, :external_from, :subject, :body, :is_draft, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, email); err != nil {
		return fmt.Errorf("create email: %w", err)
	}
	return nil
}

// DeleteEmail removes an email and its recipient rows.
func (r *MailboxRepository) DeleteEmail(ctx context.Context, id string) error {
	const query = `DELETE FROM emails WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete email: %w", err)
	}
	return nil
}

// CreateRecipient places an email into one mailbox folder.
func (r *MailboxRepository) CreateRecipient(ctx context.Context, recipient *models.EmailRecipient) error {
	if recipient.ID == "" {
		recipient.ID = uuid.NewString()
	}
	if recipient.CreatedAt.IsZero() {
		recipient.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO email_recipients (id, email_id, mailbox_id, folder, is_read, is_starred, created_at)
        VALUES (:id, :email_id, :mailbox_id, :folder, :is_read, :is_starred, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, recipient); err != nil {
		return fmt.Errorf("create email recipient: %w", err)
	}
	return nil
}

// ListFolder returns the entries of one mailbox folder joined with the email
// body and sender info, most recent first.
func (r *MailboxRepository) ListFolder(ctx context.Context, mailboxID string, folder models.MailFolder) ([]models.MailboxEntry, error) {
	const query = `SELECT er.id, er.email_id, er.mailbox_id, er.folder, er.is_read, er.is_starred, er.created_at,
        e.subject, e.body, e.created_at AS sent_at,
        COALESCE(e.external_from, m.email_address, '') AS sender_address,
        COALESCE(u.name, e.external_from, '') AS sender_name
        FROM email_recipients er
        JOIN emails e ON e.id = er.email_id
        LEFT JOIN users u ON u.id = e.sender_id
        LEFT JOIN mailboxes m ON m.user_id = e.sender_id
        WHERE er.mailbox_id = $1 AND er.folder = $2
        ORDER BY e.created_at DESC`
	var entries []models.MailboxEntry
	if err := r.db.SelectContext(ctx, &entries, query, mailboxID, folder); err != nil {
		return nil, fmt.Errorf("list folder: %w", err)
	}
	return entries, nil
}

// FindRecipient returns one recipient row.
func (r *MailboxRepository) FindRecipient(ctx context.Context, id string) (*models.EmailRecipient, error) {
	const query = `SELECT id, email_id, mailbox_id, folder, is_read, is_starred, created_at
        FROM email_recipients WHERE id = $1 LIMIT 1`
	var recipient models.EmailRecipient
	if err := r.db.GetContext(ctx, &recipient, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find email recipient: %w", err)
	}
	return &recipient, nil
}

// UpdateRecipient mutates the folder and flag fields of a recipient row.
func (r *MailboxRepository) UpdateRecipient(ctx context.Context, recipient *models.EmailRecipient) error {
	const query = `UPDATE email_recipients SET folder = :folder, is_read = :is_read, is_starred = :is_starred WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, recipient); err != nil {
		return fmt.Errorf("update email recipient: %w", err)
	}
	return nil
}

// DeleteRecipient removes one mailbox's view of an email.
func (r *MailboxRepository) DeleteRecipient(ctx context.Context, id string) error {
	const query = `DELETE FROM email_recipients WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete email recipient: %w", err)
	}
	return nil
}

// CountUnread counts unread inbox entries for a mailbox.
func (r *MailboxRepository) CountUnread(ctx context.Context, mailboxID string) (int, error) {
	const query = `SELECT COUNT(*) FROM email_recipients WHERE mailbox_id = $1 AND folder = $2 AND is_read = false`
	var count int
	if err := r.db.GetContext(ctx, &count, query, mailboxID, models.FolderInbox); err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
