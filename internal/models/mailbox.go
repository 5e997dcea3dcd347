package models

import "time"

// MailFolder is one of the fixed webmail folders.
type MailFolder string

const (
	FolderInbox  MailFolder = "INBOX"
	FolderSent   MailFolder = "SENT"
	FolderDrafts MailFolder = "DRAFTS"
	FolderTrash  MailFolder = "TRASH"
)

// Valid returns true when the folder is a supported value.
func (f MailFolder) Valid() bool {
	switch f {
	case FolderInbox, FolderSent, FolderDrafts, FolderTrash:
		return true
	default:
		return false
	}
}

// Mailbox is a user's internal mail account.
type Mailbox struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	EmailAddress string    `db:"email_address" json:"email_address"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Email is one message shared across every recipient's folder view.
// ExternalFrom is set for messages pulled in from outside the portal, where
// no sender user exists.
type Email struct {
	ID           string    `db:"id" json:"id"`
	SenderID     *string   `db:"sender_id" json:"sender_id,omitempty"`
	ExternalFrom *string   `db:"external_from" json:"external_from,omitempty"`
	Subject      string    `db:"subject" json:"subject"`
	Body         string    `db:"body" json:"body"`
	IsDraft      bool      `db:"is_draft" json:"is_draft"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// EmailRecipient is one mailbox's view of an email: folder placement
// plus read/star flags. One Email fans out to many of these rows.
type EmailRecipient struct {
	ID        string     `db:"id" json:"id"`
	EmailID   string     `db:"email_id" json:"email_id"`
	MailboxID string     `db:"mailbox_id" json:"mailbox_id"`
	Folder    MailFolder `db:"folder" json:"folder"`
	IsRead    bool       `db:"is_read" json:"is_read"`
	IsStarred bool       `db:"is_starred" json:"is_starred"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

// MailboxEntry is one folder row joined with its email and sender info.
type MailboxEntry struct {
	EmailRecipient
	Subject       string    `db:"subject" json:"subject"`
	Body          string    `db:"body" json:"body"`
	SenderAddress string    `db:"sender_address" json:"sender_address"`
	SenderName    string    `db:"sender_name" json:"sender_name"`
	SentAt        time.Time `db:"sent_at" json:"sent_at"`
}

// SendEmailRequest composes a new email. Addresses may be internal mailbox
// addresses or external ones routed through the relay.
type SendEmailRequest struct {
	SenderUserID string   `json:"sender_user_id" validate:"required"`
	To           []string `json:"to" validate:"required,min=1"`
	Subject      string   `json:"subject" validate:"required"`
	Content      string   `json:"content"`
	IsDraft      bool     `json:"is_draft"`
}

// SendEmailResult reports delivery fan-out counts.
type SendEmailResult struct {
	EmailID       string `json:"email_id"`
	InternalCount int    `json:"internal_count"`
	ExternalCount int    `json:"external_count"`
	InvalidCount  int    `json:"invalid_count"`
}

// UpdateRecipientRequest mutates one mailbox view row.
type UpdateRecipientRequest struct {
	RecipientID string      `json:"recipient_id" validate:"required"`
	IsRead      *bool       `json:"is_read,omitempty"`
	IsStarred   *bool       `json:"is_starred,omitempty"`
	Folder      *MailFolder `json:"folder,omitempty"`
}
