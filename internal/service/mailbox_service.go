package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/mail"
)

type mailboxRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.Mailbox, error)
	FindByAddress(ctx context.Context, address string) (*models.Mailbox, error)
	Create(ctx context.Context, mailbox *models.Mailbox) error
	CreateEmail(ctx context.Context, email *models.Email) error
	DeleteEmail(ctx context.Context, id string) error
	CreateRecipient(ctx context.Context, recipient *models.EmailRecipient) error
	ListFolder(ctx context.Context, mailboxID string, folder models.MailFolder) ([]models.MailboxEntry, error)
	FindRecipient(ctx context.Context, id string) (*models.EmailRecipient, error)
	UpdateRecipient(ctx context.Context, recipient *models.EmailRecipient) error
	DeleteRecipient(ctx context.Context, id string) error
	CountUnread(ctx context.Context, mailboxID string) (int, error)
}

type mailboxUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// MailboxConfig scopes the internal webmail.
type MailboxConfig struct {
	Domain         string
	SyncBatchLimit int
}

// MailboxService implements the internal webmail: one mailbox per user,
// emails fanned out to per-mailbox folder rows, external delivery through
// the relay and inbound sync through the fetcher.
type MailboxService struct {
	repo      mailboxRepository
	users     mailboxUserReader
	relay     mail.Relay
	fetcher   mail.Fetcher
	validator *validator.Validate
	logger    *zap.Logger
	config    MailboxConfig
}

// NewMailboxService constructs a MailboxService.
func NewMailboxService(repo mailboxRepository, users mailboxUserReader, relay mail.Relay, fetcher mail.Fetcher, validate *validator.Validate, logger *zap.Logger, config MailboxConfig) *MailboxService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.Domain == "" {
		config.Domain = "portal.local"
	}
	if config.SyncBatchLimit <= 0 {
		config.SyncBatchLimit = 50
	}
	return &MailboxService{repo: repo, users: users, relay: relay, fetcher: fetcher, validator: validate, logger: logger, config: config}
}

// EnsureMailbox returns the user's mailbox, provisioning one on first use.
// Addresses are derived from the name with the mobile tail as a tiebreaker.
func (s *MailboxService) EnsureMailbox(ctx context.Context, userID string) (*models.Mailbox, error) {
	mailbox, err := s.repo.FindByUserID(ctx, userID)
	if err == nil {
		return mailbox, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mailbox")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	address := s.deriveAddress(user)
	mailbox = &models.Mailbox{UserID: userID, EmailAddress: address}
	if err := s.repo.Create(ctx, mailbox); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to provision mailbox")
	}

	s.logger.Info("mailbox provisioned", zap.String("user_id", userID), zap.String("address", address))
	return mailbox, nil
}

// Send composes an email and fans it out. Internal addresses get an INBOX
// row, external ones go through the relay, and the sender keeps a SENT (or
// DRAFTS) copy. When nothing was reachable and the message is not a draft
// the email row is removed and the send fails.
func (s *MailboxService) Send(ctx context.Context, req models.SendEmailRequest) (*models.SendEmailResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid email payload")
	}

	sender, err := s.EnsureMailbox(ctx, req.SenderUserID)
	if err != nil {
		return nil, err
	}

	email := &models.Email{
		SenderID: &req.SenderUserID,
		Subject:  req.Subject,
		Body:     req.Content,
		IsDraft:  req.IsDraft,
	}
	if err := s.repo.CreateEmail(ctx, email); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store email")
	}

	result := &models.SendEmailResult{EmailID: email.ID}

	if req.IsDraft {
		if err := s.repo.CreateRecipient(ctx, &models.EmailRecipient{
			EmailID:   email.ID,
			MailboxID: sender.ID,
			Folder:    models.FolderDrafts,
		}); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store draft")
		}
		return result, nil
	}

	var externalTo []string
	for _, raw := range req.To {
		address := strings.ToLower(strings.TrimSpace(raw))
		if address == "" || !strings.Contains(address, "@") {
			result.InvalidCount++
			continue
		}
		if strings.HasSuffix(address, "@"+s.config.Domain) {
			target, err := s.repo.FindByAddress(ctx, address)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					result.InvalidCount++
					continue
				}
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve address")
			}
			if err := s.repo.CreateRecipient(ctx, &models.EmailRecipient{
				EmailID:   email.ID,
				MailboxID: target.ID,
				Folder:    models.FolderInbox,
			}); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deliver email")
			}
			result.InternalCount++
			continue
		}
		externalTo = append(externalTo, address)
	}

	if len(externalTo) > 0 {
		msg := mail.Message{
			To:       externalTo,
			Subject:  req.Subject,
			TextBody: req.Content,
			ReplyTo:  sender.EmailAddress,
		}
		if user, err := s.users.FindByID(ctx, req.SenderUserID); err == nil {
			msg.SenderName = user.Name
		}
		if err := s.relay.Send(ctx, msg); err != nil {
			s.logger.Warn("external relay failed",
				zap.Strings("to", externalTo),
				zap.Error(err))
			result.InvalidCount += len(externalTo)
		} else {
			result.ExternalCount = len(externalTo)
		}
	}

	if result.InternalCount+result.ExternalCount == 0 {
		if err := s.repo.DeleteEmail(ctx, email.ID); err != nil {
			s.logger.Warn("failed to remove undeliverable email", zap.String("email_id", email.ID), zap.Error(err))
		}
		return nil, appErrors.Clone(appErrors.ErrValidation, "no deliverable recipients")
	}

	if err := s.repo.CreateRecipient(ctx, &models.EmailRecipient{
		EmailID:   email.ID,
		MailboxID: sender.ID,
		Folder:    models.FolderSent,
		IsRead:    true,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store sent copy")
	}

	return result, nil
}

// Folder lists one folder of the user's mailbox.
func (s *MailboxService) Folder(ctx context.Context, userID string, folder models.MailFolder) ([]models.MailboxEntry, error) {
	if !folder.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown folder")
	}
	mailbox, err := s.EnsureMailbox(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListFolder(ctx, mailbox.ID, folder)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list folder")
	}
	return entries, nil
}

// UpdateEntry mutates read/star flags or moves an entry between folders.
// Users can only touch rows of their own mailbox.
func (s *MailboxService) UpdateEntry(ctx context.Context, userID string, req models.UpdateRecipientRequest) (*models.EmailRecipient, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}

	mailbox, err := s.EnsureMailbox(ctx, userID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.repo.FindRecipient(ctx, req.RecipientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry")
	}
	if recipient.MailboxID != mailbox.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "entry belongs to another mailbox")
	}

	if req.IsRead != nil {
		recipient.IsRead = *req.IsRead
	}
	if req.IsStarred != nil {
		recipient.IsStarred = *req.IsStarred
	}
	if req.Folder != nil {
		if !req.Folder.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown folder")
		}
		recipient.Folder = *req.Folder
	}

	if err := s.repo.UpdateRecipient(ctx, recipient); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update entry")
	}
	return recipient, nil
}

// DeleteEntry moves an entry to TRASH, or removes it permanently when it is
// already trashed.
func (s *MailboxService) DeleteEntry(ctx context.Context, userID, recipientID string) error {
	mailbox, err := s.EnsureMailbox(ctx, userID)
	if err != nil {
		return err
	}
	recipient, err := s.repo.FindRecipient(ctx, recipientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load entry")
	}
	if recipient.MailboxID != mailbox.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "entry belongs to another mailbox")
	}

	if recipient.Folder != models.FolderTrash {
		recipient.Folder = models.FolderTrash
		if err := s.repo.UpdateRecipient(ctx, recipient); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to trash entry")
		}
		return nil
	}
	if err := s.repo.DeleteRecipient(ctx, recipientID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete entry")
	}
	return nil
}

// UnreadCount counts unread inbox entries for a user.
func (s *MailboxService) UnreadCount(ctx context.Context, userID string) (int, error) {
	mailbox, err := s.EnsureMailbox(ctx, userID)
	if err != nil {
		return 0, err
	}
	count, err := s.repo.CountUnread(ctx, mailbox.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count unread")
	}
	return count, nil
}

// SyncInbound pulls one batch of external messages from the fetcher and
// delivers them to matching mailboxes. It returns the number delivered.
func (s *MailboxService) SyncInbound(ctx context.Context) (int, error) {
	messages, err := s.fetcher.Fetch(ctx, s.config.SyncBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("fetch inbound: %w", err)
	}

	delivered := 0
	for _, msg := range messages {
		address := strings.ToLower(strings.TrimSpace(msg.To))
		mailbox, err := s.repo.FindByAddress(ctx, address)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.logger.Debug("inbound for unknown address", zap.String("to", address))
				continue
			}
			return delivered, fmt.Errorf("resolve inbound address: %w", err)
		}

		from := msg.From
		email := &models.Email{
			ExternalFrom: &from,
			Subject:      msg.Subject,
			Body:         msg.TextBody,
			CreatedAt:    msg.ReceivedAt,
		}
		if err := s.repo.CreateEmail(ctx, email); err != nil {
			return delivered, fmt.Errorf("store inbound email: %w", err)
		}
		if err := s.repo.CreateRecipient(ctx, &models.EmailRecipient{
			EmailID:   email.ID,
			MailboxID: mailbox.ID,
			Folder:    models.FolderInbox,
		}); err != nil {
			return delivered, fmt.Errorf("deliver inbound email: %w", err)
		}
		delivered++
	}
	return delivered, nil
}

// deriveAddress builds a stable internal address from the user's name and
// the tail of their mobile number.
func (s *MailboxService) deriveAddress(user *models.User) string {
	local := strings.ToLower(user.Name)
	local = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ':
			return '.'
		default:
			return -1
		}
	}, local)
	local = strings.Trim(local, ".")
	if local == "" {
		local = "user"
	}
	tail := user.Mobile
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return fmt.Sprintf("%s%s@%s", local, tail, s.config.Domain)
}
