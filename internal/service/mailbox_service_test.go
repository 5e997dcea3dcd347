package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/mail"
)

type mailboxRepoStub struct {
	byUser     map[string]*models.Mailbox
	byAddress  map[string]*models.Mailbox
	recipients map[string]*models.EmailRecipient

	emails        []*models.Email
	created       []*models.EmailRecipient
	deletedEmails []string
	unread        int
	nextID        int
}

func newMailboxRepoStub() *mailboxRepoStub {
	return &mailboxRepoStub{
		byUser:     map[string]*models.Mailbox{},
		byAddress:  map[string]*models.Mailbox{},
		recipients: map[string]*models.EmailRecipient{},
	}
}

func (s *mailboxRepoStub) addMailbox(id, userID, address string) *models.Mailbox {
	mb := &models.Mailbox{ID: id, UserID: userID, EmailAddress: address}
	s.byUser[userID] = mb
	s.byAddress[address] = mb
	return mb
}

func (s *mailboxRepoStub) FindByUserID(_ context.Context, userID string) (*models.Mailbox, error) {
	mb, ok := s.byUser[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return mb, nil
}

func (s *mailboxRepoStub) FindByAddress(_ context.Context, address string) (*models.Mailbox, error) {
	mb, ok := s.byAddress[address]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return mb, nil
}

func (s *mailboxRepoStub) Create(_ context.Context, mailbox *models.Mailbox) error {
	mailbox.ID = "mb-new"
	s.byUser[mailbox.UserID] = mailbox
	s.byAddress[mailbox.EmailAddress] = mailbox
	return nil
}

func (s *mailboxRepoStub) CreateEmail(_ context.Context, email *models.Email) error {
	s.nextID++
	email.ID = "email-" + string(rune('0'+s.nextID))
	s.emails = append(s.emails, email)
	return nil
}

func (s *mailboxRepoStub) DeleteEmail(_ context.Context, id string) error {
	s.deletedEmails = append(s.deletedEmails, id)
	return nil
}

func (s *mailboxRepoStub) CreateRecipient(_ context.Context, recipient *models.EmailRecipient) error {
	s.nextID++
	recipient.ID = "rcpt-" + string(rune('0'+s.nextID))
	s.created = append(s.created, recipient)
	s.recipients[recipient.ID] = recipient
	return nil
}

func (s *mailboxRepoStub) ListFolder(_ context.Context, _ string, _ models.MailFolder) ([]models.MailboxEntry, error) {
	return nil, nil
}

func (s *mailboxRepoStub) FindRecipient(_ context.Context, id string) (*models.EmailRecipient, error) {
	recipient, ok := s.recipients[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *recipient
	return &copied, nil
}

func (s *mailboxRepoStub) UpdateRecipient(_ context.Context, recipient *models.EmailRecipient) error {
	s.recipients[recipient.ID] = recipient
	return nil
}

func (s *mailboxRepoStub) DeleteRecipient(_ context.Context, id string) error {
	delete(s.recipients, id)
	return nil
}

func (s *mailboxRepoStub) CountUnread(_ context.Context, _ string) (int, error) {
	return s.unread, nil
}

type mailboxUserStub struct {
	users map[string]*models.User
}

func (s *mailboxUserStub) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

type fetcherStub struct {
	messages []mail.InboundMessage
	err      error
}

func (f *fetcherStub) Fetch(_ context.Context, _ int) ([]mail.InboundMessage, error) {
	return f.messages, f.err
}

func foldersOf(recipients []*models.EmailRecipient) []models.MailFolder {
	folders := make([]models.MailFolder, 0, len(recipients))
	for _, r := range recipients {
		folders = append(folders, r.Folder)
	}
	return folders
}

func newMailboxServiceForTest(repo *mailboxRepoStub, relay mail.Relay, fetcher mail.Fetcher, users map[string]*models.User) *MailboxService {
	if relay == nil {
		relay = &relayStub{}
	}
	if fetcher == nil {
		fetcher = mail.NopFetcher{}
	}
	return NewMailboxService(repo, &mailboxUserStub{users: users}, relay, fetcher, nil, nil, MailboxConfig{Domain: "portal.local"})
}

func TestEnsureMailboxProvisionsOnFirstUse(t *testing.T) {
	repo := newMailboxRepoStub()
	users := map[string]*models.User{
		"u1": {ID: "u1", Name: "Riya Sharma", Mobile: "9876543210"},
	}
	svc := newMailboxServiceForTest(repo, nil, nil, users)

	mb, err := svc.EnsureMailbox(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "riya.sharma3210@portal.local", mb.EmailAddress)

	again, err := svc.EnsureMailbox(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, mb.ID, again.ID)
}

func TestSendDeliversInternally(t *testing.T) {
	repo := newMailboxRepoStub()
	repo.addMailbox("mb-sender", "u1", "sender1111@portal.local")
	repo.addMailbox("mb-target", "u2", "target2222@portal.local")
	svc := newMailboxServiceForTest(repo, nil, nil, nil)

	result, err := svc.Send(context.Background(), models.SendEmailRequest{
		SenderUserID: "u1",
		To:           []string{"Target2222@portal.local"},
		Subject:      "Hello",
		Content:      "Hi there",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.InternalCount)
	assert.Zero(t, result.ExternalCount)
	assert.ElementsMatch(t, []models.MailFolder{models.FolderInbox, models.FolderSent}, foldersOf(repo.created))
}

func TestSendRoutesExternalThroughRelay(t *testing.T) {
	repo := newMailboxRepoStub()
	repo.addMailbox("mb-sender", "u1", "sender1111@portal.local")
	relay := &relayStub{}
	svc := newMailboxServiceForTest(repo, relay, nil, map[string]*models.User{
		"u1": {ID: "u1", Name: "Sender"},
	})

	result, err := svc.Send(context.Background(), models.SendEmailRequest{
		SenderUserID: "u1",
		To:           []string{"someone@example.com"},
		Subject:      "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExternalCount)
	require.Len(t, relay.sent, 1)
	assert.Equal(t, "sender1111@portal.local", relay.sent[0].ReplyTo)
}

func TestSendWithNoDeliverableRecipientsFails(t *testing.T) {
	repo := newMailboxRepoStub()
	repo.addMailbox("mb-sender", "u1", "sender1111@portal.local")
	svc := newMailboxServiceForTest(repo, nil, nil, nil)

	_, err := svc.Send(context.Background(), models.SendEmailRequest{
		SenderUserID: "u1",
		To:           []string{"nobody@portal.local", "not-an-address"},
		Subject:      "Hello",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.deletedEmails, 1)
}

func TestSendRelayFailureCountsAsInvalid(t *testing.T) {
	repo := newMailboxRepoStub()
	repo.addMailbox("mb-sender", "u1", "sender1111@portal.local")
	repo.addMailbox("mb-target", "u2", "target2222@portal.local")
	relay := &relayStub{err: errors.New("smtp down")}
	svc := newMailboxServiceForTest(repo, relay, nil, nil)

	result, err := svc.Send(context.Background(), models.SendEmailRequest{
		SenderUserID: "u1",
		To:           []string{"target2222@portal.local", "someone@example.com"},
		Subject:      "Hello",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.InternalCount)
	assert.Zero(t, result.ExternalCount)
	assert.Equal(t, 1, result.InvalidCount)
}

func TestSendDraftStaysInDrafts(t *testing.T) {
	repo := newMailboxRepoStub()
	repo.addMailbox("mb-sender", "u1", "sender1111@portal.local")
	svc := newMailboxServiceForTest(repo, nil, nil, nil)

	_, err := svc.Send(context.Background(), models.SendEmailRequest{
		SenderUserID: "u1",
		To:           []string{"someone@example.com"},
		Subject:      "WIP",
		IsDraft:      true,
	})
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, models.FolderDrafts, repo.created[0].Folder)
}

func TestUpdateEntryRejectsForeignMailbox(t *testing.T) {
	repo := newMailboxRepoStub()
	repo.addMailbox("mb-owner", "owner", "owner1111@portal.local")
	repo.addMailbox("mb-other", "other", "other2222@portal.local")
	repo.recipients["r1"] = &models.EmailRecipient{ID: "r1", MailboxID: "mb-owner", Folder: models.FolderInbox}
	svc := newMailboxServiceForTest(repo, nil, nil, nil)

	read := true
	_, err := svc.UpdateEntry(context.Background(), "other", models.UpdateRecipientRequest{RecipientID: "r1", IsRead: &read})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDeleteEntryTrashesThenRemoves(t *testing.T) {
	repo := newMailboxRepoStub()
	repo.addMailbox("mb-owner", "owner", "owner1111@portal.local")
	repo.recipients["r1"] = &models.EmailRecipient{ID: "r1", MailboxID: "mb-owner", Folder: models.FolderInbox}
	svc := newMailboxServiceForTest(repo, nil, nil, nil)

	require.NoError(t, svc.DeleteEntry(context.Background(), "owner", "r1"))
	assert.Equal(t, models.FolderTrash, repo.recipients["r1"].Folder)

	require.NoError(t, svc.DeleteEntry(context.Background(), "owner", "r1"))
	assert.NotContains(t, repo.recipients, "r1")
}

func TestSyncInboundDeliversToMatchingMailbox(t *testing.T) {
	repo := newMailboxRepoStub()
	repo.addMailbox("mb-owner", "owner", "owner1111@portal.local")
	fetcher := &fetcherStub{messages: []mail.InboundMessage{
		{To: "Owner1111@portal.local", From: "ext@example.com", Subject: "Hi", ReceivedAt: time.Now()},
		{To: "stranger@portal.local", From: "ext@example.com", Subject: "Lost"},
	}}
	svc := newMailboxServiceForTest(repo, nil, fetcher, nil)

	delivered, err := svc.SyncInbound(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	require.Len(t, repo.emails, 1)
	require.NotNil(t, repo.emails[0].ExternalFrom)
	assert.Equal(t, "ext@example.com", *repo.emails[0].ExternalFrom)
	require.Len(t, repo.created, 1)
	assert.Equal(t, models.FolderInbox, repo.created[0].Folder)
}

func TestDeriveAddressSanitisesName(t *testing.T) {
	svc := newMailboxServiceForTest(newMailboxRepoStub(), nil, nil, nil)

	address := svc.deriveAddress(&models.User{Name: "Dr. A. P. J. Kalam!", Mobile: "9998887776"})
	assert.Equal(t, "dr.a.p.j.kalam7776@portal.local", address)
}
