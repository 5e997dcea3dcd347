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
	"github.com/tejaskp/portal-api/pkg/export"
	"github.com/tejaskp/portal-api/pkg/mail"
)

type invoiceRepoStub struct {
	nextNumber int
	duplicate  bool
	invoices   map[string]*models.Invoice

	createdPrefix  string
	paymentAmount  float64
	paymentStatus  models.InvoiceStatus
	deletedID      string
	deleteNotFound bool
}

func newInvoiceRepoStub() *invoiceRepoStub {
	return &invoiceRepoStub{nextNumber: 1, invoices: map[string]*models.Invoice{}}
}

func (s *invoiceRepoStub) CreateWithUser(_ context.Context, invoice *models.Invoice, prefix, _ string, padding int) error {
	invoice.ID = "inv-stub"
	invoice.InvoiceNumber = prefix + pad(s.nextNumber, padding)
	s.nextNumber++
	s.createdPrefix = prefix
	s.invoices[invoice.ID] = invoice
	return nil
}

func pad(n, width int) string {
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	for len(digits) < width {
		digits = "0" + digits
	}
	return digits
}

func (s *invoiceRepoStub) HasRecentDuplicate(_ context.Context, _ *string, _ string, _ float64, _ time.Time) (bool, error) {
	return s.duplicate, nil
}

func (s *invoiceRepoStub) FindByID(_ context.Context, id string) (*models.Invoice, error) {
	invoice, ok := s.invoices[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *invoice
	return &copied, nil
}

func (s *invoiceRepoStub) List(_ context.Context) ([]models.InvoiceRecord, error) {
	return nil, nil
}

func (s *invoiceRepoStub) ListByUser(_ context.Context, _ string) ([]models.Invoice, error) {
	return nil, nil
}

func (s *invoiceRepoStub) RecordPayment(_ context.Context, id string, amount float64, status models.InvoiceStatus) error {
	s.paymentAmount = amount
	s.paymentStatus = status
	if invoice, ok := s.invoices[id]; ok {
		invoice.PaidAmount += amount
		invoice.Status = status
	}
	return nil
}

func (s *invoiceRepoStub) Delete(_ context.Context, id string) error {
	if s.deleteNotFound {
		return sql.ErrNoRows
	}
	s.deletedID = id
	return nil
}

type invoiceUserStub struct {
	missing bool
}

func (s *invoiceUserStub) FindByID(_ context.Context, id string) (*models.User, error) {
	if s.missing {
		return nil, sql.ErrNoRows
	}
	return &models.User{ID: id, Status: models.StatusActive}, nil
}

type relayStub struct {
	sent []mail.Message
	err  error
}

func (r *relayStub) Send(_ context.Context, msg mail.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func newInvoiceServiceForTest(repo *invoiceRepoStub, relay *relayStub) *InvoiceService {
	return NewInvoiceService(repo, &invoiceUserStub{}, export.NewDocumentRenderer("Portal", ""), relay, nil, nil, InvoiceConfig{})
}

func TestInvoiceCreateAssignsSequentialNumbers(t *testing.T) {
	repo := newInvoiceRepoStub()
	svc := newInvoiceServiceForTest(repo, &relayStub{})

	first, err := svc.Create(context.Background(), models.CreateInvoiceRequest{CustomerName: "Acme", Total: 100})
	require.NoError(t, err)
	assert.Equal(t, "INV-0001", first.InvoiceNumber)

	second, err := svc.Create(context.Background(), models.CreateInvoiceRequest{CustomerName: "Acme", Total: 200})
	require.NoError(t, err)
	assert.Equal(t, "INV-0002", second.InvoiceNumber)
}

func TestInvoiceCreateRejectsRecentDuplicate(t *testing.T) {
	repo := newInvoiceRepoStub()
	repo.duplicate = true
	svc := newInvoiceServiceForTest(repo, &relayStub{})

	_, err := svc.Create(context.Background(), models.CreateInvoiceRequest{CustomerName: "Acme", Total: 100})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateRequest.Code, appErrors.FromError(err).Code)
}

func TestInvoiceCreateRejectsUnknownLinkedUser(t *testing.T) {
	repo := newInvoiceRepoStub()
	svc := NewInvoiceService(repo, &invoiceUserStub{missing: true}, export.NewDocumentRenderer("Portal", ""), &relayStub{}, nil, nil, InvoiceConfig{})

	userID := "ghost"
	_, err := svc.Create(context.Background(), models.CreateInvoiceRequest{CustomerName: "Acme", Total: 100, UserID: &userID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestInvoiceStatusFromPayment(t *testing.T) {
	repo := newInvoiceRepoStub()
	svc := newInvoiceServiceForTest(repo, &relayStub{})

	pending, err := svc.Create(context.Background(), models.CreateInvoiceRequest{CustomerName: "Acme", Total: 100})
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePending, pending.Status)

	partial, err := svc.Create(context.Background(), models.CreateInvoiceRequest{CustomerName: "Acme", Total: 100, PaidAmount: 40})
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePartial, partial.Status)

	paid, err := svc.Create(context.Background(), models.CreateInvoiceRequest{CustomerName: "Acme", Total: 100, PaidAmount: 100})
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, paid.Status)
}

func TestRecordPaymentSettlesInvoice(t *testing.T) {
	repo := newInvoiceRepoStub()
	svc := newInvoiceServiceForTest(repo, &relayStub{})
	created, err := svc.Create(context.Background(), models.CreateInvoiceRequest{CustomerName: "Acme", Total: 100, PaidAmount: 40})
	require.NoError(t, err)

	invoice, err := svc.RecordPayment(context.Background(), created.ID, models.RecordPaymentRequest{Amount: 60})
	require.NoError(t, err)
	assert.Equal(t, models.InvoicePaid, invoice.Status)
	assert.Equal(t, 100.0, invoice.PaidAmount)
	assert.Equal(t, 60.0, repo.paymentAmount)
}

func TestRecordPaymentRejectsOverpayment(t *testing.T) {
	repo := newInvoiceRepoStub()
	svc := newInvoiceServiceForTest(repo, &relayStub{})
	created, err := svc.Create(context.Background(), models.CreateInvoiceRequest{CustomerName: "Acme", Total: 100, PaidAmount: 40})
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), created.ID, models.RecordPaymentRequest{Amount: 61})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestInvoiceDeleteNotFound(t *testing.T) {
	repo := newInvoiceRepoStub()
	repo.deleteNotFound = true
	svc := newInvoiceServiceForTest(repo, &relayStub{})

	err := svc.Delete(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestInvoiceEmailAttachesPDF(t *testing.T) {
	repo := newInvoiceRepoStub()
	relay := &relayStub{}
	svc := newInvoiceServiceForTest(repo, relay)
	created, err := svc.Create(context.Background(), models.CreateInvoiceRequest{
		CustomerName: "Acme",
		Items:        []models.InvoiceItem{{Description: "Course fee", Quantity: 1, Rate: 100, Amount: 100}},
		Subtotal:     100,
		Total:        100,
	})
	require.NoError(t, err)

	err = svc.Email(context.Background(), models.EmailInvoiceRequest{InvoiceID: created.ID, To: "billing@acme.test"})
	require.NoError(t, err)
	require.Len(t, relay.sent, 1)
	require.Len(t, relay.sent[0].Attachments, 1)
	assert.Equal(t, created.InvoiceNumber+".pdf", relay.sent[0].Attachments[0].Filename)
	assert.Equal(t, "application/pdf", relay.sent[0].Attachments[0].ContentType)
	assert.NotEmpty(t, relay.sent[0].Attachments[0].Content)
}

func TestInvoiceEmailToleratesRelayFailure(t *testing.T) {
	repo := newInvoiceRepoStub()
	relay := &relayStub{err: errors.New("smtp down")}
	svc := newInvoiceServiceForTest(repo, relay)
	created, err := svc.Create(context.Background(), models.CreateInvoiceRequest{CustomerName: "Acme", Total: 100})
	require.NoError(t, err)

	assert.NoError(t, svc.Email(context.Background(), models.EmailInvoiceRequest{InvoiceID: created.ID, To: "billing@acme.test"}))
}
