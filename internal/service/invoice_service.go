package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/export"
	"github.com/tejaskp/portal-api/pkg/mail"
)

type invoiceRepository interface {
	CreateWithUser(ctx context.Context, invoice *models.Invoice, prefix, importedPrefix string, padding int) error
	HasRecentDuplicate(ctx context.Context, userID *string, customerName string, total float64, since time.Time) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Invoice, error)
	List(ctx context.Context) ([]models.InvoiceRecord, error)
	ListByUser(ctx context.Context, userID string) ([]models.Invoice, error)
	RecordPayment(ctx context.Context, id string, amount float64, status models.InvoiceStatus) error
	Delete(ctx context.Context, id string) error
}

type invoiceUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// InvoiceConfig tunes numbering and the duplicate guard.
type InvoiceConfig struct {
	NumberPrefix    string
	ImportedPrefix  string
	DuplicateWindow time.Duration
	NumberPadding   int
}

// InvoiceService implements invoice creation, payments and delivery.
type InvoiceService struct {
	repo      invoiceRepository
	users     invoiceUserReader
	renderer  *export.DocumentRenderer
	relay     mail.Relay
	validator *validator.Validate
	logger    *zap.Logger
	config    InvoiceConfig
}

// NewInvoiceService constructs an InvoiceService.
func NewInvoiceService(repo invoiceRepository, users invoiceUserReader, renderer *export.DocumentRenderer, relay mail.Relay, validate *validator.Validate, logger *zap.Logger, config InvoiceConfig) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.NumberPrefix == "" {
		config.NumberPrefix = "INV-"
	}
	if config.ImportedPrefix == "" {
		config.ImportedPrefix = "INV-IMP"
	}
	if config.DuplicateWindow <= 0 {
		config.DuplicateWindow = 15 * time.Second
	}
	if config.NumberPadding <= 0 {
		config.NumberPadding = 4
	}
	return &InvoiceService{repo: repo, users: users, renderer: renderer, relay: relay, validator: validate, logger: logger, config: config}
}

// Create allocates the next invoice number and stores the invoice. A linked
// user's paid and pending amounts are updated in the same transaction.
// Submitting the same invoice twice within the duplicate window is rejected.
func (s *InvoiceService) Create(ctx context.Context, req models.CreateInvoiceRequest) (*models.Invoice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invoice payload")
	}

	if req.UserID != nil {
		if _, err := s.users.FindByID(ctx, *req.UserID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "linked user not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
		}
	}

	since := time.Now().UTC().Add(-s.config.DuplicateWindow)
	duplicate, err := s.repo.HasRecentDuplicate(ctx, req.UserID, req.CustomerName, req.Total, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check duplicates")
	}
	if duplicate {
		return nil, appErrors.Clone(appErrors.ErrDuplicateRequest, "an identical invoice was just created, wait a moment")
	}

	itemsJSON, err := json.Marshal(req.Items)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode items")
	}

	invoice := &models.Invoice{
		CustomerName: req.CustomerName,
		Type:         req.Type,
		ItemsJSON:    string(itemsJSON),
		Items:        req.Items,
		Subtotal:     req.Subtotal,
		SGST:         req.SGST,
		CGST:         req.CGST,
		Discount:     req.Discount,
		Total:        req.Total,
		PaidAmount:   req.PaidAmount,
		DueDate:      req.DueDate,
		Status:       paymentStatus(req.PaidAmount, req.Total),
		UserID:       req.UserID,
	}

	if err := s.repo.CreateWithUser(ctx, invoice, s.config.NumberPrefix, s.config.ImportedPrefix, s.config.NumberPadding); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create invoice")
	}

	s.logger.Info("invoice created",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Float64("total", invoice.Total))
	return invoice, nil
}

// Get returns one invoice with its items decoded.
func (s *InvoiceService) Get(ctx context.Context, id string) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	decodeItems(invoice, s.logger)
	return invoice, nil
}

// List returns all invoices with linked user info.
func (s *InvoiceService) List(ctx context.Context) ([]models.InvoiceRecord, error) {
	records, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
	}
	for i := range records {
		decodeItems(&records[i].Invoice, s.logger)
	}
	return records, nil
}

// ListByUser returns the invoices linked to one user.
func (s *InvoiceService) ListByUser(ctx context.Context, userID string) ([]models.Invoice, error) {
	invoices, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
	}
	for i := range invoices {
		decodeItems(&invoices[i], s.logger)
	}
	return invoices, nil
}

// RecordPayment applies a payment and recomputes the invoice status. A
// linked user's ledger moves in the same transaction.
func (s *InvoiceService) RecordPayment(ctx context.Context, id string, req models.RecordPaymentRequest) (*models.Invoice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	newPaid := invoice.PaidAmount + req.Amount
	if newPaid > invoice.Total {
		return nil, appErrors.Clone(appErrors.ErrValidation, "payment exceeds invoice total")
	}
	status := paymentStatus(newPaid, invoice.Total)

	if err := s.repo.RecordPayment(ctx, id, req.Amount, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment")
	}
	invoice.PaidAmount = newPaid
	invoice.Status = status
	return invoice, nil
}

// Delete removes an invoice, reversing its contribution to a linked user's
// ledger.
func (s *InvoiceService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete invoice")
	}
	return nil
}

// Email renders the invoice PDF and hands it to the relay. Relay failure is
// logged but does not fail the request.
func (s *InvoiceService) Email(ctx context.Context, req models.EmailInvoiceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid email payload")
	}

	invoice, err := s.Get(ctx, req.InvoiceID)
	if err != nil {
		return err
	}

	pdf, err := s.renderPDF(invoice)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render invoice")
	}

	msg := mail.Message{
		To:       []string{req.To},
		Subject:  fmt.Sprintf("Invoice %s", invoice.InvoiceNumber),
		TextBody: fmt.Sprintf("Please find attached invoice %s for %s.", invoice.InvoiceNumber, invoice.CustomerName),
		Attachments: []mail.Attachment{{
			Filename:    fmt.Sprintf("%s.pdf", invoice.InvoiceNumber),
			ContentType: "application/pdf",
			Content:     pdf,
		}},
	}
	if err := s.relay.Send(ctx, msg); err != nil {
		s.logger.Warn("invoice email failed",
			zap.String("invoice_number", invoice.InvoiceNumber),
			zap.String("to", req.To),
			zap.Error(err))
	}
	return nil
}

// PDF renders the invoice document for download.
func (s *InvoiceService) PDF(ctx context.Context, id string) ([]byte, string, error) {
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	pdf, err := s.renderPDF(invoice)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render invoice")
	}
	return pdf, fmt.Sprintf("%s.pdf", invoice.InvoiceNumber), nil
}

func (s *InvoiceService) renderPDF(invoice *models.Invoice) ([]byte, error) {
	rows := make([]export.InvoiceItemRow, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		rows = append(rows, export.InvoiceItemRow{
			Description: item.Description,
			Quantity:    item.Quantity,
			Rate:        item.Rate,
			Amount:      item.Amount,
		})
	}
	return s.renderer.Invoice(export.InvoiceData{
		Number:       invoice.InvoiceNumber,
		CustomerName: invoice.CustomerName,
		Items:        rows,
		Subtotal:     invoice.Subtotal,
		SGST:         invoice.SGST,
		CGST:         invoice.CGST,
		Discount:     invoice.Discount,
		Total:        invoice.Total,
		PaidAmount:   invoice.PaidAmount,
		DueDate:      invoice.DueDate,
		IssuedOn:     invoice.CreatedAt,
	})
}

func paymentStatus(paid, total float64) models.InvoiceStatus {
	switch {
	case paid >= total && total > 0:
		return models.InvoicePaid
	case paid > 0:
		return models.InvoicePartial
	default:
		return models.InvoicePending
	}
}

func decodeItems(invoice *models.Invoice, logger *zap.Logger) {
	if invoice.ItemsJSON == "" {
		return
	}
	if err := json.Unmarshal([]byte(invoice.ItemsJSON), &invoice.Items); err != nil {
		logger.Warn("malformed invoice items", zap.String("invoice_id", invoice.ID), zap.Error(err))
	}
}
