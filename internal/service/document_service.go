package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/export"
	"github.com/tejaskp/portal-api/pkg/mail"
	"github.com/tejaskp/portal-api/pkg/storage"
)

type documentRepository interface {
	Create(ctx context.Context, document *models.Document) error
	UpdateFilePath(ctx context.Context, id, filePath string) error
	FindByID(ctx context.Context, id string) (*models.Document, error)
	ListByUser(ctx context.Context, userID string, docType *models.DocumentType) ([]models.Document, error)
	Delete(ctx context.Context, id string) error
}

type documentUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// DocumentService generates letter-style PDFs, stores them on disk and hands
// out signed download links. Documents can also be relayed by email.
type DocumentService struct {
	repo      documentRepository
	users     documentUserRepository
	renderer  *export.DocumentRenderer
	storage   *storage.LocalStorage
	signer    *storage.SignedURLSigner
	relay     mail.Relay
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(
	repo documentRepository,
	users documentUserRepository,
	renderer *export.DocumentRenderer,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	relay mail.Relay,
	validate *validator.Validate,
	logger *zap.Logger,
) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DocumentService{
		repo:      repo,
		users:     users,
		renderer:  renderer,
		storage:   store,
		signer:    signer,
		relay:     relay,
		validator: validate,
		logger:    logger,
	}
}

// GenerateCertificate issues a course completion certificate for a student.
func (s *DocumentService) GenerateCertificate(ctx context.Context, req models.GenerateCertificateRequest) (*models.DocumentLink, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid certificate payload")
	}
	user, err := s.loadUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	from, _ := time.Parse("2006-01-02", req.FromDate)
	to, _ := time.Parse("2006-01-02", req.ToDate)
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to_date must not be before from_date")
	}

	pdf, err := s.renderer.Certificate(export.CertificateData{
		StudentName: user.Name,
		Course:      stringOrDefault(user.Course, "the enrolled program"),
		FromDate:    from,
		ToDate:      to,
		IssuedOn:    time.Now(),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render certificate")
	}
	return s.store(ctx, user.ID, models.DocumentCertificate, nil, pdf)
}

// GenerateJoiningLetter issues a joining letter for an employee.
func (s *DocumentService) GenerateJoiningLetter(ctx context.Context, req models.GenerateJoiningLetterRequest) (*models.DocumentLink, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid joining letter payload")
	}
	user, err := s.loadUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	joining := time.Now()
	if user.JoiningDate != nil {
		joining = *user.JoiningDate
	}
	pdf, err := s.renderer.JoiningLetter(export.JoiningLetterData{
		EmployeeName: user.Name,
		Designation:  stringOrDefault(user.Designation, "Staff"),
		JoiningDate:  joining,
		Salary:       req.Salary,
		IssuedOn:     time.Now(),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render joining letter")
	}
	return s.store(ctx, user.ID, models.DocumentJoiningLetter, nil, pdf)
}

// GenerateSalarySlip issues one monthly slip for an employee.
func (s *DocumentService) GenerateSalarySlip(ctx context.Context, req models.GenerateSalarySlipRequest) (*models.DocumentLink, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid salary slip payload")
	}
	user, err := s.loadUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	pdf, err := s.renderer.SalarySlip(export.SalarySlipData{
		EmployeeName: user.Name,
		Designation:  stringOrDefault(user.Designation, "Staff"),
		Month:        req.Month,
		Basic:        req.Basic,
		Allowances:   req.Allowances,
		Deductions:   req.Deductions,
		IssuedOn:     time.Now(),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render salary slip")
	}
	month := req.Month
	return s.store(ctx, user.ID, models.DocumentSalarySlip, &month, pdf)
}

// GenerateNOC issues a no objection certificate.
func (s *DocumentService) GenerateNOC(ctx context.Context, req models.GenerateNOCRequest) (*models.DocumentLink, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid noc payload")
	}
	user, err := s.loadUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	pdf, err := s.renderer.NOC(export.NOCData{
		StudentName: user.Name,
		Course:      stringOrDefault(user.Course, "the enrolled program"),
		Purpose:     req.Purpose,
		IssuedOn:    time.Now(),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render noc")
	}
	return s.store(ctx, user.ID, models.DocumentNOC, nil, pdf)
}

// ListByUser returns a user's documents with fresh signed links.
func (s *DocumentService) ListByUser(ctx context.Context, userID string, docType *models.DocumentType) ([]models.DocumentLink, error) {
	documents, err := s.repo.ListByUser(ctx, userID, docType)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	links := make([]models.DocumentLink, 0, len(documents))
	for _, doc := range documents {
		link, err := s.link(doc)
		if err != nil {
			s.logger.Warn("failed to sign document link", zap.String("document_id", doc.ID), zap.Error(err))
			continue
		}
		links = append(links, *link)
	}
	return links, nil
}

// Download validates a signed token and returns the document bytes. The
// requester must own the document unless admin is set.
func (s *DocumentService) Download(ctx context.Context, token, requesterID string, admin bool) ([]byte, string, error) {
	docID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
	}

	document, err := s.repo.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if !admin && document.UserID != requesterID {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "document belongs to another user")
	}
	if document.FilePath != relPath {
		return nil, "", appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
	}

	file, err := s.storage.Open(document.FilePath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
	}
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read document")
	}
	return data, downloadName(document), nil
}

// Email relays a stored document as a PDF attachment.
func (s *DocumentService) Email(ctx context.Context, req models.EmailDocumentRequest, requesterID string, admin bool) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid email payload")
	}
	if s.relay == nil {
		return appErrors.Clone(appErrors.ErrInternal, "mail relay not configured")
	}

	document, err := s.repo.FindByID(ctx, req.DocumentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if !admin && document.UserID != requesterID {
		return appErrors.Clone(appErrors.ErrForbidden, "document belongs to another user")
	}

	file, err := s.storage.Open(document.FilePath)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document")
	}
	defer file.Close() //nolint:errcheck
	data, err := io.ReadAll(file)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read document")
	}

	msg := mail.Message{
		To:       []string{req.To},
		Subject:  subjectFor(document.Type),
		TextBody: "Please find the requested document attached.",
		Attachments: []mail.Attachment{{
			Filename:    downloadName(document),
			ContentType: "application/pdf",
			Content:     data,
		}},
	}
	if err := s.relay.Send(ctx, msg); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send document")
	}
	return nil
}

// Delete removes a stored document and its file.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	document, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}
	if err := s.storage.Delete(document.FilePath); err != nil {
		s.logger.Warn("failed to remove document file", zap.String("path", document.FilePath), zap.Error(err))
	}
	return nil
}

func (s *DocumentService) loadUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

func (s *DocumentService) store(ctx context.Context, userID string, docType models.DocumentType, month *string, pdf []byte) (*models.DocumentLink, error) {
	document := &models.Document{
		UserID: userID,
		Type:   docType,
		Month:  month,
	}
	if err := s.repo.Create(ctx, document); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record document")
	}

	relPath := fmt.Sprintf("%s/%s/%s.pdf", strings.ToLower(string(docType)), userID, document.ID)
	if _, err := s.storage.Save(relPath, pdf); err != nil {
		if delErr := s.repo.Delete(ctx, document.ID); delErr != nil {
			s.logger.Warn("failed to roll back document record", zap.String("document_id", document.ID), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document")
	}
	document.FilePath = relPath
	if err := s.repo.UpdateFilePath(ctx, document.ID, relPath); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record document path")
	}
	return s.link(*document)
}

func (s *DocumentService) link(document models.Document) (*models.DocumentLink, error) {
	token, expiresAt, err := s.signer.Generate(document.ID, document.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign document link")
	}
	return &models.DocumentLink{Document: document, Token: token, ExpiresAt: expiresAt}, nil
}

func downloadName(document *models.Document) string {
	name := strings.ToLower(string(document.Type))
	if document.Month != nil {
		name = name + "-" + *document.Month
	}
	return name + ".pdf"
}

func subjectFor(docType models.DocumentType) string {
	switch docType {
	case models.DocumentCertificate:
		return "Your Completion Certificate"
	case models.DocumentJoiningLetter:
		return "Your Joining Letter"
	case models.DocumentSalarySlip:
		return "Your Salary Slip"
	case models.DocumentNOC:
		return "Your No Objection Certificate"
	default:
		return "Your Document"
	}
}

func stringOrDefault(ptr *string, fallback string) string {
	if ptr != nil && *ptr != "" {
		return *ptr
	}
	return fallback
}
