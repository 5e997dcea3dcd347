package models

import "time"

// DocumentType enumerates the generated documents.
type DocumentType string

const (
	DocumentCertificate   DocumentType = "CERTIFICATE"
	DocumentJoiningLetter DocumentType = "JOINING_LETTER"
	DocumentSalarySlip    DocumentType = "SALARY_SLIP"
	DocumentNOC           DocumentType = "NOC"
)

// Document records a generated PDF stored on disk.
type Document struct {
	ID        string       `db:"id" json:"id"`
	UserID    string       `db:"user_id" json:"user_id"`
	Type      DocumentType `db:"type" json:"type"`
	FilePath  string       `db:"file_path" json:"-"`
	Month     *string      `db:"month" json:"month,omitempty"` // salary slips only
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}

// GenerateCertificateRequest issues a course completion certificate.
type GenerateCertificateRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	FromDate string `json:"from_date" validate:"required,datetime=2006-01-02"`
	ToDate   string `json:"to_date" validate:"required,datetime=2006-01-02"`
}

// GenerateJoiningLetterRequest issues an employee joining letter.
type GenerateJoiningLetterRequest struct {
	UserID string  `json:"user_id" validate:"required"`
	Salary float64 `json:"salary" validate:"required,gt=0"`
}

// GenerateSalarySlipRequest issues one monthly salary slip.
type GenerateSalarySlipRequest struct {
	UserID     string  `json:"user_id" validate:"required"`
	Month      string  `json:"month" validate:"required,datetime=2006-01"`
	Basic      float64 `json:"basic" validate:"required,gt=0"`
	Allowances float64 `json:"allowances" validate:"gte=0"`
	Deductions float64 `json:"deductions" validate:"gte=0"`
}

// GenerateNOCRequest issues a no objection certificate.
type GenerateNOCRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	Purpose string `json:"purpose" validate:"required"`
}

// EmailDocumentRequest relays a stored document as an attachment.
type EmailDocumentRequest struct {
	DocumentID string `json:"document_id" validate:"required"`
	To         string `json:"to" validate:"required,email"`
}

// DocumentLink is a signed download reference for a stored document.
type DocumentLink struct {
	Document
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
