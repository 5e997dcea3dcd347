package models

import "time"

// InvoiceStatus reflects how much of the total has been paid.
type InvoiceStatus string

const (
	InvoicePaid    InvoiceStatus = "PAID"
	InvoicePartial InvoiceStatus = "PARTIAL"
	InvoicePending InvoiceStatus = "PENDING"
)

// InvoiceItem is one billed line. Items are persisted as a JSON array in a
// text column and decoded on read.
type InvoiceItem struct {
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

// Invoice represents a billing document. Numbers follow "INV-NNNN"; imported
// records use the "INV-IMP" prefix and never participate in sequencing.
type Invoice struct {
	ID            string        `db:"id" json:"id"`
	InvoiceNumber string        `db:"invoice_number" json:"invoice_number"`
	CustomerName  string        `db:"customer_name" json:"customer_name"`
	Type          string        `db:"type" json:"type"`
	ItemsJSON     string        `db:"items" json:"-"`
	Items         []InvoiceItem `db:"-" json:"items"`
	Subtotal      float64       `db:"subtotal" json:"subtotal"`
	SGST          float64       `db:"sgst" json:"sgst"`
	CGST          float64       `db:"cgst" json:"cgst"`
	Discount      float64       `db:"discount" json:"discount"`
	Total         float64       `db:"total" json:"total"`
	PaidAmount    float64       `db:"paid_amount" json:"paid_amount"`
	DueDate       string        `db:"due_date" json:"due_date"`
	Status        InvoiceStatus `db:"status" json:"status"`
	UserID        *string       `db:"user_id" json:"user_id,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// InvoiceRecord extends the invoice with customer user metadata.
type InvoiceRecord struct {
	Invoice
	UserName   *string `db:"user_name" json:"user_name,omitempty"`
	UserMobile *string `db:"user_mobile" json:"user_mobile,omitempty"`
}

// CreateInvoiceRequest is the invoice creation payload.
type CreateInvoiceRequest struct {
	CustomerName string        `json:"customer_name" validate:"required"`
	Type         string        `json:"type"`
	Items        []InvoiceItem `json:"items"`
	Subtotal     float64       `json:"subtotal" validate:"gte=0"`
	SGST         float64       `json:"sgst" validate:"gte=0"`
	CGST         float64       `json:"cgst" validate:"gte=0"`
	Discount     float64       `json:"discount" validate:"gte=0"`
	Total        float64       `json:"total" validate:"gte=0"`
	PaidAmount   float64       `json:"paid_amount" validate:"gte=0"`
	DueDate      string        `json:"due_date"`
	UserID       *string       `json:"user_id,omitempty"`
}

// RecordPaymentRequest applies an additional payment to an invoice.
type RecordPaymentRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// EmailInvoiceRequest asks for an invoice PDF to be relayed.
type EmailInvoiceRequest struct {
	InvoiceID string `json:"invoice_id" validate:"required"`
	To        string `json:"to" validate:"required,email"`
}
