package models

import "time"

// Purchase is one expense line in the finance ledger.
type Purchase struct {
	ID          string    `db:"id" json:"id"`
	Amount      float64   `db:"amount" json:"amount"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	Date        time.Time `db:"date" json:"date"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// CreatePurchaseRequest records an expense. Date defaults to today.
type CreatePurchaseRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
}
