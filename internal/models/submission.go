package models

import "time"

// SubmissionStatus tracks a weekly document submission through review.
type SubmissionStatus string

const (
	SubmissionSubmitted    SubmissionStatus = "SUBMITTED"
	SubmissionLate         SubmissionStatus = "LATE"
	SubmissionPending      SubmissionStatus = "PENDING"
	SubmissionApproved     SubmissionStatus = "APPROVED"
	SubmissionRejected     SubmissionStatus = "REJECTED"
	SubmissionNotSubmitted SubmissionStatus = "NOT_SUBMITTED"
)

// Valid reports whether the status may be stored on a submission row.
// NOT_SUBMITTED is a report-only placeholder and is excluded.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionSubmitted, SubmissionLate, SubmissionPending,
		SubmissionApproved, SubmissionRejected:
		return true
	}
	return false
}

// Submission is one weekly report upload: a PDF report plus an Excel sheet,
// keyed to the Monday of the week it covers.
type Submission struct {
	ID            string           `db:"id" json:"id"`
	UserID        string           `db:"user_id" json:"user_id"`
	WeekStartDate string           `db:"week_start_date" json:"week_start_date"`
	PDFPath       string           `db:"pdf_path" json:"pdf_path"`
	ExcelPath     string           `db:"excel_path" json:"excel_path"`
	Status        SubmissionStatus `db:"status" json:"status"`
	SubmittedAt   time.Time        `db:"submitted_at" json:"submitted_at"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}

// SubmissionReportRow is one student's line in the weekly admin report. A
// student with no upload for the week shows NOT_SUBMITTED.
type SubmissionReportRow struct {
	UserID       string           `json:"user_id"`
	SubmissionID *string          `json:"submission_id,omitempty"`
	Name         string           `json:"name"`
	Mobile       string           `json:"mobile"`
	Course       *string          `json:"course,omitempty"`
	Status       SubmissionStatus `json:"status"`
	PDFPath      *string          `json:"pdf_path,omitempty"`
	ExcelPath    *string          `json:"excel_path,omitempty"`
	SubmittedAt  *time.Time       `json:"submitted_at,omitempty"`
	HistoryCount int              `json:"history_count"`
}

// UpdateSubmissionStatusRequest moves a submission through review.
type UpdateSubmissionStatusRequest struct {
	Status SubmissionStatus `json:"status" validate:"required"`
}

// SubmissionReminderRequest asks for a reminder to one student.
type SubmissionReminderRequest struct {
	UserID string `json:"user_id" validate:"required"`
}
