package models

import "time"

// LeaveType enumerates the leave buckets.
type LeaveType string

const (
	LeaveCasual     LeaveType = "CL"
	LeaveSick       LeaveType = "SL"
	LeavePaid       LeaveType = "PL"
	LeaveWithoutPay LeaveType = "LWP"
)

// Valid returns true when the type is a supported value.
func (t LeaveType) Valid() bool {
	switch t {
	case LeaveCasual, LeaveSick, LeavePaid, LeaveWithoutPay:
		return true
	default:
		return false
	}
}

// LeaveStatus tracks the approval workflow for a request.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "PENDING"
	LeaveApproved LeaveStatus = "APPROVED"
	LeaveRejected LeaveStatus = "REJECTED"
)

// Valid returns true when the status is a supported value.
func (s LeaveStatus) Valid() bool {
	switch s {
	case LeavePending, LeaveApproved, LeaveRejected:
		return true
	default:
		return false
	}
}

// Leave is a single leave request. Dates are "YYYY-MM-DD" buckets.
type Leave struct {
	ID        string      `db:"id" json:"id"`
	UserID    string      `db:"user_id" json:"user_id"`
	StartDate string      `db:"start_date" json:"start_date"`
	EndDate   string      `db:"end_date" json:"end_date"`
	Type      LeaveType   `db:"type" json:"type"`
	Reason    string      `db:"reason" json:"reason"`
	IsHalfDay bool        `db:"is_half_day" json:"is_half_day"`
	Status    LeaveStatus `db:"status" json:"status"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt time.Time   `db:"updated_at" json:"updated_at"`
}

// LeaveRecord extends the row with user metadata for admin views.
type LeaveRecord struct {
	Leave
	UserName   string   `db:"user_name" json:"user_name"`
	UserRole   UserRole `db:"user_role" json:"user_role"`
	UserMobile string   `db:"user_mobile" json:"user_mobile"`
}

// LeaveBalanceRow is the per-user per-year stored PL ledger.
type LeaveBalanceRow struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Year      int       `db:"year" json:"year"`
	PL        float64   `db:"pl" json:"pl"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// LeaveBalance is the derived balance returned to clients. CL and SL accrue
// monthly and are reduced by approved leaves; PL draws on the stored ledger.
type LeaveBalance struct {
	UserID      string      `json:"user_id"`
	Year        int         `json:"year"`
	CL          float64     `json:"cl"`
	SL          float64     `json:"sl"`
	PL          float64     `json:"pl"`
	AccruedInfo AccruedInfo `json:"accrued_info"`
}

// AccruedInfo exposes the accrual arithmetic behind a balance.
type AccruedInfo struct {
	Months          int     `json:"months"`
	TotalAccruedCL  float64 `json:"total_accrued_cl"`
	TotalAccruedSL  float64 `json:"total_accrued_sl"`
}

// ApplyLeaveRequest creates a new leave request.
type ApplyLeaveRequest struct {
	UserID    string    `json:"user_id" validate:"required"`
	StartDate string    `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string    `json:"end_date" validate:"required,datetime=2006-01-02"`
	Type      LeaveType `json:"type"`
	Reason    string    `json:"reason" validate:"required"`
	IsHalfDay bool      `json:"is_half_day"`
}

// UpdateLeaveStatusRequest transitions a request through the workflow.
type UpdateLeaveStatusRequest struct {
	ID     string      `json:"id" validate:"required"`
	Status LeaveStatus `json:"status" validate:"required"`
}
