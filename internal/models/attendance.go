package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendancePending AttendanceStatus = "PENDING"
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePending, AttendancePresent, AttendanceLate, AttendanceAbsent:
		return true
	default:
		return false
	}
}

// Attendance is one row per user per calendar day. Date is a "YYYY-MM-DD"
// bucket; login/logout carry the precise timestamps.
type Attendance struct {
	ID         string           `db:"id" json:"id"`
	UserID     string           `db:"user_id" json:"user_id"`
	Date       string           `db:"date" json:"date"`
	LoginTime  time.Time        `db:"login_time" json:"login_time"`
	LogoutTime *time.Time       `db:"logout_time" json:"logout_time,omitempty"`
	Status     AttendanceStatus `db:"status" json:"status"`
	Remarks    string           `db:"remarks" json:"remarks"`
	CreatedAt  time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceRecord extends the row with user metadata for admin views.
type AttendanceRecord struct {
	Attendance
	UserName string   `db:"user_name" json:"user_name"`
	UserRole UserRole `db:"user_role" json:"user_role"`
}

// CheckInRequest starts the working day for a user.
type CheckInRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// CheckOutRequest closes the working day for a user.
type CheckOutRequest struct {
	UserID string `json:"user_id" validate:"required"`
}
