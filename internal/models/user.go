package models

import "time"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleStudent  UserRole = "STUDENT"
	RoleEmployee UserRole = "EMPLOYEE"
	RoleClient   UserRole = "CLIENT"
)

// Valid returns true when the role is a supported value.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleStudent, RoleEmployee, RoleClient:
		return true
	default:
		return false
	}
}

// UserStatus represents the account lifecycle state.
type UserStatus string

const (
	StatusPending UserStatus = "PENDING"
	StatusActive  UserStatus = "ACTIVE"
	StatusBlocked UserStatus = "BLOCKED"
)

// Valid returns true when the status is a supported value.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusBlocked:
		return true
	default:
		return false
	}
}

// User represents an application user stored in the users table.
// PendingAmount is always recomputed as TotalFees - PaidAmount on financial
// writes; the store does not enforce it.
type User struct {
	ID             string     `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Mobile         string     `db:"mobile" json:"mobile"`
	Email          *string    `db:"email" json:"email,omitempty"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	Role           UserRole   `db:"role" json:"role"`
	Status         UserStatus `db:"status" json:"status"`
	Course         *string    `db:"course" json:"course,omitempty"`
	Designation    *string    `db:"designation" json:"designation,omitempty"`
	JoiningDate    *time.Time `db:"joining_date" json:"joining_date,omitempty"`
	TotalFees      float64    `db:"total_fees" json:"total_fees"`
	PaidAmount     float64    `db:"paid_amount" json:"paid_amount"`
	PendingAmount  float64    `db:"pending_amount" json:"pending_amount"`
	WalletBalance  float64    `db:"wallet_balance" json:"wallet_balance"`
	FaceDescriptor *string    `db:"face_descriptor" json:"-"`
	FaceFailures   int        `db:"face_failures" json:"-"`
	LockoutUntil   *time.Time `db:"lockout_until" json:"lockout_until,omitempty"`
	LastLogin      *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// HasFace reports whether a biometric descriptor is enrolled.
func (u *User) HasFace() bool {
	return u.FaceDescriptor != nil && *u.FaceDescriptor != ""
}

// LockedOut reports whether the account is under a biometric lockout.
func (u *User) LockedOut(now time.Time) bool {
	return u.LockoutUntil != nil && u.LockoutUntil.After(now)
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role      *UserRole
	Status    *UserStatus
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CreateUserRequest is the admin payload for provisioning a user directly
// in ACTIVE status.
type CreateUserRequest struct {
	Name        string   `json:"name" validate:"required"`
	Mobile      string   `json:"mobile" validate:"required,min=10"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Password    string   `json:"password" validate:"omitempty,min=6"`
	Role        UserRole `json:"role" validate:"required"`
	Course      string   `json:"course"`
	Designation string   `json:"designation"`
	JoiningDate string   `json:"joining_date" validate:"omitempty,datetime=2006-01-02"`
	TotalFees   float64  `json:"total_fees" validate:"gte=0"`
	PaidAmount  float64  `json:"paid_amount" validate:"gte=0"`
}

// UpdateUserRequest is the admin payload for editing profile and fee fields.
// Nil fields are left untouched.
type UpdateUserRequest struct {
	Name        *string  `json:"name,omitempty"`
	Mobile      *string  `json:"mobile,omitempty" validate:"omitempty,min=10"`
	Email       *string  `json:"email,omitempty" validate:"omitempty,email"`
	Role        *UserRole `json:"role,omitempty"`
	Course      *string  `json:"course,omitempty"`
	Designation *string  `json:"designation,omitempty"`
	JoiningDate *string  `json:"joining_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TotalFees   *float64 `json:"total_fees,omitempty" validate:"omitempty,gte=0"`
	PaidAmount  *float64 `json:"paid_amount,omitempty" validate:"omitempty,gte=0"`
}

// UpdateUserStatusRequest transitions an account between lifecycle states.
type UpdateUserStatusRequest struct {
	Status UserStatus `json:"status" validate:"required"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// PendingDue is one row of the pending dues report.
type PendingDue struct {
	ID            string  `db:"id" json:"id"`
	Name          string  `db:"name" json:"name"`
	Mobile        string  `db:"mobile" json:"mobile"`
	Course        *string `db:"course" json:"course,omitempty"`
	TotalFees     float64 `db:"total_fees" json:"total_fees"`
	PaidAmount    float64 `db:"paid_amount" json:"paid_amount"`
	PendingAmount float64 `db:"pending_amount" json:"pending_amount"`
}
