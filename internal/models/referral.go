package models

import "time"

// ReferralType distinguishes enrollment leads from project referrals.
type ReferralType string

const (
	ReferralEnrollment ReferralType = "ENROLLMENT"
	ReferralProject    ReferralType = "PROJECT"
)

// Valid returns true when the type is a supported value.
func (t ReferralType) Valid() bool {
	return t == ReferralEnrollment || t == ReferralProject
}

// ReferralStatus tracks the payout workflow.
type ReferralStatus string

const (
	ReferralPending  ReferralStatus = "PENDING"
	ReferralApproved ReferralStatus = "APPROVED"
	ReferralRejected ReferralStatus = "REJECTED"
)

// Valid returns true when the status is a supported value.
func (s ReferralStatus) Valid() bool {
	switch s {
	case ReferralPending, ReferralApproved, ReferralRejected:
		return true
	default:
		return false
	}
}

// Referral tracks a referral and its payout. Description encodes the lead as
// "name|mobile" for enrollment referrals.
type Referral struct {
	ID          string         `db:"id" json:"id"`
	ReferrerID  string         `db:"referrer_id" json:"referrer_id"`
	Type        ReferralType   `db:"type" json:"type"`
	Status      ReferralStatus `db:"status" json:"status"`
	Amount      float64        `db:"amount" json:"amount"`
	Description string         `db:"description" json:"description"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// ReferralRecord extends the row with referrer metadata for admin views.
type ReferralRecord struct {
	Referral
	ReferrerName   string `db:"referrer_name" json:"referrer_name"`
	ReferrerMobile string `db:"referrer_mobile" json:"referrer_mobile"`
}

// ReferralStats summarises a referrer's history.
type ReferralStats struct {
	Total       int     `json:"total"`
	Pending     int     `json:"pending"`
	Approved    int     `json:"approved"`
	Rejected    int     `json:"rejected"`
	TotalEarned float64 `json:"total_earned"`
}

// SubmitLeadRequest records an enrollment lead referral.
type SubmitLeadRequest struct {
	StudentName   string `json:"student_name" validate:"required"`
	StudentMobile string `json:"student_mobile" validate:"required,min=10"`
}

// SubmitProjectReferralRequest records a project referral.
type SubmitProjectReferralRequest struct {
	Description string `json:"description" validate:"required"`
}

// UpdateReferralStatusRequest approves or rejects a pending referral. The
// admin may override the payout amount on approval.
type UpdateReferralStatusRequest struct {
	Status ReferralStatus `json:"status" validate:"required"`
	Amount *float64       `json:"amount,omitempty"`
}
