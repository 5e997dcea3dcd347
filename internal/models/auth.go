package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Mobile    string   `json:"mobile" validate:"required"`
	Password  string   `json:"password" validate:"required"`
	Role      UserRole `json:"role" validate:"required"`
	IP        string   `json:"-"`
	UserAgent string   `json:"-"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	Status      string    `json:"status"` // SUCCESS or PENDING_SETUP
	AccessToken string    `json:"access_token,omitempty"`
	ExpiresIn   int64     `json:"expires_in,omitempty"`
	User        *UserInfo `json:"user,omitempty"`
	IssuedAt    time.Time `json:"issued_at"`
}

// FaceLoginRequest carries the probe descriptor for biometric login.
type FaceLoginRequest struct {
	FaceDescriptor []float64 `json:"face_descriptor" validate:"required,min=1"`
	IP             string    `json:"-"`
	UserAgent      string    `json:"-"`
}

// RegisterRequest is the self-registration payload. Accounts land in
// PENDING status until approved by an admin.
type RegisterRequest struct {
	Name     string   `json:"name" validate:"required"`
	Mobile   string   `json:"mobile" validate:"required,min=10"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Password string   `json:"password" validate:"required,min=6"`
	Role     UserRole `json:"role" validate:"required"`
}

// SetPasswordRequest completes the first-time login flow.
type SetPasswordRequest struct {
	Mobile   string `json:"mobile" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Mobile string     `json:"mobile"`
	Role   UserRole   `json:"role"`
	Status UserStatus `json:"status"`
}

// Session tracks an issued login session.
type Session struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Token     string    `db:"token" json:"token"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Revoked   bool      `db:"revoked" json:"revoked"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Name   string   `json:"name"`
	jwt.RegisteredClaims
}
