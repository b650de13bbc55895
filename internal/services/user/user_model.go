package user

import (
	"time"

	"github.com/curaious/oneflow/internal/rbac"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

type User struct {
	ID                    string     `db:"id" json:"id"`
	Name                  string     `db:"name" json:"name"`
	Email                 string     `db:"email" json:"email"`
	PasswordHash          string     `db:"password_hash" json:"-"`
	Role                  rbac.Role  `db:"role" json:"role"`
	Status                Status     `db:"status" json:"status"`
	EmailVerified         bool       `db:"email_verified" json:"email_verified"`
	VerificationCode      *string    `db:"verification_code" json:"-"`
	VerificationExpiresAt *time.Time `db:"verification_expires_at" json:"-"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the account may hold sessions.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUserRequest is used by administrators; such accounts skip email verification.
type CreateUserRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     rbac.Role `json:"role"`
}

type UpdateRoleRequest struct {
	Role rbac.Role `json:"role"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

type VerifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type ResendVerificationRequest struct {
	Email string `json:"email"`
}
