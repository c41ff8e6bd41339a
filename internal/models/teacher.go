package models

import "time"

// TeacherRole enumerates authorization levels.
type TeacherRole string

const (
	RoleAdmin   TeacherRole = "admin"
	RoleTeacher TeacherRole = "teacher"
	RoleViewer  TeacherRole = "viewer"
)

// TeacherStatus enumerates the approval workflow states.
type TeacherStatus string

const (
	TeacherPending   TeacherStatus = "pending"
	TeacherApproved  TeacherStatus = "approved"
	TeacherRejected  TeacherStatus = "rejected"
	TeacherSuspended TeacherStatus = "suspended"
)

// Teacher is one staff record, keyed by case-insensitive email.
type Teacher struct {
	Email        string        `json:"email"`
	Name         string        `json:"name"`
	PasswordHash string        `json:"-"`
	Role         TeacherRole   `json:"role"`
	Status       TeacherStatus `json:"status"`
	RegisteredAt time.Time     `json:"registeredAt"`
	ApprovedAt   *time.Time    `json:"approvedAt,omitempty"`
	LastAccessAt *time.Time    `json:"lastAccessAt,omitempty"`

	RowIndex int `json:"-"`
}

// RegisterTeacherRequest self-registers a teacher account.
type RegisterTeacherRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,min=1,max=30"`
	Password string `json:"password" validate:"required,min=8"`
}

// TeacherPINLoginRequest authenticates against the shared classroom PIN.
type TeacherPINLoginRequest struct {
	PIN string `json:"pin" validate:"required,len=6,numeric"`
}

// TeacherCredentialsLoginRequest authenticates by email and password.
type TeacherCredentialsLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// FederatedLoginRequest carries the externally-asserted identity token.
type FederatedLoginRequest struct {
	IdentityToken string `json:"identityToken" validate:"required"`
}

// UpdateTeacherRoleRequest changes a teacher's role (admin only).
type UpdateTeacherRoleRequest struct {
	Role TeacherRole `json:"role" validate:"required,oneof=admin teacher viewer"`
}
