package models

import "time"

// StudentStatus enumerates the lifecycle states of a student account.
type StudentStatus string

const (
	StudentPending  StudentStatus = "pending"
	StudentActive   StudentStatus = "active"
	StudentInactive StudentStatus = "inactive"
)

// Student is one roster record. Identity key is (Name, Number); Token is a
// second unique key used for scan-free QR login.
type Student struct {
	Name         string        `json:"name"`
	Number       int           `json:"number"`
	PINHash      string        `json:"-"`
	Token        string        `json:"token,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	LastAccessAt *time.Time    `json:"lastAccessAt,omitempty"`
	Status       StudentStatus `json:"status"`

	// RowIndex is the 1-based position in the backing collection at the time
	// the record was read. Valid only within the request that loaded it.
	RowIndex int `json:"-"`
}

// HasPIN reports whether a PIN has been set.
func (s *Student) HasPIN() bool {
	return s.PINHash != ""
}

// RegisterStudentRequest creates a single student.
type RegisterStudentRequest struct {
	Name   string `json:"name" validate:"required,min=1,max=20"`
	Number int    `json:"number" validate:"required,min=1,max=100"`
	PIN    string `json:"pin" validate:"omitempty,len=6,numeric"`
}

// StudentLoginRequest authenticates a student by PIN.
type StudentLoginRequest struct {
	Name   string `json:"name" validate:"required"`
	Number int    `json:"number" validate:"required,min=1,max=100"`
	PIN    string `json:"pin" validate:"required,len=6,numeric"`
}

// SetPINRequest performs the first-time PIN setup for a pending student.
type SetPINRequest struct {
	Name   string `json:"name" validate:"required"`
	Number int    `json:"number" validate:"required,min=1,max=100"`
	PIN    string `json:"pin" validate:"required,len=6,numeric"`
}

// StudentIdentity is the authenticated view returned by login flows.
type StudentIdentity struct {
	Name   string `json:"name"`
	Number int    `json:"number"`
	Token  string `json:"token"`
}
