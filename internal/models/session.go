package models

import "time"

// TeacherSession is the server-side record backing a bearer session token.
// It is serialized as a single settings value; a new login overwrites any
// prior session.
type TeacherSession struct {
	Token     string    `json:"token"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *TeacherSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// AuthContext describes the authenticated caller of a teacher-only route.
type AuthContext struct {
	Email string      `json:"email,omitempty"`
	Role  TeacherRole `json:"role"`
	Via   string      `json:"via"`
}

// Authentication methods recorded in AuthContext.Via.
const (
	AuthViaPIN       = "pin"
	AuthViaEmail     = "email"
	AuthViaFederated = "federated"
)

// SessionResponse is returned by teacher login flows.
type SessionResponse struct {
	Token     string    `json:"token"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}
