package core

import (
	"time"
	"unicode"
)

// Role is a single role tag carried in the user's role set.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Status is the account status of a user.
type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
)

// User is the account record owned by the user directory. The auth core reads
// it and only writes back password hashes during reset.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	SignAddress  string    `json:"signAddress,omitempty"`
	PasswordHash string    `json:"-"`
	Roles        []Role    `json:"role"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Sanitize returns a copy of the user safe to hand back to callers: the
// password hash is stripped.
func (u User) Sanitize() User {
	u.PasswordHash = ""
	return u
}

const minPasswordLength = 6

// ValidatePassword enforces the sign-up password policy: at least six
// characters with an upper-case letter, a lower-case letter and a digit.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrWeakPassword
	}

	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return ErrWeakPassword
	}
	return nil
}
