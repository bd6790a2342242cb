// Package auth owns the authentication pipeline: signup, login, session
// token issuing and verification, the route guards, and the password reset
// and password change flows. The User model lives here because every other
// feature package resolves its acting principal through this package.
package auth

import "time"

// Roles a principal can hold. The zero-value role for new signups is
// RoleUser; privileged roles are only ever assigned by an admin update.
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

// User represents a principal. The stored password is always a bcrypt hash
// and is never serialized; the same goes for the reset-token bookkeeping
// fields and the soft-delete flag.
type User struct {
	ID                   int64      `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Photo                *string    `json:"photo,omitempty"`
	Role                 string     `json:"role"`
	HashedPassword       string     `json:"-"`
	PasswordChangedAt    *time.Time `json:"-"`
	PasswordResetToken   *string    `json:"-"` // SHA-256 hex of the plaintext token
	PasswordResetExpires *time.Time `json:"-"`
	Active               bool       `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
}

// ChangedPasswordAfter reports whether the user's password was changed after
// the given instant (a token's issued-at time). Tokens minted before a
// password change are invalid; this is how sessions are revoked without a
// server-side blocklist.
func (u *User) ChangedPasswordAfter(t time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.After(t)
}

// HasRole reports whether the user's role is in the given set.
func (u *User) HasRole(roles ...string) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}
