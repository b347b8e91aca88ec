package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a portal user. Admins belong to the delivery team and
// have no client association; client users belong to exactly one tenant.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	PasswordHash *string    `json:"-" db:"password_hash"` // Never expose in JSON
	Name         string     `json:"name" db:"name"`
	Role         UserRole   `json:"role" db:"role"`
	ClientID     *uuid.UUID `json:"client_id,omitempty" db:"client_id"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsAdmin reports whether the user is a delivery-team admin
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// BelongsTo reports whether the user is a member of the given tenant
func (u *User) BelongsTo(clientID uuid.UUID) bool {
	return u.ClientID != nil && *u.ClientID == clientID
}

// CanPasswordLogin checks if user can login with password
func (u *User) CanPasswordLogin() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
