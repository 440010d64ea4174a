package identity

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of identity roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is a single credential holder (§3 "Identity").
type Identity struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicUser is the shape of an Identity returned to clients.
type PublicUser struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Role     Role      `json:"role"`
	Active   bool      `json:"active"`
	Verified bool      `json:"verified"`
}

// Public strips server-only fields from an Identity.
func (i Identity) Public() PublicUser {
	return PublicUser{ID: i.ID, Email: i.Email, Role: i.Role, Active: i.Active, Verified: i.Verified}
}

// RefreshRecord is the durable server-side record backing a refresh token
// (§3 "Refresh Record").
type RefreshRecord struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	DigestHash [32]byte
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastUsedAt *time.Time
	Revoked    bool
}
