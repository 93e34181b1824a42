package domain

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// UserRole
// ──────────────────────────────────────────────────────────────────────────────

// UserRole controls access levels in the back-office.
type UserRole string

const (
	RoleUser      UserRole = "user"      // standard marketplace member
	RoleModerator UserRole = "moderator" // handles reports
	RoleAdmin     UserRole = "admin"     // full back-office access
)

// CanAccessBackoffice returns true for the staff roles.
func (r UserRole) CanAccessBackoffice() bool {
	return r == RoleModerator || r == RoleAdmin
}

// ──────────────────────────────────────────────────────────────────────────────
// User
// ──────────────────────────────────────────────────────────────────────────────

// User is the domain entity for registered accounts. Profile fields mirror
// what the identity provider exposes; the core only ever reads the id.
type User struct {
	ID           uuid.UUID `json:"id"          db:"id"`
	Email        string    `json:"email"       db:"email"`
	Name         string    `json:"name"        db:"name"`
	Phone        string    `json:"phone"       db:"phone"`
	PasswordHash string    `json:"-"           db:"password_hash"` // never serialised
	Role         UserRole  `json:"role"        db:"role"`
	IsActive     bool      `json:"is_active"   db:"is_active"`

	// File-storage URLs; the core stores and serves strings only.
	MessQRURL     *string `json:"mess_qr_url"     db:"mess_qr_url"`
	ProfilePicURL *string `json:"profile_pic_url" db:"profile_pic_url"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// PublicProfile returns a user view safe to expose via API.
type PublicProfile struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Role          UserRole  `json:"role"`
	IsActive      bool      `json:"is_active"`
	MessQRURL     *string   `json:"mess_qr_url"`
	ProfilePicURL *string   `json:"profile_pic_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToPublicProfile converts a User to its public-safe representation.
func (u *User) ToPublicProfile() PublicProfile {
	return PublicProfile{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Phone:         u.Phone,
		Role:          u.Role,
		IsActive:      u.IsActive,
		MessQRURL:     u.MessQRURL,
		ProfilePicURL: u.ProfilePicURL,
		CreatedAt:     u.CreatedAt,
	}
}
