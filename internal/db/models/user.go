package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// User represents an authenticable principal.
// Users hold roles; their effective permissions are resolved through those roles.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey" json:"id"`
	// Active indicates whether the user may authenticate. Users are never hard deleted.
	Active bool `gorm:"not null" json:"active"`
	// Email is unique across all users and always stored lower-cased.
	Email string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	// Password is the Argon2id hash. It is never serialized.
	Password string `gorm:"size:255;not null" json:"-"`
	// FirstName is the user's first or given name.
	FirstName string `gorm:"size:100" json:"first_name,omitempty"`
	// LastName is the user's last or family name.
	LastName string `gorm:"size:100" json:"last_name,omitempty"`
	// EmailVerified is set once the email address was confirmed.
	EmailVerified bool `gorm:"not null" json:"email_verified"`
	// Roles is the role set of the user. It is replaced wholesale, never patched.
	Roles []Role `gorm:"many2many:user_roles" json:"roles,omitempty"`
	// RefreshTokens is the set of outstanding refresh token identifiers.
	RefreshTokens []UserRefreshToken `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	// LastLoginAt is the time of the last successful credential verification.
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the database table name for the User model.
func (User) TableName() string {
	return "users"
}

// RoleIDs returns the IDs of the user's loaded roles.
func (u *User) RoleIDs() []uint {
	ids := make([]uint, 0, len(u.Roles))
	for _, r := range u.Roles {
		ids = append(ids, r.ID)
	}

	return ids
}

// NormalizeEmail lower-cases and trims an email address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
func HashPassword(password string) (string, error) {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return hashedPassword, nil
}

// VerifyPassword verifies a plaintext password against the user's stored hash.
// The comparison is constant-time. Neither the plaintext nor the hash is logged.
func (u *User) VerifyPassword(password string) bool {
	match, err := argon2id.ComparePasswordAndHash(password, u.Password)
	if err != nil {
		log.Error().Err(err).Uint64("user_id", u.ID).Msg("failed to verify password")
		return false
	}

	return match
}

// UserRefreshToken is one entry of a user's outstanding refresh token set.
// TokenHash is the hex SHA-256 of the signed token string.
type UserRefreshToken struct {
	ID        uint64    `gorm:"primaryKey"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_user_refresh_token"`
	TokenHash string    `gorm:"size:64;not null;uniqueIndex:idx_user_refresh_token"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

// TableName specifies the database table name for the UserRefreshToken model.
func (UserRefreshToken) TableName() string {
	return "user_refresh_tokens"
}
