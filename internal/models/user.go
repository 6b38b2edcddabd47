package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a staff account that can sign in to a terminal.
type User struct {
	BaseModel
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `gorm:"uniqueIndex" json:"email"`
	TenantID     string `gorm:"index" json:"tenant_id"`
	Role         string `json:"role"` // admin|manager|cashier
	PasswordHash string `json:"-"`
	IsActive     bool   `json:"is_active"`
	Sales        []Sale `gorm:"foreignKey:CashierID" json:"sales,omitempty"`
}

// RefreshToken stores the hashed half of an issued token pair. Tokens are
// rotated on every refresh; the previous row is revoked rather than deleted.
type RefreshToken struct {
	BaseModel
	UserID    uuid.UUID  `gorm:"type:uuid;index" json:"user_id"`
	TokenHash string     `gorm:"uniqueIndex" json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at"`
}

// Active reports whether the token can still be exchanged.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}
