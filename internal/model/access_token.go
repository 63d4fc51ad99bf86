package model

import (
	"time"

	"github.com/google/uuid"
)

// AccessToken is the server-side record of an issued bearer token.
// A token is revoked by deleting its row.
type AccessToken struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"` // JWT jti
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Name       string     `gorm:"type:varchar(64);not null"`
	ExpiresAt  time.Time  `gorm:"not null"`
	LastUsedAt *time.Time
	CreatedAt  time.Time

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// DefaultTokenName names tokens issued by login and verification.
const DefaultTokenName = "auth_token"
