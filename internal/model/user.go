package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID                     uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name                   string     `gorm:"type:varchar(255);not null" json:"name"`
	Email                  string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash           string     `gorm:"not null" json:"-"`
	Role                   Role       `gorm:"type:varchar(16);not null;default:user" json:"role"`
	EmailVerifiedAt        *time.Time `json:"email_verified_at"`
	EmailVerificationToken *string    `gorm:"type:varchar(64)" json:"-"`
	VerifiedTokenHash      *string    `gorm:"type:varchar(64)" json:"-"`
	LastLoginAt            *time.Time `json:"last_login_at"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`

	// TasksCount is only populated by the admin user listing.
	TasksCount int64 `gorm:"->;-:migration" json:"tasks_count,omitempty"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasVerifiedEmail reports whether the account counts as verified.
// Admin accounts are always verified regardless of EmailVerifiedAt.
func (u *User) HasVerifiedEmail() bool {
	return u.IsAdmin() || u.EmailVerifiedAt != nil
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}
