package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxTagLength is the longest accepted tag name after trimming.
const MaxTagLength = 50

type Tag struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID    uuid.UUID `gorm:"type:uuid;not null;index" json:"task_id"`
	Name      string    `gorm:"type:varchar(50);not null;index" json:"name"`
	Position  int       `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
