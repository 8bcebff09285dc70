package models

import (
	"time"

	"github.com/google/uuid"
)

// Setting is an admin managed key/value secret
type Setting struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;" json:"id"`
	KeyName   string    `gorm:"uniqueIndex;not null" json:"key_name"`
	KeyValue  string    `gorm:"not null" json:"key_value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "secrets"
}
