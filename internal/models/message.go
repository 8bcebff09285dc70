package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is append-only; it only disappears when its chat is deleted
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;" json:"id"`
	ChatID    uuid.UUID `gorm:"type:uuid;not null;index" json:"chat_id"`
	Content   string    `gorm:"not null" json:"content"`
	IsAI      bool      `gorm:"not null;default:false" json:"is_ai"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// Role maps the is_ai flag onto an LLM conversation role
func (m Message) Role() Role {
	if m.IsAI {
		return RoleAssistant
	}
	return RoleUser
}
