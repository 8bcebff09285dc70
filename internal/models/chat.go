package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultChatTitle = "New Chat"

// Chat is a conversation owned by one profile
type Chat struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Title       string    `gorm:"not null;default:'New Chat'" json:"title"`
	TitleLocked bool      `gorm:"not null;default:false" json:"title_locked"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ChatSummary is a chat joined with its owner and message count, used by the admin views
type ChatSummary struct {
	Chat
	UserEmail    string `json:"user_email"`
	UserName     string `json:"user_name"`
	MessageCount int64  `json:"message_count"`
}

func (Chat) TableName() string {
	return "chats"
}
