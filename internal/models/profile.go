package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Profile represents a registered user
type Profile struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	FullName     string    `json:"full_name"`
	AvatarURL    string    `json:"avatar_url"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProfileDetails is a profile plus its chats, as shown in the admin user dialog
type ProfileDetails struct {
	Profile
	Chats []ChatSummary `json:"chats"`
}

func AvatarURLFor(id uuid.UUID) string {
	return fmt.Sprintf("https://api.dicebear.com/7.x/adventurer/svg?seed=%s", id.String())
}
