package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin is a dashboard operator that is not a chat user
type Admin struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is a bearer token issued at login.
// Exactly one of ProfileID and AdminID is set.
type Session struct {
	Token     string     `gorm:"primaryKey" json:"token"`
	ProfileID *uuid.UUID `gorm:"type:uuid;index" json:"profile_id,omitempty"`
	AdminID   *uuid.UUID `gorm:"type:uuid" json:"admin_id,omitempty"`
	IsAdmin   bool       `gorm:"not null;default:false" json:"is_admin"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Principal is the authenticated caller attached to a request
type Principal struct {
	Token     string
	ProfileID *uuid.UUID
	AdminID   *uuid.UUID
	IsAdmin   bool
}

// Owns reports whether the caller is the given profile
func (p *Principal) Owns(userID uuid.UUID) bool {
	return p != nil && p.ProfileID != nil && *p.ProfileID == userID
}
