package models

import (
	"time"

	"gorm.io/datatypes"
)

// ChangeLog persists every change event so admins can audit the feed
type ChangeLog struct {
	Seq       uint64         `gorm:"primaryKey;autoIncrement" json:"seq"`
	Table     string         `gorm:"column:table_name;not null;index" json:"table"`
	EventType string         `gorm:"not null" json:"event_type"`
	Payload   datatypes.JSON `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

func (ChangeLog) TableName() string {
	return "change_events"
}
