package repo

import (
	"fmt"
	"time"

	"chatdesk-backend/internal/libraries"
	"chatdesk-backend/internal/models"

	"gorm.io/gorm"
)

type StatsRepo struct {
	db *gorm.DB
}

type StatsRepoInterface interface {
	CountProfiles() (int64, error)
	CountChats() (int64, error)
	CountMessages() (int64, error)
	CountActiveUsers(since time.Time) (int64, error)
	CreatedSince(table string, since time.Time) ([]time.Time, error)
}

func NewStatsRepository(db *gorm.DB) StatsRepoInterface {
	return &StatsRepo{db: db}
}

func (r *StatsRepo) CountProfiles() (int64, error) {
	var total int64
	err := r.db.Model(&models.Profile{}).Count(&total).Error
	return total, err
}

func (r *StatsRepo) CountChats() (int64, error) {
	var total int64
	err := r.db.Model(&models.Chat{}).Count(&total).Error
	return total, err
}

func (r *StatsRepo) CountMessages() (int64, error) {
	var total int64
	err := r.db.Model(&models.Message{}).Count(&total).Error
	return total, err
}

// CountActiveUsers counts distinct chat owners with a message since the given time
func (r *StatsRepo) CountActiveUsers(since time.Time) (int64, error) {
	var total int64
	err := r.db.Model(&models.Message{}).
		Joins("JOIN chats ON chats.id = messages.chat_id").
		Where("messages.created_at >= ?", since).
		Distinct("chats.user_id").
		Count(&total).Error
	return total, err
}

// CreatedSince returns the creation timestamps of rows of table created at or after since
func (r *StatsRepo) CreatedSince(table string, since time.Time) ([]time.Time, error) {
	var model interface{}
	switch table {
	case libraries.TableProfiles:
		model = &models.Profile{}
	case libraries.TableChats:
		model = &models.Chat{}
	case libraries.TableMessages:
		model = &models.Message{}
	default:
		return nil, fmt.Errorf("no timestamps for table %q", table)
	}

	var stamps []time.Time
	err := r.db.Model(model).Where("created_at >= ?", since).Order("created_at ASC").Pluck("created_at", &stamps).Error
	return stamps, err
}
