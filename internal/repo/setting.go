package repo

import (
	"time"

	"chatdesk-backend/internal/libraries"
	"chatdesk-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SettingRepo struct {
	db       *gorm.DB
	notifier *Notifier
}

type SettingRepoInterface interface {
	ListSettings() ([]models.Setting, error)
	CreateSetting(setting *models.Setting) error
	UpdateSetting(id uuid.UUID, value string) (*models.Setting, error)
	DeleteSetting(id uuid.UUID) error
}

func NewSettingRepository(db *gorm.DB, notifier *Notifier) SettingRepoInterface {
	return &SettingRepo{db: db, notifier: notifier}
}

// ListSettings returns settings ordered by key name
func (r *SettingRepo) ListSettings() ([]models.Setting, error) {
	var settings []models.Setting
	err := r.db.Order("key_name ASC").Find(&settings).Error
	return settings, err
}

func (r *SettingRepo) CreateSetting(setting *models.Setting) error {
	if setting.ID == uuid.Nil {
		setting.ID = uuid.New()
	}
	now := time.Now()
	setting.CreatedAt = now
	setting.UpdatedAt = now

	if err := r.db.Create(setting).Error; err != nil {
		return err
	}
	r.notifier.Notify(libraries.TableSettings, libraries.EventInsert, setting, nil)
	return nil
}

func (r *SettingRepo) getSetting(id uuid.UUID) (*models.Setting, error) {
	var setting models.Setting
	if err := r.db.Where("id = ?", id).First(&setting).Error; err != nil {
		return nil, err
	}
	return &setting, nil
}

func (r *SettingRepo) UpdateSetting(id uuid.UUID, value string) (*models.Setting, error) {
	old, err := r.getSetting(id)
	if err != nil {
		return nil, err
	}

	updated := *old
	updated.KeyValue = value
	updated.UpdatedAt = time.Now()
	if err := r.db.Model(&models.Setting{}).Where("id = ?", id).Updates(map[string]interface{}{
		"key_value":  updated.KeyValue,
		"updated_at": updated.UpdatedAt,
	}).Error; err != nil {
		return nil, err
	}
	r.notifier.Notify(libraries.TableSettings, libraries.EventUpdate, &updated, old)
	return &updated, nil
}

func (r *SettingRepo) DeleteSetting(id uuid.UUID) error {
	old, err := r.getSetting(id)
	if err != nil {
		return err
	}
	if err := r.db.Where("id = ?", id).Delete(&models.Setting{}).Error; err != nil {
		return err
	}
	r.notifier.Notify(libraries.TableSettings, libraries.EventDelete, nil, old)
	return nil
}
