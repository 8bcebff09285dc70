package repo

import (
	"strings"
	"time"

	"chatdesk-backend/internal/libraries"
	"chatdesk-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProfileRepo struct {
	db       *gorm.DB
	notifier *Notifier
}

// ProfileUpdate carries the editable profile fields; nil fields are left alone
type ProfileUpdate struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
}

type ProfileRepoInterface interface {
	CreateProfile(profile *models.Profile) error
	GetProfile(id uuid.UUID) (*models.Profile, error)
	GetProfileByEmail(email string) (*models.Profile, error)
	ListProfiles() ([]models.Profile, error)
	UpdateProfile(id uuid.UUID, update ProfileUpdate) (*models.Profile, error)
	ToggleAdmin(id uuid.UUID) (*models.Profile, error)
	DeleteProfile(id uuid.UUID) error
}

func NewProfileRepository(db *gorm.DB, notifier *Notifier) ProfileRepoInterface {
	return &ProfileRepo{db: db, notifier: notifier}
}

func (r *ProfileRepo) CreateProfile(profile *models.Profile) error {
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	profile.Email = normalizeEmail(profile.Email)
	if profile.AvatarURL == "" {
		profile.AvatarURL = models.AvatarURLFor(profile.ID)
	}
	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if err := r.db.Create(profile).Error; err != nil {
		return err
	}
	r.notifier.Notify(libraries.TableProfiles, libraries.EventInsert, profile, nil)
	return nil
}

func (r *ProfileRepo) GetProfile(id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *ProfileRepo) GetProfileByEmail(email string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.Where("email = ?", normalizeEmail(email)).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListProfiles returns every profile, newest first
func (r *ProfileRepo) ListProfiles() ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.Order("created_at DESC").Find(&profiles).Error
	return profiles, err
}

func (r *ProfileRepo) UpdateProfile(id uuid.UUID, update ProfileUpdate) (*models.Profile, error) {
	old, err := r.GetProfile(id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"updated_at": time.Now()}
	if update.FullName != nil {
		fields["full_name"] = strings.TrimSpace(*update.FullName)
	}
	if update.Email != nil {
		fields["email"] = normalizeEmail(*update.Email)
	}
	return r.applyUpdate(old, fields)
}

func (r *ProfileRepo) ToggleAdmin(id uuid.UUID) (*models.Profile, error) {
	old, err := r.GetProfile(id)
	if err != nil {
		return nil, err
	}
	return r.applyUpdate(old, map[string]interface{}{
		"is_admin":   !old.IsAdmin,
		"updated_at": time.Now(),
	})
}

func (r *ProfileRepo) applyUpdate(old *models.Profile, fields map[string]interface{}) (*models.Profile, error) {
	if err := r.db.Model(&models.Profile{}).Where("id = ?", old.ID).Updates(fields).Error; err != nil {
		return nil, err
	}
	updated, err := r.GetProfile(old.ID)
	if err != nil {
		return nil, err
	}
	r.notifier.Notify(libraries.TableProfiles, libraries.EventUpdate, updated, old)
	return updated, nil
}

// DeleteProfile removes the profile with its sessions, chats and messages
func (r *ProfileRepo) DeleteProfile(id uuid.UUID) error {
	profile, err := r.GetProfile(id)
	if err != nil {
		return err
	}

	var changes []change
	err = r.db.Transaction(func(tx *gorm.DB) error {
		var chats []models.Chat
		if err := tx.Where("user_id = ?", id).Find(&chats).Error; err != nil {
			return err
		}
		cascaded, err := deleteChatsCascade(tx, chats)
		if err != nil {
			return err
		}
		if err := tx.Where("profile_id = ?", id).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&models.Profile{}).Error; err != nil {
			return err
		}
		changes = append(cascaded, change{table: libraries.TableProfiles, typ: libraries.EventDelete, oldRow: profile})
		return nil
	})
	if err != nil {
		return err
	}
	r.notifier.flush(changes)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
