package repo

import (
	"strings"
	"time"

	"chatdesk-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SessionRepo struct {
	db *gorm.DB
}

type SessionRepoInterface interface {
	CreateSession(session *models.Session) error
	GetSession(token string) (*models.Session, error)
	DeleteSession(token string) error
	DeleteExpired(now time.Time) (int64, error)
	CreateAdmin(admin *models.Admin) error
	GetAdminByUsername(username string) (*models.Admin, error)
}

func NewSessionRepository(db *gorm.DB) SessionRepoInterface {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) CreateSession(session *models.Session) error {
	session.CreatedAt = time.Now()
	return r.db.Create(session).Error
}

func (r *SessionRepo) GetSession(token string) (*models.Session, error) {
	var session models.Session
	if err := r.db.Where("token = ?", token).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepo) DeleteSession(token string) error {
	return r.db.Where("token = ?", token).Delete(&models.Session{}).Error
}

func (r *SessionRepo) DeleteExpired(now time.Time) (int64, error) {
	res := r.db.Where("expires_at <= ?", now).Delete(&models.Session{})
	return res.RowsAffected, res.Error
}

func (r *SessionRepo) CreateAdmin(admin *models.Admin) error {
	if admin.ID == uuid.Nil {
		admin.ID = uuid.New()
	}
	admin.Username = strings.TrimSpace(admin.Username)
	admin.CreatedAt = time.Now()
	return r.db.Create(admin).Error
}

func (r *SessionRepo) GetAdminByUsername(username string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.Where("username = ?", strings.TrimSpace(username)).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}
