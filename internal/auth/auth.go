// Package auth issues and validates bearer sessions for chat users and admins.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"chatdesk-backend/internal/models"
	"chatdesk-backend/internal/repo"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrMissingFields      = errors.New("email, password, confirm password and full name are required")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("session is missing or expired")
)

const minPasswordLength = 6

type Service struct {
	profiles repo.ProfileRepoInterface
	sessions repo.SessionRepoInterface
	ttl      time.Duration
	now      func() time.Time
}

func NewService(profiles repo.ProfileRepoInterface, sessions repo.SessionRepoInterface, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{
		profiles: profiles,
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FullName        string `json:"full_name"`
}

// Result is returned by every successful login
type Result struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	IsAdmin   bool            `json:"is_admin"`
	Profile   *models.Profile `json:"profile,omitempty"`
}

// Register creates a profile and logs it in
func (s *Service) Register(in RegisterInput) (*Result, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if in.Email == "" || in.Password == "" || in.ConfirmPassword == "" || in.FullName == "" {
		return nil, ErrMissingFields
	}
	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	if _, err := s.profiles.GetProfileByEmail(in.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	profile := &models.Profile{
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: string(hash),
	}
	if err := s.profiles.CreateProfile(profile); err != nil {
		return nil, err
	}
	return s.startProfileSession(profile)
}

// Login checks an email and password
func (s *Service) Login(email, password string) (*Result, error) {
	profile, err := s.profiles.GetProfileByEmail(strings.TrimSpace(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.startProfileSession(profile)
}

// AdminLogin checks a dashboard operator's credentials
func (s *Service) AdminLogin(username, password string) (*Result, error) {
	admin, err := s.sessions.GetAdminByUsername(username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	session := &models.Session{
		AdminID: &admin.ID,
		IsAdmin: true,
	}
	if err := s.createSession(session); err != nil {
		return nil, err
	}
	return &Result{Token: session.Token, ExpiresAt: session.ExpiresAt, IsAdmin: true}, nil
}

func (s *Service) Logout(token string) error {
	return s.sessions.DeleteSession(token)
}

// Authenticate resolves a bearer token. The admin flag is recomputed on every call
// so toggling a profile's admin bit takes effect immediately.
func (s *Service) Authenticate(token string) (*models.Principal, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	session, err := s.sessions.GetSession(token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		if err := s.sessions.DeleteSession(token); err != nil {
			log.Printf("[auth] failed to delete expired session: %v", err)
		}
		return nil, ErrInvalidSession
	}

	principal := &models.Principal{
		Token:     session.Token,
		ProfileID: session.ProfileID,
		AdminID:   session.AdminID,
		IsAdmin:   session.IsAdmin,
	}
	if session.ProfileID != nil {
		profile, err := s.profiles.GetProfile(*session.ProfileID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidSession
		}
		if err != nil {
			return nil, err
		}
		// the profile row is authoritative; the session copy is only a login-time snapshot
		principal.IsAdmin = profile.IsAdmin
	}
	return principal, nil
}

// EnsureAdmin creates the admin account if it does not exist yet
func (s *Service) EnsureAdmin(username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	if _, err := s.sessions.GetAdminByUsername(username); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.sessions.CreateAdmin(&models.Admin{Username: username, PasswordHash: string(hash)}); err != nil {
		return err
	}
	log.Printf("created admin account %q", username)
	return nil
}

// PurgeExpired drops sessions past their expiry
func (s *Service) PurgeExpired() (int64, error) {
	return s.sessions.DeleteExpired(s.now())
}

func (s *Service) startProfileSession(profile *models.Profile) (*Result, error) {
	session := &models.Session{
		ProfileID: &profile.ID,
		IsAdmin:   profile.IsAdmin,
	}
	if err := s.createSession(session); err != nil {
		return nil, err
	}
	return &Result{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		IsAdmin:   profile.IsAdmin,
		Profile:   profile,
	}, nil
}

func (s *Service) createSession(session *models.Session) error {
	token, err := newToken()
	if err != nil {
		return err
	}
	session.Token = token
	session.ExpiresAt = s.now().Add(s.ttl)
	return s.sessions.CreateSession(session)
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
