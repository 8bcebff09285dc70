package repo

import (
	"strings"
	"time"

	"chatdesk-backend/internal/libraries"
	"chatdesk-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatRepo struct {
	db       *gorm.DB
	notifier *Notifier
}

type ChatRepoInterface interface {
	CreateChat(chat *models.Chat) error
	GetChat(chatID uuid.UUID) (*models.Chat, error)
	GetChatsByUserId(userID uuid.UUID) ([]models.Chat, error)
	ListChatSummaries(userID *uuid.UUID) ([]models.ChatSummary, error)
	SetTitleOnce(chatID uuid.UUID, title string) (bool, error)
	DeleteChat(chatID uuid.UUID) error
}

func NewChatRepository(db *gorm.DB, notifier *Notifier) ChatRepoInterface {
	return &ChatRepo{db: db, notifier: notifier}
}

// CreateChat inserts chat, filling the id, title and timestamps when unset
func (r *ChatRepo) CreateChat(chat *models.Chat) error {
	if chat.ID == uuid.Nil {
		chat.ID = uuid.New()
	}
	if strings.TrimSpace(chat.Title) == "" {
		chat.Title = models.DefaultChatTitle
	}
	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	if err := r.db.Create(chat).Error; err != nil {
		return err
	}
	r.notifier.Notify(libraries.TableChats, libraries.EventInsert, chat, nil)
	return nil
}

func (r *ChatRepo) GetChat(chatID uuid.UUID) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.Where("id = ?", chatID).First(&chat).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetChatsByUserId returns the user's chats, newest first
func (r *ChatRepo) GetChatsByUserId(userID uuid.UUID) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&chats).Error
	return chats, err
}

// ListChatSummaries joins chats with their owner and message count, newest first.
// A nil userID lists every chat.
func (r *ChatRepo) ListChatSummaries(userID *uuid.UUID) ([]models.ChatSummary, error) {
	var summaries []models.ChatSummary

	query := r.db.Table("chats").
		Select(`chats.*,
			COALESCE(profiles.email, '') AS user_email,
			COALESCE(profiles.full_name, '') AS user_name,
			(SELECT COUNT(*) FROM messages WHERE messages.chat_id = chats.id) AS message_count`).
		Joins("LEFT JOIN profiles ON profiles.id = chats.user_id")
	if userID != nil {
		query = query.Where("chats.user_id = ?", *userID)
	}

	err := query.Order("chats.created_at DESC").Scan(&summaries).Error
	return summaries, err
}

// SetTitleOnce replaces the default title with title, at most once per chat.
// It reports whether this call changed the title.
func (r *ChatRepo) SetTitleOnce(chatID uuid.UUID, title string) (bool, error) {
	old, err := r.GetChat(chatID)
	if err != nil {
		return false, err
	}
	if old.TitleLocked {
		return false, nil
	}

	now := time.Now()
	res := r.db.Model(&models.Chat{}).
		Where("id = ? AND title_locked = ?", chatID, false).
		Updates(map[string]interface{}{
			"title":        title,
			"title_locked": true,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		// lost the race to another first message
		return false, nil
	}

	updated := *old
	updated.Title = title
	updated.TitleLocked = true
	updated.UpdatedAt = now
	r.notifier.Notify(libraries.TableChats, libraries.EventUpdate, &updated, old)
	return true, nil
}

// DeleteChat removes a chat and its messages
func (r *ChatRepo) DeleteChat(chatID uuid.UUID) error {
	chat, err := r.GetChat(chatID)
	if err != nil {
		return err
	}

	var changes []change
	err = r.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		changes, txErr = deleteChatsCascade(tx, []models.Chat{*chat})
		return txErr
	})
	if err != nil {
		return err
	}
	r.notifier.flush(changes)
	return nil
}

// deleteChatsCascade deletes chats and their messages inside tx and returns the resulting events,
// messages first so a subscriber never sees a message outlive its chat.
func deleteChatsCascade(tx *gorm.DB, chats []models.Chat) ([]change, error) {
	if len(chats) == 0 {
		return nil, nil
	}
	chatIDs := make([]uuid.UUID, 0, len(chats))
	for _, c := range chats {
		chatIDs = append(chatIDs, c.ID)
	}

	var messages []models.Message
	if err := tx.Where("chat_id IN ?", chatIDs).Order("created_at ASC").Find(&messages).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("chat_id IN ?", chatIDs).Delete(&models.Message{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("id IN ?", chatIDs).Delete(&models.Chat{}).Error; err != nil {
		return nil, err
	}

	changes := make([]change, 0, len(messages)+len(chats))
	for i := range messages {
		changes = append(changes, change{table: libraries.TableMessages, typ: libraries.EventDelete, oldRow: &messages[i]})
	}
	for i := range chats {
		changes = append(changes, change{table: libraries.TableChats, typ: libraries.EventDelete, oldRow: &chats[i]})
	}
	return changes, nil
}
