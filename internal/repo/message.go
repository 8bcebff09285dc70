package repo

import (
	"time"

	"chatdesk-backend/internal/libraries"
	llmHandlers "chatdesk-backend/internal/llm_handlers"
	"chatdesk-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepo struct {
	db       *gorm.DB
	notifier *Notifier
}

type MessageRepoInterface interface {
	CreateMessage(message *models.Message) error
	GetMessagesByChatId(chatID uuid.UUID) ([]models.Message, error)
	GetLatestMessages(chatID uuid.UUID, limit int) ([]models.Message, error)
	CountMessages(chatID uuid.UUID) (int64, error)
	GetChatHistory(chatID uuid.UUID, size int) ([]llmHandlers.Message, error)
}

func NewMessageRepository(db *gorm.DB, notifier *Notifier) MessageRepoInterface {
	return &MessageRepo{db: db, notifier: notifier}
}

// CreateMessage appends a message. A caller supplied id is kept so optimistic copies reconcile.
func (r *MessageRepo) CreateMessage(message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	if err := r.db.Create(message).Error; err != nil {
		return err
	}
	r.notifier.Notify(libraries.TableMessages, libraries.EventInsert, message, nil)
	return nil
}

// GetMessagesByChatId returns the whole conversation, oldest first
func (r *MessageRepo) GetMessagesByChatId(chatID uuid.UUID) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("chat_id = ?", chatID).Order("created_at ASC").Find(&messages).Error
	return messages, err
}

// GetLatestMessages returns the newest limit messages, oldest first
func (r *MessageRepo) GetLatestMessages(chatID uuid.UUID, limit int) ([]models.Message, error) {
	// default + cap
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var messages []models.Message
	err := r.db.Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (r *MessageRepo) CountMessages(chatID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.Model(&models.Message{}).Where("chat_id = ?", chatID).Count(&total).Error
	return total, err
}

func (r *MessageRepo) GetChatHistory(chatID uuid.UUID, size int) ([]llmHandlers.Message, error) {
	messages, err := r.GetLatestMessages(chatID, size)
	if err != nil {
		return nil, err
	}

	history := make([]llmHandlers.Message, 0, len(messages))
	for _, m := range messages {
		history = append(history, llmHandlers.Message{
			Role:    llmHandlers.MessageRole(m.Role()),
			Content: m.Content,
		})
	}
	return history, nil
}
