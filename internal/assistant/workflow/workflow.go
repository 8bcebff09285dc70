package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	llmHandlers "chatdesk-backend/internal/llm_handlers"
	"chatdesk-backend/internal/models"
	"chatdesk-backend/internal/repo"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEmptyMessage         = errors.New("message cannot be empty")
	ErrChatNotFound         = errors.New("chat not found")
	ErrForbidden            = errors.New("chat belongs to another user")
	ErrNoProfile            = errors.New("a user session is required")
	ErrAssistantUnavailable = errors.New("assistant is unavailable")
)

// historySize is how many recent messages are sent to the model
const historySize = 20

// Responder produces the assistant reply for a conversation
type Responder interface {
	ProcessRequest(ctx context.Context, chatHistory []llmHandlers.Message, model string) (string, error)
}

type Workflow struct {
	chatRepo    repo.ChatRepoInterface
	messageRepo repo.MessageRepoInterface
	agent       Responder
}

func NewWorkflow(chatRepo repo.ChatRepoInterface, messageRepo repo.MessageRepoInterface, agent Responder) *Workflow {
	return &Workflow{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		agent:       agent,
	}
}

type CreateChatInput struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

// CreateChat starts a conversation owned by the principal's profile
func (w *Workflow) CreateChat(principal *models.Principal, in CreateChatInput) (*models.Chat, error) {
	if principal == nil || principal.ProfileID == nil {
		return nil, ErrNoProfile
	}
	chat := &models.Chat{
		ID:     in.ID,
		UserID: *principal.ProfileID,
		Title:  strings.TrimSpace(in.Title),
	}
	if chat.Title == "" {
		chat.Title = models.DefaultChatTitle
	}
	if err := w.chatRepo.CreateChat(chat); err != nil {
		return nil, err
	}
	return chat, nil
}

// GetChat returns a chat the principal may read
func (w *Workflow) GetChat(principal *models.Principal, chatID uuid.UUID) (*models.Chat, error) {
	chat, err := w.loadChat(chatID)
	if err != nil {
		return nil, err
	}
	if !canRead(principal, chat) {
		return nil, ErrForbidden
	}
	return chat, nil
}

// ListMessages returns the whole conversation, oldest first
func (w *Workflow) ListMessages(principal *models.Principal, chatID uuid.UUID) ([]models.Message, error) {
	if _, err := w.GetChat(principal, chatID); err != nil {
		return nil, err
	}
	return w.messageRepo.GetMessagesByChatId(chatID)
}

// DeleteChat removes a chat and its messages. Owners and admins only.
func (w *Workflow) DeleteChat(principal *models.Principal, chatID uuid.UUID) error {
	if _, err := w.GetChat(principal, chatID); err != nil {
		return err
	}
	return w.chatRepo.DeleteChat(chatID)
}

type SendInput struct {
	ChatID    uuid.UUID
	Content   string
	Model     string
	MessageID uuid.UUID
}

// Exchange is the outcome of one send. BotMessage is nil when the assistant failed.
type Exchange struct {
	UserMessage  *models.Message `json:"user_message"`
	BotMessage   *models.Message `json:"bot_message,omitempty"`
	TitleUpdated bool            `json:"title_updated"`
}

// SendMessage stores the user's message, names the chat after its first message,
// asks the assistant and stores the reply.
// When the assistant fails the returned Exchange still carries the stored user message
// and the error wraps ErrAssistantUnavailable.
func (w *Workflow) SendMessage(ctx context.Context, principal *models.Principal, in SendInput) (*Exchange, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	chat, err := w.loadChat(in.ChatID)
	if err != nil {
		return nil, err
	}
	if principal == nil || !principal.Owns(chat.UserID) {
		return nil, ErrForbidden
	}

	previous, err := w.messageRepo.CountMessages(chat.ID)
	if err != nil {
		return nil, err
	}

	userMessage := &models.Message{
		ID:      in.MessageID,
		ChatID:  chat.ID,
		Content: content,
		IsAI:    false,
	}
	if err := w.messageRepo.CreateMessage(userMessage); err != nil {
		return nil, err
	}
	exchange := &Exchange{UserMessage: userMessage}

	if previous == 0 && !chat.TitleLocked {
		updated, err := w.chatRepo.SetTitleOnce(chat.ID, content)
		if err != nil {
			log.Printf("[workflow] failed to set title for chat %s: %v", chat.ID, err)
		}
		exchange.TitleUpdated = updated
	}

	history, err := w.messageRepo.GetChatHistory(chat.ID, historySize)
	if err != nil {
		return exchange, err
	}

	llmCtx := llmHandlers.WithCaller(ctx, chat.UserID.String())
	reply, err := w.agent.ProcessRequest(llmCtx, history, in.Model)
	if err != nil {
		log.Printf("[workflow] assistant failed for chat %s: %v", chat.ID, err)
		return exchange, fmt.Errorf("%w: %w", ErrAssistantUnavailable, err)
	}

	botMessage := &models.Message{
		ChatID:    chat.ID,
		Content:   reply,
		IsAI:      true,
		CreatedAt: time.Now(),
	}
	if !botMessage.CreatedAt.After(userMessage.CreatedAt) {
		botMessage.CreatedAt = userMessage.CreatedAt.Add(time.Millisecond)
	}
	if err := w.messageRepo.CreateMessage(botMessage); err != nil {
		return exchange, err
	}
	exchange.BotMessage = botMessage
	return exchange, nil
}

func (w *Workflow) loadChat(chatID uuid.UUID) (*models.Chat, error) {
	chat, err := w.chatRepo.GetChat(chatID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChatNotFound
	}
	return chat, err
}

func canRead(principal *models.Principal, chat *models.Chat) bool {
	if principal == nil {
		return false
	}
	return principal.IsAdmin || principal.Owns(chat.UserID)
}
