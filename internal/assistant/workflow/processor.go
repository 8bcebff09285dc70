package workflow

import (
	"context"
	"errors"
	"log"
	"time"

	"chatdesk-backend/internal/libraries"
	llmHandlers "chatdesk-backend/internal/llm_handlers"

	"github.com/google/uuid"
)

const processTimeout = 2 * time.Minute

// ProcessChatMessage runs SendMessage for a websocket chat_message frame
func (w *Workflow) ProcessChatMessage(hub *libraries.Hub, client *libraries.Client, payload *libraries.ChatMessagePayload) {
	chatID, err := uuid.Parse(payload.ChatId)
	if err != nil {
		libraries.SendErrorMessage(hub, client, "Invalid chat ID")
		return
	}
	var messageID uuid.UUID
	if payload.MessageId != "" {
		if messageID, err = uuid.Parse(payload.MessageId); err != nil {
			libraries.SendErrorMessage(hub, client, "Invalid message ID")
			return
		}
	}

	libraries.SendChatMessageResponse(hub, client, libraries.WebSocketMessageTypeChatStarting, &libraries.ChatMessageResponsePayload{
		ChatId:         payload.ChatId,
		Message:        payload.Message,
		HumanMessageId: payload.MessageId,
	})

	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	exchange, err := w.SendMessage(ctx, client.Principal, SendInput{
		ChatID:    chatID,
		Content:   payload.Message,
		Model:     payload.Model,
		MessageID: messageID,
	})
	if err != nil {
		log.Printf("[ws] chat message failed for chat %s: %v", payload.ChatId, err)
		libraries.SendErrorMessage(hub, client, PublicError(err))
		return
	}

	response := &libraries.ChatMessageResponsePayload{
		ChatId:         payload.ChatId,
		Message:        exchange.BotMessage.Content,
		HumanMessageId: exchange.UserMessage.ID.String(),
		AiMessageId:    exchange.BotMessage.ID.String(),
		Data:           exchange,
	}
	libraries.SendChatMessageResponse(hub, client, libraries.WebSocketMessageTypeChatResponse, response)
	libraries.SendChatMessageResponse(hub, client, libraries.WebSocketMessageTypeChatCompleted, response)
}

// PublicError is the message shown to the user for a SendMessage error
func PublicError(err error) string {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		return "Message cannot be empty"
	case errors.Is(err, ErrChatNotFound):
		return "Chat not found"
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrNoProfile):
		return "You do not have access to this chat"
	case errors.Is(err, llmHandlers.ErrRateLimited):
		return "Too many messages, please wait a moment"
	case errors.Is(err, ErrAssistantUnavailable):
		return "The assistant could not respond. Your message was saved."
	default:
		return "Failed to process message"
	}
}
