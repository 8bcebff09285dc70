package client

import (
	"context"
	"strings"
	"time"

	"chatdesk-backend/internal/assistant/workflow"
	"chatdesk-backend/internal/models"
	"chatdesk-backend/internal/reconciler"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// SendMessage shows the user message in messages right away under a client generated id.
// The server stores it under the same id, so the feed confirms the pending copy. On any
// failure the view is reloaded from the server, which keeps a user message that was
// stored before the assistant failed.
func (c *Client) SendMessage(ctx context.Context, messages *Live[models.Message], chatID uuid.UUID, content string, opts SendOptions) (*workflow.Exchange, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("message is empty")
	}
	if opts.MessageID == uuid.Nil {
		opts.MessageID = uuid.New()
	}

	messages.Dispatch(reconciler.AddOptimistic(models.Message{
		ID:        opts.MessageID,
		ChatID:    chatID,
		Content:   content,
		CreatedAt: time.Now(),
	}))

	exchange, err := c.PostMessage(ctx, chatID, content, opts)
	if err != nil {
		messages.rollback(context.WithoutCancel(ctx))
		return exchange, err
	}

	// the feed normally beats the response, these are no-ops then
	messages.Dispatch(reconciler.Insert(*exchange.UserMessage))
	if exchange.BotMessage != nil {
		messages.Dispatch(reconciler.Insert(*exchange.BotMessage))
	}
	return exchange, nil
}

// DeleteChat hides the chat from chats at once and restores it if the server refuses
func (c *Client) DeleteChat(ctx context.Context, chats *Live[models.Chat], chatID uuid.UUID) error {
	chats.Dispatch(reconciler.RemoveOptimistic[models.Chat](chatID.String()))
	if err := c.DeleteChatByID(ctx, chatID); err != nil {
		chats.rollback(context.WithoutCancel(ctx))
		return err
	}
	chats.Dispatch(reconciler.Delete[models.Chat](chatID.String()))
	return nil
}

// NewChat creates a chat and selects it. The row appears through the feed or the response,
// whichever comes first.
func (c *Client) NewChat(ctx context.Context, chats *Live[models.Chat], title string) (*models.Chat, error) {
	chat, err := c.CreateChat(ctx, uuid.New(), title)
	if err != nil {
		return nil, err
	}
	chats.Dispatch(reconciler.Insert(*chat))
	chats.Select(chat.ID.String())
	return chat, nil
}
