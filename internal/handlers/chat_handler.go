package handlers

import (
	"errors"
	"log"

	"chatdesk-backend/internal/api/middleware"
	"chatdesk-backend/internal/assistant/workflow"
	llmHandlers "chatdesk-backend/internal/llm_handlers"
	"chatdesk-backend/internal/repo"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ChatHandler struct {
	chatRepo repo.ChatRepoInterface
	workflow *workflow.Workflow
}

func NewChatHandler(chatRepo repo.ChatRepoInterface, wf *workflow.Workflow) *ChatHandler {
	return &ChatHandler{chatRepo: chatRepo, workflow: wf}
}

// get the caller's chats, newest first
func (h *ChatHandler) GetChats(c *fiber.Ctx) error {
	principal := middleware.Principal(c)
	if principal.ProfileID == nil {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "A user session is required",
		})
	}

	chats, err := h.chatRepo.GetChatsByUserId(*principal.ProfileID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get chats",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"chats": chats,
		"total": len(chats),
	})
}

func (h *ChatHandler) CreateChat(c *fiber.Ctx) error {
	var dto workflow.CreateChatInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&dto); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	chat, err := h.workflow.CreateChat(middleware.Principal(c), dto)
	if err != nil {
		return workflowError(c, err, nil)
	}
	return c.Status(fiber.StatusCreated).JSON(chat)
}

func (h *ChatHandler) GetChat(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("chatId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid chat ID",
		})
	}

	chat, err := h.workflow.GetChat(middleware.Principal(c), chatID)
	if err != nil {
		return workflowError(c, err, nil)
	}
	return c.Status(fiber.StatusOK).JSON(chat)
}

func (h *ChatHandler) DeleteChat(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("chatId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid chat ID",
		})
	}

	if err := h.workflow.DeleteChat(middleware.Principal(c), chatID); err != nil {
		return workflowError(c, err, nil)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("chatId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid chat ID",
		})
	}

	messages, err := h.workflow.ListMessages(middleware.Principal(c), chatID)
	if err != nil {
		return workflowError(c, err, nil)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"messages": messages,
	})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("chatId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid chat ID",
		})
	}

	var dto struct {
		Content   string `json:"content"`
		Model     string `json:"model"`
		MessageID string `json:"message_id"`
	}
	if err := c.BodyParser(&dto); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var messageID uuid.UUID
	if dto.MessageID != "" {
		if messageID, err = uuid.Parse(dto.MessageID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid message ID",
			})
		}
	}

	exchange, err := h.workflow.SendMessage(c.UserContext(), middleware.Principal(c), workflow.SendInput{
		ChatID:    chatID,
		Content:   dto.Content,
		Model:     dto.Model,
		MessageID: messageID,
	})
	if err != nil {
		return workflowError(c, err, exchange)
	}
	return c.Status(fiber.StatusCreated).JSON(exchange)
}

// workflowError maps workflow errors onto responses. A stored user message is echoed back
// so the client can keep it after an assistant failure.
func workflowError(c *fiber.Ctx, err error, exchange *workflow.Exchange) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, workflow.ErrEmptyMessage):
		status = fiber.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrChatNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, workflow.ErrForbidden), errors.Is(err, workflow.ErrNoProfile):
		status = fiber.StatusForbidden
	case errors.Is(err, llmHandlers.ErrRateLimited):
		status = fiber.StatusTooManyRequests
	case errors.Is(err, workflow.ErrAssistantUnavailable):
		status = fiber.StatusBadGateway
	default:
		log.Printf("chat request failed: %v", err)
	}

	body := fiber.Map{"error": workflow.PublicError(err)}
	if exchange != nil && exchange.UserMessage != nil {
		body["user_message"] = exchange.UserMessage
	}
	return c.Status(status).JSON(body)
}
