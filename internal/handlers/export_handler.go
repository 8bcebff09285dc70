package handlers

import (
	"errors"
	"log"
	"mime"
	"time"

	"chatdesk-backend/internal/api/middleware"
	"chatdesk-backend/internal/assistant/workflow"
	"chatdesk-backend/internal/chatexport"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ExportHandler struct {
	workflow *workflow.Workflow
	archiver *chatexport.Archiver
}

// NewExportHandler accepts a nil archiver when no bucket is configured
func NewExportHandler(wf *workflow.Workflow, archiver *chatexport.Archiver) *ExportHandler {
	return &ExportHandler{workflow: wf, archiver: archiver}
}

// ExportChat downloads the transcript as a text attachment
func (h *ExportHandler) ExportChat(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("chatId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid chat ID",
		})
	}

	principal := middleware.Principal(c)
	chat, err := h.workflow.GetChat(principal, chatID)
	if err != nil {
		return workflowError(c, err, nil)
	}
	messages, err := h.workflow.ListMessages(principal, chatID)
	if err != nil {
		return workflowError(c, err, nil)
	}

	now := time.Now()
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{
		"filename": chatexport.Filename(chat.Title, now, time.Local),
	}))
	return c.Status(fiber.StatusOK).SendString(chatexport.Format(chat.Title, messages, now, time.Local))
}

// ArchiveChat stores the transcript in the export bucket
func (h *ExportHandler) ArchiveChat(c *fiber.Ctx) error {
	if h.archiver == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": chatexport.ErrArchiveNotConfigured.Error(),
		})
	}

	chatID, err := uuid.Parse(c.Params("chatId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid chat ID",
		})
	}

	principal := middleware.Principal(c)
	chat, err := h.workflow.GetChat(principal, chatID)
	if err != nil {
		return workflowError(c, err, nil)
	}
	messages, err := h.workflow.ListMessages(principal, chatID)
	if err != nil {
		return workflowError(c, err, nil)
	}

	path, err := h.archiver.Archive(c.UserContext(), chat, messages)
	if errors.Is(err, chatexport.ErrArchiveNotConfigured) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if err != nil {
		log.Printf("archive chat %s failed: %v", chatID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to archive chat",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"path": path,
	})
}
