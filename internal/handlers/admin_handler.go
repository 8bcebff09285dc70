package handlers

import (
	"errors"
	"log"
	"strings"

	"chatdesk-backend/internal/models"
	"chatdesk-backend/internal/repo"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminHandler serves the user and chat management views
type AdminHandler struct {
	profileRepo repo.ProfileRepoInterface
	chatRepo    repo.ChatRepoInterface
	messageRepo repo.MessageRepoInterface
}

func NewAdminHandler(profileRepo repo.ProfileRepoInterface, chatRepo repo.ChatRepoInterface, messageRepo repo.MessageRepoInterface) *AdminHandler {
	return &AdminHandler{profileRepo: profileRepo, chatRepo: chatRepo, messageRepo: messageRepo}
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	profiles, err := h.profileRepo.ListProfiles()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get users",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"users": profiles,
	})
}

// GetUser returns the profile with its chats and their message counts
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	profile, err := h.profileRepo.GetProfile(userID)
	if err != nil {
		return notFoundOr500(c, err, "User not found", "Failed to get user")
	}
	chats, err := h.chatRepo.ListChatSummaries(&userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get user chats",
		})
	}
	return c.Status(fiber.StatusOK).JSON(models.ProfileDetails{Profile: *profile, Chats: chats})
}

func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	var dto repo.ProfileUpdate
	if err := c.BodyParser(&dto); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if dto.FullName != nil && strings.TrimSpace(*dto.FullName) == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Full name cannot be empty",
		})
	}
	if dto.Email != nil {
		if strings.TrimSpace(*dto.Email) == "" {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "Email cannot be empty",
			})
		}
		if other, err := h.profileRepo.GetProfileByEmail(*dto.Email); err == nil && other.ID != userID {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Email is already registered",
			})
		}
	}

	profile, err := h.profileRepo.UpdateProfile(userID, dto)
	if err != nil {
		return notFoundOr500(c, err, "User not found", "Failed to update user")
	}
	return c.Status(fiber.StatusOK).JSON(profile)
}

func (h *AdminHandler) ToggleAdmin(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	profile, err := h.profileRepo.ToggleAdmin(userID)
	if err != nil {
		return notFoundOr500(c, err, "User not found", "Failed to update user")
	}
	return c.Status(fiber.StatusOK).JSON(profile)
}

// DeleteUser removes the user together with their chats, messages and sessions
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	if err := h.profileRepo.DeleteProfile(userID); err != nil {
		return notFoundOr500(c, err, "User not found", "Failed to delete user")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AdminHandler) ListChats(c *fiber.Ctx) error {
	chats, err := h.chatRepo.ListChatSummaries(nil)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get chats",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"chats": chats,
	})
}

func (h *AdminHandler) GetChatMessages(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("chatId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid chat ID",
		})
	}

	if _, err := h.chatRepo.GetChat(chatID); err != nil {
		return notFoundOr500(c, err, "Chat not found", "Failed to get chat")
	}
	messages, err := h.messageRepo.GetMessagesByChatId(chatID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get messages",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"messages": messages,
	})
}

func (h *AdminHandler) DeleteChat(c *fiber.Ctx) error {
	chatID, err := uuid.Parse(c.Params("chatId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid chat ID",
		})
	}

	if err := h.chatRepo.DeleteChat(chatID); err != nil {
		return notFoundOr500(c, err, "Chat not found", "Failed to delete chat")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func notFoundOr500(c *fiber.Ctx, err error, notFound, failed string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": notFound,
		})
	}
	log.Printf("%s: %v", failed, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": failed,
	})
}
