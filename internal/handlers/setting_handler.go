package handlers

import (
	"strings"

	"chatdesk-backend/internal/models"
	"chatdesk-backend/internal/repo"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type SettingHandler struct {
	settingRepo repo.SettingRepoInterface
}

func NewSettingHandler(settingRepo repo.SettingRepoInterface) *SettingHandler {
	return &SettingHandler{settingRepo: settingRepo}
}

func (h *SettingHandler) ListSettings(c *fiber.Ctx) error {
	settings, err := h.settingRepo.ListSettings()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get settings",
		})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"settings": settings,
	})
}

// CreateSetting never stores an empty key or value
func (h *SettingHandler) CreateSetting(c *fiber.Ctx) error {
	var dto struct {
		KeyName  string `json:"key_name"`
		KeyValue string `json:"key_value"`
	}
	if err := c.BodyParser(&dto); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	dto.KeyName = strings.TrimSpace(dto.KeyName)
	if dto.KeyName == "" || dto.KeyValue == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Key name and value are required",
		})
	}

	setting := &models.Setting{KeyName: dto.KeyName, KeyValue: dto.KeyValue}
	if err := h.settingRepo.CreateSetting(setting); err != nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Failed to create setting, the key may already exist",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(setting)
}

func (h *SettingHandler) UpdateSetting(c *fiber.Ctx) error {
	settingID, err := uuid.Parse(c.Params("settingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid setting ID",
		})
	}

	var dto struct {
		KeyValue string `json:"key_value"`
	}
	if err := c.BodyParser(&dto); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if dto.KeyValue == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Value is required",
		})
	}

	setting, err := h.settingRepo.UpdateSetting(settingID, dto.KeyValue)
	if err != nil {
		return notFoundOr500(c, err, "Setting not found", "Failed to update setting")
	}
	return c.Status(fiber.StatusOK).JSON(setting)
}

func (h *SettingHandler) DeleteSetting(c *fiber.Ctx) error {
	settingID, err := uuid.Parse(c.Params("settingId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid setting ID",
		})
	}

	if err := h.settingRepo.DeleteSetting(settingID); err != nil {
		return notFoundOr500(c, err, "Setting not found", "Failed to delete setting")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
