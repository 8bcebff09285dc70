package handlers

import (
	"errors"
	"strings"

	"chatdesk-backend/internal/api/middleware"
	"chatdesk-backend/internal/repo"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProfileHandler struct {
	profileRepo repo.ProfileRepoInterface
}

func NewProfileHandler(profileRepo repo.ProfileRepoInterface) *ProfileHandler {
	return &ProfileHandler{profileRepo: profileRepo}
}

func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	principal := middleware.Principal(c)
	if principal.ProfileID == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Profile not found",
		})
	}

	profile, err := h.profileRepo.GetProfile(*principal.ProfileID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Profile not found",
		})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get profile",
		})
	}
	return c.Status(fiber.StatusOK).JSON(profile)
}

// UpdateProfile lets users rename themselves
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	principal := middleware.Principal(c)
	if principal.ProfileID == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Profile not found",
		})
	}

	var dto struct {
		FullName string `json:"full_name"`
	}
	if err := c.BodyParser(&dto); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if strings.TrimSpace(dto.FullName) == "" {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Full name is required",
		})
	}

	profile, err := h.profileRepo.UpdateProfile(*principal.ProfileID, repo.ProfileUpdate{FullName: &dto.FullName})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update profile",
		})
	}
	return c.Status(fiber.StatusOK).JSON(profile)
}
