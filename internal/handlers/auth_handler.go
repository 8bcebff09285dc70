package handlers

import (
	"errors"
	"log"

	"chatdesk-backend/internal/api/middleware"
	"chatdesk-backend/internal/auth"
	"chatdesk-backend/internal/repo"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuthHandler struct {
	auth        *auth.Service
	profileRepo repo.ProfileRepoInterface
}

func NewAuthHandler(auth *auth.Service, profileRepo repo.ProfileRepoInterface) *AuthHandler {
	return &AuthHandler{auth: auth, profileRepo: profileRepo}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var dto auth.RegisterInput
	if err := c.BodyParser(&dto); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.auth.Register(dto)
	switch {
	case errors.Is(err, auth.ErrMissingFields), errors.Is(err, auth.ErrPasswordMismatch), errors.Is(err, auth.ErrWeakPassword):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, auth.ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
		})
	case err != nil:
		log.Printf("register failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to register",
		})
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

type credentials struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var dto credentials
	if err := c.BodyParser(&dto); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.auth.Login(dto.Email, dto.Password)
	return h.loginResponse(c, result, err)
}

func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	var dto credentials
	if err := c.BodyParser(&dto); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	result, err := h.auth.AdminLogin(dto.Username, dto.Password)
	return h.loginResponse(c, result, err)
}

func (h *AuthHandler) loginResponse(c *fiber.Ctx, result *auth.Result, err error) error {
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}
	if err != nil {
		log.Printf("login failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to login",
		})
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(middleware.BearerToken(c)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to logout",
		})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Me describes the current session
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal := middleware.Principal(c)
	resp := fiber.Map{
		"is_admin": principal.IsAdmin,
	}
	if principal.ProfileID != nil {
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
		resp["profile"] = profile
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}
