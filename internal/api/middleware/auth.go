package middleware

import (
	"strings"

	"chatdesk-backend/internal/libraries"
	"chatdesk-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Authenticator resolves a bearer token to its principal
type Authenticator interface {
	Authenticate(token string) (*models.Principal, error)
}

// BearerToken reads the token from the Authorization header, or from the
// token query parameter for websocket upgrades that cannot set headers.
func BearerToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}

// RequireAuth rejects requests without a live session
func RequireAuth(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := auth.Authenticate(BearerToken(c))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}
		c.Locals(libraries.LocalsPrincipal, principal)
		return c.Next()
	}
}

// RequireAdmin must run after RequireAuth
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := Principal(c)
		if principal == nil || !principal.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Admin access required",
			})
		}
		return c.Next()
	}
}

// Principal returns the caller set by RequireAuth
func Principal(c *fiber.Ctx) *models.Principal {
	principal, _ := c.Locals(libraries.LocalsPrincipal).(*models.Principal)
	return principal
}
