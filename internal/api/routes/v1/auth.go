package v1

import (
	"time"

	"chatdesk-backend/internal/api/middleware"
	"chatdesk-backend/internal/handlers"
	"chatdesk-backend/internal/repo"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

func registerAuth(r fiber.Router, deps *Deps) {
	profileRepo := repo.NewProfileRepository(deps.DB, deps.Notifier)
	authHandler := handlers.NewAuthHandler(deps.Auth, profileRepo)

	// slow down credential guessing
	credentialLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many attempts, try again later",
			})
		},
	})

	authGroup := r.Group("/auth")
	authGroup.Post("/register", credentialLimiter, authHandler.Register)
	authGroup.Post("/login", credentialLimiter, authHandler.Login)
	authGroup.Post("/admin/login", credentialLimiter, authHandler.AdminLogin)
	authGroup.Post("/logout", middleware.RequireAuth(deps.Auth), authHandler.Logout)
	authGroup.Get("/me", middleware.RequireAuth(deps.Auth), authHandler.Me)
}
