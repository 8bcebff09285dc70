package v1

import (
	"chatdesk-backend/internal/api/middleware"
	"chatdesk-backend/internal/handlers"
	"chatdesk-backend/internal/libraries"
	"chatdesk-backend/internal/repo"

	"github.com/gofiber/fiber/v2"
)

// RegisterWebSocket mounts /ws. The session token comes from the Authorization header or ?token=.
func RegisterWebSocket(app *fiber.App, deps *Deps) {
	guard := handlers.NewFeedGuard(repo.NewChatRepository(deps.DB, deps.Notifier))

	app.Get("/ws",
		middleware.RequireAuth(deps.Auth),
		libraries.WebSocketHandler(deps.Hub, guard, deps.Workflow, deps.Refresher),
	)
}
