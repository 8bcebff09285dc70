package v1

import (
	"chatdesk-backend/internal/assistant/workflow"
	"chatdesk-backend/internal/auth"
	"chatdesk-backend/internal/chatexport"
	"chatdesk-backend/internal/dashboard"
	"chatdesk-backend/internal/libraries"
	"chatdesk-backend/internal/repo"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Deps are the long lived services the routes are built from
type Deps struct {
	DB        *gorm.DB
	Notifier  *repo.Notifier
	Hub       *libraries.Hub
	Auth      *auth.Service
	Workflow  *workflow.Workflow
	Dashboard *dashboard.Service
	Refresher *dashboard.Refresher
	// nil when EXPORT_BUCKET is not configured
	Archiver *chatexport.Archiver
}

func RegisterRoutes(r fiber.Router, deps *Deps) {
	registerHealth(r)
	registerAuth(r, deps)
	registerChat(r, deps)
	registerProfile(r, deps)
	registerAdmin(r, deps)
}
