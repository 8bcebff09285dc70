package v1

import (
	"chatdesk-backend/internal/api/middleware"
	"chatdesk-backend/internal/handlers"
	"chatdesk-backend/internal/repo"

	"github.com/gofiber/fiber/v2"
)

func registerAdmin(r fiber.Router, deps *Deps) {
	profileRepo := repo.NewProfileRepository(deps.DB, deps.Notifier)
	chatRepo := repo.NewChatRepository(deps.DB, deps.Notifier)
	messageRepo := repo.NewMessageRepository(deps.DB, deps.Notifier)
	settingRepo := repo.NewSettingRepository(deps.DB, deps.Notifier)

	adminHandler := handlers.NewAdminHandler(profileRepo, chatRepo, messageRepo)
	settingHandler := handlers.NewSettingHandler(settingRepo)
	dashboardHandler := handlers.NewDashboardHandler(deps.Dashboard, repo.NewChangeLogRepository(deps.DB))

	admin := r.Group("/admin", middleware.RequireAuth(deps.Auth), middleware.RequireAdmin())

	admin.Get("/users", adminHandler.ListUsers)
	admin.Get("/users/:userId", adminHandler.GetUser)
	admin.Patch("/users/:userId", adminHandler.UpdateUser)
	admin.Post("/users/:userId/toggle-admin", adminHandler.ToggleAdmin)
	admin.Delete("/users/:userId", adminHandler.DeleteUser)

	admin.Get("/chats", adminHandler.ListChats)
	admin.Get("/chats/:chatId/messages", adminHandler.GetChatMessages)
	admin.Delete("/chats/:chatId", adminHandler.DeleteChat)

	admin.Get("/settings", settingHandler.ListSettings)
	admin.Post("/settings", settingHandler.CreateSetting)
	admin.Patch("/settings/:settingId", settingHandler.UpdateSetting)
	admin.Delete("/settings/:settingId", settingHandler.DeleteSetting)

	admin.Get("/dashboard/stats", dashboardHandler.GetStats)
	admin.Get("/dashboard/charts", dashboardHandler.GetCharts)
	admin.Get("/changes", dashboardHandler.GetChanges)
}
