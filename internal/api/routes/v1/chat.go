package v1

import (
	"chatdesk-backend/internal/api/middleware"
	"chatdesk-backend/internal/handlers"
	"chatdesk-backend/internal/repo"

	"github.com/gofiber/fiber/v2"
)

func registerChat(r fiber.Router, deps *Deps) {
	chatRepo := repo.NewChatRepository(deps.DB, deps.Notifier)
	chatHandler := handlers.NewChatHandler(chatRepo, deps.Workflow)
	exportHandler := handlers.NewExportHandler(deps.Workflow, deps.Archiver)

	chats := r.Group("/chats", middleware.RequireAuth(deps.Auth))
	chats.Get("/", chatHandler.GetChats)
	chats.Post("/", chatHandler.CreateChat)
	chats.Get("/:chatId", chatHandler.GetChat)
	chats.Delete("/:chatId", chatHandler.DeleteChat)
	chats.Get("/:chatId/messages", chatHandler.GetMessages)
	chats.Post("/:chatId/messages", chatHandler.SendMessage)
	chats.Get("/:chatId/export", exportHandler.ExportChat)
	chats.Post("/:chatId/export/archive", exportHandler.ArchiveChat)
}

func registerProfile(r fiber.Router, deps *Deps) {
	profileHandler := handlers.NewProfileHandler(repo.NewProfileRepository(deps.DB, deps.Notifier))

	profile := r.Group("/profile", middleware.RequireAuth(deps.Auth))
	profile.Get("/", profileHandler.GetProfile)
	profile.Patch("/", profileHandler.UpdateProfile)
}
