package handlers

import (
	"log"

	"chatdesk-backend/internal/dashboard"
	"chatdesk-backend/internal/repo"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service       *dashboard.Service
	changeLogRepo repo.ChangeLogRepoInterface
}

func NewDashboardHandler(service *dashboard.Service, changeLogRepo repo.ChangeLogRepoInterface) *DashboardHandler {
	return &DashboardHandler{service: service, changeLogRepo: changeLogRepo}
}

func (h *DashboardHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		log.Printf("dashboard stats failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get stats",
		})
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}

func (h *DashboardHandler) GetCharts(c *fiber.Ctx) error {
	charts, err := h.service.Charts(c.UserContext())
	if err != nil {
		log.Printf("dashboard charts failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get charts",
		})
	}
	return c.Status(fiber.StatusOK).JSON(charts)
}

// GetChanges pages through the change log: ?since=<seq>&table=<name>&limit=<n>
func (h *DashboardHandler) GetChanges(c *fiber.Ctx) error {
	since := c.QueryInt("since", 0)
	if since < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "since must not be negative",
		})
	}

	changes, err := h.changeLogRepo.ListChanges(uint64(since), c.Query("table"), c.QueryInt("limit", 100))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get changes",
		})
	}

	next := uint64(since)
	if len(changes) > 0 {
		next = changes[len(changes)-1].Seq
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"changes": changes,
		"next":    next,
	})
}
