package v1

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

var startedAt = time.Now()

func registerHealth(r fiber.Router) {
	r.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
			"uptime": time.Since(startedAt).Round(time.Second).String(),
		})
	})
}
