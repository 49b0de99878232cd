package system

import (
	"time"

	"go-sitter/internal/common/api"

	"github.com/gofiber/fiber/v2"
)

type HealthApi struct {
	startedAt time.Time
}

func NewHealthApi() api.Route {
	return &HealthApi{startedAt: time.Now()}
}

func (h *HealthApi) Setup(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"uptime": time.Since(h.startedAt).String(),
		})
	})
}
