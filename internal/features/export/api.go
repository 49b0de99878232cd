package export

import (
	"go-sitter/internal/common/api"
	"go-sitter/internal/config"
	"go-sitter/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type Api struct {
	controller *Controller
	config     *config.Config
}

func NewApi(controller *Controller, config *config.Config) api.Route {
	return &Api{
		controller: controller,
		config:     config,
	}
}

func (h *Api) Setup(app *fiber.App) {
	group := app.Group("/api/export", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/bookings", h.controller.ExportBookings)
	group.Get("/executions", h.controller.ExportExecutions)
}
