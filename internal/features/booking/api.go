package booking

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
	group := app.Group("/api/bookings", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.List)
	group.Post("/", h.controller.Create)
	group.Get("/availability", h.controller.CheckAvailability)
	group.Get("/:id", h.controller.Get)
	group.Post("/:id/approve", h.controller.Approve)
	group.Post("/:id/start", h.controller.Start)
	group.Post("/:id/complete", h.controller.Complete)
	group.Post("/:id/cancel", h.controller.Cancel)
	group.Post("/:id/reschedule", h.controller.Reschedule)
	group.Put("/:id/sitter", h.controller.AssignSitter)
}
