package automation

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
	group := app.Group("/api/automation", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/rules", h.controller.ListRules)
	group.Get("/rules/:id", h.controller.GetRule)
	group.Post("/rules", h.controller.CreateRule)
	group.Put("/rules/:id/enabled", h.controller.SetEnabled)
	group.Delete("/rules/:id", h.controller.DeleteRule)
	group.Get("/executions", h.controller.ListExecutions)
}
