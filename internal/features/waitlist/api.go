package waitlist

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
	group := app.Group("/api/waitlist", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/", h.controller.Add)
	group.Get("/:id/position", h.controller.Position)
	group.Delete("/:id", h.controller.Cancel)
}
