package notification

import (
	"go-sitter/internal/common/api"
	"go-sitter/internal/config"
	"go-sitter/internal/middleware"

	"github.com/gofiber/contrib/websocket"
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
	group := app.Group("/api/notifications", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.List)
	group.Get("/unread", h.controller.UnreadCount)
	group.Put("/:id/read", h.controller.MarkRead)

	// Live push channel; clients identify themselves with ?client_id=
	app.Get("/ws/notifications", websocket.New(h.controller.HandleWebSocket))
}
