package notification

import (
	"strconv"

	"go-sitter/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type Controller struct {
	Service Service
	Hub     *Hub
}

func NewController(service Service, hub *Hub) *Controller {
	return &Controller{Service: service, Hub: hub}
}

func clientIDFromCtx(c *fiber.Ctx) string {
	if claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		return claims.UserID
	}
	return ""
}

// List godoc
// @Summary List notifications for the authenticated client
// @Tags notifications
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /api/notifications [get]
func (ctrl *Controller) List(c *fiber.Ctx) error {
	clientID := clientIDFromCtx(c)
	if clientID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing client identity"})
	}

	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "10"), 10, 64)

	notifications, total, err := ctrl.Service.ListForClient(c.UserContext(), clientID, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"data":  notifications,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// UnreadCount godoc
// @Summary Count unread notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/notifications/unread [get]
func (ctrl *Controller) UnreadCount(c *fiber.Ctx) error {
	clientID := clientIDFromCtx(c)
	if clientID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing client identity"})
	}

	count, err := ctrl.Service.CountUnread(c.UserContext(), clientID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"unread": count})
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags notifications
// @Param id path string true "Notification ID"
// @Success 204 {object} nil
// @Router /api/notifications/{id}/read [put]
func (ctrl *Controller) MarkRead(c *fiber.Ctx) error {
	if err := ctrl.Service.MarkRead(c.UserContext(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleWebSocket keeps the connection registered for live pushes until the
// client hangs up.
func (ctrl *Controller) HandleWebSocket(conn *websocket.Conn) {
	clientID := conn.Query("client_id")
	if clientID == "" {
		conn.Close()
		return
	}

	ctrl.Hub.Register(clientID, conn)
	defer func() {
		ctrl.Hub.Unregister(clientID, conn)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
