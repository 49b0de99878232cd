package export

import (
	"fmt"
	"strconv"

	"go-sitter/internal/features/booking"

	"github.com/gofiber/fiber/v2"
)

type Controller struct {
	Service Service
}

func NewController(service Service) *Controller {
	return &Controller{Service: service}
}

func sendWorkbook(c *fiber.Ctx, data []byte, filename string) error {
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(data)
}

// ExportBookings godoc
// @Summary Export bookings as a spreadsheet
// @Tags export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param client_id query string false "Filter by client"
// @Param sitter_id query string false "Filter by sitter"
// @Param service_type query string false "Filter by service type"
// @Success 200 {file} binary
// @Router /api/export/bookings [get]
func (ctrl *Controller) ExportBookings(c *fiber.Ctx) error {
	q := booking.Query{
		ClientID:    c.Query("client_id"),
		SitterID:    c.Query("sitter_id"),
		ServiceType: c.Query("service_type"),
	}
	data, filename, err := ctrl.Service.ExportBookings(c.UserContext(), q)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return sendWorkbook(c, data, filename)
}

// ExportExecutions godoc
// @Summary Export rule executions as a spreadsheet
// @Tags export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param booking_id query string false "Filter by booking"
// @Param limit query int false "Max records"
// @Success 200 {file} binary
// @Router /api/export/executions [get]
func (ctrl *Controller) ExportExecutions(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "1000"), 10, 64)
	data, filename, err := ctrl.Service.ExportExecutions(c.UserContext(), c.Query("booking_id"), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return sendWorkbook(c, data, filename)
}
