package booking

import (
	"errors"
	"time"

	common_models "go-sitter/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

type Controller struct {
	Service Service
	Checker AvailabilityChecker
}

func NewController(service Service, checker AvailabilityChecker) *Controller {
	return &Controller{Service: service, Checker: checker}
}

func writeServiceError(c *fiber.Ctx, err error) error {
	if errors.Is(err, ErrSlotConflict) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	var valErr *common_models.ValidationError
	if errors.As(err, &valErr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// Create godoc
// @Summary Create booking
// @Description Create a booking; intervals overlapping an active booking for the same sitter are rejected
// @Tags bookings
// @Accept json
// @Produce json
// @Param booking body CreateRequest true "Booking"
// @Success 201 {object} Booking
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/bookings [post]
func (ctrl *Controller) Create(c *fiber.Ctx) error {
	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	bk, err := ctrl.Service.Create(c.UserContext(), req)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(bk)
}

// Get godoc
// @Summary Get booking
// @Tags bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} Booking
// @Failure 404 {object} map[string]interface{}
// @Router /api/bookings/{id} [get]
func (ctrl *Controller) Get(c *fiber.Ctx) error {
	bk, err := ctrl.Service.Get(c.UserContext(), c.Params("id"))
	if err != nil || bk == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Booking not found"})
	}
	return c.JSON(bk)
}

// List godoc
// @Summary List bookings
// @Tags bookings
// @Produce json
// @Param client_id query string false "Filter by client"
// @Param sitter_id query string false "Filter by sitter"
// @Param service_type query string false "Filter by service type"
// @Success 200 {array} Booking
// @Router /api/bookings [get]
func (ctrl *Controller) List(c *fiber.Ctx) error {
	q := Query{
		ClientID:    c.Query("client_id"),
		SitterID:    c.Query("sitter_id"),
		ServiceType: c.Query("service_type"),
	}
	if status := c.Query("status"); status != "" {
		q.Statuses = []Status{Status(status)}
	}
	bookings, err := ctrl.Service.List(c.UserContext(), q)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(bookings)
}

// Approve godoc
// @Summary Approve booking
// @Tags bookings
// @Param id path string true "Booking ID"
// @Success 204 {object} nil
// @Router /api/bookings/{id}/approve [post]
func (ctrl *Controller) Approve(c *fiber.Ctx) error {
	if err := ctrl.Service.Approve(c.UserContext(), c.Params("id")); err != nil {
		return writeServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Start godoc
// @Summary Start booking
// @Tags bookings
// @Param id path string true "Booking ID"
// @Success 204 {object} nil
// @Router /api/bookings/{id}/start [post]
func (ctrl *Controller) Start(c *fiber.Ctx) error {
	if err := ctrl.Service.Start(c.UserContext(), c.Params("id")); err != nil {
		return writeServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Complete godoc
// @Summary Complete booking
// @Tags bookings
// @Param id path string true "Booking ID"
// @Success 204 {object} nil
// @Router /api/bookings/{id}/complete [post]
func (ctrl *Controller) Complete(c *fiber.Ctx) error {
	if err := ctrl.Service.Complete(c.UserContext(), c.Params("id")); err != nil {
		return writeServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Cancel godoc
// @Summary Cancel booking
// @Description Cancelling frees the slot and triggers waitlist promotion
// @Tags bookings
// @Param id path string true "Booking ID"
// @Success 204 {object} nil
// @Router /api/bookings/{id}/cancel [post]
func (ctrl *Controller) Cancel(c *fiber.Ctx) error {
	if err := ctrl.Service.Cancel(c.UserContext(), c.Params("id")); err != nil {
		return writeServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Reschedule godoc
// @Summary Reschedule booking
// @Tags bookings
// @Accept json
// @Param id path string true "Booking ID"
// @Param body body object true "{\"scheduled_start\": \"RFC3339\", \"duration_minutes\": 60}"
// @Success 204 {object} nil
// @Failure 409 {object} map[string]interface{}
// @Router /api/bookings/{id}/reschedule [post]
func (ctrl *Controller) Reschedule(c *fiber.Ctx) error {
	var body struct {
		ScheduledStart  string `json:"scheduled_start"`
		DurationMinutes int    `json:"duration_minutes"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	start, err := time.Parse(time.RFC3339, body.ScheduledStart)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "scheduled_start must be RFC3339"})
	}
	if err := ctrl.Service.Reschedule(c.UserContext(), c.Params("id"), start, body.DurationMinutes); err != nil {
		return writeServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AssignSitter godoc
// @Summary Assign sitter
// @Tags bookings
// @Accept json
// @Param id path string true "Booking ID"
// @Param body body object true "{\"sitter_id\": \"...\"}"
// @Success 204 {object} nil
// @Failure 409 {object} map[string]interface{}
// @Router /api/bookings/{id}/sitter [put]
func (ctrl *Controller) AssignSitter(c *fiber.Ctx) error {
	var body struct {
		SitterID string `json:"sitter_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.SitterID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sitter_id is required"})
	}
	if err := ctrl.Service.AssignSitter(c.UserContext(), c.Params("id"), body.SitterID); err != nil {
		return writeServiceError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CheckAvailability godoc
// @Summary Check sitter availability
// @Description Reports whether a sitter is free for the interval; store errors read as unavailable
// @Tags bookings
// @Produce json
// @Param sitter_id query string true "Sitter ID"
// @Param start query string true "Interval start, RFC3339"
// @Param duration_minutes query int true "Interval length"
// @Success 200 {object} map[string]bool
// @Router /api/bookings/availability [get]
func (ctrl *Controller) CheckAvailability(c *fiber.Ctx) error {
	sitterID := c.Query("sitter_id")
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "start must be RFC3339"})
	}
	duration := c.QueryInt("duration_minutes")
	if sitterID == "" || duration <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "sitter_id and duration_minutes are required"})
	}
	available := ctrl.Checker.IsAvailable(c.UserContext(), sitterID, start, duration)
	return c.JSON(fiber.Map{"available": available})
}
