package waitlist

import (
	"errors"

	common_models "go-sitter/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

type Controller struct {
	Scheduler *Scheduler
}

func NewController(scheduler *Scheduler) *Controller {
	return &Controller{Scheduler: scheduler}
}

// Add godoc
// @Summary Join the waitlist
// @Description Add a client to the waitlist for a slot; one waiting entry per client per slot
// @Tags waitlist
// @Accept json
// @Produce json
// @Param entry body AddRequest true "Waitlist request"
// @Success 201 {object} Entry
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /api/waitlist [post]
func (ctrl *Controller) Add(c *fiber.Ctx) error {
	var req AddRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	entry, err := ctrl.Scheduler.Add(c.UserContext(), req)
	if err != nil {
		if errors.Is(err, common_models.ErrDuplicateWaitlist) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		var valErr *common_models.ValidationError
		if errors.As(err, &valErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

// Position godoc
// @Summary Waitlist position
// @Description 1-based rank of a waiting entry among entries for the same slot
// @Tags waitlist
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} map[string]int
// @Failure 400 {object} map[string]interface{}
// @Router /api/waitlist/{id}/position [get]
func (ctrl *Controller) Position(c *fiber.Ctx) error {
	position, err := ctrl.Scheduler.Position(c.UserContext(), c.Params("id"))
	if err != nil {
		var valErr *common_models.ValidationError
		if errors.As(err, &valErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"position": position})
}

// Cancel godoc
// @Summary Leave the waitlist
// @Tags waitlist
// @Param id path string true "Entry ID"
// @Success 204 {object} nil
// @Failure 400 {object} map[string]interface{}
// @Router /api/waitlist/{id} [delete]
func (ctrl *Controller) Cancel(c *fiber.Ctx) error {
	if err := ctrl.Scheduler.Cancel(c.UserContext(), c.Params("id")); err != nil {
		var valErr *common_models.ValidationError
		if errors.As(err, &valErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
