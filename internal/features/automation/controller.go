package automation

import (
	"errors"
	"strconv"

	common_models "go-sitter/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

type Controller struct {
	Service Service
}

func NewController(service Service) *Controller {
	return &Controller{Service: service}
}

// CreateRule godoc
// @Summary Create automation rule
// @Description Create a new automation rule; unrecognized field, operator and action names are rejected
// @Tags automation
// @Accept json
// @Produce json
// @Param rule body Rule true "Automation Rule"
// @Success 201 {object} Rule
// @Failure 400 {object} map[string]interface{}
// @Router /api/automation/rules [post]
func (ctrl *Controller) CreateRule(c *fiber.Ctx) error {
	var rule Rule
	if err := c.BodyParser(&rule); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.CreateRule(c.UserContext(), &rule); err != nil {
		var cfgErr *common_models.ConfigurationError
		if errors.As(err, &cfgErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

// GetRule godoc
// @Summary Get automation rule
// @Tags automation
// @Produce json
// @Param id path string true "Rule ID"
// @Success 200 {object} Rule
// @Failure 404 {object} map[string]interface{}
// @Router /api/automation/rules/{id} [get]
func (ctrl *Controller) GetRule(c *fiber.Ctx) error {
	rule, err := ctrl.Service.GetRule(c.UserContext(), c.Params("id"))
	if err != nil || rule == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Rule not found"})
	}
	return c.JSON(rule)
}

// ListRules godoc
// @Summary List automation rules
// @Tags automation
// @Produce json
// @Success 200 {array} Rule
// @Router /api/automation/rules [get]
func (ctrl *Controller) ListRules(c *fiber.Ctx) error {
	rules, err := ctrl.Service.ListRules(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(rules)
}

// SetEnabled godoc
// @Summary Enable or disable a rule
// @Description The enabled flag is the only mutable part of a stored rule
// @Tags automation
// @Accept json
// @Param id path string true "Rule ID"
// @Param body body map[string]bool true "{\"enabled\": true}"
// @Success 204 {object} nil
// @Router /api/automation/rules/{id}/enabled [put]
func (ctrl *Controller) SetEnabled(c *fiber.Ctx) error {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := ctrl.Service.SetRuleEnabled(c.UserContext(), c.Params("id"), body.Enabled); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteRule godoc
// @Summary Delete automation rule
// @Tags automation
// @Param id path string true "Rule ID"
// @Success 204 {object} nil
// @Router /api/automation/rules/{id} [delete]
func (ctrl *Controller) DeleteRule(c *fiber.Ctx) error {
	if err := ctrl.Service.DeleteRule(c.UserContext(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListExecutions godoc
// @Summary List rule executions
// @Tags automation
// @Produce json
// @Param booking_id query string false "Filter by booking"
// @Param limit query int false "Max records"
// @Success 200 {array} RuleExecution
// @Router /api/automation/executions [get]
func (ctrl *Controller) ListExecutions(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "100"), 10, 64)
	executions, err := ctrl.Service.ListExecutions(c.UserContext(), c.Query("booking_id"), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(executions)
}
