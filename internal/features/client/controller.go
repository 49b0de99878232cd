package client

import (
	"errors"

	common_models "go-sitter/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

type Controller struct {
	History HistoryProvider
	Ratings RatingRepository
}

func NewController(history HistoryProvider, ratings RatingRepository) *Controller {
	return &Controller{History: history, Ratings: ratings}
}

// GetHistory godoc
// @Summary Client booking history summary
// @Tags clients
// @Produce json
// @Param id path string true "Client ID"
// @Success 200 {object} History
// @Router /api/clients/{id}/history [get]
func (ctrl *Controller) GetHistory(c *fiber.Ctx) error {
	history, err := ctrl.History.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(history)
}

// SubmitRating godoc
// @Summary Submit a rating
// @Tags clients
// @Accept json
// @Produce json
// @Param id path string true "Client ID"
// @Param rating body Rating true "Rating (1-5 stars)"
// @Success 201 {object} Rating
// @Failure 400 {object} map[string]interface{}
// @Router /api/clients/{id}/ratings [post]
func (ctrl *Controller) SubmitRating(c *fiber.Ctx) error {
	var rating Rating
	if err := c.BodyParser(&rating); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	rating.ClientID = c.Params("id")

	if err := ctrl.Ratings.Create(c.UserContext(), &rating); err != nil {
		var valErr *common_models.ValidationError
		if errors.As(err, &valErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(rating)
}
