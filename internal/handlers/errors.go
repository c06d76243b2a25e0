package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"alfredoptarigan/assessment-engine/internal/models"
	"alfredoptarigan/assessment-engine/internal/repositories"
	"alfredoptarigan/assessment-engine/internal/services"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, models.ErrInvalidStatusTransition),
		errors.Is(err, services.ErrAttemptAlreadyStarted),
		errors.Is(err, services.ErrApplicationNotEligible):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrResumeFormatUnsupported),
		services.IsCallerError(err):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func invalidID(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "Invalid " + what + " ID format",
	})
}

func parseID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(c.Params("id"))
}
