package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/assessment-engine/internal/models"
	"alfredoptarigan/assessment-engine/internal/services"
)

type AssessmentHandler struct {
	assessment services.AssessmentService
}

func NewAssessmentHandler(assessment services.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{
		assessment: assessment,
	}
}

// HandleComplete handles POST /assessments/:id/complete
func (h *AssessmentHandler) HandleComplete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return invalidID(c, "assessment")
	}

	var set models.CategoryScoreSet
	if err := c.BodyParser(&set); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	assessment, err := h.assessment.CompleteCategoryAssessment(c.UserContext(), id, set)
	if err != nil {
		return respondError(c, err)
	}

	response := models.CompleteAssessmentResponse{
		ID:     assessment.ID.String(),
		Status: string(assessment.Status),
	}
	if assessment.OverallScore != nil {
		response.OverallScore = *assessment.OverallScore
	}

	return c.JSON(response)
}
