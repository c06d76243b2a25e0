package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/assessment-engine/internal/models"
	"alfredoptarigan/assessment-engine/internal/services"
)

type TestHandler struct {
	assessment services.AssessmentService
}

func NewTestHandler(assessment services.AssessmentService) *TestHandler {
	return &TestHandler{
		assessment: assessment,
	}
}

// HandleGenerate handles POST /applications/:id/test
func (h *TestHandler) HandleGenerate(c *fiber.Ctx) error {
	appID, err := parseID(c)
	if err != nil {
		return invalidID(c, "application")
	}

	attempt, err := h.assessment.GenerateTestForApplication(c.UserContext(), appID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(models.NewTestResponse(attempt))
}

// HandleGet handles GET /tests/:id
func (h *TestHandler) HandleGet(c *fiber.Ctx) error {
	attemptID, err := parseID(c)
	if err != nil {
		return invalidID(c, "test")
	}

	attempt, err := h.assessment.GetTest(c.UserContext(), attemptID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(models.NewTestResponse(attempt))
}

// HandleStart handles POST /tests/:id/start
func (h *TestHandler) HandleStart(c *fiber.Ctx) error {
	attemptID, err := parseID(c)
	if err != nil {
		return invalidID(c, "test")
	}

	attempt, err := h.assessment.StartTest(c.UserContext(), attemptID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(models.NewTestResponse(attempt))
}

// HandleSubmit handles POST /tests/:id/submit
func (h *TestHandler) HandleSubmit(c *fiber.Ctx) error {
	attemptID, err := parseID(c)
	if err != nil {
		return invalidID(c, "test")
	}

	var req models.SubmitAnswersRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	attempt, outcome, err := h.assessment.SubmitAnswers(c.UserContext(), attemptID, req.Answers)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(models.SubmitAnswersResponse{
		ID:         attempt.ID.String(),
		Status:     string(attempt.Status),
		Percentage: outcome.Percentage,
		Verdicts:   outcome.Verdicts,
	})
}
