package handlers

import (
	"github.com/gofiber/fiber/v2"

	"alfredoptarigan/assessment-engine/internal/models"
	"alfredoptarigan/assessment-engine/internal/services"
)

type ResumeHandler struct {
	assessment services.AssessmentService
	worker     services.Worker
}

func NewResumeHandler(assessment services.AssessmentService, worker services.Worker) *ResumeHandler {
	return &ResumeHandler{
		assessment: assessment,
		worker:     worker,
	}
}

// HandleAnalyze handles POST /applications/:id/resume-analysis
func (h *ResumeHandler) HandleAnalyze(c *fiber.Ctx) error {
	appID, err := parseID(c)
	if err != nil {
		return invalidID(c, "application")
	}

	if err := h.assessment.RequestResumeAnalysis(c.UserContext(), appID); err != nil {
		return respondError(c, err)
	}

	// Enqueue the job for the worker to process
	h.worker.EnqueueJob(appID)

	return c.Status(fiber.StatusAccepted).JSON(models.AnalyzeResumeResponse{
		ApplicationID: appID.String(),
		Status:        string(models.ApplicationPending),
	})
}

// HandleGetAnalysis handles GET /applications/:id/resume-analysis
func (h *ResumeHandler) HandleGetAnalysis(c *fiber.Ctx) error {
	appID, err := parseID(c)
	if err != nil {
		return invalidID(c, "application")
	}

	app, analysis, err := h.assessment.GetResumeAnalysis(c.UserContext(), appID)
	if err != nil {
		return respondError(c, err)
	}

	response := models.ResumeAnalysisResponse{
		ApplicationID:     app.ID.String(),
		ApplicationStatus: string(app.Status),
	}
	if analysis != nil {
		result := analysis.Result()
		response.Result = &result
	}

	return c.JSON(response)
}
