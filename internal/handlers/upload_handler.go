package handlers

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfredoptarigan/assessment-engine/internal/logger"
	"alfredoptarigan/assessment-engine/internal/models"
	"alfredoptarigan/assessment-engine/internal/repositories"
	"alfredoptarigan/assessment-engine/internal/services"
)

const resumeFormField = "resume"

type UploadHandler struct {
	docRepo        repositories.DocumentRepository
	storageService services.StorageService
	maxFileSize    int64
	log            *zap.Logger
}

func NewUploadHandler(
	docRepo repositories.DocumentRepository,
	storageService services.StorageService,
	maxFileSize int64,
	log *zap.Logger,
) *UploadHandler {
	return &UploadHandler{
		docRepo:        docRepo,
		storageService: storageService,
		maxFileSize:    maxFileSize,
		log:            logger.OrNop(log),
	}
}

// HandleUpload handles POST /upload
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile(resumeFormField)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No resume uploaded. Please upload a 'resume' file (pdf, txt or md).",
		})
	}

	if file.Size > h.maxFileSize {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Resume file too large. Max size: %d bytes", h.maxFileSize),
		})
	}

	var candidateID *uuid.UUID
	if raw := c.FormValue("candidate_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return invalidID(c, "candidate")
		}
		candidateID = &id
	}

	filename, filePath, err := h.storageService.SaveFile(file, resumeFormField)
	if err != nil {
		if errors.Is(err, services.ErrResumeFormatUnsupported) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to save resume file: %v", err),
		})
	}

	now := time.Now()
	doc := models.Document{
		ID:               uuid.New(),
		CandidateID:      candidateID,
		Filename:         filename,
		OriginalFileName: file.Filename,
		Extension:        strings.ToLower(filepath.Ext(file.Filename)),
		StorageRef:       filePath,
		SizeBytes:        file.Size,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.docRepo.Create(&doc); err != nil {
		// Cleanup uploaded file if database insert fails
		if derr := h.storageService.DeleteFile(filename); derr != nil {
			h.log.Warn("failed to remove orphaned upload", zap.String("filename", filename), zap.Error(derr))
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save resume document record",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Resume uploaded successfully",
		"document": models.UploadResponse{
			ID:           doc.ID.String(),
			Filename:     doc.Filename,
			OriginalName: doc.OriginalFileName,
			ResumeRef:    doc.StorageRef,
		},
	})
}
