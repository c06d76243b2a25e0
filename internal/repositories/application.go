package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/assessment-engine/internal/models"
)

type ApplicationRepository interface {
	Create(app *models.Application) error
	FindByID(id uuid.UUID) (*models.Application, error)
	UpdateStatus(id uuid.UUID, status models.ApplicationStatus) error
	ClaimForAnalysis(id uuid.UUID) (bool, error)
	RecordAnalysisFailure(id uuid.UUID) error
	FindPendingAnalyses(limit, maxFailures int) ([]models.Application, error)
	ReclaimStaleAnalyses(cutoff time.Time) (int64, error)
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(app *models.Application) error {
	if err := r.db.Create(app).Error; err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

// FindByID loads the application together with its job.
func (r *applicationRepository) FindByID(id uuid.UUID) (*models.Application, error) {
	var app models.Application
	if err := r.db.Preload("Job").Where("id = ?", id).First(&app).Error; err != nil {
		return nil, wrapFind("application", err)
	}
	return &app, nil
}

func (r *applicationRepository) UpdateStatus(id uuid.UUID, status models.ApplicationStatus) error {
	result := r.db.Model(&models.Application{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update application status: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("application %s: %w", id, ErrNotFound)
	}

	return nil
}

// ClaimForAnalysis moves a pending application to analyzing. It reports false
// when another worker already claimed it.
func (r *applicationRepository) ClaimForAnalysis(id uuid.UUID) (bool, error) {
	result := r.db.Model(&models.Application{}).
		Where("id = ? AND status = ?", id, models.ApplicationPending).
		Updates(map[string]interface{}{
			"status":     models.ApplicationAnalyzing,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, fmt.Errorf("failed to claim application: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

// RecordAnalysisFailure returns the application to pending and counts the failure.
func (r *applicationRepository) RecordAnalysisFailure(id uuid.UUID) error {
	result := r.db.Model(&models.Application{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            models.ApplicationPending,
			"analysis_failures": gorm.Expr("analysis_failures + 1"),
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to record analysis failure: %w", result.Error)
	}

	return nil
}

func (r *applicationRepository) FindPendingAnalyses(limit, maxFailures int) ([]models.Application, error) {
	var apps []models.Application
	err := r.db.
		Where("status = ? AND resume_ref <> '' AND analysis_failures < ?", models.ApplicationPending, maxFailures).
		Order("created_at ASC").
		Limit(limit).
		Find(&apps).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending applications: %w", err)
	}

	return apps, nil
}

// ReclaimStaleAnalyses returns applications left in analyzing since before
// cutoff to pending, so a crashed worker does not strand them.
func (r *applicationRepository) ReclaimStaleAnalyses(cutoff time.Time) (int64, error) {
	result := r.db.Model(&models.Application{}).
		Where("status = ? AND updated_at < ?", models.ApplicationAnalyzing, cutoff).
		Updates(map[string]interface{}{
			"status":     models.ApplicationPending,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to reclaim stale analyses: %w", result.Error)
	}

	return result.RowsAffected, nil
}
