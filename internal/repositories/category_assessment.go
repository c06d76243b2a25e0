package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/assessment-engine/internal/models"
)

type CategoryAssessmentRepository interface {
	Create(assessment *models.CategoryAssessment) error
	FindByID(id uuid.UUID) (*models.CategoryAssessment, error)
	Save(assessment *models.CategoryAssessment) error
}

type categoryAssessmentRepository struct {
	db *gorm.DB
}

func NewCategoryAssessmentRepository(db *gorm.DB) CategoryAssessmentRepository {
	return &categoryAssessmentRepository{db: db}
}

func (r *categoryAssessmentRepository) Create(assessment *models.CategoryAssessment) error {
	if err := r.db.Create(assessment).Error; err != nil {
		return fmt.Errorf("failed to create category assessment: %w", err)
	}
	return nil
}

func (r *categoryAssessmentRepository) FindByID(id uuid.UUID) (*models.CategoryAssessment, error) {
	var assessment models.CategoryAssessment
	if err := r.db.Where("id = ?", id).First(&assessment).Error; err != nil {
		return nil, wrapFind("category assessment", err)
	}
	return &assessment, nil
}

func (r *categoryAssessmentRepository) Save(assessment *models.CategoryAssessment) error {
	assessment.UpdatedAt = time.Now()
	if err := r.db.Save(assessment).Error; err != nil {
		return fmt.Errorf("failed to save category assessment: %w", err)
	}
	return nil
}
