package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/assessment-engine/internal/models"
)

type ResumeAnalysisRepository interface {
	Upsert(analysis *models.ResumeAnalysis) error
	FindByApplicationID(applicationID uuid.UUID) (*models.ResumeAnalysis, error)
}

type resumeAnalysisRepository struct {
	db *gorm.DB
}

func NewResumeAnalysisRepository(db *gorm.DB) ResumeAnalysisRepository {
	return &resumeAnalysisRepository{db: db}
}

// Upsert keeps one analysis per application; a re-analysis overwrites it.
func (r *resumeAnalysisRepository) Upsert(analysis *models.ResumeAnalysis) error {
	analysis.UpdatedAt = time.Now()
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "application_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"score", "match", "feedback", "missing_skills", "source", "updated_at"}),
	}).Create(analysis).Error

	if err != nil {
		return fmt.Errorf("failed to save resume analysis: %w", err)
	}
	return nil
}

func (r *resumeAnalysisRepository) FindByApplicationID(applicationID uuid.UUID) (*models.ResumeAnalysis, error) {
	var analysis models.ResumeAnalysis
	if err := r.db.Where("application_id = ?", applicationID).First(&analysis).Error; err != nil {
		return nil, wrapFind("resume analysis", err)
	}
	return &analysis, nil
}
