package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/assessment-engine/internal/models"
)

type TestAttemptRepository interface {
	FindByID(id uuid.UUID) (*models.TestAttempt, error)
	FindByApplicationID(applicationID uuid.UUID) (*models.TestAttempt, error)
	Replace(attempt *models.TestAttempt) error
	Save(attempt *models.TestAttempt) error
	ListQuestionSetsExcludingCandidate(candidateID uuid.UUID, limit int) ([][]models.GeneratedQuestion, error)
	ListRecent(limit int) ([]models.TestAttempt, error)
}

type testAttemptRepository struct {
	db *gorm.DB
}

func NewTestAttemptRepository(db *gorm.DB) TestAttemptRepository {
	return &testAttemptRepository{db: db}
}

func (r *testAttemptRepository) FindByID(id uuid.UUID) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := r.db.Where("id = ?", id).First(&attempt).Error; err != nil {
		return nil, wrapFind("test attempt", err)
	}
	return &attempt, nil
}

func (r *testAttemptRepository) FindByApplicationID(applicationID uuid.UUID) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := r.db.Where("application_id = ?", applicationID).First(&attempt).Error; err != nil {
		return nil, wrapFind("test attempt", err)
	}
	return &attempt, nil
}

// Replace swaps any not-yet-started attempt of the same application for the
// new one in a single transaction.
func (r *testAttemptRepository) Replace(attempt *models.TestAttempt) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("application_id = ? AND status = ?", attempt.ApplicationID, models.StatusCreated).
			Delete(&models.TestAttempt{}).Error; err != nil {
			return fmt.Errorf("failed to remove previous attempt: %w", err)
		}
		if err := tx.Create(attempt).Error; err != nil {
			return fmt.Errorf("failed to create test attempt: %w", err)
		}
		return nil
	})
}

func (r *testAttemptRepository) Save(attempt *models.TestAttempt) error {
	attempt.UpdatedAt = time.Now()
	if err := r.db.Save(attempt).Error; err != nil {
		return fmt.Errorf("failed to save test attempt: %w", err)
	}
	return nil
}

// ListQuestionSetsExcludingCandidate returns the question sets of the most
// recent attempts issued to anyone but candidateID.
func (r *testAttemptRepository) ListQuestionSetsExcludingCandidate(candidateID uuid.UUID, limit int) ([][]models.GeneratedQuestion, error) {
	var attempts []models.TestAttempt
	err := r.db.
		Select("id", "questions").
		Where("candidate_id <> ?", candidateID).
		Order("created_at DESC").
		Limit(limit).
		Find(&attempts).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list question sets: %w", err)
	}

	sets := make([][]models.GeneratedQuestion, 0, len(attempts))
	for _, a := range attempts {
		sets = append(sets, a.Questions)
	}
	return sets, nil
}

func (r *testAttemptRepository) ListRecent(limit int) ([]models.TestAttempt, error) {
	var attempts []models.TestAttempt
	if err := r.db.Order("created_at DESC").Limit(limit).Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list test attempts: %w", err)
	}
	return attempts, nil
}
