package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AttemptStatus string

const (
	StatusCreated    AttemptStatus = "created"
	StatusInProgress AttemptStatus = "in_progress"
	StatusCompleted  AttemptStatus = "completed"
)

const QuestionsPerTest = 5

const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

var ErrInvalidStatusTransition = errors.New("invalid status transition")

var statusRank = map[AttemptStatus]int{
	StatusCreated:    0,
	StatusInProgress: 1,
	StatusCompleted:  2,
}

type TestAttempt struct {
	ID                 uuid.UUID           `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ApplicationID      uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`
	CandidateID        uuid.UUID           `gorm:"type:uuid;not null;index" json:"candidate_id"`
	JobID              uuid.UUID           `gorm:"type:uuid;not null;index" json:"job_id"`
	Questions          []GeneratedQuestion `gorm:"type:jsonb;serializer:json" json:"-"`
	Status             AttemptStatus       `gorm:"not null;default:'created'" json:"status"`
	SubmittedAnswers   []string            `gorm:"type:jsonb;serializer:json" json:"submitted_answers,omitempty"`
	Verdicts           []QuestionVerdict   `gorm:"type:jsonb;serializer:json" json:"verdicts,omitempty"`
	Score              *float64            `gorm:"type:decimal(5,2)" json:"score,omitempty"`
	Source             string              `gorm:"type:text" json:"source"`
	Model              string              `gorm:"type:text" json:"model,omitempty"`
	GenerationAttempts int                 `json:"generation_attempts"`
	StartedAt          *time.Time          `json:"started_at,omitempty"`
	CompletedAt        *time.Time          `json:"completed_at,omitempty"`
	CreatedAt          time.Time           `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time           `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (TestAttempt) TableName() string {
	return "test_attempts"
}

// Advance moves the attempt forward to the given status. Backward moves and
// repeated transitions are rejected.
func (t *TestAttempt) Advance(to AttemptStatus, at time.Time) error {
	current, ok := statusRank[t.Status]
	if !ok {
		current = -1
	}
	next, ok := statusRank[to]
	if !ok || next <= current {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, t.Status, to)
	}

	t.Status = to
	switch to {
	case StatusInProgress:
		t.StartedAt = &at
	case StatusCompleted:
		if t.StartedAt == nil {
			t.StartedAt = &at
		}
		t.CompletedAt = &at
	}
	t.UpdatedAt = at
	return nil
}
