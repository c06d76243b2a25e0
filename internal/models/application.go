package models

import (
	"time"

	"github.com/google/uuid"
)

type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "pending"
	ApplicationAnalyzing   ApplicationStatus = "analyzing"
	ApplicationShortlisted ApplicationStatus = "shortlisted"
	ApplicationRejected    ApplicationStatus = "rejected"
)

type Application struct {
	ID          uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CandidateID uuid.UUID         `gorm:"type:uuid;not null;index" json:"candidate_id"`
	JobID       uuid.UUID         `gorm:"type:uuid;not null;index" json:"job_id"`
	ResumeRef   string            `gorm:"type:text" json:"resume_ref"`
	Status      ApplicationStatus `gorm:"not null;default:'pending'" json:"status"`

	// AnalysisFailures counts failed resume analyses; the poller stops retrying at the configured limit.
	AnalysisFailures int `gorm:"not null;default:0" json:"-"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	Job Job `gorm:"foreignKey:JobID" json:"-"`
}

func (Application) TableName() string {
	return "applications"
}
