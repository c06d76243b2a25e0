package models

import (
	"time"

	"github.com/google/uuid"
)

const MatchThreshold = 75.0

// ResumeAnalysisResult is the fit decision for one resume against one job.
type ResumeAnalysisResult struct {
	Score         float64  `json:"score"`
	Match         bool     `json:"match"`
	Feedback      string   `json:"feedback"`
	MissingSkills []string `json:"missing_skills"`
	Source        string   `json:"source"`
}

const (
	AnalysisSourceAI        = "ai"
	AnalysisSourceHeuristic = "heuristic"
)

type ResumeAnalysis struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ApplicationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`
	Score         float64   `gorm:"type:decimal(5,2)" json:"score"`
	Match         bool      `json:"match"`
	Feedback      string    `gorm:"type:text" json:"feedback"`
	MissingSkills []string  `gorm:"type:jsonb;serializer:json" json:"missing_skills"`
	Source        string    `gorm:"type:text" json:"source"`
	CreatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ResumeAnalysis) TableName() string {
	return "resume_analyses"
}

func (r *ResumeAnalysis) Result() ResumeAnalysisResult {
	return ResumeAnalysisResult{
		Score:         r.Score,
		Match:         r.Match,
		Feedback:      r.Feedback,
		MissingSkills: r.MissingSkills,
		Source:        r.Source,
	}
}
