package models

import (
	"time"

	"github.com/google/uuid"
)

// JobRequirement is the immutable input to test generation and resume scoring.
type JobRequirement struct {
	Title                string   `json:"title"`
	RequiredSkills       []string `json:"required_skills"`
	ExperienceDescriptor string   `json:"experience_descriptor"`
}

type Job struct {
	ID                   uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Title                string    `gorm:"type:text;not null" json:"title"`
	RequiredSkills       []string  `gorm:"type:jsonb;serializer:json" json:"required_skills"`
	ExperienceDescriptor string    `gorm:"type:text" json:"experience_descriptor"`
	CreatedAt            time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

func (j *Job) Requirement() JobRequirement {
	skills := make([]string, len(j.RequiredSkills))
	copy(skills, j.RequiredSkills)
	return JobRequirement{
		Title:                j.Title,
		RequiredSkills:       skills,
		ExperienceDescriptor: j.ExperienceDescriptor,
	}
}
