package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded resume file. StorageRef is what applications carry as
// their resume reference: a local path or an s3://bucket/key URI.
type Document struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	CandidateID      *uuid.UUID `gorm:"type:uuid;index" json:"candidate_id,omitempty"`
	Filename         string     `gorm:"type:text" json:"filename"`
	OriginalFileName string     `gorm:"type:text" json:"original_filename"`
	Extension        string     `gorm:"type:text" json:"extension"`
	StorageRef       string     `gorm:"type:text" json:"storage_ref"`
	SizeBytes        int64      `json:"size_bytes"`
	CreatedAt        time.Time  `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (d *Document) TableName() string {
	return "documents"
}
