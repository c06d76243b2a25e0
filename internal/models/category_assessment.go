package models

import (
	"time"

	"github.com/google/uuid"
)

type CategoryGroup string

const (
	GroupPersonality CategoryGroup = "personality"
	GroupCognitive   CategoryGroup = "cognitive"
	GroupEmotional   CategoryGroup = "emotional"
	GroupBehavioral  CategoryGroup = "behavioral"
	GroupVocal       CategoryGroup = "vocal"
)

// CategoryGroups lists the groups in aggregation order.
var CategoryGroups = []CategoryGroup{
	GroupPersonality,
	GroupCognitive,
	GroupEmotional,
	GroupBehavioral,
	GroupVocal,
}

// CategorySubfields is the fixed subfield schema of every group. A subfield
// missing from a present group counts as 0.
var CategorySubfields = map[CategoryGroup][]string{
	GroupPersonality: {"openness", "conscientiousness", "extraversion", "agreeableness", "emotional_stability"},
	GroupCognitive:   {"problem_solving", "critical_thinking", "learning_agility", "attention_to_detail"},
	GroupEmotional:   {"self_awareness", "empathy", "self_regulation", "stress_tolerance"},
	GroupBehavioral:  {"teamwork", "leadership", "adaptability", "initiative"},
	GroupVocal:       {"clarity", "confidence", "pace", "tone"},
}

// CategoryScoreSet holds 0-100 subscores per group. A nil map means the group is absent.
type CategoryScoreSet struct {
	Personality map[string]float64 `json:"personality,omitempty"`
	Cognitive   map[string]float64 `json:"cognitive,omitempty"`
	Emotional   map[string]float64 `json:"emotional,omitempty"`
	Behavioral  map[string]float64 `json:"behavioral,omitempty"`
	Vocal       map[string]float64 `json:"vocal,omitempty"`
}

func (s CategoryScoreSet) Group(g CategoryGroup) (map[string]float64, bool) {
	var m map[string]float64
	switch g {
	case GroupPersonality:
		m = s.Personality
	case GroupCognitive:
		m = s.Cognitive
	case GroupEmotional:
		m = s.Emotional
	case GroupBehavioral:
		m = s.Behavioral
	case GroupVocal:
		m = s.Vocal
	}
	return m, m != nil
}

type AssessmentStatus string

const (
	AssessmentPending   AssessmentStatus = "pending"
	AssessmentCompleted AssessmentStatus = "completed"
)

type CategoryAssessment struct {
	ID            uuid.UUID          `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ApplicationID uuid.UUID          `gorm:"type:uuid;not null;index" json:"application_id"`
	Status        AssessmentStatus   `gorm:"not null;default:'pending'" json:"status"`
	Personality   map[string]float64 `gorm:"type:jsonb;serializer:json" json:"personality,omitempty"`
	Cognitive     map[string]float64 `gorm:"type:jsonb;serializer:json" json:"cognitive,omitempty"`
	Emotional     map[string]float64 `gorm:"type:jsonb;serializer:json" json:"emotional,omitempty"`
	Behavioral    map[string]float64 `gorm:"type:jsonb;serializer:json" json:"behavioral,omitempty"`
	Vocal         map[string]float64 `gorm:"type:jsonb;serializer:json" json:"vocal,omitempty"`
	OverallScore  *int               `json:"overall_score,omitempty"`
	CompletedAt   *time.Time         `json:"completed_at,omitempty"`
	CreatedAt     time.Time          `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time          `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (CategoryAssessment) TableName() string {
	return "category_assessments"
}

func (a *CategoryAssessment) ScoreSet() CategoryScoreSet {
	return CategoryScoreSet{
		Personality: a.Personality,
		Cognitive:   a.Cognitive,
		Emotional:   a.Emotional,
		Behavioral:  a.Behavioral,
		Vocal:       a.Vocal,
	}
}

// ApplyScoreSet overwrites only the groups present in set.
func (a *CategoryAssessment) ApplyScoreSet(set CategoryScoreSet) {
	if set.Personality != nil {
		a.Personality = set.Personality
	}
	if set.Cognitive != nil {
		a.Cognitive = set.Cognitive
	}
	if set.Emotional != nil {
		a.Emotional = set.Emotional
	}
	if set.Behavioral != nil {
		a.Behavioral = set.Behavioral
	}
	if set.Vocal != nil {
		a.Vocal = set.Vocal
	}
}
