package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	AnnotationTrackSentiment    = "track_sentiment"
	AnnotationOrgSentiment      = "org_sentiment"
	AnnotationContentDifficulty = "content_difficulty"
	AnnotationSuggestion        = "suggestion"
	AnnotationDetectedPattern   = "detected_pattern"
	AnnotationGeneral           = "general"
)

type Annotation struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PersonID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"person_id"`
	Category  string         `gorm:"column:category;not null;index" json:"category"`
	Sentiment string         `gorm:"column:sentiment" json:"sentiment"`
	Intensity float64        `gorm:"column:intensity;not null;default:0" json:"intensity"`
	Tags      datatypes.JSON `gorm:"type:jsonb;column:tags" json:"tags"`
	Note      string         `gorm:"column:note" json:"note"`
	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Annotation) TableName() string { return "annotation" }
