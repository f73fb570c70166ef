package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	SentimentVeryPositive = "very_positive"
	SentimentPositive     = "positive"
	SentimentNeutral      = "neutral"
	SentimentNegative     = "negative"
	SentimentVeryNegative = "very_negative"
)

func IsNegativeSentiment(label string) bool {
	return label == SentimentNegative || label == SentimentVeryNegative
}

type SentimentRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PersonID  uuid.UUID `gorm:"type:uuid;not null;index" json:"person_id"`
	Label     string    `gorm:"column:label;not null;index" json:"label"`
	Intensity float64   `gorm:"column:intensity;not null;default:0" json:"intensity"` // [0,1]
	Message   string    `gorm:"column:message" json:"message"`
	Origin    string    `gorm:"column:origin" json:"origin"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (SentimentRecord) TableName() string { return "sentiment_record" }
