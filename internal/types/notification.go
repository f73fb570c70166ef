package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	NotificationTypeRiskAlert        = "risk_alert"
	NotificationTypeDailyReport      = "daily_report"
	NotificationTypePatternDetected  = "pattern_detected"
	NotificationTypeSuggestionReview = "suggestion_review"
	NotificationTypeSystem           = "system"
)

type Notification struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	RecipientID uuid.UUID      `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Type        string         `gorm:"column:type;not null;index" json:"type"`
	Title       string         `gorm:"column:title;not null" json:"title"`
	Message     string         `gorm:"column:message;not null" json:"message"`
	Payload     datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload,omitempty"`
	Link        string         `gorm:"column:link" json:"link,omitempty"`
	IsRead      bool           `gorm:"column:is_read;not null;default:false;index" json:"is_read"`
	ReadAt      *time.Time     `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Notification) TableName() string { return "notification" }
