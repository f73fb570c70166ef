package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SuggestionStatusSuggested   = "suggested"
	SuggestionStatusUnderReview = "under_review"
	SuggestionStatusApproved    = "approved_pending_execution"
	SuggestionStatusRejected    = "rejected"
	SuggestionStatusImplemented = "implemented"
)

const (
	SuggestionAuthorSystem = "system"
	SuggestionAuthorHuman  = "human"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

type ImprovementSuggestion struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Category      string         `gorm:"column:category;not null;index" json:"category"`
	Priority      string         `gorm:"column:priority;not null;default:medium" json:"priority"`
	Title         string         `gorm:"column:title;not null" json:"title"`
	Description   string         `gorm:"column:description" json:"description"`
	Analysis      datatypes.JSON `gorm:"type:jsonb;column:analysis" json:"analysis"`
	Status        string         `gorm:"column:status;not null;default:suggested;index" json:"status"`
	Author        string         `gorm:"column:author;not null;default:system" json:"author"` // system|human
	ReviewerID    *uuid.UUID     `gorm:"type:uuid;column:reviewer_id" json:"reviewer_id,omitempty"`
	ReviewerNotes string         `gorm:"column:reviewer_notes" json:"reviewer_notes"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (ImprovementSuggestion) TableName() string { return "improvement_suggestion" }
