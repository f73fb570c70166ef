package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

const (
	AlertStatusActive   = "active"
	AlertStatusResolved = "resolved"
)

const (
	AlertCategoryAttritionRisk     = "attrition_risk"
	AlertCategoryOverdueTrack      = "overdue_track"
	AlertCategoryNegativeSentiment = "negative_sentiment"
	AlertCategoryInactivity        = "inactivity"
)

// SeverityRank orders severities for aggregation; unknown values rank lowest.
func SeverityRank(severity string) int {
	switch severity {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

type Alert struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID       uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PersonID       *uuid.UUID     `gorm:"type:uuid;index" json:"person_id,omitempty"` // nil for tenant-wide alerts
	Category       string         `gorm:"column:category;not null;index" json:"category"`
	Severity       string         `gorm:"column:severity;not null;index" json:"severity"`
	Score          float64        `gorm:"column:score;not null;default:0" json:"score"`
	Status         string         `gorm:"column:status;not null;default:active;index" json:"status"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	Justification  string         `gorm:"column:justification" json:"justification"`
	Context        datatypes.JSON `gorm:"type:jsonb;column:context" json:"context"` // factors/actions
	Tags           datatypes.JSON `gorm:"type:jsonb;column:tags" json:"tags"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
	ResolvedAt     *time.Time     `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy     *uuid.UUID     `gorm:"type:uuid;column:resolved_by" json:"resolved_by,omitempty"`
	ResolutionNote string         `gorm:"column:resolution_note" json:"resolution_note,omitempty"`
}

func (Alert) TableName() string { return "alert" }
