package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const ReportKindDailySummary = "daily_summary"

// Report is a persisted executive summary produced by the daily tier.
type Report struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Kind        string         `gorm:"column:kind;not null;index" json:"kind"`
	PeriodStart time.Time      `gorm:"column:period_start;not null" json:"period_start"`
	PeriodEnd   time.Time      `gorm:"column:period_end;not null" json:"period_end"`
	Body        datatypes.JSON `gorm:"type:jsonb;column:body" json:"body"` // metrics, insights, recommendations
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
}

func (Report) TableName() string { return "report" }
