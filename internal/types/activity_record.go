package types

import (
	"time"

	"github.com/google/uuid"
)

// ActivityRecord marks one interaction (e.g. a conversational turn). Only the
// timestamp matters to the engine; content stays in the record system.
type ActivityRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PersonID   uuid.UUID `gorm:"type:uuid;not null;index" json:"person_id"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null;index" json:"occurred_at"`
}

func (ActivityRecord) TableName() string { return "activity_record" }
