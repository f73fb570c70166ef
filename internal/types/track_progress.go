package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	TrackNotStarted         = "not_started"
	TrackInProgress         = "in_progress"
	TrackAwaitingAssessment = "awaiting_assessment"
	TrackCompleted          = "completed"
	TrackOverdue            = "overdue"
)

type TrackProgress struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	PersonID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"person_id"`
	TrackName       string     `gorm:"column:track_name;not null" json:"track_name"`
	Status          string     `gorm:"column:status;not null;index" json:"status"`
	StartedAt       *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	DueAt           *time.Time `gorm:"column:due_at;index" json:"due_at,omitempty"`
	CompletedAt     *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	PercentComplete float64    `gorm:"column:percent_complete;not null;default:0" json:"percent_complete"`
	CreatedAt       time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updated_at"`
}

func (TrackProgress) TableName() string { return "track_progress" }

// IsOverdue reports whether the track should be treated as overdue at the
// given instant, either by explicit status or by a missed due date.
func (t *TrackProgress) IsOverdue(now time.Time) bool {
	if t.Status == TrackCompleted {
		return false
	}
	if t.Status == TrackOverdue {
		return true
	}
	return t.DueAt != nil && t.DueAt.Before(now)
}
