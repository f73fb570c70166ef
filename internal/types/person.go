package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Person is a tracked individual within a tenant. The engine only mutates the
// sentiment and risk fields; everything else belongs to the record system.
type Person struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"tenant_id"`
	FullName           string     `gorm:"column:full_name;not null" json:"full_name"`
	Email              string     `gorm:"column:email;not null;index" json:"email"`
	Role               string     `gorm:"column:role;not null;default:member;index" json:"role"` // admin|member
	CurrentSentiment   string     `gorm:"column:current_sentiment" json:"current_sentiment"`
	SentimentUpdatedAt *time.Time `gorm:"column:sentiment_updated_at" json:"sentiment_updated_at,omitempty"`
	LastActivityAt     *time.Time `gorm:"column:last_activity_at;index" json:"last_activity_at,omitempty"`
	RiskScore          float64    `gorm:"column:risk_score;not null;default:0" json:"risk_score"`
	RiskUpdatedAt      *time.Time `gorm:"column:risk_updated_at;index" json:"risk_updated_at,omitempty"`
	IsActive           bool       `gorm:"column:is_active;not null;default:true;index" json:"is_active"`
	CreatedAt          time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"not null" json:"updated_at"`
}

func (Person) TableName() string { return "person" }

func (p *Person) IsAdmin() bool { return p.Role == RoleAdmin }
