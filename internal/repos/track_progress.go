package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/types"
)

// TrackStats are tenant-wide aggregates used for report metrics.
type TrackStats struct {
	Total     int64   `json:"total"`
	Completed int64   `json:"completed"`
	Overdue   int64   `json:"overdue"`
	AvgPct    float64 `json:"avg_pct"`
}

type TrackProgressRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.TrackProgress) ([]*types.TrackProgress, error)
	ListByPerson(ctx context.Context, tx *gorm.DB, tenantID, personID uuid.UUID) ([]*types.TrackProgress, error)
	// ListNewlyOverdue returns non-completed tracks whose due date fell inside
	// (from, to].
	ListNewlyOverdue(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, from, to time.Time) ([]*types.TrackProgress, error)
	Stats(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, now time.Time) (TrackStats, error)
}

type trackProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrackProgressRepo(db *gorm.DB, baseLog *logger.Logger) TrackProgressRepo {
	return &trackProgressRepo{db: db, log: baseLog.With("repo", "TrackProgressRepo")}
}

func (r *trackProgressRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.TrackProgress) ([]*types.TrackProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.TrackProgress{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *trackProgressRepo) ListByPerson(ctx context.Context, tx *gorm.DB, tenantID, personID uuid.UUID) ([]*types.TrackProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.TrackProgress
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND person_id = ?", tenantID, personID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *trackProgressRepo) ListNewlyOverdue(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, from, to time.Time) ([]*types.TrackProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.TrackProgress
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND status <> ?", tenantID, types.TrackCompleted).
		Where("due_at IS NOT NULL AND due_at > ? AND due_at <= ?", from, to).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *trackProgressRepo) Stats(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, now time.Time) (TrackStats, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var stats TrackStats
	err := transaction.WithContext(ctx).
		Model(&types.TrackProgress{}).
		Select(`count(*) as total,
			coalesce(avg(percent_complete), 0) as avg_pct,
			sum(case when status = ? then 1 else 0 end) as completed,
			sum(case when status = ? or (status <> ? and due_at is not null and due_at < ?) then 1 else 0 end) as overdue`,
			types.TrackCompleted, types.TrackOverdue, types.TrackCompleted, now).
		Where("tenant_id = ?", tenantID).
		Scan(&stats).Error
	if err != nil {
		return TrackStats{}, err
	}
	return stats, nil
}
