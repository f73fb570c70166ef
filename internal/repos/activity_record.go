package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/types"
)

type ActivityRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.ActivityRecord) ([]*types.ActivityRecord, error)
	CountByPerson(ctx context.Context, tx *gorm.DB, tenantID, personID uuid.UUID) (int64, error)
}

type activityRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRecordRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRecordRepo {
	return &activityRecordRepo{db: db, log: baseLog.With("repo", "ActivityRecordRepo")}
}

func (r *activityRecordRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.ActivityRecord) ([]*types.ActivityRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.ActivityRecord{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *activityRecordRepo) CountByPerson(ctx context.Context, tx *gorm.DB, tenantID, personID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.ActivityRecord{}).
		Where("tenant_id = ? AND person_id = ?", tenantID, personID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
