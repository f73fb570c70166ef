package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/types"
)

type SentimentDistribution struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type SentimentRecordRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.SentimentRecord) ([]*types.SentimentRecord, error)
	// ListByPersonSince returns records oldest first.
	ListByPersonSince(ctx context.Context, tx *gorm.DB, tenantID, personID uuid.UUID, since time.Time) ([]*types.SentimentRecord, error)
	ListByTenantSince(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, since time.Time) ([]*types.SentimentRecord, error)
	// PrevBefore returns the latest record strictly before the given instant,
	// or types.ErrNotFound when the person has no earlier record.
	PrevBefore(ctx context.Context, tx *gorm.DB, tenantID, personID uuid.UUID, before time.Time) (*types.SentimentRecord, error)
	Distribution(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, since time.Time) ([]SentimentDistribution, error)
}

type sentimentRecordRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSentimentRecordRepo(db *gorm.DB, baseLog *logger.Logger) SentimentRecordRepo {
	return &sentimentRecordRepo{db: db, log: baseLog.With("repo", "SentimentRecordRepo")}
}

func (r *sentimentRecordRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.SentimentRecord) ([]*types.SentimentRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.SentimentRecord{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *sentimentRecordRepo) ListByPersonSince(ctx context.Context, tx *gorm.DB, tenantID, personID uuid.UUID, since time.Time) ([]*types.SentimentRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.SentimentRecord
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND person_id = ? AND created_at >= ?", tenantID, personID, since).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *sentimentRecordRepo) ListByTenantSince(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, since time.Time) ([]*types.SentimentRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.SentimentRecord
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *sentimentRecordRepo) PrevBefore(ctx context.Context, tx *gorm.DB, tenantID, personID uuid.UUID, before time.Time) (*types.SentimentRecord, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.SentimentRecord
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND person_id = ? AND created_at < ?", tenantID, personID, before).
		Order("created_at DESC").
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *sentimentRecordRepo) Distribution(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, since time.Time) ([]SentimentDistribution, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []SentimentDistribution
	if err := transaction.WithContext(ctx).
		Model(&types.SentimentRecord{}).
		Select("label, count(*) as count").
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Group("label").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
