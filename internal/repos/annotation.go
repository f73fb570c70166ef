package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/types"
)

type AnnotationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Annotation) ([]*types.Annotation, error)
	ListByPersonSince(ctx context.Context, tx *gorm.DB, tenantID, personID uuid.UUID, since time.Time) ([]*types.Annotation, error)
	ListByTenantSince(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, since time.Time) ([]*types.Annotation, error)
}

type annotationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnnotationRepo(db *gorm.DB, baseLog *logger.Logger) AnnotationRepo {
	return &annotationRepo{db: db, log: baseLog.With("repo", "AnnotationRepo")}
}

func (r *annotationRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Annotation) ([]*types.Annotation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Annotation{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *annotationRepo) ListByPersonSince(ctx context.Context, tx *gorm.DB, tenantID, personID uuid.UUID, since time.Time) ([]*types.Annotation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Annotation
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND person_id = ? AND created_at >= ?", tenantID, personID, since).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *annotationRepo) ListByTenantSince(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, since time.Time) ([]*types.Annotation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Annotation
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
