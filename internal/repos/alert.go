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

type ListAlertsOptions struct {
	Severity string
	Status   string
	PersonID *uuid.UUID
	Limit    int
	Offset   int
}

type SeverityCount struct {
	Severity string `json:"severity"`
	Count    int64  `json:"count"`
}

type AlertRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Alert) ([]*types.Alert, error)
	GetByID(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.Alert, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.Alert) error
	List(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, opts ListAlertsOptions) ([]*types.Alert, int64, error)
	ListSince(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, since time.Time) ([]*types.Alert, error)
	// FindActiveRecent locates an active alert with the same
	// (person, category) key created after the cutoff. Used as the cooldown
	// fallback when redis is unavailable.
	FindActiveRecent(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, personID *uuid.UUID, category string, since time.Time) (*types.Alert, error)
	CountActiveBySeverity(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]SeverityCount, error)
}

type alertRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAlertRepo(db *gorm.DB, baseLog *logger.Logger) AlertRepo {
	return &alertRepo{db: db, log: baseLog.With("repo", "AlertRepo")}
}

func (r *alertRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Alert) ([]*types.Alert, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Alert{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *alertRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.Alert, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Alert
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *alertRepo) Save(ctx context.Context, tx *gorm.DB, row *types.Alert) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *alertRepo) List(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, opts ListAlertsOptions) ([]*types.Alert, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).Model(&types.Alert{}).Where("tenant_id = ?", tenantID)
	if opts.Severity != "" {
		q = q.Where("severity = ?", opts.Severity)
	}
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	if opts.PersonID != nil {
		q = q.Where("person_id = ?", *opts.PersonID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	var results []*types.Alert
	if err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *alertRepo) ListSince(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, since time.Time) ([]*types.Alert, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Alert
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND created_at >= ?", tenantID, since).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *alertRepo) FindActiveRecent(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, personID *uuid.UUID, category string, since time.Time) (*types.Alert, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("tenant_id = ? AND category = ? AND status = ? AND created_at >= ?",
			tenantID, category, types.AlertStatusActive, since)
	if personID != nil {
		q = q.Where("person_id = ?", *personID)
	} else {
		q = q.Where("person_id IS NULL")
	}

	var row types.Alert
	if err := q.Order("created_at DESC").First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *alertRepo) CountActiveBySeverity(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]SeverityCount, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []SeverityCount
	if err := transaction.WithContext(ctx).
		Model(&types.Alert{}).
		Select("severity, count(*) as count").
		Where("tenant_id = ? AND status = ?", tenantID, types.AlertStatusActive).
		Group("severity").
		Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
