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

type PersonRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Person) ([]*types.Person, error)
	// GetByID is not tenant-scoped: the dispatcher resolves a recipient's
	// tenant from the row itself.
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Person, error)
	ListActive(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.Person, error)
	ListAdmins(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.Person, error)
	// ListStale returns active people whose risk score has never been
	// computed or was computed before the cutoff.
	ListStale(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, cutoff time.Time) ([]*types.Person, error)
	// ListInactive returns active people with no recorded activity since the
	// cutoff (people who never had activity count once they are older than it).
	ListInactive(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, cutoff time.Time) ([]*types.Person, error)
	UpdateRisk(ctx context.Context, tx *gorm.DB, tenantID, personID uuid.UUID, score float64, at time.Time) error
	UpdateSentiment(ctx context.Context, tx *gorm.DB, tenantID, personID uuid.UUID, label string, at time.Time) error
	CountByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (total int64, active int64, err error)
	TopAtRisk(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, minScore float64, limit int) ([]*types.Person, error)
	CountAtRisk(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, minScore float64) (int64, error)
}

type personRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersonRepo(db *gorm.DB, baseLog *logger.Logger) PersonRepo {
	return &personRepo{db: db, log: baseLog.With("repo", "PersonRepo")}
}

func (r *personRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Person) ([]*types.Person, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Person{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *personRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Person, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.Person
	if err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *personRepo) ListActive(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.Person, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Person
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *personRepo) ListAdmins(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) ([]*types.Person, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Person
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND role = ? AND is_active = ?", tenantID, types.RoleAdmin, true).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *personRepo) ListStale(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, cutoff time.Time) ([]*types.Person, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Person
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Where("risk_updated_at IS NULL OR risk_updated_at < ?", cutoff).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *personRepo) ListInactive(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, cutoff time.Time) ([]*types.Person, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.Person
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Where("last_activity_at < ? OR (last_activity_at IS NULL AND created_at < ?)", cutoff, cutoff).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *personRepo) UpdateRisk(ctx context.Context, tx *gorm.DB, tenantID, personID uuid.UUID, score float64, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Person{}).
		Where("tenant_id = ? AND id = ?", tenantID, personID).
		Updates(map[string]any{
			"risk_score":      score,
			"risk_updated_at": at,
		}).Error
}

func (r *personRepo) UpdateSentiment(ctx context.Context, tx *gorm.DB, tenantID, personID uuid.UUID, label string, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Person{}).
		Where("tenant_id = ? AND id = ?", tenantID, personID).
		Updates(map[string]any{
			"current_sentiment":    label,
			"sentiment_updated_at": at,
		}).Error
}

func (r *personRepo) CountByTenant(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (int64, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var total, active int64
	if err := transaction.WithContext(ctx).
		Model(&types.Person{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if err := transaction.WithContext(ctx).
		Model(&types.Person{}).
		Where("tenant_id = ? AND is_active = ?", tenantID, true).
		Count(&active).Error; err != nil {
		return 0, 0, err
	}
	return total, active, nil
}

func (r *personRepo) TopAtRisk(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, minScore float64, limit int) ([]*types.Person, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 10
	}
	var results []*types.Person
	if err := transaction.WithContext(ctx).
		Where("tenant_id = ? AND is_active = ? AND risk_score >= ?", tenantID, true, minScore).
		Order("risk_score DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *personRepo) CountAtRisk(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, minScore float64) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.Person{}).
		Where("tenant_id = ? AND is_active = ? AND risk_score >= ?", tenantID, true, minScore).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
