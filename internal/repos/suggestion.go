package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/types"
)

type ListSuggestionsOptions struct {
	Status string
	Limit  int
	Offset int
}

type SuggestionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.ImprovementSuggestion) ([]*types.ImprovementSuggestion, error)
	GetByID(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.ImprovementSuggestion, error)
	Save(ctx context.Context, tx *gorm.DB, row *types.ImprovementSuggestion) error
	List(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, opts ListSuggestionsOptions) ([]*types.ImprovementSuggestion, int64, error)
	// ExistsOpen reports whether a not-yet-reviewed suggestion with the same
	// title already exists, so overlapping tier runs do not stack duplicates.
	ExistsOpen(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, title string) (bool, error)
	CountPending(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (int64, error)
}

type suggestionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSuggestionRepo(db *gorm.DB, baseLog *logger.Logger) SuggestionRepo {
	return &suggestionRepo{db: db, log: baseLog.With("repo", "SuggestionRepo")}
}

func (r *suggestionRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.ImprovementSuggestion) ([]*types.ImprovementSuggestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.ImprovementSuggestion{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *suggestionRepo) GetByID(ctx context.Context, tx *gorm.DB, tenantID, id uuid.UUID) (*types.ImprovementSuggestion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var row types.ImprovementSuggestion
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

func (r *suggestionRepo) Save(ctx context.Context, tx *gorm.DB, row *types.ImprovementSuggestion) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(row).Error
}

func (r *suggestionRepo) List(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, opts ListSuggestionsOptions) ([]*types.ImprovementSuggestion, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).Model(&types.ImprovementSuggestion{}).Where("tenant_id = ?", tenantID)
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
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

	var results []*types.ImprovementSuggestion
	if err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *suggestionRepo) ExistsOpen(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, title string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.ImprovementSuggestion{}).
		Where("tenant_id = ? AND title = ? AND status IN ?", tenantID, title,
			[]string{types.SuggestionStatusSuggested, types.SuggestionStatusUnderReview}).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *suggestionRepo) CountPending(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.ImprovementSuggestion{}).
		Where("tenant_id = ? AND status IN ?", tenantID,
			[]string{types.SuggestionStatusSuggested, types.SuggestionStatusUnderReview}).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
