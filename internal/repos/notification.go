package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/types"
)

type ListNotificationsOptions struct {
	Limit      int
	Offset     int
	Type       string
	UnreadOnly bool
}

type NotificationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, rows []*types.Notification) ([]*types.Notification, error)
	// MarkRead flips the unread flag for one notification owned by the
	// recipient. Returns false when the row is missing or already read.
	MarkRead(ctx context.Context, tx *gorm.DB, recipientID, id uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, at time.Time) (int64, error)
	CountUnread(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID) (int64, error)
	ListUnread(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, limit int) ([]*types.Notification, error)
	List(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, opts ListNotificationsOptions) ([]*types.Notification, int64, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time, tenantID, recipientID *uuid.UUID) (int64, error)
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, baseLog *logger.Logger) NotificationRepo {
	return &notificationRepo{db: db, log: baseLog.With("repo", "NotificationRepo")}
}

func (r *notificationRepo) Create(ctx context.Context, tx *gorm.DB, rows []*types.Notification) ([]*types.Notification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return []*types.Notification{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, tx *gorm.DB, recipientID, id uuid.UUID, at time.Time) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Notification{}).
		Where("id = ? AND recipient_id = ? AND is_read = ?", id, recipientID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, at time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": at,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *notificationRepo) CountUnread(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(ctx).
		Model(&types.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *notificationRepo) ListUnread(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, limit int) ([]*types.Notification, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var results []*types.Notification
	if err := transaction.WithContext(ctx).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *notificationRepo) List(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, opts ListNotificationsOptions) ([]*types.Notification, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	q := transaction.WithContext(ctx).Model(&types.Notification{}).Where("recipient_id = ?", recipientID)
	if opts.Type != "" {
		q = q.Where("type = ?", opts.Type)
	}
	if opts.UnreadOnly {
		q = q.Where("is_read = ?", false)
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

	var results []*types.Notification
	if err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&results).Error; err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *notificationRepo) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time, tenantID, recipientID *uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Where("created_at < ?", cutoff)
	if tenantID != nil {
		q = q.Where("tenant_id = ?", *tenantID)
	}
	if recipientID != nil {
		q = q.Where("recipient_id = ?", *recipientID)
	}
	res := q.Delete(&types.Notification{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
