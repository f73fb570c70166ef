package services

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/repos"
	"github.com/onboardhq/pulse-backend/internal/types"
)

//go:embed notification_types.yaml
var notificationTypesYAML []byte

// NotificationMeta is per-type presentation metadata for clients.
type NotificationMeta struct {
	Icon  string `yaml:"icon" json:"icon"`
	Color string `yaml:"color" json:"color"`
	Group string `yaml:"group" json:"group"`
}

// NotifyInput describes one notification to deliver.
type NotifyInput struct {
	RecipientID uuid.UUID
	Type        string
	Title       string
	Message     string
	Payload     map[string]any
	Link        string
}

type NotificationDispatcher interface {
	// Notify delivers to one recipient, resolving the tenant from the
	// recipient row. types.ErrNotFound when the recipient does not exist
	// or has been deactivated.
	Notify(ctx context.Context, tx *gorm.DB, input NotifyInput) (*types.Notification, error)
	// NotifyTenantAdmins fans out to every active admin of the tenant.
	// Per-recipient failures are logged, not fatal; returns the delivered count.
	NotifyTenantAdmins(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, input NotifyInput) (int, error)
	MarkRead(ctx context.Context, tx *gorm.DB, recipientID, notificationID uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID) (int64, error)
	UnreadCount(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID) (int64, error)
	ListUnread(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, limit int) ([]*types.Notification, error)
	List(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, opts repos.ListNotificationsOptions) ([]*types.Notification, int64, error)
	// PurgeOlderThan deletes notifications older than age, optionally
	// narrowed to one tenant and/or one recipient.
	PurgeOlderThan(ctx context.Context, tx *gorm.DB, tenantID, recipientID *uuid.UUID, age time.Duration) (int64, error)
	// Meta returns presentation metadata for a notification type.
	Meta(notificationType string) NotificationMeta
}

type notificationDispatcher struct {
	log              *logger.Logger
	notificationRepo repos.NotificationRepo
	personRepo       repos.PersonRepo
	meta             map[string]NotificationMeta
	defaultMeta      NotificationMeta
}

func NewNotificationDispatcher(
	log *logger.Logger,
	notificationRepo repos.NotificationRepo,
	personRepo repos.PersonRepo,
) (NotificationDispatcher, error) {
	meta := map[string]NotificationMeta{}
	if err := yaml.Unmarshal(notificationTypesYAML, &meta); err != nil {
		return nil, fmt.Errorf("parse notification type metadata: %w", err)
	}
	defaultMeta, ok := meta["default"]
	if !ok {
		return nil, fmt.Errorf("notification type metadata is missing the default entry")
	}

	return &notificationDispatcher{
		log:              log.With("service", "NotificationDispatcher"),
		notificationRepo: notificationRepo,
		personRepo:       personRepo,
		meta:             meta,
		defaultMeta:      defaultMeta,
	}, nil
}

func (d *notificationDispatcher) Meta(notificationType string) NotificationMeta {
	if m, ok := d.meta[notificationType]; ok {
		return m
	}
	return d.defaultMeta
}

func (d *notificationDispatcher) build(tenantID uuid.UUID, input NotifyInput, now time.Time) (*types.Notification, error) {
	if input.Type == "" || input.Title == "" {
		return nil, fmt.Errorf("%w: type and title are required", types.ErrValidation)
	}

	var payload datatypes.JSON
	if input.Payload != nil {
		raw, err := json.Marshal(input.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		payload = datatypes.JSON(raw)
	}

	return &types.Notification{
		ID:          uuid.New(),
		TenantID:    tenantID,
		RecipientID: input.RecipientID,
		Type:        input.Type,
		Title:       input.Title,
		Message:     input.Message,
		Payload:     payload,
		Link:        input.Link,
		CreatedAt:   now,
	}, nil
}

func (d *notificationDispatcher) Notify(ctx context.Context, tx *gorm.DB, input NotifyInput) (*types.Notification, error) {
	recipient, err := d.personRepo.GetByID(ctx, tx, input.RecipientID)
	if err != nil {
		return nil, err
	}
	if !recipient.IsActive {
		return nil, types.ErrNotFound
	}

	notification, err := d.build(recipient.TenantID, input, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if _, err := d.notificationRepo.Create(ctx, tx, []*types.Notification{notification}); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return notification, nil
}

func (d *notificationDispatcher) NotifyTenantAdmins(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, input NotifyInput) (int, error) {
	admins, err := d.personRepo.ListAdmins(ctx, tx, tenantID)
	if err != nil {
		return 0, fmt.Errorf("list admins: %w", err)
	}

	now := time.Now().UTC()
	delivered := 0
	for _, admin := range admins {
		perRecipient := input
		perRecipient.RecipientID = admin.ID

		notification, err := d.build(tenantID, perRecipient, now)
		if err != nil {
			return delivered, err
		}
		if _, err := d.notificationRepo.Create(ctx, tx, []*types.Notification{notification}); err != nil {
			d.log.Error("Failed to deliver admin notification",
				"tenant_id", tenantID.String(),
				"recipient_id", admin.ID.String(),
				"type", input.Type,
				"error", err.Error(),
			)
			continue
		}
		delivered++
	}

	d.log.Debug("Admin fan-out complete",
		"tenant_id", tenantID.String(),
		"type", input.Type,
		"admins", len(admins),
		"delivered", delivered,
	)
	return delivered, nil
}

func (d *notificationDispatcher) MarkRead(ctx context.Context, tx *gorm.DB, recipientID, notificationID uuid.UUID) (bool, error) {
	return d.notificationRepo.MarkRead(ctx, tx, recipientID, notificationID, time.Now().UTC())
}

func (d *notificationDispatcher) MarkAllRead(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID) (int64, error) {
	return d.notificationRepo.MarkAllRead(ctx, tx, recipientID, time.Now().UTC())
}

func (d *notificationDispatcher) UnreadCount(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID) (int64, error) {
	return d.notificationRepo.CountUnread(ctx, tx, recipientID)
}

func (d *notificationDispatcher) ListUnread(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, limit int) ([]*types.Notification, error) {
	return d.notificationRepo.ListUnread(ctx, tx, recipientID, limit)
}

func (d *notificationDispatcher) List(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, opts repos.ListNotificationsOptions) ([]*types.Notification, int64, error) {
	return d.notificationRepo.List(ctx, tx, recipientID, opts)
}

func (d *notificationDispatcher) PurgeOlderThan(ctx context.Context, tx *gorm.DB, tenantID, recipientID *uuid.UUID, age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age)
	deleted, err := d.notificationRepo.DeleteOlderThan(ctx, tx, cutoff, tenantID, recipientID)
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	if deleted > 0 {
		d.log.Info("Purged old notifications", "deleted", deleted, "cutoff", cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}
