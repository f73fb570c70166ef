package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	redisclient "github.com/onboardhq/pulse-backend/internal/clients/redis"
	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/repos"
	"github.com/onboardhq/pulse-backend/internal/types"
	"github.com/onboardhq/pulse-backend/internal/utils"
)

// RaiseAlertInput describes a detection about to become an alert. PersonID is
// nil for tenant-wide alerts.
type RaiseAlertInput struct {
	TenantID      uuid.UUID
	PersonID      *uuid.UUID
	Category      string
	Severity      string
	Score         float64
	Title         string
	Justification string
	Factors       []string
	Actions       []string
	Tags          []string
}

type AlertManager interface {
	// Raise creates an alert unless an active one with the same
	// (person, category) key is inside the cooldown window; in that case the
	// existing alert is refreshed instead. The bool reports whether a new row
	// was inserted.
	Raise(ctx context.Context, tx *gorm.DB, input RaiseAlertInput) (*types.Alert, bool, error)
	Resolve(ctx context.Context, tx *gorm.DB, tenantID, alertID, resolverID uuid.UUID, note string) (*types.Alert, error)
	List(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, opts repos.ListAlertsOptions) ([]*types.Alert, int64, error)
	ApproveSuggestion(ctx context.Context, tx *gorm.DB, tenantID, suggestionID, reviewerID uuid.UUID, notes string) (*types.ImprovementSuggestion, error)
	RejectSuggestion(ctx context.Context, tx *gorm.DB, tenantID, suggestionID, reviewerID uuid.UUID, notes string) (*types.ImprovementSuggestion, error)
}

type alertManager struct {
	log            *logger.Logger
	alertRepo      repos.AlertRepo
	suggestionRepo repos.SuggestionRepo
	cooldown       redisclient.CooldownStore
	cooldownTTL    time.Duration
}

// NewAlertManager accepts a nil cooldown store; dedup then relies on the
// database lookup alone.
func NewAlertManager(
	log *logger.Logger,
	alertRepo repos.AlertRepo,
	suggestionRepo repos.SuggestionRepo,
	cooldown redisclient.CooldownStore,
) AlertManager {
	cooldownMinutes := utils.GetEnvAsInt("MONITOR_ALERT_COOLDOWN_MINUTES", 360, nil)
	return &alertManager{
		log:            log.With("service", "AlertManager"),
		alertRepo:      alertRepo,
		suggestionRepo: suggestionRepo,
		cooldown:       cooldown,
		cooldownTTL:    time.Duration(cooldownMinutes) * time.Minute,
	}
}

func cooldownKey(input RaiseAlertInput) string {
	person := "tenant"
	if input.PersonID != nil {
		person = input.PersonID.String()
	}
	return fmt.Sprintf("%s:%s:%s", input.TenantID.String(), person, input.Category)
}

func alertContext(factors, actions []string) datatypes.JSON {
	if factors == nil {
		factors = []string{}
	}
	if actions == nil {
		actions = []string{}
	}
	raw, err := json.Marshal(map[string]any{
		"factors": factors,
		"actions": actions,
	})
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}

func (m *alertManager) Raise(ctx context.Context, tx *gorm.DB, input RaiseAlertInput) (*types.Alert, bool, error) {
	if input.Category == "" || input.Severity == "" || input.Title == "" {
		return nil, false, fmt.Errorf("%w: category, severity and title are required", types.ErrValidation)
	}

	now := time.Now().UTC()

	// Redis answers the dedup question on the hot path; when it is missing or
	// failing, the database lookup below decides instead.
	fresh := false
	redisAnswered := false
	if m.cooldown != nil {
		acquired, err := m.cooldown.Acquire(ctx, cooldownKey(input), m.cooldownTTL)
		if err != nil {
			m.log.Warn("Cooldown check failed, falling back to database lookup", "error", err.Error())
		} else {
			fresh = acquired
			redisAnswered = true
		}
	}

	var existing *types.Alert
	if !redisAnswered || !fresh {
		found, err := m.alertRepo.FindActiveRecent(ctx, tx, input.TenantID, input.PersonID, input.Category, now.Add(-m.cooldownTTL))
		if err != nil && err != types.ErrNotFound {
			return nil, false, fmt.Errorf("find active alert: %w", err)
		}
		existing = found
	}
	if existing != nil {
		existing.Score = input.Score
		if types.SeverityRank(input.Severity) > types.SeverityRank(existing.Severity) {
			existing.Severity = input.Severity
		}
		existing.Justification = input.Justification
		existing.Context = alertContext(input.Factors, input.Actions)
		existing.UpdatedAt = now
		if err := m.alertRepo.Save(ctx, tx, existing); err != nil {
			return nil, false, fmt.Errorf("refresh alert: %w", err)
		}
		m.log.Debug("Alert refreshed inside cooldown window",
			"tenant_id", input.TenantID.String(),
			"category", input.Category,
			"alert_id", existing.ID.String(),
		)
		return existing, false, nil
	}

	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}
	rawTags, _ := json.Marshal(tags)

	alert := &types.Alert{
		ID:            uuid.New(),
		TenantID:      input.TenantID,
		PersonID:      input.PersonID,
		Category:      input.Category,
		Severity:      input.Severity,
		Score:         input.Score,
		Status:        types.AlertStatusActive,
		Title:         input.Title,
		Justification: input.Justification,
		Context:       alertContext(input.Factors, input.Actions),
		Tags:          datatypes.JSON(rawTags),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := m.alertRepo.Create(ctx, tx, []*types.Alert{alert}); err != nil {
		return nil, false, fmt.Errorf("create alert: %w", err)
	}

	m.log.Info("Alert raised",
		"tenant_id", input.TenantID.String(),
		"category", input.Category,
		"severity", input.Severity,
		"alert_id", alert.ID.String(),
	)
	return alert, true, nil
}

func (m *alertManager) Resolve(ctx context.Context, tx *gorm.DB, tenantID, alertID, resolverID uuid.UUID, note string) (*types.Alert, error) {
	alert, err := m.alertRepo.GetByID(ctx, tx, tenantID, alertID)
	if err != nil {
		return nil, err
	}
	if alert.Status == types.AlertStatusResolved {
		return alert, nil
	}

	now := time.Now().UTC()
	alert.Status = types.AlertStatusResolved
	alert.ResolvedAt = &now
	alert.ResolvedBy = &resolverID
	alert.ResolutionNote = note
	alert.UpdatedAt = now
	if err := m.alertRepo.Save(ctx, tx, alert); err != nil {
		return nil, fmt.Errorf("resolve alert: %w", err)
	}

	m.log.Info("Alert resolved",
		"tenant_id", tenantID.String(),
		"alert_id", alertID.String(),
		"resolved_by", resolverID.String(),
	)
	return alert, nil
}

func (m *alertManager) List(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID, opts repos.ListAlertsOptions) ([]*types.Alert, int64, error) {
	return m.alertRepo.List(ctx, tx, tenantID, opts)
}

func (m *alertManager) reviewSuggestion(ctx context.Context, tx *gorm.DB, tenantID, suggestionID, reviewerID uuid.UUID, status, notes string) (*types.ImprovementSuggestion, error) {
	if reviewerID == uuid.Nil {
		return nil, fmt.Errorf("%w: reviewer is required", types.ErrValidation)
	}

	suggestion, err := m.suggestionRepo.GetByID(ctx, tx, tenantID, suggestionID)
	if err != nil {
		return nil, err
	}
	if suggestion.Status != types.SuggestionStatusSuggested && suggestion.Status != types.SuggestionStatusUnderReview {
		return nil, fmt.Errorf("%w: suggestion already reviewed (status %s)", types.ErrValidation, suggestion.Status)
	}

	suggestion.Status = status
	suggestion.ReviewerID = &reviewerID
	suggestion.ReviewerNotes = notes
	suggestion.UpdatedAt = time.Now().UTC()
	if err := m.suggestionRepo.Save(ctx, tx, suggestion); err != nil {
		return nil, fmt.Errorf("save suggestion: %w", err)
	}

	m.log.Info("Suggestion reviewed",
		"tenant_id", tenantID.String(),
		"suggestion_id", suggestionID.String(),
		"status", status,
	)
	return suggestion, nil
}

func (m *alertManager) ApproveSuggestion(ctx context.Context, tx *gorm.DB, tenantID, suggestionID, reviewerID uuid.UUID, notes string) (*types.ImprovementSuggestion, error) {
	return m.reviewSuggestion(ctx, tx, tenantID, suggestionID, reviewerID, types.SuggestionStatusApproved, notes)
}

func (m *alertManager) RejectSuggestion(ctx context.Context, tx *gorm.DB, tenantID, suggestionID, reviewerID uuid.UUID, notes string) (*types.ImprovementSuggestion, error) {
	return m.reviewSuggestion(ctx, tx, tenantID, suggestionID, reviewerID, types.SuggestionStatusRejected, notes)
}
