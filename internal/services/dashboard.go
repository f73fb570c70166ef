package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/repos"
	"github.com/onboardhq/pulse-backend/internal/types"
	"github.com/onboardhq/pulse-backend/internal/utils"
)

// AtRiskPerson is the trimmed person view shown on the dashboard.
type AtRiskPerson struct {
	ID               uuid.UUID `json:"id"`
	FullName         string    `json:"full_name"`
	RiskScore        float64   `json:"risk_score"`
	RiskLevel        string    `json:"risk_level"`
	CurrentSentiment string    `json:"current_sentiment,omitempty"`
}

// DashboardSummary is the admin landing view for one tenant.
type DashboardSummary struct {
	TenantID           uuid.UUID                      `json:"tenant_id"`
	AlertsBySeverity   []repos.SeverityCount          `json:"alerts_by_severity"`
	PendingSuggestions int64                          `json:"pending_suggestions"`
	TopAtRisk          []AtRiskPerson                 `json:"top_at_risk"`
	RecentAlerts       []*types.Alert                 `json:"recent_alerts"`
	RecentSuggestions  []*types.ImprovementSuggestion `json:"recent_suggestions"`
	LatestInsights     []Insight                      `json:"latest_insights"`
	LatestActions      []Recommendation               `json:"latest_actions"`
}

type DashboardService interface {
	Summary(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*DashboardSummary, error)
}

type dashboardService struct {
	log            *logger.Logger
	personRepo     repos.PersonRepo
	alertRepo      repos.AlertRepo
	suggestionRepo repos.SuggestionRepo
	reportRepo     repos.ReportRepo
	topLimit       int
	atRiskScore    float64
}

func NewDashboardService(
	log *logger.Logger,
	personRepo repos.PersonRepo,
	alertRepo repos.AlertRepo,
	suggestionRepo repos.SuggestionRepo,
	reportRepo repos.ReportRepo,
) DashboardService {
	return &dashboardService{
		log:            log.With("service", "DashboardService"),
		personRepo:     personRepo,
		alertRepo:      alertRepo,
		suggestionRepo: suggestionRepo,
		reportRepo:     reportRepo,
		topLimit:       utils.GetEnvAsInt("DASHBOARD_TOP_AT_RISK", 10, nil),
		atRiskScore:    utils.GetEnvAsFloat("MONITOR_AT_RISK_SCORE", 60, nil),
	}
}

func (s *dashboardService) Summary(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*DashboardSummary, error) {
	severityCounts, err := s.alertRepo.CountActiveBySeverity(ctx, tx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("alert severity counts: %w", err)
	}
	pending, err := s.suggestionRepo.CountPending(ctx, tx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("pending suggestions: %w", err)
	}

	atRisk, err := s.personRepo.TopAtRisk(ctx, tx, tenantID, s.atRiskScore, s.topLimit)
	if err != nil {
		return nil, fmt.Errorf("top at risk: %w", err)
	}
	topAtRisk := make([]AtRiskPerson, 0, len(atRisk))
	for _, person := range atRisk {
		topAtRisk = append(topAtRisk, AtRiskPerson{
			ID:               person.ID,
			FullName:         person.FullName,
			RiskScore:        person.RiskScore,
			RiskLevel:        types.RiskLevelForScore(person.RiskScore),
			CurrentSentiment: person.CurrentSentiment,
		})
	}

	recentAlerts, _, err := s.alertRepo.List(ctx, tx, tenantID, repos.ListAlertsOptions{
		Status: types.AlertStatusActive,
		Limit:  10,
	})
	if err != nil {
		return nil, fmt.Errorf("recent alerts: %w", err)
	}
	recentSuggestions, _, err := s.suggestionRepo.List(ctx, tx, tenantID, repos.ListSuggestionsOptions{Limit: 10})
	if err != nil {
		return nil, fmt.Errorf("recent suggestions: %w", err)
	}

	insights := []Insight{}
	actions := []Recommendation{}
	latest, err := s.reportRepo.Latest(ctx, tx, tenantID, types.ReportKindDailySummary)
	if err != nil && err != types.ErrNotFound {
		return nil, fmt.Errorf("latest report: %w", err)
	}
	if latest != nil {
		var body struct {
			Insights        []Insight        `json:"insights"`
			Recommendations []Recommendation `json:"recommendations"`
		}
		if uErr := json.Unmarshal(latest.Body, &body); uErr == nil {
			if body.Insights != nil {
				insights = body.Insights
			}
			if body.Recommendations != nil {
				actions = body.Recommendations
			}
		}
	}

	return &DashboardSummary{
		TenantID:           tenantID,
		AlertsBySeverity:   severityCounts,
		PendingSuggestions: pending,
		TopAtRisk:          topAtRisk,
		RecentAlerts:       recentAlerts,
		RecentSuggestions:  recentSuggestions,
		LatestInsights:     insights,
		LatestActions:      actions,
	}, nil
}
