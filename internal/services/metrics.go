package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/repos"
	"github.com/onboardhq/pulse-backend/internal/utils"
)

// TenantMetrics is the tenant-wide snapshot feeding reports and insights.
type TenantMetrics struct {
	TenantID              uuid.UUID                     `json:"tenant_id"`
	WindowDays            int                           `json:"window_days"`
	TotalPeople           int64                         `json:"total_people"`
	ActivePeople          int64                         `json:"active_people"`
	AtRiskCount           int64                         `json:"at_risk_count"`
	TrackStats            repos.TrackStats              `json:"track_stats"`
	SentimentDistribution []repos.SentimentDistribution `json:"sentiment_distribution"`
	ActiveAlerts          []repos.SeverityCount         `json:"active_alerts"`
	PendingSuggestions    int64                         `json:"pending_suggestions"`
	CollectedAt           time.Time                     `json:"collected_at"`
}

// NegativeShare is the fraction of sentiment readings in the window that were
// negative or very negative. Zero when there were no readings.
func (m *TenantMetrics) NegativeShare() float64 {
	var total, negative int64
	for _, d := range m.SentimentDistribution {
		total += d.Count
		if d.Label == "negative" || d.Label == "very_negative" {
			negative += d.Count
		}
	}
	if total == 0 {
		return 0
	}
	return float64(negative) / float64(total)
}

type MetricsCollector interface {
	Collect(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*TenantMetrics, error)
}

type metricsCollector struct {
	log            *logger.Logger
	personRepo     repos.PersonRepo
	trackRepo      repos.TrackProgressRepo
	sentimentRepo  repos.SentimentRecordRepo
	alertRepo      repos.AlertRepo
	suggestionRepo repos.SuggestionRepo
	windowDays     int
	atRiskScore    float64
}

func NewMetricsCollector(
	log *logger.Logger,
	personRepo repos.PersonRepo,
	trackRepo repos.TrackProgressRepo,
	sentimentRepo repos.SentimentRecordRepo,
	alertRepo repos.AlertRepo,
	suggestionRepo repos.SuggestionRepo,
) MetricsCollector {
	return &metricsCollector{
		log:            log.With("service", "MetricsCollector"),
		personRepo:     personRepo,
		trackRepo:      trackRepo,
		sentimentRepo:  sentimentRepo,
		alertRepo:      alertRepo,
		suggestionRepo: suggestionRepo,
		windowDays:     utils.GetEnvAsInt("MONITOR_METRICS_WINDOW_DAYS", 7, nil),
		atRiskScore:    utils.GetEnvAsFloat("MONITOR_AT_RISK_SCORE", 60, nil),
	}
}

func (c *metricsCollector) Collect(ctx context.Context, tx *gorm.DB, tenantID uuid.UUID) (*TenantMetrics, error) {
	now := time.Now().UTC()
	since := now.Add(-time.Duration(c.windowDays) * 24 * time.Hour)

	total, active, err := c.personRepo.CountByTenant(ctx, tx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("count people: %w", err)
	}
	atRisk, err := c.personRepo.CountAtRisk(ctx, tx, tenantID, c.atRiskScore)
	if err != nil {
		return nil, fmt.Errorf("count at risk: %w", err)
	}
	trackStats, err := c.trackRepo.Stats(ctx, tx, tenantID, now)
	if err != nil {
		return nil, fmt.Errorf("track stats: %w", err)
	}
	distribution, err := c.sentimentRepo.Distribution(ctx, tx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("sentiment distribution: %w", err)
	}
	alertCounts, err := c.alertRepo.CountActiveBySeverity(ctx, tx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("alert counts: %w", err)
	}
	pending, err := c.suggestionRepo.CountPending(ctx, tx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("count pending suggestions: %w", err)
	}

	return &TenantMetrics{
		TenantID:              tenantID,
		WindowDays:            c.windowDays,
		TotalPeople:           total,
		ActivePeople:          active,
		AtRiskCount:           atRisk,
		TrackStats:            trackStats,
		SentimentDistribution: distribution,
		ActiveAlerts:          alertCounts,
		PendingSuggestions:    pending,
		CollectedAt:           now,
	}, nil
}
