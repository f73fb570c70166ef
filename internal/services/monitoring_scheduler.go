package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/onboardhq/pulse-backend/internal/logger"
	"github.com/onboardhq/pulse-backend/internal/repos"
	"github.com/onboardhq/pulse-backend/internal/types"
	"github.com/onboardhq/pulse-backend/internal/utils"
)

const (
	TierContinuous = "continuous"
	TierHourly     = "hourly"
	TierDaily      = "daily"
)

// TenantError records a failure scoped to one tenant and step; other tenants
// keep running.
type TenantError struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Step     string    `json:"step"`
	Message  string    `json:"message"`
}

// TierResult summarizes one tier run across all active tenants.
type TierResult struct {
	Tier               string        `json:"tier"`
	StartedAt          time.Time     `json:"started_at"`
	Duration           time.Duration `json:"duration"`
	TenantsProcessed   int           `json:"tenants_processed"`
	PeopleAnalyzed     int           `json:"people_analyzed"`
	ScoresUpdated      int           `json:"scores_updated"`
	AlertsCreated      int           `json:"alerts_created"`
	NotificationsSent  int           `json:"notifications_sent"`
	SuggestionsCreated int           `json:"suggestions_created"`
	ReportsCreated     int           `json:"reports_created"`
	Errors             []TenantError `json:"errors"`
}

type MonitoringScheduler interface {
	RunContinuous(ctx context.Context) (*TierResult, error)
	RunHourly(ctx context.Context) (*TierResult, error)
	RunDaily(ctx context.Context) (*TierResult, error)
}

type monitoringScheduler struct {
	log    *logger.Logger
	tracer trace.Tracer

	tenantRepo     repos.TenantRepo
	personRepo     repos.PersonRepo
	sentimentRepo  repos.SentimentRecordRepo
	trackRepo      repos.TrackProgressRepo
	suggestionRepo repos.SuggestionRepo
	reportRepo     repos.ReportRepo

	scorer     RiskScorer
	alerts     AlertManager
	dispatcher NotificationDispatcher
	patterns   PatternDetector
	metrics    MetricsCollector
	insights   InsightGenerator

	tenantConcurrency int
	staleAfter        time.Duration
	inactivityAfter   time.Duration
	continuousWindow  time.Duration
	trendWindow       time.Duration
	criticalScore     float64
	retentionDays     int
}

func NewMonitoringScheduler(
	log *logger.Logger,
	tenantRepo repos.TenantRepo,
	personRepo repos.PersonRepo,
	sentimentRepo repos.SentimentRecordRepo,
	trackRepo repos.TrackProgressRepo,
	suggestionRepo repos.SuggestionRepo,
	reportRepo repos.ReportRepo,
	scorer RiskScorer,
	alerts AlertManager,
	dispatcher NotificationDispatcher,
	patterns PatternDetector,
	metrics MetricsCollector,
	insights InsightGenerator,
) MonitoringScheduler {
	return &monitoringScheduler{
		log:               log.With("service", "MonitoringScheduler"),
		tracer:            otel.Tracer("monitoring-scheduler"),
		tenantRepo:        tenantRepo,
		personRepo:        personRepo,
		sentimentRepo:     sentimentRepo,
		trackRepo:         trackRepo,
		suggestionRepo:    suggestionRepo,
		reportRepo:        reportRepo,
		scorer:            scorer,
		alerts:            alerts,
		dispatcher:        dispatcher,
		patterns:          patterns,
		metrics:           metrics,
		insights:          insights,
		tenantConcurrency: utils.GetEnvAsInt("MONITOR_TENANT_CONCURRENCY", 4, nil),
		staleAfter:        time.Duration(utils.GetEnvAsInt("MONITOR_STALE_MINUTES", 15, nil)) * time.Minute,
		inactivityAfter:   time.Duration(utils.GetEnvAsInt("MONITOR_INACTIVITY_DAYS", 5, nil)) * 24 * time.Hour,
		continuousWindow:  time.Duration(utils.GetEnvAsInt("MONITOR_CONTINUOUS_WINDOW_DAYS", 7, nil)) * 24 * time.Hour,
		trendWindow:       time.Duration(utils.GetEnvAsInt("MONITOR_TREND_WINDOW_DAYS", 30, nil)) * 24 * time.Hour,
		criticalScore:     utils.GetEnvAsFloat("MONITOR_CRITICAL_SCORE", 80, nil),
		retentionDays:     utils.GetEnvAsInt("MONITOR_NOTIFICATION_RETENTION_DAYS", 30, nil),
	}
}

// tierCounters accumulates per-tenant work; merged into the TierResult under
// the scheduler's lock after the tenant finishes.
type tierCounters struct {
	peopleAnalyzed     int
	scoresUpdated      int
	alertsCreated      int
	notificationsSent  int
	suggestionsCreated int
	reportsCreated     int
	errors             []TenantError
}

func (c *tierCounters) fail(tenantID uuid.UUID, step string, err error) {
	c.errors = append(c.errors, TenantError{TenantID: tenantID, Step: step, Message: err.Error()})
}

func (s *monitoringScheduler) runTier(ctx context.Context, tier string, perTenant func(ctx context.Context, tenant *types.Tenant, counters *tierCounters)) (*TierResult, error) {
	started := time.Now().UTC()
	ctx, span := s.tracer.Start(ctx, "monitoring.run_tier", trace.WithAttributes(attribute.String("tier", tier)))
	defer span.End()

	result := &TierResult{
		Tier:      tier,
		StartedAt: started,
		Errors:    []TenantError{},
	}

	tenants, err := s.tenantRepo.ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.tenantConcurrency)

	for _, tenant := range tenants {
		tenant := tenant
		g.Go(func() error {
			counters := &tierCounters{}
			func() {
				defer func() {
					if r := recover(); r != nil {
						counters.fail(tenant.ID, "panic", fmt.Errorf("recovered: %v", r))
						s.log.Error("Tenant processing panicked",
							"tier", tier,
							"tenant_id", tenant.ID.String(),
							"panic", fmt.Sprintf("%v", r),
						)
					}
				}()
				perTenant(gctx, tenant, counters)
			}()

			mu.Lock()
			result.TenantsProcessed++
			result.PeopleAnalyzed += counters.peopleAnalyzed
			result.ScoresUpdated += counters.scoresUpdated
			result.AlertsCreated += counters.alertsCreated
			result.NotificationsSent += counters.notificationsSent
			result.SuggestionsCreated += counters.suggestionsCreated
			result.ReportsCreated += counters.reportsCreated
			result.Errors = append(result.Errors, counters.errors...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	result.Duration = time.Since(started)
	span.SetAttributes(
		attribute.Int("tenants_processed", result.TenantsProcessed),
		attribute.Int("alerts_created", result.AlertsCreated),
		attribute.Int("tenant_errors", len(result.Errors)),
	)
	s.log.Info("Tier run complete",
		"tier", tier,
		"duration", result.Duration.String(),
		"tenants", result.TenantsProcessed,
		"people_analyzed", result.PeopleAnalyzed,
		"scores_updated", result.ScoresUpdated,
		"alerts_created", result.AlertsCreated,
		"notifications_sent", result.NotificationsSent,
		"errors", len(result.Errors),
	)
	return result, nil
}

func (s *monitoringScheduler) RunContinuous(ctx context.Context) (*TierResult, error) {
	return s.runTier(ctx, TierContinuous, func(ctx context.Context, tenant *types.Tenant, counters *tierCounters) {
		now := time.Now().UTC()

		// Each sub-step fails independently so one broken query does not stop
		// the rest of the sweep for the tenant.
		if err := s.rescoreStale(ctx, tenant, now, counters); err != nil {
			counters.fail(tenant.ID, "rescore_stale", err)
		}
		if err := s.scanSentimentTransitions(ctx, tenant, now, counters); err != nil {
			counters.fail(tenant.ID, "sentiment_transitions", err)
		}
		if err := s.scanNewlyOverdue(ctx, tenant, now, counters); err != nil {
			counters.fail(tenant.ID, "newly_overdue", err)
		}
		if err := s.scanInactivity(ctx, tenant, now, counters); err != nil {
			counters.fail(tenant.ID, "inactivity", err)
		}
	})
}

func (s *monitoringScheduler) RunHourly(ctx context.Context) (*TierResult, error) {
	return s.runTier(ctx, TierHourly, func(ctx context.Context, tenant *types.Tenant, counters *tierCounters) {
		if err := s.rescoreAll(ctx, tenant, counters); err != nil {
			counters.fail(tenant.ID, "rescore_all", err)
		}

		detected, err := s.patterns.Detect(ctx, nil, tenant.ID, 24*time.Hour, 3)
		if err != nil {
			counters.fail(tenant.ID, "detect_patterns", err)
			detected = nil
		}

		snapshot, err := s.metrics.Collect(ctx, nil, tenant.ID)
		if err != nil {
			counters.fail(tenant.ID, "collect_metrics", err)
			return
		}

		report := s.insights.Summarize(ctx, snapshot, detected)
		if err := s.suggestFromInsights(ctx, tenant, report, counters); err != nil {
			counters.fail(tenant.ID, "create_suggestions", err)
		}
	})
}

func (s *monitoringScheduler) RunDaily(ctx context.Context) (*TierResult, error) {
	return s.runTier(ctx, TierDaily, func(ctx context.Context, tenant *types.Tenant, counters *tierCounters) {
		now := time.Now().UTC()

		snapshot, err := s.metrics.Collect(ctx, nil, tenant.ID)
		if err != nil {
			counters.fail(tenant.ID, "collect_metrics", err)
			return
		}

		detected, err := s.patterns.Detect(ctx, nil, tenant.ID, 7*24*time.Hour, 3)
		if err != nil {
			counters.fail(tenant.ID, "detect_patterns", err)
			detected = nil
		}

		summary := s.insights.Summarize(ctx, snapshot, detected)

		report, err := s.writeReport(ctx, tenant, snapshot, detected, summary, now)
		if err != nil {
			counters.fail(tenant.ID, "write_report", err)
		} else {
			counters.reportsCreated++
			sent, err := s.dispatcher.NotifyTenantAdmins(ctx, nil, tenant.ID, NotifyInput{
				Type:    types.NotificationTypeDailyReport,
				Title:   "Daily monitoring report",
				Message: fmt.Sprintf("%d active people, %d at risk, %d active alerts.", snapshot.ActivePeople, snapshot.AtRiskCount, sumSeverityCounts(snapshot.ActiveAlerts)),
				Payload: map[string]any{"report_id": report.ID.String()},
				Link:    "/reports/" + report.ID.String(),
			})
			if err != nil {
				counters.fail(tenant.ID, "notify_report", err)
			}
			counters.notificationsSent += sent
		}

		if err := s.suggestFromInsights(ctx, tenant, summary, counters); err != nil {
			counters.fail(tenant.ID, "create_suggestions", err)
		}

		deleted, err := s.dispatcher.PurgeOlderThan(ctx, nil, &tenant.ID, nil, time.Duration(s.retentionDays)*24*time.Hour)
		if err != nil {
			counters.fail(tenant.ID, "purge_notifications", err)
		} else if deleted > 0 {
			s.log.Debug("Notification retention applied", "tenant_id", tenant.ID.String(), "deleted", deleted)
		}
	})
}

// scorePerson assesses one person over the given signal lookback, persists the
// score and raises a critical alert when warranted.
func (s *monitoringScheduler) scorePerson(ctx context.Context, tenant *types.Tenant, person *types.Person, lookback time.Duration, counters *tierCounters) error {
	counters.peopleAnalyzed++

	assessment, err := s.scorer.Assess(ctx, nil, person, lookback)
	if err != nil {
		return fmt.Errorf("assess %s: %w", person.ID, err)
	}
	if err := s.personRepo.UpdateRisk(ctx, nil, tenant.ID, person.ID, assessment.Score, time.Now().UTC()); err != nil {
		return fmt.Errorf("update risk %s: %w", person.ID, err)
	}
	counters.scoresUpdated++

	if assessment.Score < s.criticalScore {
		return nil
	}

	personID := person.ID
	alert, created, err := s.alerts.Raise(ctx, nil, RaiseAlertInput{
		TenantID:      tenant.ID,
		PersonID:      &personID,
		Category:      types.AlertCategoryAttritionRisk,
		Severity:      types.SeverityCritical,
		Score:         assessment.Score,
		Title:         fmt.Sprintf("%s is at critical risk", person.FullName),
		Justification: fmt.Sprintf("Composite risk score %.0f (%s).", assessment.Score, assessment.Level),
		Factors:       assessment.Factors,
		Actions:       assessment.Actions,
	})
	if err != nil {
		return fmt.Errorf("raise critical alert %s: %w", person.ID, err)
	}
	if !created {
		return nil
	}
	counters.alertsCreated++

	sent, err := s.dispatcher.NotifyTenantAdmins(ctx, nil, tenant.ID, NotifyInput{
		Type:    types.NotificationTypeRiskAlert,
		Title:   alert.Title,
		Message: alert.Justification,
		Payload: map[string]any{"alert_id": alert.ID.String(), "person_id": person.ID.String()},
		Link:    "/alerts/" + alert.ID.String(),
	})
	if err != nil {
		return fmt.Errorf("notify critical alert %s: %w", person.ID, err)
	}
	counters.notificationsSent += sent
	return nil
}

func (s *monitoringScheduler) rescoreStale(ctx context.Context, tenant *types.Tenant, now time.Time, counters *tierCounters) error {
	stale, err := s.personRepo.ListStale(ctx, nil, tenant.ID, now.Add(-s.staleAfter))
	if err != nil {
		return fmt.Errorf("list stale: %w", err)
	}
	for _, person := range stale {
		if err := s.scorePerson(ctx, tenant, person, s.continuousWindow, counters); err != nil {
			counters.fail(tenant.ID, "rescore_stale", err)
		}
	}
	return nil
}

func (s *monitoringScheduler) rescoreAll(ctx context.Context, tenant *types.Tenant, counters *tierCounters) error {
	people, err := s.personRepo.ListActive(ctx, nil, tenant.ID)
	if err != nil {
		return fmt.Errorf("list active people: %w", err)
	}
	for _, person := range people {
		if err := s.scorePerson(ctx, tenant, person, s.trendWindow, counters); err != nil {
			counters.fail(tenant.ID, "rescore_all", err)
		}
	}
	return nil
}

// scanSentimentTransitions raises alerts for people who slid into negative
// territory within the last hour and keeps the denormalized current sentiment
// on the person row in sync.
func (s *monitoringScheduler) scanSentimentTransitions(ctx context.Context, tenant *types.Tenant, now time.Time, counters *tierCounters) error {
	recent, err := s.sentimentRepo.ListByTenantSince(ctx, nil, tenant.ID, now.Add(-time.Hour))
	if err != nil {
		return fmt.Errorf("list recent sentiments: %w", err)
	}

	// keep only the latest record per person; records arrive oldest first
	latestByPerson := map[uuid.UUID]*types.SentimentRecord{}
	for _, record := range recent {
		latestByPerson[record.PersonID] = record
	}

	for personID, record := range latestByPerson {
		if err := s.personRepo.UpdateSentiment(ctx, nil, tenant.ID, personID, record.Label, record.CreatedAt); err != nil {
			counters.fail(tenant.ID, "sentiment_transitions", fmt.Errorf("update sentiment %s: %w", personID, err))
			continue
		}
		if !types.IsNegativeSentiment(record.Label) {
			continue
		}

		prev, err := s.sentimentRepo.PrevBefore(ctx, nil, tenant.ID, personID, record.CreatedAt)
		if err != nil && err != types.ErrNotFound {
			counters.fail(tenant.ID, "sentiment_transitions", fmt.Errorf("prev sentiment %s: %w", personID, err))
			continue
		}
		if prev != nil && types.IsNegativeSentiment(prev.Label) {
			continue // already negative, no transition
		}

		severity := types.SeverityMedium
		if record.Label == types.SentimentVeryNegative {
			severity = types.SeverityHigh
		}
		pid := personID
		_, created, err := s.alerts.Raise(ctx, nil, RaiseAlertInput{
			TenantID:      tenant.ID,
			PersonID:      &pid,
			Category:      types.AlertCategoryNegativeSentiment,
			Severity:      severity,
			Score:         record.Intensity * 100,
			Title:         "Sentiment turned negative",
			Justification: fmt.Sprintf("Latest reading is %s (intensity %.2f).", record.Label, record.Intensity),
		})
		if err != nil {
			counters.fail(tenant.ID, "sentiment_transitions", fmt.Errorf("raise alert %s: %w", personID, err))
			continue
		}
		if created {
			counters.alertsCreated++
		}
	}
	return nil
}

func (s *monitoringScheduler) scanNewlyOverdue(ctx context.Context, tenant *types.Tenant, now time.Time, counters *tierCounters) error {
	overdue, err := s.trackRepo.ListNewlyOverdue(ctx, nil, tenant.ID, now.Add(-time.Hour), now)
	if err != nil {
		return fmt.Errorf("list newly overdue: %w", err)
	}

	byPerson := map[uuid.UUID][]*types.TrackProgress{}
	for _, track := range overdue {
		byPerson[track.PersonID] = append(byPerson[track.PersonID], track)
	}

	for personID, tracks := range byPerson {
		severity := types.SeverityMedium
		if len(tracks) >= 2 {
			severity = types.SeverityHigh
		}
		names := make([]string, 0, len(tracks))
		for _, t := range tracks {
			names = append(names, t.TrackName)
		}
		pid := personID
		_, created, err := s.alerts.Raise(ctx, nil, RaiseAlertInput{
			TenantID:      tenant.ID,
			PersonID:      &pid,
			Category:      types.AlertCategoryOverdueTrack,
			Severity:      severity,
			Score:         float64(len(tracks)) * 25,
			Title:         fmt.Sprintf("%d track(s) just became overdue", len(tracks)),
			Justification: fmt.Sprintf("Tracks past due: %v.", names),
			Factors:       names,
		})
		if err != nil {
			counters.fail(tenant.ID, "newly_overdue", fmt.Errorf("raise alert %s: %w", personID, err))
			continue
		}
		if created {
			counters.alertsCreated++
		}
	}
	return nil
}

func (s *monitoringScheduler) scanInactivity(ctx context.Context, tenant *types.Tenant, now time.Time, counters *tierCounters) error {
	inactive, err := s.personRepo.ListInactive(ctx, nil, tenant.ID, now.Add(-s.inactivityAfter))
	if err != nil {
		return fmt.Errorf("list inactive: %w", err)
	}

	for _, person := range inactive {
		anchor := person.CreatedAt
		if person.LastActivityAt != nil {
			anchor = *person.LastActivityAt
		}
		days := int(now.Sub(anchor).Hours() / 24)

		pid := person.ID
		_, created, err := s.alerts.Raise(ctx, nil, RaiseAlertInput{
			TenantID:      tenant.ID,
			PersonID:      &pid,
			Category:      types.AlertCategoryInactivity,
			Severity:      types.SeverityMedium,
			Score:         minF(float64(days)*10, 100),
			Title:         fmt.Sprintf("%s has gone quiet", person.FullName),
			Justification: fmt.Sprintf("No recorded activity for %d days.", days),
		})
		if err != nil {
			counters.fail(tenant.ID, "inactivity", fmt.Errorf("raise alert %s: %w", person.ID, err))
			continue
		}
		if created {
			counters.alertsCreated++
		}
	}
	return nil
}

// suggestFromInsights turns high-impact insights into system-authored
// improvement suggestions, skipping titles that already have an open one.
// Recommendations are paired to insights by position when the report carries
// them; otherwise the suggestion inherits a high priority from the impact.
func (s *monitoringScheduler) suggestFromInsights(ctx context.Context, tenant *types.Tenant, report *InsightReport, counters *tierCounters) error {
	now := time.Now().UTC()
	for i, insight := range report.Insights {
		if insight.Impact != ImpactHigh {
			continue
		}

		exists, err := s.suggestionRepo.ExistsOpen(ctx, nil, tenant.ID, insight.Title)
		if err != nil {
			return fmt.Errorf("check open suggestion: %w", err)
		}
		if exists {
			continue
		}

		priority := types.PriorityHigh
		description := insight.Description
		if i < len(report.Recommendations) {
			priority = report.Recommendations[i].Priority
			description = report.Recommendations[i].Action
		}

		analysis, err := json.Marshal(insight)
		if err != nil {
			return fmt.Errorf("marshal insight: %w", err)
		}
		suggestion := &types.ImprovementSuggestion{
			ID:          uuid.New(),
			TenantID:    tenant.ID,
			Category:    "monitoring_insight",
			Priority:    priority,
			Title:       insight.Title,
			Description: description,
			Analysis:    datatypes.JSON(analysis),
			Status:      types.SuggestionStatusSuggested,
			Author:      types.SuggestionAuthorSystem,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if _, err := s.suggestionRepo.Create(ctx, nil, []*types.ImprovementSuggestion{suggestion}); err != nil {
			return fmt.Errorf("create suggestion: %w", err)
		}
		counters.suggestionsCreated++
	}
	return nil
}

func (s *monitoringScheduler) writeReport(ctx context.Context, tenant *types.Tenant, snapshot *TenantMetrics, patterns []Pattern, summary *InsightReport, now time.Time) (*types.Report, error) {
	body, err := json.Marshal(map[string]any{
		"metrics":         snapshot,
		"patterns":        patterns,
		"insights":        summary.Insights,
		"recommendations": summary.Recommendations,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal report body: %w", err)
	}

	report := &types.Report{
		ID:          uuid.New(),
		TenantID:    tenant.ID,
		Kind:        types.ReportKindDailySummary,
		PeriodStart: now.Add(-24 * time.Hour),
		PeriodEnd:   now,
		Body:        datatypes.JSON(body),
		CreatedAt:   now,
	}
	if _, err := s.reportRepo.Create(ctx, nil, []*types.Report{report}); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return report, nil
}

func sumSeverityCounts(counts []repos.SeverityCount) int64 {
	var n int64
	for _, c := range counts {
		n += c.Count
	}
	return n
}
